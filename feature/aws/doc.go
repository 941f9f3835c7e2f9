// Package aws provides the resource fetchers for Amazon Web Services.
//
// Kinds without a dedicated fetcher are enumerated and described through the
// Cloud Control API, one page at a time. Accounts, regions, VPCs, security
// groups, CloudFormation stacks, EKS clusters, tags and S3 buckets use their
// own service APIs. The tag enumeration is
// cached between runs since it walks every tagged resource in the region.
//
//	registry := aws.NewRegistry(aws.Deps{
//	    DefaultRegion: "us-east-1",
//	    Clients:       aws.SDKClients{},
//	})
package aws
