package aws

import (
	"context"
	"errors"
	"fmt"

	"resource-exporter/core/ingest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
)

// EKSFetcher lists and describes EKS clusters.
type EKSFetcher struct {
	api EKSAPI
}

// NewEKSFetcher creates an EKS cluster fetcher.
func NewEKSFetcher(api EKSAPI) *EKSFetcher {
	return &EKSFetcher{api: api}
}

// FetchAll returns the name of every cluster.
func (f *EKSFetcher) FetchAll(ctx context.Context) ([]ingest.RawResource, error) {
	var out []ingest.RawResource
	p := eks.NewListClustersPaginator(f.api, &eks.ListClustersInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list clusters: %w", err)
		}
		for _, name := range page.Clusters {
			out = append(out, ingest.RawResource{ingest.IdentifierField: name})
		}
	}
	return out, nil
}

// FetchOne describes the cluster named id.
func (f *EKSFetcher) FetchOne(ctx context.Context, id string) (ingest.RawResource, error) {
	out, err := f.api.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: aws.String(id)})
	if err != nil {
		var nf *ekstypes.ResourceNotFoundException
		if errors.As(err, &nf) {
			return nil, fmt.Errorf("cluster %s: %w", id, ingest.ErrNotFound)
		}
		return nil, fmt.Errorf("describe cluster %s: %w", id, err)
	}
	if out.Cluster == nil {
		return nil, fmt.Errorf("cluster %s: %w", id, ingest.ErrNotFound)
	}
	return clusterResource(out.Cluster), nil
}

func clusterResource(c *ekstypes.Cluster) ingest.RawResource {
	res := ingest.RawResource{
		ingest.IdentifierField: aws.ToString(c.Name),
		"arn":                  aws.ToString(c.Arn),
		"version":              aws.ToString(c.Version),
		"endpoint":             aws.ToString(c.Endpoint),
		"roleArn":              aws.ToString(c.RoleArn),
		"status":               string(c.Status),
		"tags":                 c.Tags,
	}
	if c.CreatedAt != nil {
		res["createdAt"] = *c.CreatedAt
	}

	var issues []map[string]any
	if c.Health != nil {
		for _, i := range c.Health.Issues {
			issues = append(issues, map[string]any{
				"code":        string(i.Code),
				"message":     aws.ToString(i.Message),
				"resourceIds": i.ResourceIds,
			})
		}
	}
	res["health"] = issues

	if vpc := c.ResourcesVpcConfig; vpc != nil {
		res["subnetIds"] = vpc.SubnetIds
		res["securityGroupIds"] = vpc.SecurityGroupIds
		res["vpcId"] = aws.ToString(vpc.VpcId)
		res["endpointPublicAccess"] = vpc.EndpointPublicAccess
		res["endpointPrivateAccess"] = vpc.EndpointPrivateAccess
		res["publicAccessCidrs"] = vpc.PublicAccessCidrs
	}
	if c.Identity != nil && c.Identity.Oidc != nil {
		res["openIdConnectIssuerUrl"] = aws.ToString(c.Identity.Oidc.Issuer)
	}
	return res
}
