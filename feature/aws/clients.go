package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudcontrol"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// CloudControlAPI is the part of the Cloud Control client used by the default kind.
type CloudControlAPI interface {
	ListResources(ctx context.Context, params *cloudcontrol.ListResourcesInput, optFns ...func(*cloudcontrol.Options)) (*cloudcontrol.ListResourcesOutput, error)
	GetResource(ctx context.Context, params *cloudcontrol.GetResourceInput, optFns ...func(*cloudcontrol.Options)) (*cloudcontrol.GetResourceOutput, error)
}

// STSAPI resolves the calling account.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// EC2API lists regions, VPCs and security groups.
type EC2API interface {
	ec2.DescribeVpcsAPIClient
	ec2.DescribeSecurityGroupsAPIClient
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// CloudFormationAPI lists and describes stacks.
type CloudFormationAPI interface {
	ListStacks(ctx context.Context, params *cloudformation.ListStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ListStacksOutput, error)
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	DescribeStackResources(ctx context.Context, params *cloudformation.DescribeStackResourcesInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackResourcesOutput, error)
	GetTemplate(ctx context.Context, params *cloudformation.GetTemplateInput, optFns ...func(*cloudformation.Options)) (*cloudformation.GetTemplateOutput, error)
}

// EKSAPI lists and describes clusters.
type EKSAPI interface {
	eks.ListClustersAPIClient
	DescribeCluster(ctx context.Context, params *eks.DescribeClusterInput, optFns ...func(*eks.Options)) (*eks.DescribeClusterOutput, error)
}

// TaggingAPI pages through tagged resources.
type TaggingAPI interface {
	resourcegroupstaggingapi.GetResourcesAPIClient
}

// Clients builds region-scoped service clients.
type Clients interface {
	CloudControl(ctx context.Context, region string) (CloudControlAPI, error)
	STS(ctx context.Context, region string) (STSAPI, error)
	EC2(ctx context.Context, region string) (EC2API, error)
	EKS(ctx context.Context, region string) (EKSAPI, error)
	Tagging(ctx context.Context, region string) (TaggingAPI, error)
	CloudFormation(ctx context.Context, region string) (CloudFormationAPI, error)
}

// SDKClients creates clients from the default credential chain.
type SDKClients struct {
	// Profile selects a shared config profile; empty uses the default.
	Profile string
}

func (s SDKClients) load(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if s.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(s.Profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config for %s: %w", region, err)
	}
	return cfg, nil
}

// CloudControl returns a Cloud Control client for region.
func (s SDKClients) CloudControl(ctx context.Context, region string) (CloudControlAPI, error) {
	cfg, err := s.load(ctx, region)
	if err != nil {
		return nil, err
	}
	return cloudcontrol.NewFromConfig(cfg), nil
}

// STS returns an STS client for region.
func (s SDKClients) STS(ctx context.Context, region string) (STSAPI, error) {
	cfg, err := s.load(ctx, region)
	if err != nil {
		return nil, err
	}
	return sts.NewFromConfig(cfg), nil
}

// EC2 returns an EC2 client for region.
func (s SDKClients) EC2(ctx context.Context, region string) (EC2API, error) {
	cfg, err := s.load(ctx, region)
	if err != nil {
		return nil, err
	}
	return ec2.NewFromConfig(cfg), nil
}

// EKS returns an EKS client for region.
func (s SDKClients) EKS(ctx context.Context, region string) (EKSAPI, error) {
	cfg, err := s.load(ctx, region)
	if err != nil {
		return nil, err
	}
	return eks.NewFromConfig(cfg), nil
}

// Tagging returns a Resource Groups Tagging client for region.
func (s SDKClients) Tagging(ctx context.Context, region string) (TaggingAPI, error) {
	cfg, err := s.load(ctx, region)
	if err != nil {
		return nil, err
	}
	return resourcegroupstaggingapi.NewFromConfig(cfg), nil
}

// CloudFormation returns a CloudFormation client for region.
func (s SDKClients) CloudFormation(ctx context.Context, region string) (CloudFormationAPI, error) {
	cfg, err := s.load(ctx, region)
	if err != nil {
		return nil, err
	}
	return cloudformation.NewFromConfig(cfg), nil
}
