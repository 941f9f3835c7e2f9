package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudcontrol"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/mock"
)

type mockCloudControl struct{ mock.Mock }

func (m *mockCloudControl) ListResources(ctx context.Context, in *cloudcontrol.ListResourcesInput, _ ...func(*cloudcontrol.Options)) (*cloudcontrol.ListResourcesOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudcontrol.ListResourcesOutput)
	return out, args.Error(1)
}

func (m *mockCloudControl) GetResource(ctx context.Context, in *cloudcontrol.GetResourceInput, _ ...func(*cloudcontrol.Options)) (*cloudcontrol.GetResourceOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudcontrol.GetResourceOutput)
	return out, args.Error(1)
}

type mockSTS struct{ mock.Mock }

func (m *mockSTS) GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*sts.GetCallerIdentityOutput)
	return out, args.Error(1)
}

type mockEC2 struct{ mock.Mock }

func (m *mockEC2) DescribeRegions(ctx context.Context, in *ec2.DescribeRegionsInput, _ ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*ec2.DescribeRegionsOutput)
	return out, args.Error(1)
}

func (m *mockEC2) DescribeVpcs(ctx context.Context, in *ec2.DescribeVpcsInput, _ ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*ec2.DescribeVpcsOutput)
	return out, args.Error(1)
}

func (m *mockEC2) DescribeSecurityGroups(ctx context.Context, in *ec2.DescribeSecurityGroupsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*ec2.DescribeSecurityGroupsOutput)
	return out, args.Error(1)
}

type mockCloudFormation struct{ mock.Mock }

func (m *mockCloudFormation) ListStacks(ctx context.Context, in *cloudformation.ListStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.ListStacksOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudformation.ListStacksOutput)
	return out, args.Error(1)
}

func (m *mockCloudFormation) DescribeStacks(ctx context.Context, in *cloudformation.DescribeStacksInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudformation.DescribeStacksOutput)
	return out, args.Error(1)
}

func (m *mockCloudFormation) DescribeStackResources(ctx context.Context, in *cloudformation.DescribeStackResourcesInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStackResourcesOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudformation.DescribeStackResourcesOutput)
	return out, args.Error(1)
}

func (m *mockCloudFormation) GetTemplate(ctx context.Context, in *cloudformation.GetTemplateInput, _ ...func(*cloudformation.Options)) (*cloudformation.GetTemplateOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudformation.GetTemplateOutput)
	return out, args.Error(1)
}

type mockEKS struct{ mock.Mock }

func (m *mockEKS) ListClusters(ctx context.Context, in *eks.ListClustersInput, _ ...func(*eks.Options)) (*eks.ListClustersOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*eks.ListClustersOutput)
	return out, args.Error(1)
}

func (m *mockEKS) DescribeCluster(ctx context.Context, in *eks.DescribeClusterInput, _ ...func(*eks.Options)) (*eks.DescribeClusterOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*eks.DescribeClusterOutput)
	return out, args.Error(1)
}

type mockTagging struct{ mock.Mock }

func (m *mockTagging) GetResources(ctx context.Context, in *resourcegroupstaggingapi.GetResourcesInput, _ ...func(*resourcegroupstaggingapi.Options)) (*resourcegroupstaggingapi.GetResourcesOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*resourcegroupstaggingapi.GetResourcesOutput)
	return out, args.Error(1)
}

// fakeClients hands out fixed clients and records the requested regions.
type fakeClients struct {
	cc      *mockCloudControl
	sts     *mockSTS
	ec2     *mockEC2
	eks     *mockEKS
	tagging *mockTagging
	cfn     *mockCloudFormation
	regions []string
}

func (f *fakeClients) CloudControl(_ context.Context, region string) (CloudControlAPI, error) {
	f.regions = append(f.regions, region)
	return f.cc, nil
}

func (f *fakeClients) STS(_ context.Context, region string) (STSAPI, error) {
	f.regions = append(f.regions, region)
	return f.sts, nil
}

func (f *fakeClients) EC2(_ context.Context, region string) (EC2API, error) {
	f.regions = append(f.regions, region)
	return f.ec2, nil
}

func (f *fakeClients) EKS(_ context.Context, region string) (EKSAPI, error) {
	f.regions = append(f.regions, region)
	return f.eks, nil
}

func (f *fakeClients) Tagging(_ context.Context, region string) (TaggingAPI, error) {
	f.regions = append(f.regions, region)
	return f.tagging, nil
}

func (f *fakeClients) CloudFormation(_ context.Context, region string) (CloudFormationAPI, error) {
	f.regions = append(f.regions, region)
	return f.cfn, nil
}
