package aws

import (
	"context"
	"fmt"
	"sync"

	"resource-exporter/core/ingest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// VPCFetcher describes VPCs and tags them with their region and account.
type VPCFetcher struct {
	api      EC2API
	identity STSAPI
	region   string

	mu        sync.Mutex
	accountID string
}

// NewVPCFetcher creates a VPC fetcher. The account id is resolved on first use.
func NewVPCFetcher(api EC2API, identity STSAPI, region string) *VPCFetcher {
	return &VPCFetcher{api: api, identity: identity, region: region}
}

func (f *VPCFetcher) account(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accountID != "" {
		return f.accountID, nil
	}
	out, err := f.identity.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("get caller identity: %w", err)
	}
	f.accountID = aws.ToString(out.Account)
	return f.accountID, nil
}

func (f *VPCFetcher) enrich(ctx context.Context, v any, id string) (ingest.RawResource, error) {
	account, err := f.account(ctx)
	if err != nil {
		return nil, err
	}
	res, err := toRaw(v)
	if err != nil {
		return nil, err
	}
	res[ingest.IdentifierField] = id
	res["regionName"] = f.region
	res["accountId"] = account
	return res, nil
}

// FetchAll returns every VPC in the region.
func (f *VPCFetcher) FetchAll(ctx context.Context) ([]ingest.RawResource, error) {
	var out []ingest.RawResource
	p := ec2.NewDescribeVpcsPaginator(f.api, &ec2.DescribeVpcsInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe vpcs: %w", err)
		}
		for _, vpc := range page.Vpcs {
			res, err := f.enrich(ctx, vpc, aws.ToString(vpc.VpcId))
			if err != nil {
				return nil, err
			}
			out = append(out, res)
		}
	}
	return out, nil
}

// FetchOne describes the VPC with id.
func (f *VPCFetcher) FetchOne(ctx context.Context, id string) (ingest.RawResource, error) {
	out, err := f.api.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{VpcIds: []string{id}})
	if err != nil {
		if isAPINotFound(err) {
			return nil, fmt.Errorf("vpc %s: %w", id, ingest.ErrNotFound)
		}
		return nil, fmt.Errorf("describe vpc %s: %w", id, err)
	}
	if len(out.Vpcs) == 0 {
		return nil, fmt.Errorf("vpc %s: %w", id, ingest.ErrNotFound)
	}
	return f.enrich(ctx, out.Vpcs[0], id)
}

// SecurityGroupFetcher describes security groups.
type SecurityGroupFetcher struct {
	api EC2API
}

// NewSecurityGroupFetcher creates a security group fetcher.
func NewSecurityGroupFetcher(api EC2API) *SecurityGroupFetcher {
	return &SecurityGroupFetcher{api: api}
}

// FetchAll returns every security group in the region.
func (f *SecurityGroupFetcher) FetchAll(ctx context.Context) ([]ingest.RawResource, error) {
	var out []ingest.RawResource
	p := ec2.NewDescribeSecurityGroupsPaginator(f.api, &ec2.DescribeSecurityGroupsInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe security groups: %w", err)
		}
		for _, sg := range page.SecurityGroups {
			res, err := toRaw(sg)
			if err != nil {
				return nil, err
			}
			res[ingest.IdentifierField] = aws.ToString(sg.GroupId)
			out = append(out, res)
		}
	}
	return out, nil
}

// FetchOne describes the security group with id.
func (f *SecurityGroupFetcher) FetchOne(ctx context.Context, id string) (ingest.RawResource, error) {
	out, err := f.api.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{GroupIds: []string{id}})
	if err != nil {
		if isAPINotFound(err) {
			return nil, fmt.Errorf("security group %s: %w", id, ingest.ErrNotFound)
		}
		return nil, fmt.Errorf("describe security group %s: %w", id, err)
	}
	if len(out.SecurityGroups) == 0 {
		return nil, fmt.Errorf("security group %s: %w", id, ingest.ErrNotFound)
	}
	res, err := toRaw(out.SecurityGroups[0])
	if err != nil {
		return nil, err
	}
	res[ingest.IdentifierField] = id
	return res, nil
}
