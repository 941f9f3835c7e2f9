package aws

import (
	"context"
	"fmt"

	"resource-exporter/core/ingest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// RegionFetcher lists the regions enabled for the account.
type RegionFetcher struct {
	api EC2API
}

// NewRegionFetcher creates a region fetcher.
func NewRegionFetcher(api EC2API) *RegionFetcher {
	return &RegionFetcher{api: api}
}

func regionResource(r ec2types.Region) ingest.RawResource {
	name := aws.ToString(r.RegionName)
	return ingest.RawResource{
		ingest.IdentifierField: name,
		"RegionName":           name,
		"OptInStatus":          aws.ToString(r.OptInStatus),
		"Endpoint":             aws.ToString(r.Endpoint),
	}
}

func (f *RegionFetcher) describe(ctx context.Context) ([]ec2types.Region, error) {
	out, err := f.api.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, fmt.Errorf("describe regions: %w", err)
	}
	return out.Regions, nil
}

// FetchAll returns every enabled region.
func (f *RegionFetcher) FetchAll(ctx context.Context) ([]ingest.RawResource, error) {
	regions, err := f.describe(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ingest.RawResource, 0, len(regions))
	for _, r := range regions {
		out = append(out, regionResource(r))
	}
	return out, nil
}

// FetchOne returns the region named id.
func (f *RegionFetcher) FetchOne(ctx context.Context, id string) (ingest.RawResource, error) {
	regions, err := f.describe(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range regions {
		if aws.ToString(r.RegionName) == id {
			return regionResource(r), nil
		}
	}
	return nil, fmt.Errorf("region %s: %w", id, ingest.ErrNotFound)
}
