package aws

import (
	"context"
	"fmt"
	"time"

	"resource-exporter/core/blob"
	"resource-exporter/core/cache"
	"resource-exporter/core/ingest"
	"resource-exporter/core/logger"
	"resource-exporter/core/metrics"
	"resource-exporter/core/storage"

	"go.uber.org/zap"
)

// Kinds with a dedicated fetcher. Anything else goes through Cloud Control.
const (
	KindAccount    = "AWS::Organizations::Account"
	KindRegion     = "AWS::Region"
	KindEKSCluster = "AWS::EKS::Cluster"
	KindTag        = "AWS::Tag"
	KindS3Bucket   = "AWS::S3::Bucket"

	KindVPC           = "AWS::EC2::VPC"
	KindSecurityGroup = "AWS::EC2::SecurityGroup"
	KindStack         = "AWS::CloudFormation::Stack"
)

// Deps holds what the fetchers need to reach the provider.
type Deps struct {
	// DefaultRegion is used when a resource config names none.
	DefaultRegion string
	Clients       Clients
	// Storage serves bucket listings; when nil buckets go through Cloud Control.
	Storage storage.Client
	// Cache keeps bulk enumerations; when nil they are never cached.
	Cache    blob.Store
	CacheTTL time.Duration
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

func (d Deps) region(cfg ingest.ResourceConfig) string {
	if cfg.Region != "" {
		return cfg.Region
	}
	return d.DefaultRegion
}

// Register binds the dedicated kinds to r.
func Register(r *ingest.Registry, d Deps) {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r.Register(KindAccount, func(ctx context.Context, cfg ingest.ResourceConfig) (ingest.Fetcher, error) {
		api, err := d.Clients.STS(ctx, d.region(cfg))
		if err != nil {
			return nil, err
		}
		return NewAccountFetcher(api), nil
	})

	r.Register(KindRegion, func(ctx context.Context, cfg ingest.ResourceConfig) (ingest.Fetcher, error) {
		api, err := d.Clients.EC2(ctx, d.region(cfg))
		if err != nil {
			return nil, err
		}
		return NewRegionFetcher(api), nil
	})

	r.Register(KindVPC, func(ctx context.Context, cfg ingest.ResourceConfig) (ingest.Fetcher, error) {
		region := d.region(cfg)
		api, err := d.Clients.EC2(ctx, region)
		if err != nil {
			return nil, err
		}
		identity, err := d.Clients.STS(ctx, region)
		if err != nil {
			return nil, err
		}
		return NewVPCFetcher(api, identity, region), nil
	})

	r.Register(KindSecurityGroup, func(ctx context.Context, cfg ingest.ResourceConfig) (ingest.Fetcher, error) {
		api, err := d.Clients.EC2(ctx, d.region(cfg))
		if err != nil {
			return nil, err
		}
		return NewSecurityGroupFetcher(api), nil
	})

	r.Register(KindStack, func(ctx context.Context, cfg ingest.ResourceConfig) (ingest.Fetcher, error) {
		api, err := d.Clients.CloudFormation(ctx, d.region(cfg))
		if err != nil {
			return nil, err
		}
		return NewStackFetcher(api, cfg.RegionConfig(cfg.Region).StackStatusFilter), nil
	})

	r.Register(KindEKSCluster, func(ctx context.Context, cfg ingest.ResourceConfig) (ingest.Fetcher, error) {
		api, err := d.Clients.EKS(ctx, d.region(cfg))
		if err != nil {
			return nil, err
		}
		return NewEKSFetcher(api), nil
	})

	r.Register(KindTag, func(ctx context.Context, cfg ingest.ResourceConfig) (ingest.Fetcher, error) {
		region := d.region(cfg)
		api, err := d.Clients.Tagging(ctx, region)
		if err != nil {
			return nil, err
		}
		l := logger.WithResource(d.Logger, KindTag, region)
		var c *cache.Bulk[[]Tag]
		if d.Cache != nil {
			c = cache.NewBulk[[]Tag](d.Cache, fmt.Sprintf("%s::%s", KindTag, region), d.CacheTTL, l)
		}
		return NewTagFetcher(api, c, d.Metrics, l), nil
	})

	if d.Storage != nil {
		r.Register(KindS3Bucket, func(_ context.Context, _ ingest.ResourceConfig) (ingest.Fetcher, error) {
			return NewBucketFetcher(d.Storage), nil
		})
	}
}

// NewRegistry returns a registry with every dedicated kind and Cloud Control as fallback.
func NewRegistry(d Deps) *ingest.Registry {
	r := ingest.NewRegistry(func(ctx context.Context, cfg ingest.ResourceConfig) (ingest.Fetcher, error) {
		api, err := d.Clients.CloudControl(ctx, d.region(cfg))
		if err != nil {
			return nil, err
		}
		return NewCloudControlFetcher(api, cfg.Kind, cfg.ResourceModel()), nil
	})
	Register(r, d)
	return r
}
