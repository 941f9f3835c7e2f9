package aws

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"resource-exporter/core/cache"
	"resource-exporter/core/ingest"
	"resource-exporter/core/metrics"
	"resource-exporter/core/retry"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	"go.uber.org/zap"
)

// Tag is one distinct key/value pair found on any resource.
type Tag struct {
	Identifier string `json:"identifier"`
	Key        string `json:"tagKey"`
	Value      string `json:"tagValue"`
}

// TagID returns the identifier of a key/value pair.
func TagID(key, value string) string {
	return key + "-" + value
}

func (t Tag) resource() ingest.RawResource {
	return ingest.RawResource{
		ingest.IdentifierField: t.Identifier,
		"tagKey":               t.Key,
		"tagValue":             t.Value,
	}
}

// TagFetcher enumerates distinct tags. The full enumeration is expensive,
// so it is cached and single lookups are answered from it.
type TagFetcher struct {
	api     TaggingAPI
	cache   *cache.Bulk[[]Tag]
	metrics *metrics.Metrics
	logger  *zap.Logger

	// stale is set when a lookup misses the cached set.
	stale atomic.Bool
}

// NewTagFetcher creates a tag fetcher whose enumeration is cached in c.
func NewTagFetcher(api TaggingAPI, c *cache.Bulk[[]Tag], m *metrics.Metrics, logger *zap.Logger) *TagFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TagFetcher{api: api, cache: c, metrics: m, logger: logger}
}

// RetryPolicies allows more attempts per lookup since lookups share the cached set.
func (f *TagFetcher) RetryPolicies() (bulk, item retry.Policy) {
	return retry.Policy{MaxAttempts: 3, BackoffFactor: 2 * time.Second},
		retry.Policy{MaxAttempts: 10, BackoffFactor: 2 * time.Second}
}

func (f *TagFetcher) load(ctx context.Context) ([]Tag, error) {
	seen := make(map[string]struct{})
	var out []Tag

	p := resourcegroupstaggingapi.NewGetResourcesPaginator(f.api, &resourcegroupstaggingapi.GetResourcesInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("get tagged resources: %w", err)
		}
		for _, mapping := range page.ResourceTagMappingList {
			for _, t := range mapping.Tags {
				key, value := aws.ToString(t.Key), aws.ToString(t.Value)
				id := TagID(key, value)
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				out = append(out, Tag{Identifier: id, Key: key, Value: value})
			}
		}
	}
	return out, nil
}

func (f *TagFetcher) tags(ctx context.Context) ([]Tag, error) {
	if f.cache == nil {
		return f.load(ctx)
	}
	data, hit, err := f.cache.GetOrLoad(ctx, f.load)
	if err != nil {
		return nil, err
	}
	f.metrics.ObserveCache(KindTag, hit)
	return data, nil
}

// FetchAll returns every distinct tag.
func (f *TagFetcher) FetchAll(ctx context.Context) ([]ingest.RawResource, error) {
	tags, err := f.tags(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ingest.RawResource, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.resource())
	}
	return out, nil
}

// FetchOne looks id up in the enumeration.
func (f *TagFetcher) FetchOne(ctx context.Context, id string) (ingest.RawResource, error) {
	tags, err := f.tags(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		if t.Identifier == id {
			return t.resource(), nil
		}
	}
	f.stale.Store(true)
	return nil, fmt.Errorf("tag %s: %w", id, ingest.ErrNotFound)
}

// Cleanup keeps the cached enumeration unless a lookup missed it.
func (f *TagFetcher) Cleanup(ctx context.Context) error {
	if f.cache == nil || !f.stale.Swap(false) {
		return nil
	}
	f.logger.Info("Invalidating tag cache after lookup miss")
	return f.cache.Invalidate(ctx)
}
