package aws

import (
	"context"
	"fmt"

	"resource-exporter/core/ingest"
	"resource-exporter/core/storage"
)

// BucketFetcher lists S3 buckets through the object storage client.
type BucketFetcher struct {
	client storage.Client
}

// NewBucketFetcher creates a bucket fetcher.
func NewBucketFetcher(client storage.Client) *BucketFetcher {
	return &BucketFetcher{client: client}
}

// FetchAll returns every bucket visible to the credentials.
func (f *BucketFetcher) FetchAll(ctx context.Context) ([]ingest.RawResource, error) {
	buckets, err := f.client.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	out := make([]ingest.RawResource, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, ingest.RawResource{
			ingest.IdentifierField: b.Name,
			"creationDate":         b.CreationDate,
		})
	}
	return out, nil
}

// FetchOne returns the bucket with its region and tags.
func (f *BucketFetcher) FetchOne(ctx context.Context, id string) (ingest.RawResource, error) {
	ok, err := f.client.BucketExists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("bucket %s: %w", id, ingest.ErrNotFound)
	}

	region, err := f.client.GetBucketLocation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get location of %s: %w", id, err)
	}

	tagMap := map[string]string{}
	t, err := f.client.GetBucketTagging(ctx, id)
	switch {
	case err == nil && t != nil:
		tagMap = t.ToMap()
	case err != nil && !storage.IsNotFound(err):
		return nil, fmt.Errorf("get tags of %s: %w", id, err)
	}

	return ingest.RawResource{
		ingest.IdentifierField: id,
		"name":                 id,
		"region":               region,
		"tags":                 tagMap,
	}, nil
}
