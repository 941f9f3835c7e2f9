package aws

import (
	"context"
	"fmt"

	"resource-exporter/core/ingest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// AccountFetcher reports the account the credentials belong to.
type AccountFetcher struct {
	api STSAPI
}

// NewAccountFetcher creates an account fetcher.
func NewAccountFetcher(api STSAPI) *AccountFetcher {
	return &AccountFetcher{api: api}
}

func (f *AccountFetcher) current(ctx context.Context) (ingest.RawResource, error) {
	out, err := f.api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("get caller identity: %w", err)
	}
	id := aws.ToString(out.Account)
	return ingest.RawResource{
		ingest.IdentifierField: id,
		"accountId":            id,
		"arn":                  aws.ToString(out.Arn),
	}, nil
}

// FetchAll returns the single current account.
func (f *AccountFetcher) FetchAll(ctx context.Context) ([]ingest.RawResource, error) {
	res, err := f.current(ctx)
	if err != nil {
		return nil, err
	}
	return []ingest.RawResource{res}, nil
}

// FetchOne returns the current account when id matches it.
func (f *AccountFetcher) FetchOne(ctx context.Context, id string) (ingest.RawResource, error) {
	res, err := f.current(ctx)
	if err != nil {
		return nil, err
	}
	if res[ingest.IdentifierField] != id {
		return nil, fmt.Errorf("account %s: %w", id, ingest.ErrNotFound)
	}
	return res, nil
}
