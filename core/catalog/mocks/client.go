package mocks

import (
	"context"

	"resource-exporter/core/catalog"

	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of catalog.Client and catalog.Pruner
type Client struct {
	mock.Mock
}

func (m *Client) Upsert(ctx context.Context, entities []catalog.Entity) ([]string, error) {
	args := m.Called(ctx, entities)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) Delete(ctx context.Context, entities []catalog.Entity) error {
	args := m.Called(ctx, entities)
	return args.Error(0)
}

func (m *Client) Prune(ctx context.Context, blueprint string, keep map[string]struct{}) (int, error) {
	args := m.Called(ctx, blueprint, keep)
	return args.Int(0), args.Error(1)
}
