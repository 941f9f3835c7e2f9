package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"resource-exporter/core/catalog"
	"resource-exporter/core/mapping"
	"resource-exporter/core/metrics"
	"resource-exporter/core/retry"

	"go.uber.org/zap"
)

// DefaultWorkers bounds concurrent item processing when no size is configured.
const DefaultWorkers = 10

// Coordinator fans item processing out over a fixed pool of workers.
type Coordinator struct {
	Fetcher Fetcher
	Config  ResourceConfig
	Engine  *mapping.Engine
	Catalog catalog.Client
	// Workers is the pool size. It does not grow with the number of items.
	Workers int
	Retry   *retry.Executor
	// Policy wraps every FetchOne call.
	Policy  retry.Policy
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

type itemResult struct {
	id       string
	entities []string
	err      error
}

// Process handles every id and merges the results. A failing item does not
// stop its siblings but marks the batch SkipDelete.
func (c *Coordinator) Process(ctx context.Context, ids []string, action Action) Batch {
	batch := Batch{Entities: NewEntitySet()}
	if len(ids) == 0 {
		return batch
	}

	numWorkers := c.Workers
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}
	if numWorkers > len(ids) {
		numWorkers = len(ids)
	}

	idsCh := make(chan string, len(ids))
	resultsCh := make(chan itemResult, len(ids))

	for _, id := range ids {
		idsCh <- id
	}
	close(idsCh)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for id := range idsCh {
				resultsCh <- c.processItem(ctx, id, action)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	for res := range resultsCh {
		batch.Entities.Add(res.entities...)
		c.Metrics.ObserveItem(c.Config.Kind, string(action), res.err)
		if res.err != nil {
			c.logger().Error("Failed to process resource",
				zap.String("identifier", res.id),
				zap.String("action", string(action)),
				zap.Error(res.err))
			batch.SkipDelete = true
		}
	}

	return batch
}

func (c *Coordinator) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Coordinator) processItem(ctx context.Context, id string, action Action) (res itemResult) {
	res.id = id
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("panic: %v", r)
		}
	}()

	switch action {
	case ActionDelete:
		res.entities, res.err = c.deleteItem(ctx, id)
	default:
		res.entities, res.err = c.upsertItem(ctx, id)
	}
	return res
}

func (c *Coordinator) upsertItem(ctx context.Context, id string) ([]string, error) {
	raw, err := retry.Run(ctx, c.Retry, c.Policy, func(ctx context.Context) (RawResource, error) {
		raw, err := c.Fetcher.FetchOne(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return nil, retry.Permanent(err)
		}
		return raw, err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	entities, err := c.Engine.BuildEntities(ctx, raw, c.Config.SelectorQuery(), c.Config.Mappings())
	if err != nil {
		return nil, fmt.Errorf("map: %w", err)
	}
	if len(entities) == 0 {
		return nil, nil
	}

	written, err := c.Catalog.Upsert(ctx, entities)
	if err != nil {
		return written, fmt.Errorf("upsert: %w", err)
	}
	return written, nil
}

func (c *Coordinator) deleteItem(ctx context.Context, id string) ([]string, error) {
	entities, err := c.Engine.BuildDeleteEntities(ctx, id, c.Config.SelectorQuery(), c.Config.Mappings())
	if err != nil {
		return nil, fmt.Errorf("map: %w", err)
	}
	if len(entities) == 0 {
		return nil, nil
	}

	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ExternalID()
	}

	if err := c.Catalog.Delete(ctx, entities); err != nil {
		return nil, fmt.Errorf("delete: %w", err)
	}
	return ids, nil
}
