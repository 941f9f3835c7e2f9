package exporter

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"resource-exporter/core/blob"
	"resource-exporter/core/catalog"
	"resource-exporter/core/ingest"
	"resource-exporter/core/mapping"
	"resource-exporter/core/retry"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var noSleep = &retry.Executor{Sleep: func(context.Context, time.Duration) error { return nil }}

// stubFetcher serves ids from memory; ids in failing never resolve.
type stubFetcher struct {
	ids     []string
	failing map[string]bool
}

func (f *stubFetcher) FetchAll(context.Context) ([]ingest.RawResource, error) {
	out := make([]ingest.RawResource, 0, len(f.ids))
	for _, id := range f.ids {
		out = append(out, ingest.RawResource{ingest.IdentifierField: id})
	}
	return out, nil
}

func (f *stubFetcher) FetchOne(_ context.Context, id string) (ingest.RawResource, error) {
	if f.failing[id] {
		return nil, fmt.Errorf("get %s: boom", id)
	}
	return ingest.RawResource{ingest.IdentifierField: id, "Name": "name-" + id}, nil
}

// pagedStub serves one id per page: token "" then "p2".
type pagedStub struct {
	stubFetcher
}

func (p *pagedStub) FetchPage(_ context.Context, token *string) (ingest.Page, error) {
	if token == nil {
		next := "p2"
		return ingest.Page{Resources: []ingest.RawResource{{ingest.IdentifierField: p.ids[0]}}, NextToken: &next}, nil
	}
	return ingest.Page{Resources: []ingest.RawResource{{ingest.IdentifierField: p.ids[1]}}}, nil
}

// recordingReinvoker keeps every payload and fails with err when set.
type recordingReinvoker struct {
	mu       sync.Mutex
	payloads []any
	err      error
}

func (r *recordingReinvoker) Reinvoke(_ context.Context, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.payloads = append(r.payloads, payload)
	return nil
}

func newStore(t *testing.T) *catalog.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	s := catalog.NewStore(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func resourceConfig(kind, blueprint string) ingest.ResourceConfig {
	return ingest.ResourceConfig{
		Kind: kind,
		Port: ingest.PortMapping{Entity: ingest.EntityMappings{Mappings: []mapping.Spec{{
			Identifier: ".identifier",
			Title:      ".Name",
			Blueprint:  blueprint,
			Properties: map[string]string{"name": ".Name"},
		}}}},
	}
}

func newRegistry(fetchers map[string]ingest.Fetcher) *ingest.Registry {
	r := ingest.NewRegistry(nil)
	for kind, f := range fetchers {
		r.Register(kind, func(context.Context, ingest.ResourceConfig) (ingest.Fetcher, error) {
			return f, nil
		})
	}
	return r
}

func newOrchestrator(registry *ingest.Registry, client catalog.Client, threshold int64) *ingest.Orchestrator {
	engine := mapping.NewEngine(mapping.NewJQEvaluator(), nil)
	return ingest.NewOrchestrator(registry, engine, client, ingest.Options{
		Workers:         2,
		ThresholdMillis: threshold,
		Retry:           noSleep,
	})
}

func newCheckpoints() (*Checkpoints, blob.Store) {
	store := blob.NewFileStore(afero.NewMemMapFs(), "/state")
	return NewCheckpoints(store, "checkpoint/resources.json"), store
}
