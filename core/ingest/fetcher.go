package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"resource-exporter/core/retry"
)

// ErrNotFound is returned by FetchOne when the provider has no such resource.
var ErrNotFound = errors.New("resource not found")

// Fetcher enumerates and looks up resources of one kind.
type Fetcher interface {
	// FetchAll returns every resource. Each carries its id under IdentifierField.
	FetchAll(ctx context.Context) ([]RawResource, error)
	// FetchOne returns the full resource for id, or an error wrapping ErrNotFound.
	FetchOne(ctx context.Context, id string) (RawResource, error)
}

// Page is one slice of a paginated enumeration.
type Page struct {
	Resources []RawResource
	// NextToken is the cursor of the following page, nil on the last page.
	NextToken *string
}

// PageFetcher is implemented by kinds whose enumeration is paginated.
// The orchestrator walks pages itself so it can stop between them.
type PageFetcher interface {
	Fetcher
	// FetchPage returns the page starting at token; nil means the first page.
	FetchPage(ctx context.Context, token *string) (Page, error)
}

// Cleaner is implemented by kinds with teardown work after a run.
type Cleaner interface {
	Cleanup(ctx context.Context) error
}

// RetryPolicies is implemented by kinds that override the default retry policies.
type RetryPolicies interface {
	RetryPolicies() (bulk, item retry.Policy)
}

// Default retry policies for bulk enumeration and single lookups.
var (
	DefaultBulkPolicy = retry.Policy{MaxAttempts: 3, BackoffFactor: 2 * time.Second}
	DefaultItemPolicy = retry.Policy{MaxAttempts: 3, BackoffFactor: 2 * time.Second}
)

func policiesFor(f Fetcher) (bulk, item retry.Policy) {
	if rp, ok := f.(RetryPolicies); ok {
		return rp.RetryPolicies()
	}
	return DefaultBulkPolicy, DefaultItemPolicy
}

// Factory builds the fetcher for one resource config.
type Factory func(ctx context.Context, cfg ResourceConfig) (Fetcher, error)

// Registry maps resource kinds to fetcher factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	fallback  Factory
}

// NewRegistry creates a registry. fallback serves kinds without a dedicated factory and may be nil.
func NewRegistry(fallback Factory) *Registry {
	return &Registry{factories: make(map[string]Factory), fallback: fallback}
}

// Register binds kind to factory, replacing any previous binding.
func (r *Registry) Register(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Kinds returns the kinds with a dedicated factory, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// HasFallback reports whether kinds without a dedicated factory are served.
func (r *Registry) HasFallback() bool {
	return r.fallback != nil
}

// Fetcher resolves and builds the fetcher for cfg.
func (r *Registry) Fetcher(ctx context.Context, cfg ResourceConfig) (Fetcher, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Kind]
	r.mu.RUnlock()

	if !ok {
		if r.fallback == nil {
			return nil, fmt.Errorf("no fetcher registered for kind %q", cfg.Kind)
		}
		factory = r.fallback
	}

	f, err := factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create fetcher for %s: %w", cfg.Kind, err)
	}
	return f, nil
}
