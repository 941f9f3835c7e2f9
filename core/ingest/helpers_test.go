package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"resource-exporter/core/catalog"
	"resource-exporter/core/mapping"
	"resource-exporter/core/retry"
)

var noSleep = &retry.Executor{Sleep: func(context.Context, time.Duration) error { return nil }}

var errProvider = errors.New("provider unavailable")

// fakeFetcher serves resources from memory. Ids in failing always error.
type fakeFetcher struct {
	ids      []string
	failing  map[string]bool
	listErr  error
	panicOn  string
	calls    sync.Map // id -> *int32
	active   int32
	peak     int32
	cleaned  int32
	cleanErr error
}

func (f *fakeFetcher) FetchAll(ctx context.Context) ([]RawResource, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]RawResource, 0, len(f.ids))
	for _, id := range f.ids {
		out = append(out, RawResource{IdentifierField: id})
	}
	return out, nil
}

func (f *fakeFetcher) FetchOne(ctx context.Context, id string) (RawResource, error) {
	n, _ := f.calls.LoadOrStore(id, new(int32))
	atomic.AddInt32(n.(*int32), 1)

	cur := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if cur <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, cur) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	if id == f.panicOn {
		panic("unexpected shape")
	}
	if f.failing[id] {
		return nil, fmt.Errorf("get %s: %w", id, errProvider)
	}
	return RawResource{"Id": id, "Name": "res-" + id}, nil
}

func (f *fakeFetcher) callCount(id string) int32 {
	n, ok := f.calls.Load(id)
	if !ok {
		return 0
	}
	return atomic.LoadInt32(n.(*int32))
}

func (f *fakeFetcher) Cleanup(ctx context.Context) error {
	atomic.AddInt32(&f.cleaned, 1)
	return f.cleanErr
}

// pagedFetcher serves pages keyed by token; "" is the first page.
type pagedFetcher struct {
	fakeFetcher
	pages    map[string][]string
	next     map[string]string
	requests []string
}

func (p *pagedFetcher) FetchPage(ctx context.Context, token *string) (Page, error) {
	key := ""
	if token != nil {
		key = *token
	}
	p.requests = append(p.requests, key)

	page := Page{}
	for _, id := range p.pages[key] {
		page.Resources = append(page.Resources, RawResource{IdentifierField: id})
	}
	if nxt, ok := p.next[key]; ok {
		page.NextToken = &nxt
	}
	return page, nil
}

// memCatalog records upserts and deletes.
type memCatalog struct {
	mu      sync.Mutex
	upserts map[string]catalog.Entity
	deletes []string
	fail    map[string]bool
}

func newMemCatalog() *memCatalog {
	return &memCatalog{upserts: make(map[string]catalog.Entity), fail: make(map[string]bool)}
}

func (m *memCatalog) Upsert(ctx context.Context, entities []catalog.Entity) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, e := range entities {
		if m.fail[e.Identifier] {
			return ids, fmt.Errorf("catalog rejected %s", e.Identifier)
		}
		m.upserts[e.ExternalID()] = e
		ids = append(ids, e.ExternalID())
	}
	return ids, nil
}

func (m *memCatalog) Delete(ctx context.Context, entities []catalog.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entities {
		m.deletes = append(m.deletes, e.ExternalID())
	}
	return nil
}

func testConfig(kind string) ResourceConfig {
	return ResourceConfig{
		Kind:   kind,
		Region: "eu-west-1",
		Port: PortMapping{Entity: EntityMappings{Mappings: []mapping.Spec{{
			Identifier: ".Id",
			Title:      ".Name",
			Blueprint:  "thing",
			Properties: map[string]string{"name": ".Name"},
		}}}},
	}
}

func strp(s string) *string { return &s }
