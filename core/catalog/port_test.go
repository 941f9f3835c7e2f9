package catalog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"resource-exporter/core/retry"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePort struct {
	mu        sync.Mutex
	tokens    int32
	upserts   []string
	queries   []string
	deletes   []string
	failFirst map[string]int
	status    map[string]int
	entities  []string
}

func (f *fakePort) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/access_token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokens, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{"accessToken": "tok", "expiresIn": 3600})
	})
	mux.HandleFunc("POST /v1/blueprints/{bp}/entities", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		var e Entity
		require.NoError(t, json.Unmarshal(body, &e))

		f.mu.Lock()
		defer f.mu.Unlock()
		if code, ok := f.status[e.Identifier]; ok {
			w.WriteHeader(code)
			return
		}
		if f.failFirst[e.Identifier] > 0 {
			f.failFirst[e.Identifier]--
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		f.upserts = append(f.upserts, r.PathValue("bp")+";"+e.Identifier)
		f.queries = append(f.queries, r.URL.RawQuery)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /v1/blueprints/{bp}/entities", func(w http.ResponseWriter, r *http.Request) {
		list := make([]map[string]string, 0, len(f.entities))
		for _, id := range f.entities {
			list = append(list, map[string]string{"identifier": id})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"entities": list})
	})
	mux.HandleFunc("DELETE /v1/blueprints/{bp}/entities/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.mu.Lock()
		f.deletes = append(f.deletes, r.PathValue("bp")+";"+id)
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newTestPortClient(t *testing.T, f *fakePort) *PortClient {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	c := NewPortClient(Config{
		BaseURL:              srv.URL,
		ClientID:             "id",
		ClientSecret:         "secret",
		RateLimit:            1000,
		RateBurst:            100,
		CreateMissingRelated: true,
	}, nil)
	c.retry = &retry.Executor{Sleep: func(context.Context, time.Duration) error { return nil }}
	return c
}

func TestPortClient_Upsert(t *testing.T) {
	f := &fakePort{failFirst: map[string]int{"b": 2}, status: map[string]int{"bad": http.StatusBadRequest}}
	c := newTestPortClient(t, f)

	written, err := c.Upsert(context.Background(), []Entity{
		{Identifier: "a", Blueprint: "vpc"},
		{Identifier: "b", Blueprint: "vpc"},
		{Identifier: "bad", Blueprint: "vpc"},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "vpc;bad")
	assert.Equal(t, []string{"vpc;a", "vpc;b"}, written)
	assert.ElementsMatch(t, []string{"vpc;a", "vpc;b"}, f.upserts)
	assert.Contains(t, f.queries[0], "upsert=true")
	assert.Contains(t, f.queries[0], "merge=true")
	assert.Contains(t, f.queries[0], "create_missing_related_entities=true")
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.tokens), "token is cached")
}

func TestPortClient_Delete(t *testing.T) {
	f := &fakePort{}
	c := newTestPortClient(t, f)

	err := c.Delete(context.Background(), []Entity{
		{Identifier: "a", Blueprint: "vpc"},
		{Identifier: "missing", Blueprint: "vpc"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"vpc;a"}, f.deletes)
}

func TestPortClient_Prune(t *testing.T) {
	f := &fakePort{entities: []string{"a", "b", "c"}}
	c := newTestPortClient(t, f)

	removed, err := c.Prune(context.Background(), "vpc", map[string]struct{}{"b": {}})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.ElementsMatch(t, []string{"vpc;a", "vpc;c"}, f.deletes)
}

func TestPortClient_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewPortClient(Config{BaseURL: srv.URL}, nil)
	c.retry = &retry.Executor{Sleep: func(context.Context, time.Duration) error { return nil }}

	_, err := c.Upsert(context.Background(), []Entity{{Identifier: "a", Blueprint: "vpc"}})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestNew(t *testing.T) {
	c, err := New(Config{Mode: ModePort, BaseURL: "http://localhost"}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &PortClient{}, c)

	_, err = New(Config{Mode: ModeDatabase}, nil, nil)
	assert.Error(t, err)

	_, err = New(Config{Mode: "ftp"}, nil, nil)
	assert.ErrorContains(t, err, "unknown catalog mode")
}
