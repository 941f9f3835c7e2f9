package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resource-exporter/core/blob"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a bulk result stays valid.
const DefaultTTL = 6 * time.Hour

// Config holds configuration for bulk result caching.
type Config struct {
	// TTLSeconds is the lifetime of a cached bulk result.
	TTLSeconds int `mapstructure:"ttl_seconds" default:"21600" validate:"gte=0"`
}

// TTL returns the configured lifetime, falling back to DefaultTTL.
func (c Config) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return DefaultTTL
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

type envelope[T any] struct {
	Timestamp float64 `json:"timestamp"`
	Data      T       `json:"data"`
}

// Bulk memoizes the result of an expensive enumeration for one resource kind.
// It is an optimization only; callers must behave the same on a miss.
type Bulk[T any] struct {
	store  blob.Store
	key    string
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group

	// Now is the clock used for timestamps and expiry.
	Now func() time.Time
}

// NewBulk creates a cache entry for kind stored in store.
func NewBulk[T any](store blob.Store, kind string, ttl time.Duration, logger *zap.Logger) *Bulk[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bulk[T]{
		store:  store,
		key:    Key(kind),
		ttl:    ttl,
		logger: logger,
		Now:    time.Now,
	}
}

// Key returns the blob key used for kind, e.g. "cache/aws-tag.json" for "AWS::Tag".
func Key(kind string) string {
	name := strings.ToLower(strings.ReplaceAll(kind, "::", "-"))
	return "cache/" + name + ".json"
}

func (b *Bulk[T]) now() float64 {
	return float64(b.Now().UnixNano()) / float64(time.Second)
}

// Get returns the stored data while it is younger than the TTL.
// A missing or unreadable entry is reported as absent.
func (b *Bulk[T]) Get(ctx context.Context) (T, bool, error) {
	var zero T

	data, err := b.store.Get(ctx, b.key)
	if errors.Is(err, blob.ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("read cache %s: %w", b.key, err)
	}

	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		b.logger.Warn("Discarding unreadable cache entry", zap.String("key", b.key), zap.Error(err))
		return zero, false, nil
	}

	if b.now()-env.Timestamp >= b.ttl.Seconds() {
		return zero, false, nil
	}
	return env.Data, true, nil
}

// Put stores data stamped with the current time.
func (b *Bulk[T]) Put(ctx context.Context, data T) error {
	payload, err := json.Marshal(envelope[T]{Timestamp: b.now(), Data: data})
	if err != nil {
		return fmt.Errorf("encode cache %s: %w", b.key, err)
	}
	if err := b.store.Put(ctx, b.key, payload); err != nil {
		return fmt.Errorf("write cache %s: %w", b.key, err)
	}
	return nil
}

// GetOrLoad returns the cached data or runs load and caches its result. hit
// reports whether the data came from the store. Concurrent callers on a miss
// share a single load.
func (b *Bulk[T]) GetOrLoad(ctx context.Context, load func(context.Context) (T, error)) (data T, hit bool, err error) {
	if data, ok, err := b.Get(ctx); err != nil {
		b.logger.Warn("Cache read failed", zap.String("key", b.key), zap.Error(err))
	} else if ok {
		return data, true, nil
	}

	v, err, _ := b.group.Do(b.key, func() (any, error) {
		data, err := load(ctx)
		if err != nil {
			return data, err
		}
		if err := b.Put(ctx, data); err != nil {
			b.logger.Warn("Cache write failed", zap.String("key", b.key), zap.Error(err))
		}
		return data, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), false, nil
}

// Invalidate drops the stored entry.
func (b *Bulk[T]) Invalidate(ctx context.Context) error {
	return b.store.Delete(ctx, b.key)
}
