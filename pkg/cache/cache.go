package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a generic key-value cache with TTL support.
//
// TTL semantics for Set:
//   - Positive duration: item expires after this duration
//   - Zero: use the cache's configured default TTL
//   - Negative: item never expires
type Cache[V any] interface {
	// Get returns ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) (V, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	// Delete removes keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
	Close() error
}

// Marshaler serializes values for byte-oriented backends.
type Marshaler[V any] interface {
	Marshal(v V) ([]byte, error)
	Unmarshal(data []byte) (V, error)
}

// JSONMarshaler encodes values with encoding/json.
type JSONMarshaler[V any] struct{}

func (JSONMarshaler[V]) Marshal(v V) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrMarshal, err)
	}
	return data, nil
}

func (JSONMarshaler[V]) Unmarshal(data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrUnmarshal, err)
	}
	return v, nil
}

// ReadThrough fronts a loader with a cache. Concurrent misses for the same
// key share one loader call. A load that overlaps Forget or Reset for its key
// still returns its value but does not store it.
type ReadThrough[V any] struct {
	cache Cache[V]
	ttl   time.Duration
	group singleflight.Group

	mu    sync.Mutex
	epoch uint64
	gens  map[string]uint64
}

// NewReadThrough wraps c. Loaded values are stored with ttl (zero uses the
// cache default).
func NewReadThrough[V any](c Cache[V], ttl time.Duration) *ReadThrough[V] {
	return &ReadThrough[V]{cache: c, ttl: ttl, gens: make(map[string]uint64)}
}

// generation only grows, so any Forget or Reset after a read changes it.
func (r *ReadThrough[V]) generation(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch + r.gens[key]
}

// Get returns the cached value for key or calls load on a miss. Loader
// errors are returned and nothing is cached. Cache read and write failures
// degrade to calling load.
func (r *ReadThrough[V]) Get(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if v, err := r.cache.Get(ctx, key); err == nil {
		return v, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		gen := r.generation(key)
		val, err := load(ctx)
		if err != nil {
			return nil, err
		}

		// mu is held across Set so Forget cannot land between check and write.
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.epoch+r.gens[key] == gen {
			_ = r.cache.Set(ctx, key, val, r.ttl)
		}
		return val, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Forget drops keys from the cache and from any in-flight load.
func (r *ReadThrough[V]) Forget(ctx context.Context, keys ...string) error {
	r.mu.Lock()
	for _, k := range keys {
		r.gens[k]++
		r.group.Forget(k)
	}
	r.mu.Unlock()
	return r.cache.Delete(ctx, keys...)
}

// Reset drops every cached entry and discards every in-flight load.
func (r *ReadThrough[V]) Reset(ctx context.Context) error {
	r.mu.Lock()
	r.epoch++
	r.mu.Unlock()
	return r.cache.Clear(ctx)
}
