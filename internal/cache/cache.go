// Package cache implements a read-through cache with keyed invalidation over
// a flat key/value store.
//
// A cached value is valid until it is invalidated by a write path or its TTL
// runs out, whichever comes first. Writers must invalidate the affected keys
// before returning to their caller.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Wildcard marks an invalidation argument as a key prefix.
const Wildcard = "*"

// Store is a flat key/value namespace.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Keys lists the live keys sharing the literal prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Cache is the get-or-fetch layer over a Store.
type Cache struct {
	store Store
	ttl   time.Duration
	log   *zap.Logger

	// mu orders write-backs against invalidations. epoch counts
	// invalidations; keys and prefixes remember the epoch of their last one.
	mu       sync.Mutex
	epoch    uint64
	keys     map[string]uint64
	prefixes map[string]uint64
}

// New creates a Cache whose entries expire after ttl.
func New(store Store, ttl time.Duration, log *zap.Logger) *Cache {
	return &Cache{
		store:    store,
		ttl:      ttl,
		log:      log,
		keys:     make(map[string]uint64),
		prefixes: make(map[string]uint64),
	}
}

// Store returns the underlying key/value store.
func (c *Cache) Store() Store {
	return c.store
}

// GetOrFetch returns the value cached under key, or calls fetch, caches its
// result and returns it. Errors and nil results are never cached, and
// neither is a result whose key was invalidated while fetch was running.
func GetOrFetch[T any](ctx context.Context, c *Cache, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	started := c.currentEpoch()

	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache read failed, fetching", zap.String("key", key), zap.Error(err))
	}
	if err == nil && ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		c.log.Warn("discarding corrupt cache entry", zap.String("key", key))
	}

	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if isNil(v) {
		return v, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return v, fmt.Errorf("encode cache entry %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidatedSince(key, started) {
		c.log.Debug("skipping stale cache write", zap.String("key", key))
		return v, nil
	}
	if err := c.store.Set(ctx, key, b, c.ttl); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

func (c *Cache) currentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// invalidatedSince reports whether key was invalidated after epoch. Callers
// hold c.mu.
func (c *Cache) invalidatedSince(key string, epoch uint64) bool {
	if c.keys[key] > epoch {
		return true
	}
	for prefix, at := range c.prefixes {
		if at > epoch && strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// markInvalidated records an invalidation so running fetches for the same
// key do not write their result back.
func (c *Cache) markInvalidated(key string, prefix bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	if prefix {
		c.prefixes[key] = c.epoch
	} else {
		c.keys[key] = c.epoch
	}
}

// Invalidate removes one key, or every key sharing a prefix when the
// argument ends with Wildcard ("overview:*").
func (c *Cache) Invalidate(ctx context.Context, keyOrPattern string) error {
	if !strings.HasSuffix(keyOrPattern, Wildcard) {
		c.markInvalidated(keyOrPattern, false)
		if err := c.store.Delete(ctx, keyOrPattern); err != nil {
			return fmt.Errorf("invalidate %s: %w", keyOrPattern, err)
		}
		return nil
	}

	prefix := strings.TrimSuffix(keyOrPattern, Wildcard)
	c.markInvalidated(prefix, true)
	keys, err := c.store.Keys(ctx, prefix)
	if err != nil {
		return fmt.Errorf("invalidate %s: list keys: %w", keyOrPattern, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("invalidate %s: %w", keyOrPattern, err)
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
