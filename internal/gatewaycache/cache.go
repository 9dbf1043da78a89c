// Package gatewaycache caches payment method listings from the payment
// gateway. Method availability changes rarely while the checkout page
// requests it on every load, so responses are kept for a short TTL and
// concurrent lookups for the same amount are collapsed into one upstream
// call.
package gatewaycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/tarjuman/order-service/internal/duitku"
)

// ErrCacheMiss is returned by a Store when the key is absent or expired.
var ErrCacheMiss = errors.New("gatewaycache: cache miss")

// Store is the cache backend. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Fetcher loads payment methods from the gateway on a cache miss.
type Fetcher func(ctx context.Context, amount int64) ([]duitku.PaymentMethod, error)

// MethodsCache serves payment method listings, reading through the
// configured Store. Store failures degrade to a direct gateway call
// rather than failing the request.
type MethodsCache struct {
	store Store
	fetch Fetcher
	ttl   time.Duration
	group singleflight.Group
}

func NewMethodsCache(store Store, fetch Fetcher, ttl time.Duration) *MethodsCache {
	return &MethodsCache{
		store: store,
		fetch: fetch,
		ttl:   ttl,
	}
}

func cacheKey(amount int64) string {
	return fmt.Sprintf("duitku:methods:%d", amount)
}

// Methods returns the payment methods available for the given amount.
func (c *MethodsCache) Methods(ctx context.Context, amount int64) ([]duitku.PaymentMethod, error) {
	key := cacheKey(amount)

	if data, err := c.store.Get(ctx, key); err == nil {
		var methods []duitku.PaymentMethod
		if err := json.Unmarshal(data, &methods); err == nil {
			return methods, nil
		}
		log.Warn().Str("key", key).Msg("discarding malformed cache entry")
	} else if !errors.Is(err, ErrCacheMiss) {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed, falling through to gateway")
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		methods, err := c.fetch(ctx, amount)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(methods); err == nil {
			if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("cache write failed")
			}
		}
		return methods, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]duitku.PaymentMethod), nil
}

// MemoryStore is an in-process Store with per-entry expiry. Suitable for
// single-instance deployments and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || s.now().After(entry.expiresAt) {
		return nil, ErrCacheMiss
	}
	return entry.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}
