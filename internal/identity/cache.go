package identity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lgcert/indigene-certificate/logger"
)

// Cache stores serialized registry records.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: value, expires: c.now().Add(ttl)}
	return nil
}

// CachedRegistry keeps successful lookups for ttl. Cache failures fall through
// to the registry.
type CachedRegistry struct {
	next  Registry
	cache Cache
	ttl   time.Duration
	log   *logger.Logger
}

func NewCachedRegistry(next Registry, cache Cache, ttl time.Duration, log *logger.Logger) *CachedRegistry {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedRegistry{next: next, cache: cache, ttl: ttl, log: log}
}

func cacheKey(nin string) string {
	return "lgcert:nin:" + nin
}

func (r *CachedRegistry) Lookup(ctx context.Context, nin string) (*Identity, error) {
	if b, ok, err := r.cache.Get(ctx, cacheKey(nin)); err != nil {
		r.log.Warnf("nin cache read: %v", err)
	} else if ok {
		var id Identity
		if err := json.Unmarshal(b, &id); err == nil {
			return &id, nil
		}
	}

	id, err := r.next.Lookup(ctx, nin)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(id); err == nil {
		if err := r.cache.Set(ctx, cacheKey(nin), b, r.ttl); err != nil {
			r.log.Warnf("nin cache write: %v", err)
		}
	}
	return id, nil
}
