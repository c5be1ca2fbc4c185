package services

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/xai-decision-backend/internal/domain/decisions"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

// ResultCache holds validated model results keyed by CacheKey. Only
// successful parses are cached.
type ResultCache interface {
	Get(ctx context.Context, key string) (*decisions.AIResult, bool)
	Set(ctx context.Context, key string, res decisions.AIResult)
}

// CacheKey hashes the domain, the canonical applicant JSON and the policy
// texts in prompt order. encoding/json sorts map keys, so equal applicants
// hash equally regardless of field order.
func CacheKey(domain decisions.Domain, fields map[string]any, policies []string) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0})
	raw, _ := json.Marshal(fields)
	h.Write(raw)
	for _, p := range policies {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

type memoryCacheEntry struct {
	key     string
	res     decisions.AIResult
	expires time.Time
}

// MemoryCache is FIFO-bounded: the oldest insert is evicted first.
type MemoryCache struct {
	mu      sync.Mutex
	max     int
	ttl     time.Duration
	order   *list.List
	entries map[string]*list.Element
	now     func() time.Time
}

func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &MemoryCache{
		max:     maxEntries,
		ttl:     ttl,
		order:   list.New(),
		entries: map[string]*list.Element{},
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*decisions.AIResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*memoryCacheEntry)
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.order.Remove(el)
		delete(c.entries, key)
		return nil, false
	}
	res := cloneResult(e.res)
	return &res, true
}

func (c *MemoryCache) Set(_ context.Context, key string, res decisions.AIResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var expires time.Time
	if c.ttl > 0 {
		expires = c.now().Add(c.ttl)
	}
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*memoryCacheEntry)
		e.res = cloneResult(res)
		e.expires = expires
		return
	}
	for c.order.Len() >= c.max {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*memoryCacheEntry).key)
	}
	c.entries[key] = c.order.PushBack(&memoryCacheEntry{key: key, res: cloneResult(res), expires: expires})
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func cloneResult(res decisions.AIResult) decisions.AIResult {
	raw, err := json.Marshal(res)
	if err != nil {
		return res
	}
	var out decisions.AIResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return res
	}
	return out
}

// RedisCache shares results across replicas. Errors degrade to a miss.
type RedisCache struct {
	rdb    goredis.Cmdable
	log    *logger.Logger
	ttl    time.Duration
	prefix string
}

func NewRedisCache(rdb goredis.Cmdable, log *logger.Logger, ttl time.Duration) *RedisCache {
	return &RedisCache{
		rdb:    rdb,
		log:    log.With("service", "RedisResultCache"),
		ttl:    ttl,
		prefix: "decision:result:",
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*decisions.AIResult, bool) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("cache get failed", "error", err)
		}
		return nil, false
	}
	var res decisions.AIResult
	if err := json.Unmarshal(raw, &res); err != nil {
		c.log.Warn("cache entry unreadable", "error", err)
		return nil, false
	}
	return &res, true
}

func (c *RedisCache) Set(ctx context.Context, key string, res decisions.AIResult) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", "error", err)
	}
}
