package cache

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"centsible/internal/core"
	"centsible/internal/ledger"
)

const (
	DefaultHistoryTTL  = 5 * time.Minute
	DefaultHistorySize = 128
	// DefaultReadTimeout bounds a shared backend call, which outlives the
	// caller that started it.
	DefaultReadTimeout = 10 * time.Second
)

// HistoryCache is a read-through ledger.HistoryReader. Concurrent misses for
// the same query share one backend call.
//
// Every key has an epoch that Invalidate and Purge advance. A backend result
// is stored only if its key's epoch is unchanged since the call began, and
// calls are shared only within one epoch.
type HistoryCache struct {
	next    ledger.HistoryReader
	lru     *LRUCache[[]core.HistoryRecord]
	group   singleflight.Group
	timeout time.Duration

	mu     sync.Mutex
	epochs map[string]uint64
	purges uint64
}

func NewHistoryCache(next ledger.HistoryReader, size int, ttl time.Duration) *HistoryCache {
	if size <= 0 {
		size = DefaultHistorySize
	}
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	return &HistoryCache{
		next:    next,
		lru:     NewLRUCache[[]core.HistoryRecord](size, ttl),
		timeout: DefaultReadTimeout,
		epochs:  make(map[string]uint64),
	}
}

func (c *HistoryCache) epochLocked(key string) uint64 {
	return c.purges + c.epochs[key]
}

func (c *HistoryCache) epoch(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epochLocked(key)
}

// store caches recs unless key was invalidated after epoch was read.
func (c *HistoryCache) store(key string, epoch uint64, recs []core.HistoryRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epochLocked(key) != epoch {
		return
	}
	c.lru.Set(key, recs)
}

// ReadHistory returns a copy of the cached buckets, loading them on a miss.
// Errors are not cached.
func (c *HistoryCache) ReadHistory(ctx context.Context, q core.HistoryQuery) ([]core.HistoryRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	key := q.Key()
	if recs, ok := c.lru.Get(key); ok {
		return slices.Clone(recs), nil
	}
	epoch := c.epoch(key)
	v, err, _ := c.group.Do(key+"@"+strconv.FormatUint(epoch, 10), func() (any, error) {
		// the call is shared, so it is detached from the first caller
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		recs, err := c.next.ReadHistory(callCtx, q)
		if err != nil {
			return nil, err
		}
		if recs == nil {
			recs = []core.HistoryRecord{}
		}
		c.store(key, epoch, recs)
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]core.HistoryRecord)), nil
}

// Invalidate drops the cached result of each query.
func (c *HistoryCache) Invalidate(queries ...core.HistoryQuery) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range queries {
		key := q.Key()
		c.epochs[key]++
		c.lru.Delete(key)
	}
}

// Purge drops every cached result.
func (c *HistoryCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purges++
	c.lru.Clear()
}

func (c *HistoryCache) CleanExpired() int {
	return c.lru.CleanExpired()
}

func (c *HistoryCache) Size() int {
	return c.lru.Size()
}
