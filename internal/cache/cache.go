package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value     any
	createdAt time.Time
	expiresAt time.Time
}

// Cache is a TTL-bounded memoization layer shared by concurrent request
// handlers. Misses for the same key coalesce into a single upstream
// computation; a failed computation leaves no entry so the next caller
// retries. Instances are constructed explicitly and passed down — there is
// no package-level singleton.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	gen     uint64
	group   singleflight.Group

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

func New() *Cache {
	return &Cache{
		entries: map[string]entry{},
		now:     time.Now,
	}
}

// NewWithClock is New with a caller-supplied clock.
func NewWithClock(now func() time.Time) *Cache {
	c := New()
	if now != nil {
		c.now = now
	}
	return c
}

// GetOrCompute returns the live value for key, computing and publishing it at
// most once per freshness window. Expired entries are evicted lazily here;
// there is no background sweep. Late arrivals during an in-flight computation
// wait for its result instead of starting their own.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have published
		// while this one waited its turn.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		gen := c.generation()
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.publish(key, v, ttl, gen)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Get returns the live value for key without computing anything.
func (c *Cache) Get(key string) (any, bool) {
	return c.lookup(key)
}

// Put publishes a value directly.
func (c *Cache) Put(key string, value any, ttl time.Duration) {
	c.publish(key, value, ttl, c.generation())
}

// Update recomputes key and republishes it even while a live entry exists,
// used by preload to refresh ahead of expiry. A Clear during the computation
// wins: the freshly computed value is discarded rather than resurrecting
// state derived from pre-clear inputs.
func (c *Cache) Update(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (any, error)) error {
	gen := c.generation()
	v, err := fn(ctx)
	if err != nil {
		return err
	}
	c.publish(key, v, ttl, gen)
	return nil
}

// Clear evicts the named keys, or every entry when called with none. It also
// advances the clear generation so an in-flight computation started before the
// clear cannot publish afterwards.
func (c *Cache) Clear(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if len(keys) == 0 {
		c.entries = map[string]entry{}
		return
	}
	for _, key := range keys {
		delete(c.entries, key)
	}
}

// Len reports the number of live entries, for diagnostics.
func (c *Cache) Len() int {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

func (c *Cache) lookup(key string) (any, bool) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !now.Before(e.expiresAt) {
		c.mu.Lock()
		// Another goroutine may have republished meanwhile; only drop the
		// entry we actually saw expire.
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (c *Cache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// publish stores the value unless a Clear ran after gen was captured.
func (c *Cache) publish(key string, value any, ttl time.Duration, gen uint64) {
	if ttl <= 0 {
		return
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.entries[key] = entry{value: value, createdAt: now, expiresAt: now.Add(ttl)}
}
