package aspect

import (
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sghaida/oproxy/proxy"
)

// Cache memoizes successful results by method and arguments. Failed calls are
// never cached. Use one Cache per proxy: keys do not include the target.
// Context arguments are not part of the key.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[uint64]cacheEntry
	hits    uint64
	misses  uint64
	opts    options
}

type cacheEntry struct {
	results []any
	expires time.Time
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// NewCache creates a cache whose entries live for ttl. ttl <= 0 keeps entries
// until Invalidate.
func NewCache(ttl time.Duration, opts ...Option) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[uint64]cacheEntry),
		opts:    newOptions(opts),
	}
}

// Config returns the Around hook serving cached results.
func (c *Cache) Config() proxy.Config {
	return proxy.Config{
		Around: func(call *proxy.Call, proceed proxy.Proceed) ([]any, error) {
			key := cacheKey(call)
			if out, ok := c.lookup(key); ok {
				return out, nil
			}

			out, err := proceed()
			if err == nil {
				c.store(key, out)
			}
			return out, err
		},
	}
}

// Invalidate drops every entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]cacheEntry)
}

// Len returns the number of entries, expired ones included until their next
// lookup.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Entries: len(c.entries)}
}

func (c *Cache) lookup(key uint64) ([]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.ttl > 0 && !c.opts.clock().Before(e.expires) {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return cloneResults(e.results), true
}

func (c *Cache) store(key uint64, out []any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := cacheEntry{results: cloneResults(out)}
	if c.ttl > 0 {
		e.expires = c.opts.clock().Add(c.ttl)
	}
	c.entries[key] = e
}

func cacheKey(call *proxy.Call) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(call.Method)
	for _, a := range policyArgs(call.Args) {
		_, _ = d.WriteString("\x00")
		_, _ = fmt.Fprintf(d, "%#v", a)
	}
	return d.Sum64()
}

func cloneResults(in []any) []any {
	if in == nil {
		return nil
	}
	out := make([]any, len(in))
	copy(out, in)
	return out
}
