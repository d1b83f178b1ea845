package explain

import (
	"container/list"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"
)

// cacheEntry tracks one cached explanation and its access pattern.
type cacheEntry struct {
	key         string
	explanation *Explanation
	accessCount int
	lastAccess  time.Time
}

// lruCache is a bounded explanation cache with least-recently-used
// eviction. Safe for concurrent use.
type lruCache struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	items   map[string]*list.Element
	hits    int
	misses  int
}

func newLRUCache(maxSize int) *lruCache {
	return &lruCache{
		maxSize: maxSize,
		order:   list.New(),
		items:   make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) (*Explanation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	ent := elem.Value.(*cacheEntry)
	ent.accessCount++
	ent.lastAccess = time.Now()
	c.order.MoveToFront(elem)
	return ent.explanation, true
}

func (c *lruCache) put(key string, exp *Explanation) {
	if c.maxSize <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*cacheEntry)
		ent.explanation = exp
		ent.lastAccess = time.Now()
		c.order.MoveToFront(elem)
		return
	}

	for c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}

	ent := &cacheEntry{key: key, explanation: exp, lastAccess: time.Now()}
	c.items[key] = c.order.PushFront(ent)
}

func (c *lruCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{Size: len(c.items)}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}

	best := -1
	for key, elem := range c.items {
		if count := elem.Value.(*cacheEntry).accessCount; count > best {
			best = count
			stats.MostAccessed = key
		}
	}
	return stats
}

func (c *lruCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
	c.hits = 0
	c.misses = 0
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// fingerprint builds the cache key for a request. The predictor's
// identity participates so two models explaining the same instance do
// not collide.
func fingerprint(req *Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%p|%s|", req.Model, req.Type)
	for _, name := range req.FeatureNames {
		h.Write([]byte(name))
		h.Write([]byte{0})
	}
	buf := make([]byte, 8)
	for _, v := range req.Instance {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}
	return fmt.Sprintf("%x", h.Sum(nil)[:16])
}
