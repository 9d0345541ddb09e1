// Package trust provides a bounded recency cache of past detections.
//
// The cache gives the fusion engine short-term memory: a cat that was seen a
// few windows ago is probably still around even if the classifier misses it
// this window. Entries are kept in strict recency order with LRU eviction at
// a fixed capacity.
package trust

import (
	"container/list"
	"sync"
	"time"
)

// DefaultCapacity is the default number of entries the cache retains.
const DefaultCapacity = 20

// Entry is one remembered detection.
type Entry struct {
	// Category is the classifier label the detection carried.
	Category string

	// Confidence is the detection confidence at write time (0-1).
	Confidence float64

	// Timestamp is when the detection was recorded.
	Timestamp time.Time

	// IsTarget marks detections of the target class (cat keywords).
	IsTarget bool
}

// Cache is a fixed-capacity recency cache keyed by category.
//
// Set and Get are O(1); both promote the touched entry to most-recent.
// Recent walks from most- to least-recently touched.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recent, values are *Entry
	index    map[string]*list.Element
}

// New creates a cache with the given capacity. Capacities below one fall back
// to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

// Set inserts or updates the entry for its category and marks it most-recent.
// When the cache is full the least-recently-touched entry is evicted.
func (c *Cache) Set(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[e.Category]; ok {
		el.Value = &e
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.index, oldest.Value.(*Entry).Category)
		}
	}

	c.index[e.Category] = c.order.PushFront(&e)
}

// Get returns the entry for category and promotes it to most-recent.
func (c *Cache) Get(category string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[category]
	if !ok {
		return Entry{}, false
	}
	c.order.MoveToFront(el)
	return *el.Value.(*Entry), true
}

// Recent returns up to k entries in recency order, most recent first.
// Reading does not change recency.
func (c *Cache) Recent(k int) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if k > c.order.Len() {
		k = c.order.Len()
	}
	if k <= 0 {
		return nil
	}

	out := make([]Entry, 0, k)
	for el := c.order.Front(); el != nil && len(out) < k; el = el.Next() {
		out = append(out, *el.Value.(*Entry))
	}
	return out
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Capacity returns the fixed capacity.
func (c *Cache) Capacity() int { return c.capacity }
