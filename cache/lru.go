package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/strataseq/cline/resource"
)

// LRU is an in-memory BlockCache with byte-capacity eviction.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[Key]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   Key
	value []byte

	// tracked records whether the bytes were admitted to the resource
	// controller's budget, so releases stay paired with acquisitions.
	tracked bool
}

// NewLRU creates an LRU cache holding up to capacity bytes of block
// payload. If rc is non-nil, cached bytes are tracked against its
// memory budget.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get implements BlockCache.
func (c *LRU) Get(_ context.Context, key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	c.evictList.MoveToFront(el)
	c.hits.Add(1)
	return el.Value.(*entry).value, true
}

// Set implements BlockCache. Blocks larger than the whole capacity are
// not admitted.
func (c *LRU) Set(_ context.Context, key Key, b []byte) {
	size := int64(len(b))
	if size > c.capacity {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}

	e := &entry{key: key, value: b}
	e.tracked = c.rc.TryAcquireMemory(size)
	c.items[key] = c.evictList.PushFront(e)
	c.size += size
	c.evict()
}

// Invalidate implements BlockCache.
func (c *LRU) Invalidate(match func(key Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, el := range c.items {
		if match(key) {
			c.removeElement(el)
		}
	}
}

// Stats returns cumulative hit and miss counts.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the current cached payload size in bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// evict removes least-recently-used entries until within capacity;
// caller holds mu.
func (c *LRU) evict() {
	for c.size > c.capacity {
		el := c.evictList.Back()
		if el == nil {
			return
		}
		c.removeElement(el)
	}
}

// removeElement removes an entry; caller holds mu.
func (c *LRU) removeElement(el *list.Element) {
	e := el.Value.(*entry)
	c.evictList.Remove(el)
	delete(c.items, e.key)
	c.size -= int64(len(e.value))
	if e.tracked {
		c.rc.ReleaseMemory(int64(len(e.value)))
	}
}
