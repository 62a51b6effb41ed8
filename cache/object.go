package cache

import (
	"container/list"
	"sync"

	"github.com/vcsobj/gitcore/plumbing"
)

// ObjectLRU is a least-recently-used cache of decoded objects, bounded by
// total content size rather than entry count: a handful of large blobs can
// fill the budget as fast as thousands of small ones.
type ObjectLRU struct {
	MaxSize FileSize

	mu         sync.Mutex
	actualSize FileSize
	ll         *list.List
	cache      map[plumbing.Id]*list.Element
}

// NewObjectLRU returns an ObjectLRU capped at maxSize total cached content.
func NewObjectLRU(maxSize FileSize) *ObjectLRU {
	return &ObjectLRU{
		MaxSize: maxSize,
		ll:      list.New(),
		cache:   make(map[plumbing.Id]*list.Element),
	}
}

// NewObjectLRUDefault returns an ObjectLRU capped at DefaultMaxSize.
func NewObjectLRUDefault() *ObjectLRU {
	return NewObjectLRU(DefaultMaxSize)
}

// Put inserts or updates e, evicting the least-recently-used entries until
// the cache fits within MaxSize. An entry larger than MaxSize on its own is
// accepted anyway (the cache degrades to holding just that one entry)
// rather than silently refusing to cache it.
func (c *ObjectLRU) Put(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.cache[e.Id]; ok {
		c.ll.MoveToFront(el)
		old := el.Value.(Entry)
		c.actualSize -= old.size()
		el.Value = e
		c.actualSize += e.size()
	} else {
		el := c.ll.PushFront(e)
		c.cache[e.Id] = el
		c.actualSize += e.size()
	}

	for c.actualSize > c.MaxSize && c.ll.Len() > 1 {
		c.removeOldest()
	}
}

// Get returns the cached entry for id, moving it to the front of the
// recency list on a hit.
func (c *ObjectLRU) Get(id plumbing.Id) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.cache[id]
	if !ok {
		return Entry{}, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(Entry), true
}

// Clear empties the cache.
func (c *ObjectLRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll = list.New()
	c.cache = make(map[plumbing.Id]*list.Element)
	c.actualSize = 0
}

func (c *ObjectLRU) removeOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	e := el.Value.(Entry)
	delete(c.cache, e.Id)
	c.actualSize -= e.size()
}
