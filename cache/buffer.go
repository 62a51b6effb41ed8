package cache

import (
	"container/list"
	"sync"
)

type bufferEntry struct {
	offset  int64
	content []byte
}

// BufferLRU is a least-recently-used cache of raw bytes keyed by pack byte
// offset, used to avoid re-reading and re-inflating a delta base that
// several dependent deltas in the same chain all need.
type BufferLRU struct {
	MaxSize FileSize

	mu         sync.Mutex
	actualSize FileSize
	ll         *list.List
	cache      map[int64]*list.Element
}

// NewBufferLRU returns a BufferLRU capped at maxSize total cached bytes.
func NewBufferLRU(maxSize FileSize) *BufferLRU {
	return &BufferLRU{
		MaxSize: maxSize,
		ll:      list.New(),
		cache:   make(map[int64]*list.Element),
	}
}

// NewBufferLRUDefault returns a BufferLRU capped at DefaultMaxSize.
func NewBufferLRUDefault() *BufferLRU {
	return NewBufferLRU(DefaultMaxSize)
}

func (c *BufferLRU) Put(offset int64, content []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.cache[offset]; ok {
		c.ll.MoveToFront(el)
		old := el.Value.(bufferEntry)
		c.actualSize -= FileSize(len(old.content))
		el.Value = bufferEntry{offset: offset, content: content}
		c.actualSize += FileSize(len(content))
	} else {
		el := c.ll.PushFront(bufferEntry{offset: offset, content: content})
		c.cache[offset] = el
		c.actualSize += FileSize(len(content))
	}

	for c.actualSize > c.MaxSize && c.ll.Len() > 1 {
		c.removeOldest()
	}
}

func (c *BufferLRU) Get(offset int64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.cache[offset]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(bufferEntry).content, true
}

func (c *BufferLRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll = list.New()
	c.cache = make(map[int64]*list.Element)
	c.actualSize = 0
}

func (c *BufferLRU) removeOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	e := el.Value.(bufferEntry)
	delete(c.cache, e.offset)
	c.actualSize -= FileSize(len(e.content))
}
