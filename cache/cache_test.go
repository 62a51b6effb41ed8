package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vcsobj/gitcore/plumbing"
)

func idFor(s string) plumbing.Id {
	id, ok := plumbing.FromHex(s)
	if ok {
		return id
	}
	// Test-only hashes may be shorter than a real hex id; hash the string
	// down to a stable 20-byte id instead of requiring exact hex literals.
	return plumbing.HashObject(plumbing.BlobObject, []byte(s))
}

func TestObjectLRUEvictsBySize(t *testing.T) {
	c := NewObjectLRU(2 * Byte)

	a := Entry{Id: idFor("a"), Content: []byte("a")}
	cc := Entry{Id: idFor("c"), Content: []byte("c")}
	d := Entry{Id: idFor("d"), Content: []byte("d")}

	c.Put(a)
	c.Put(cc)
	c.Put(d) // evicts a

	_, ok := c.Get(a.Id)
	assert.False(t, ok, "expected a to be evicted")
	_, ok = c.Get(cc.Id)
	assert.True(t, ok, "expected c to remain cached")
	_, ok = c.Get(d.Id)
	assert.True(t, ok, "expected d to remain cached")
}

func TestObjectLRUPutSameIdUpdatesSize(t *testing.T) {
	id := idFor("a")
	c := NewObjectLRU(7 * Byte)

	c.Put(Entry{Id: id, Content: []byte("a")})
	c.Put(Entry{Id: id, Content: []byte("aaa")})
	c.Put(Entry{Id: id, Content: []byte("aaaaaaa")})

	assert.Equal(t, Byte*7, c.actualSize)
	assert.Equal(t, 1, c.ll.Len())

	e, ok := c.Get(id)
	assert.True(t, ok)
	assert.Len(t, e.Content, 7)
}

func TestObjectLRUClear(t *testing.T) {
	c := NewObjectLRUDefault()
	id := idFor("a")
	c.Put(Entry{Id: id, Content: []byte("a")})
	c.Clear()
	_, ok := c.Get(id)
	assert.False(t, ok, "expected empty cache after Clear")
}

func TestObjectLRUDefaultSize(t *testing.T) {
	c := NewObjectLRUDefault()
	assert.Equal(t, DefaultMaxSize, c.MaxSize)
}

func TestObjectLRUConcurrentAccess(t *testing.T) {
	c := NewObjectLRU(64 * Byte)
	var wg sync.WaitGroup

	for i := 0; i < 200; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			c.Put(Entry{Id: idFor(fmt.Sprint(i)), Content: []byte{0}})
		}(i)
		go func(i int) {
			defer wg.Done()
			if i%30 == 0 {
				c.Clear()
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			c.Get(idFor(fmt.Sprint(i)))
		}(i)
	}
	wg.Wait()
}

func TestBufferLRUEvictsBySize(t *testing.T) {
	c := NewBufferLRU(2 * Byte)

	c.Put(1, []byte("a"))
	c.Put(2, []byte("c"))
	c.Put(3, []byte("d")) // evicts offset 1

	_, ok := c.Get(1)
	assert.False(t, ok, "expected offset 1 to be evicted")
	_, ok = c.Get(2)
	assert.True(t, ok, "expected offset 2 to remain cached")
	_, ok = c.Get(3)
	assert.True(t, ok, "expected offset 3 to remain cached")
}

func TestBufferLRUPutSameOffsetReplacesContent(t *testing.T) {
	c := NewBufferLRU(7 * Byte)
	c.Put(1, []byte("a"))
	c.Put(1, []byte("bbb"))
	c.Put(1, []byte("ccccccc"))

	got, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "ccccccc", string(got))
	assert.Equal(t, 1, c.ll.Len())
}

func TestBufferLRUClear(t *testing.T) {
	c := NewBufferLRUDefault()
	c.Put(1, []byte("a"))
	c.Clear()
	_, ok := c.Get(1)
	assert.False(t, ok, "expected empty cache after Clear")
}
