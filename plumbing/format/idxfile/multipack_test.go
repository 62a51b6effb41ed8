package idxfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vcsobj/gitcore/plumbing"
)

func TestMultiPackIndexFindPack(t *testing.T) {
	ids := []plumbing.Id{
		mkID(t, "1111111111111111111111111111111111111111"),
		mkID(t, "2222222222222222222222222222222222222222"),
	}
	mi := NewMultiPackIndex(ids, []int64{10, 20}, []uint32{1, 2}, []string{"pack-a", "pack-b"})

	pack, off, ok := mi.FindPack(ids[1])
	assert.True(t, ok)
	assert.Equal(t, "pack-b", pack)
	assert.Equal(t, int64(20), off)

	_, _, ok = mi.FindPack(mkID(t, "dead000000000000000000000000000000000000"))
	assert.False(t, ok, "expected miss for unknown id")
}
