package idxfile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcsobj/gitcore/plumbing"
)

func mkID(t *testing.T, hex string) plumbing.Id {
	t.Helper()
	id, ok := plumbing.FromHex(hex)
	require.True(t, ok, "bad test id %q", hex)
	return id
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ids := []plumbing.Id{
		mkID(t, "1111111111111111111111111111111111111111"),
		mkID(t, "0000000000000000000000000000000000000001"),
		mkID(t, "ffffffffffffffffffffffffffffffffffffffff"),
	}
	offsets := []int64{100, 1 << 32, 200}
	crcs := []uint32{1, 2, 3}

	var b Builder
	for i := range ids {
		b.Add(ids[i], offsets[i], crcs[i])
	}
	packSum := mkID(t, "2222222222222222222222222222222222222222")
	idx := b.Build(packSum)

	var buf bytes.Buffer
	_, err := Encode(&buf, idx)
	require.NoError(t, err)

	decoded, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, len(ids), decoded.Count())

	for i, id := range ids {
		off, ok := decoded.FindOffset(id)
		require.True(t, ok, "FindOffset(%s) not found", id)
		assert.Equal(t, offsets[i], off)

		crc, ok := decoded.FindCRC32(id)
		require.True(t, ok)
		assert.Equal(t, crcs[i], crc)
	}

	assert.Equal(t, packSum, decoded.PackfileChecksum())
}

func TestFanoutInvariant(t *testing.T) {
	ids := []plumbing.Id{
		mkID(t, "0000000000000000000000000000000000000000"),
		mkID(t, "0000000000000000000000000000000000000001"),
		mkID(t, "ff00000000000000000000000000000000000000"),
	}
	idx := NewMemoryIndex(ids, []int64{1, 2, 3}, []uint32{1, 2, 3})
	assert.NoError(t, verifyFanout(idx.fanout, idx.ids))
}

func TestZeroEntryIndexRoundTrip(t *testing.T) {
	var b Builder
	idx := b.Build(plumbing.ZeroId)

	var buf bytes.Buffer
	_, err := Encode(&buf, idx)
	require.NoError(t, err)

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Zero(t, decoded.Count())
	for _, b := range decoded.fanout {
		assert.Zero(t, b, "expected all-zero fanout for empty index")
	}
}

func TestFindHexPrefixAmbiguity(t *testing.T) {
	ids := []plumbing.Id{
		mkID(t, "abcd000000000000000000000000000000000000"),
		mkID(t, "abcd000000000000000000000000000000000001"),
		mkID(t, "dead000000000000000000000000000000000000"),
	}
	idx := NewMemoryIndex(ids, []int64{1, 2, 3}, []uint32{1, 2, 3})

	matches := idx.FindHexPrefix("abcd")
	assert.Len(t, matches, 2)

	matches = idx.FindHexPrefix("dead")
	assert.Len(t, matches, 1)
}
