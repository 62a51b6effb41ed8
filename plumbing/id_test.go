package plumbing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHexRoundTrip(t *testing.T) {
	const hex = "b6fc4c620b67d95f953a5c1c1230aaab5db5a1b0"
	id, ok := FromHex(hex)
	require.True(t, ok, "FromHex(%q) failed", hex)
	assert.Equal(t, hex, id.String())
}

func TestFromHexRejectsBadLength(t *testing.T) {
	_, ok := FromHex("abcd")
	assert.False(t, ok, "FromHex should reject abbreviated ids")
}

func TestZeroIdIsZero(t *testing.T) {
	assert.True(t, ZeroId.IsZero())
	id, _ := FromHex("b6fc4c620b67d95f953a5c1c1230aaab5db5a1b0")
	assert.False(t, id.IsZero(), "non-zero id reported as zero")
}

func TestHasHexPrefix(t *testing.T) {
	id, _ := FromHex("b6fc4c620b67d95f953a5c1c1230aaab5db5a1b0")
	assert.True(t, id.HasHexPrefix("b6fc"))
	assert.False(t, id.HasHexPrefix("dead"))
}

func TestSortIds(t *testing.T) {
	a, _ := FromHex("ff00000000000000000000000000000000000000"[:40])
	b, _ := FromHex("0000000000000000000000000000000000000000"[:40])
	ids := []Id{a, b}
	SortIds(ids)
	assert.True(t, ids[0].Less(ids[1]), "ids not sorted: %v", ids)
}
