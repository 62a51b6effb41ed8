package plumbing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsBySentinel(t *testing.T) {
	id, _ := FromHex("b6fc4c620b67d95f953a5c1c1230aaab5db5a1b0")
	err := NewError(KindNotFound, errors.New("boom")).WithId(id).WithPath("objects/pack")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrCorrupt)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, id, e.Id)
	assert.Equal(t, "objects/pack", e.Path)
}

func TestErrorWithOffsetDistinguishesZero(t *testing.T) {
	err := NewError(KindCorrupt, nil).WithOffset(0)
	assert.True(t, err.HasOffset, "HasOffset should be true even for offset 0")
}
