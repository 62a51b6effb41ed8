package filesystem

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcsobj/gitcore/plumbing"
)

func TestAcquireLockExclusive(t *testing.T) {
	fs := memfs.New()

	l1, err := AcquireLock(fs)
	require.NoError(t, err)

	_, err = AcquireLock(fs)
	assert.ErrorIs(t, err, plumbing.ErrConflict)

	require.NoError(t, l1.Release())

	l2, err := AcquireLock(fs)
	require.NoError(t, err)
	assert.NoError(t, l2.Release())
}
