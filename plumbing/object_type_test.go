package plumbing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectTypeRoundTrip(t *testing.T) {
	for _, tt := range []ObjectType{CommitObject, TreeObject, BlobObject, TagObject} {
		got, err := ParseObjectType(tt.String())
		require.NoError(t, err)
		assert.Equal(t, tt, got)
	}
}

func TestParseObjectTypeRejectsUnknown(t *testing.T) {
	_, err := ParseObjectType("bogus")
	assert.Error(t, err)
}

func TestIsDelta(t *testing.T) {
	assert.True(t, OfsDeltaObject.IsDelta())
	assert.True(t, RefDeltaObject.IsDelta())
	assert.False(t, BlobObject.IsDelta())
}
