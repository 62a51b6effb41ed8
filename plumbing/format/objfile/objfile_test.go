package objfile

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcsobj/gitcore/plumbing"
)

func roundTrip(t *testing.T, typ plumbing.ObjectType, content []byte) plumbing.Id {
	t.Helper()

	var buf bytes.Buffer
	id, err := WriteObject(&buf, typ, content)
	require.NoError(t, err)

	gotTyp, gotContent, err := ReadObject(&buf)
	require.NoError(t, err)
	assert.Equal(t, typ, gotTyp)
	assert.Equal(t, content, gotContent)
	return id
}

func TestEmptyBlobId(t *testing.T) {
	id := roundTrip(t, plumbing.BlobObject, []byte(""))
	want, _ := plumbing.FromHex("e69de29bb2d1d6434b8b29ae775ad8c2e48c5391")
	assert.Equal(t, want, id)
}

func TestHelloBlobId(t *testing.T) {
	id := roundTrip(t, plumbing.BlobObject, []byte("hello"))
	want, _ := plumbing.FromHex("b6fc4c620b67d95f953a5c1c1230aaab5db5a1b0")
	assert.Equal(t, want, id)
}

func TestWriterOverflow(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteHeader(plumbing.BlobObject, 4))
	n, err := w.Write([]byte("1234"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = w.Write([]byte("5"))
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Zero(t, n, "expected 0 bytes accepted past the declared size")
}

func TestWriterRejectsInvalidType(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	assert.ErrorIs(t, w.WriteHeader(plumbing.InvalidObject, 4), ErrInvalidType)
}

func TestWriterRejectsNegativeSize(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	assert.ErrorIs(t, w.WriteHeader(plumbing.BlobObject, -1), ErrNegativeSize)
}

func TestReaderRejectsGarbage(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("not zlib data")))
	assert.Error(t, err, "expected error for non-zlib input")
}

func TestReaderHeaderIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	_, err := WriteObject(&buf, plumbing.BlobObject, []byte("abc"))
	require.NoError(t, err)
	r, err := NewReader(&buf)
	require.NoError(t, err)
	defer r.Close()

	typ1, size1, err := r.Header()
	require.NoError(t, err)
	typ2, size2, err := r.Header()
	require.NoError(t, err)
	assert.Equal(t, typ1, typ2)
	assert.Equal(t, size1, size2)

	content, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(content))
}
