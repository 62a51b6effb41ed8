package filesystem

import (
	"bytes"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcsobj/gitcore/plumbing"
	"github.com/vcsobj/gitcore/plumbing/format/objfile"
)

func TestObjectWriterRoundTrip(t *testing.T) {
	fs := memfs.New()
	dir := New(fs)

	content := []byte("hello world\n")
	typ := plumbing.BlobObject
	id := plumbing.HashObject(typ, content)

	w, err := NewObjectWriter(fs)
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader(typ, int64(len(content))))
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := dir.Object(id)
	require.NoError(t, err)
	defer f.Close()

	r, err := objfile.NewReader(f)
	require.NoError(t, err)
	gotType, gotSize, err := r.Header()
	require.NoError(t, err)
	assert.Equal(t, typ, gotType)
	assert.Equal(t, int64(len(content)), gotSize)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	assert.Equal(t, content, buf.Bytes())
}

func TestObjectsListsLooseObjects(t *testing.T) {
	fs := memfs.New()
	dir := New(fs)

	want := make(map[plumbing.Id]bool)
	for _, s := range []string{"a", "b", "c"} {
		w, err := NewObjectWriter(fs)
		require.NoError(t, err)
		content := []byte(s)
		require.NoError(t, w.WriteHeader(plumbing.BlobObject, int64(len(content))))
		_, err = w.Write(content)
		require.NoError(t, err)
		require.NoError(t, w.Close())
		want[plumbing.HashObject(plumbing.BlobObject, content)] = true
	}

	ids, err := dir.Objects()
	require.NoError(t, err)
	assert.Len(t, ids, len(want))
	for _, id := range ids {
		assert.True(t, want[id], "unexpected id %s in Objects()", id)
	}
}

func TestObjectNotFound(t *testing.T) {
	fs := memfs.New()
	dir := New(fs)

	var id plumbing.Id
	id[0] = 0xab
	_, err := dir.Object(id)
	assert.Error(t, err, "expected an error for a missing object")
}

func TestHasAlternates(t *testing.T) {
	fs := memfs.New()
	dir := New(fs)

	has, err := dir.HasAlternates()
	require.NoError(t, err)
	assert.False(t, has, "got true on a fresh repository")

	require.NoError(t, fs.MkdirAll("objects/info", 0755))
	f, err := fs.Create("objects/info/alternates")
	require.NoError(t, err)
	f.Close()

	has, err = dir.HasAlternates()
	require.NoError(t, err)
	assert.True(t, has, "got false after creating the file")
}
