package filesystem

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	billyutil "github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcsobj/gitcore/plumbing"
	"github.com/vcsobj/gitcore/plumbing/format/packfile"
)

func putLooseBlob(t *testing.T, dir *DotGit, content []byte) plumbing.Id {
	t.Helper()
	w, err := NewObjectWriter(dir.Filesystem())
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader(plumbing.BlobObject, int64(len(content))))
	_, err = w.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return plumbing.HashObject(plumbing.BlobObject, content)
}

func putPackedBlob(t *testing.T, fs interface{}, dir *DotGit, content []byte) plumbing.Id {
	t.Helper()
	w := NewPackWriter(dir.Filesystem())
	id := plumbing.HashObject(plumbing.BlobObject, content)
	w.Add(packfile.EntryToPack{Id: id, Type: plumbing.BlobObject, Content: content})
	_, _, err := w.Finish()
	require.NoError(t, err)
	return id
}

func TestStorageGetLoose(t *testing.T) {
	fs := memfs.New()
	dir := New(fs)

	content := []byte("loose blob\n")
	id := putLooseBlob(t, dir, content)

	s, err := Open(fs)
	require.NoError(t, err)

	typ, got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, plumbing.BlobObject, typ)
	assert.Equal(t, content, got)
}

func TestStorageGetFromPack(t *testing.T) {
	fs := memfs.New()
	dir := New(fs)

	content := []byte("packed blob\n")
	id := putPackedBlob(t, fs, dir, content)

	s, err := Open(fs)
	require.NoError(t, err)

	typ, got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, plumbing.BlobObject, typ)
	assert.Equal(t, content, got)
}

func TestStorageGetTypeMismatch(t *testing.T) {
	fs := memfs.New()
	dir := New(fs)

	content := []byte("some blob\n")
	id := putLooseBlob(t, dir, content)

	s, err := Open(fs)
	require.NoError(t, err)

	_, err = s.GetType(plumbing.CommitObject, id)
	assert.ErrorIs(t, err, plumbing.ErrTypeMismatch)
}

func TestStorageGetNotFound(t *testing.T) {
	fs := memfs.New()

	s, err := Open(fs)
	require.NoError(t, err)

	var missing plumbing.Id
	missing[0] = 0xff
	_, _, err = s.Get(missing)
	assert.ErrorIs(t, err, plumbing.ErrNotFound)
}

func TestStorageResolvePrefix(t *testing.T) {
	fs := memfs.New()
	dir := New(fs)

	id1 := putLooseBlob(t, dir, []byte("one\n"))
	id2 := putPackedBlob(t, fs, dir, []byte("two\n"))

	s, err := Open(fs)
	require.NoError(t, err)

	got, err := s.ResolvePrefix(id1.String()[:8])
	require.NoError(t, err)
	assert.Equal(t, id1, got)

	got, err = s.ResolvePrefix(id2.String()[:8])
	require.NoError(t, err)
	assert.Equal(t, id2, got)
}

func TestStorageResolvePrefixTooShort(t *testing.T) {
	fs := memfs.New()
	s, err := Open(fs)
	require.NoError(t, err)

	_, err = s.ResolvePrefix("abc")
	assert.ErrorIs(t, err, plumbing.ErrCorrupt)
}

func TestStorageResolvePrefixAmbiguous(t *testing.T) {
	fs := memfs.New()

	// Objects() only derives ids from the objects/<xx>/<rest> path, never
	// decoding content, so two crafted loose-object paths sharing a
	// four-hex-character prefix are enough to force an ambiguous match
	// without needing an actual hash collision.
	prefix := "abcd"
	hex1 := prefix + strings.Repeat("1", plumbing.HexSize-len(prefix))
	hex2 := prefix + strings.Repeat("2", plumbing.HexSize-len(prefix))

	require.NoError(t, fs.MkdirAll("objects/"+prefix[:2], 0755))
	for _, hex := range []string{hex1, hex2} {
		f, err := fs.Create("objects/" + hex[0:2] + "/" + hex[2:])
		require.NoError(t, err)
		f.Close()
	}

	s, err := Open(fs)
	require.NoError(t, err)

	_, err = s.ResolvePrefix(prefix)
	assert.ErrorIs(t, err, plumbing.ErrAmbiguous)
}

func TestOpenRejectsAlternates(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("objects/info", 0755))
	require.NoError(t, billyutil.WriteFile(fs, alternatesPath, []byte("/other/repo/objects\n"), 0644))

	_, err := Open(fs)
	assert.ErrorIs(t, err, plumbing.ErrUnsupported)
}

func TestOpenRejectsReftable(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll(reftablePath, 0755))

	_, err := Open(fs)
	assert.ErrorIs(t, err, plumbing.ErrUnsupported)
}

func TestOpenRejectsUnsupportedConfig(t *testing.T) {
	fs := memfs.New()
	body := "[core]\n\trepositoryformatversion = 99\n"
	require.NoError(t, billyutil.WriteFile(fs, configPath, []byte(body), 0644))

	_, err := Open(fs)
	assert.ErrorIs(t, err, plumbing.ErrUnsupported)
}
