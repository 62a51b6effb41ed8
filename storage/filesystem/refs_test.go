package filesystem

import (
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	billyutil "github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcsobj/gitcore/plumbing"
)

func idFromHex(t *testing.T, s string) plumbing.Id {
	t.Helper()
	id, ok := plumbing.FromHex(s)
	require.True(t, ok, "FromHex(%q) failed", s)
	return id
}

func TestReferenceStorageLooseAndHEAD(t *testing.T) {
	fs := memfs.New()
	dir := New(fs)

	hex := strings.Repeat("a1", 20)
	require.NoError(t, billyutil.WriteFile(fs, "refs/heads/main", []byte(hex+"\n"), 0644))
	require.NoError(t, billyutil.WriteFile(fs, "HEAD", []byte("ref: refs/heads/main\n"), 0644))

	rs := NewReferenceStorage(dir)

	head, err := rs.Reference(plumbing.HEAD)
	require.NoError(t, err)
	assert.Equal(t, plumbing.SymbolicReference, head.Type())
	assert.Equal(t, plumbing.ReferenceName("refs/heads/main"), head.Target())

	main, err := rs.Reference(plumbing.ReferenceName("refs/heads/main"))
	require.NoError(t, err)
	assert.Equal(t, idFromHex(t, hex), main.Hash())
}

func TestReferenceStorageMissing(t *testing.T) {
	fs := memfs.New()
	dir := New(fs)
	rs := NewReferenceStorage(dir)

	_, err := rs.Reference(plumbing.ReferenceName("refs/heads/nope"))
	assert.Error(t, err, "expected an error for a missing ref")
}

func TestReferenceStoragePackedRefsAndPeeled(t *testing.T) {
	fs := memfs.New()
	dir := New(fs)

	hexCommit := strings.Repeat("b2", 20)
	hexTag := strings.Repeat("c3", 20)
	hexPeeled := strings.Repeat("d4", 20)

	packed := "# pack-refs with: peeled fully-peeled sorted\n" +
		hexCommit + " refs/heads/feature\n" +
		hexTag + " refs/tags/v1\n" +
		"^" + hexPeeled + "\n"
	require.NoError(t, billyutil.WriteFile(fs, packedRefsPath, []byte(packed), 0644))

	rs := NewReferenceStorage(dir)

	feature, err := rs.Reference(plumbing.ReferenceName("refs/heads/feature"))
	require.NoError(t, err)
	assert.Equal(t, idFromHex(t, hexCommit), feature.Hash())

	tag, err := rs.Reference(plumbing.ReferenceName("refs/tags/v1"))
	require.NoError(t, err)
	assert.Equal(t, idFromHex(t, hexTag), tag.Hash())

	// RemoveReference on an unrelated packed ref should leave the packed
	// tag and its peeled annotation untouched.
	require.NoError(t, rs.RemoveReference(plumbing.ReferenceName("refs/heads/feature")))

	f, err := fs.Open(packedRefsPath)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 4096)
	n, _ := f.Read(buf)
	rewritten := string(buf[:n])

	assert.NotContains(t, rewritten, "refs/heads/feature", "rewritten packed-refs still names the removed ref")
	assert.Contains(t, rewritten, "refs/tags/v1", "rewritten packed-refs dropped a surviving ref")
	assert.Contains(t, rewritten, "^"+hexPeeled, "rewritten packed-refs dropped the peeled annotation")

	_, err = rs.Reference(plumbing.ReferenceName("refs/heads/feature"))
	assert.Error(t, err, "expected not-found after removal")
}

func TestSetReferenceCompareAndSwap(t *testing.T) {
	fs := memfs.New()
	dir := New(fs)
	rs := NewReferenceStorage(dir)

	name := plumbing.ReferenceName("refs/heads/main")
	first := plumbing.NewHashReference(name, idFromHex(t, strings.Repeat("11", 20)))
	require.NoError(t, rs.SetReference(first, nil))

	stale := plumbing.NewHashReference(name, idFromHex(t, strings.Repeat("22", 20)))
	wrongOld := plumbing.NewHashReference(name, idFromHex(t, strings.Repeat("99", 20)))
	assert.Error(t, rs.SetReference(stale, wrongOld), "expected a conflict against a stale old value")

	next := plumbing.NewHashReference(name, idFromHex(t, strings.Repeat("33", 20)))
	require.NoError(t, rs.SetReference(next, first))

	got, err := rs.Reference(name)
	require.NoError(t, err)
	assert.Equal(t, next.Hash(), got.Hash())
}

func TestSetReferenceRejectsInvalidName(t *testing.T) {
	fs := memfs.New()
	dir := New(fs)
	rs := NewReferenceStorage(dir)

	bad := plumbing.NewHashReference(plumbing.ReferenceName("refs/heads/.lock"), idFromHex(t, strings.Repeat("44", 20)))
	assert.Error(t, rs.SetReference(bad, nil), "expected an invalid-name error")
}
