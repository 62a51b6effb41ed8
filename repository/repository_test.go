package repository

import (
	"io"
	"testing"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	billyutil "github.com/go-git/go-billy/v5/util"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcsobj/gitcore/object"
	"github.com/vcsobj/gitcore/plumbing"
)

func sig(t time.Time) object.Signature {
	return object.Signature{Name: "Ada Lovelace", Email: "ada@example.com", When: t}
}

func openFreshRepo(t *testing.T) (*Repository, billy.Filesystem) {
	t.Helper()
	fs := memfs.New()
	require.NoError(t, billyutil.WriteFile(fs, "HEAD", []byte("ref: refs/heads/main\n"), 0644))
	r, err := Open(fs)
	require.NoError(t, err)
	return r, fs
}

func TestCommitCreatesBranchAndMovesHead(t *testing.T) {
	r, _ := openFreshRepo(t)

	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	meta := CommitMetadata{Author: sig(when), Committer: sig(when), Message: "first commit\n"}

	edits := []FileEdit{{Path: "a.txt", Content: []byte("hello\n")}}
	id, err := r.Commit("refs/heads/main", edits, meta, CommitOptions{UpdateHead: true})
	require.NoError(t, err)

	head, err := r.Head()
	require.NoError(t, err)
	assert.Equal(t, id, head.Hash())

	commit, err := r.ResolveCommit(id)
	require.NoError(t, err)
	assert.Equal(t, meta.Message, commit.Message)
	assert.Empty(t, commit.ParentIds)

	tree, err := r.ResolveTree(commit.TreeId)
	require.NoError(t, err)
	entry, ok := tree.Find("a.txt")
	require.True(t, ok, "tree missing a.txt: %+v", tree)
	blob, err := r.ResolveBlob(entry.Id)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(blob))
}

func TestCommitRejectsEmptyUnlessAllowed(t *testing.T) {
	r, _ := openFreshRepo(t)
	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	meta := CommitMetadata{Author: sig(when), Committer: sig(when), Message: "m"}

	_, err := r.Commit("refs/heads/main", []FileEdit{{Path: "a.txt", Content: []byte("x\n")}}, meta, CommitOptions{})
	require.NoError(t, err)

	_, err = r.Commit("refs/heads/main", nil, meta, CommitOptions{})
	assert.ErrorIs(t, err, plumbing.ErrConflict)

	_, err = r.Commit("refs/heads/main", nil, meta, CommitOptions{AllowEmpty: true})
	assert.NoError(t, err)
}

func TestLogWalksHistoryNewestFirst(t *testing.T) {
	r, _ := openFreshRepo(t)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	meta0 := CommitMetadata{Author: sig(t0), Committer: sig(t0), Message: "first"}
	id0, err := r.Commit("refs/heads/main", []FileEdit{{Path: "a.txt", Content: []byte("one\n")}}, meta0, CommitOptions{})
	require.NoError(t, err)

	meta1 := CommitMetadata{Author: sig(t1), Committer: sig(t1), Message: "second"}
	id1, err := r.Commit("refs/heads/main", []FileEdit{{Path: "b.txt", Content: []byte("two\n")}}, meta1, CommitOptions{})
	require.NoError(t, err)

	it, err := r.Log("refs/heads/main", LogOptions{Order: LogOrderTime})
	require.NoError(t, err)
	defer it.Close()

	e, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, id1, e.Id, "first entry should be the newest")

	e, err = it.Next()
	require.NoError(t, err)
	assert.Equal(t, id0, e.Id)

	_, err = it.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestLogPathFilter(t *testing.T) {
	r, _ := openFreshRepo(t)
	when := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	meta := CommitMetadata{Author: sig(when), Committer: sig(when), Message: "m"}
	id0, err := r.Commit("refs/heads/main", []FileEdit{{Path: "a.txt", Content: []byte("one\n")}}, meta, CommitOptions{})
	require.NoError(t, err)
	_, err = r.Commit("refs/heads/main", []FileEdit{{Path: "b.txt", Content: []byte("two\n")}}, meta, CommitOptions{})
	require.NoError(t, err)

	it, err := r.Log("refs/heads/main", LogOptions{Order: LogOrderTime, PathFilter: "a.txt"})
	require.NoError(t, err)
	defer it.Close()

	e, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, id0, e.Id, "only commit touching a.txt")

	_, err = it.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestCompareBetweenCommits(t *testing.T) {
	r, _ := openFreshRepo(t)
	when := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	meta := CommitMetadata{Author: sig(when), Committer: sig(when), Message: "m"}

	id0, err := r.Commit("refs/heads/main", []FileEdit{{Path: "a.txt", Content: []byte("one\n")}}, meta, CommitOptions{})
	require.NoError(t, err)
	id1, err := r.Commit("refs/heads/main", []FileEdit{{Path: "a.txt", Content: []byte("one changed\n")}}, meta, CommitOptions{})
	require.NoError(t, err)

	changes, err := r.Compare(id0.String(), id1.String(), object.CompareOptions{})
	require.NoError(t, err)

	want := []object.Change{{Kind: object.Modified, Path: "a.txt"}}
	ignoreIds := cmpopts.IgnoreFields(object.Change{}, "OldId", "NewId", "Mode", "From")
	assert.Empty(t, cmp.Diff(want, changes, ignoreIds), "Compare changes mismatch")
}

func TestAmendPreviousKeepsOriginalParents(t *testing.T) {
	r, _ := openFreshRepo(t)
	when := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	meta := CommitMetadata{Author: sig(when), Committer: sig(when), Message: "m"}

	base, err := r.Commit("refs/heads/main", []FileEdit{{Path: "a.txt", Content: []byte("one\n")}}, meta, CommitOptions{})
	require.NoError(t, err)
	_, err = r.Commit("refs/heads/main", []FileEdit{{Path: "b.txt", Content: []byte("two\n")}}, meta, CommitOptions{})
	require.NoError(t, err)

	amended, err := r.Commit("refs/heads/main", []FileEdit{{Path: "c.txt", Content: []byte("three\n")}},
		CommitMetadata{Author: sig(when), Committer: sig(when), Message: "amended"}, CommitOptions{AmendPrevious: true})
	require.NoError(t, err)

	commit, err := r.ResolveCommit(amended)
	require.NoError(t, err)
	require.Len(t, commit.ParentIds, 1)
	assert.Equal(t, base, commit.ParentIds[0])

	tree, err := r.ResolveTree(commit.TreeId)
	require.NoError(t, err)
	_, ok := tree.Find("b.txt")
	assert.True(t, ok, "amended tree dropped b.txt: %+v", tree)
	_, ok = tree.Find("c.txt")
	assert.True(t, ok, "amended tree missing c.txt: %+v", tree)
}

func TestIndexEntriesEmptyWithoutStagingFile(t *testing.T) {
	r, _ := openFreshRepo(t)

	entries, err := r.IndexEntries()
	require.NoError(t, err)
	assert.Empty(t, entries, "this core never writes a staging file")
}

func TestLogExcludeReachableFrom(t *testing.T) {
	r, _ := openFreshRepo(t)
	when := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	meta := CommitMetadata{Author: sig(when), Committer: sig(when), Message: "m"}

	_, err := r.Commit("refs/heads/main", []FileEdit{{Path: "a.txt", Content: []byte("one\n")}}, meta, CommitOptions{})
	require.NoError(t, err)
	id1, err := r.Commit("refs/heads/main", []FileEdit{{Path: "b.txt", Content: []byte("two\n")}}, meta, CommitOptions{})
	require.NoError(t, err)
	id2, err := r.Commit("refs/heads/main", []FileEdit{{Path: "c.txt", Content: []byte("three\n")}}, meta, CommitOptions{})
	require.NoError(t, err)

	it, err := r.Log("refs/heads/main", LogOptions{Order: LogOrderTopological, ExcludeReachableFrom: id1})
	require.NoError(t, err)
	defer it.Close()

	e, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, id2, e.Id)

	_, err = it.Next()
	assert.ErrorIs(t, err, io.EOF, "id1 and its ancestor are excluded")
}

func TestLogSinceUntilSkipsOutOfWindowCommits(t *testing.T) {
	r, _ := openFreshRepo(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t1.Add(time.Hour)

	commitAt := func(when time.Time, path string) plumbing.Id {
		meta := CommitMetadata{Author: sig(when), Committer: sig(when), Message: "m"}
		id, err := r.Commit("refs/heads/main", []FileEdit{{Path: path, Content: []byte("x\n")}}, meta, CommitOptions{})
		require.NoError(t, err, "Commit at %s", when)
		return id
	}
	commitAt(t0, "a.txt")
	id1 := commitAt(t1, "b.txt")
	commitAt(t2, "c.txt")

	it, err := r.Log("refs/heads/main", LogOptions{Order: LogOrderTime, Since: t1, Until: t1})
	require.NoError(t, err)
	defer it.Close()

	e, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, id1, e.Id, "the only commit inside [Since, Until]")

	_, err = it.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBranchesAndTagsListing(t *testing.T) {
	r, _ := openFreshRepo(t)
	when := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	meta := CommitMetadata{Author: sig(when), Committer: sig(when), Message: "m"}

	id, err := r.Commit("refs/heads/main", []FileEdit{{Path: "a.txt", Content: []byte("one\n")}}, meta, CommitOptions{})
	require.NoError(t, err)
	_, err = r.Commit("refs/heads/other", []FileEdit{{Path: "b.txt", Content: []byte("two\n")}}, meta, CommitOptions{})
	require.NoError(t, err)

	tagRef := plumbing.NewHashReference(plumbing.NewTagReferenceName("v1"), id)
	require.NoError(t, r.storage.Refs.SetReference(tagRef, nil))

	branches, err := r.Branches()
	require.NoError(t, err)
	assert.Len(t, branches, 2)

	tags, err := r.Tags()
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, id, tags[0].Hash())
}

func TestTryResolveMissing(t *testing.T) {
	r, _ := openFreshRepo(t)

	_, ok, err := r.TryResolve("deadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	require.NoError(t, err)
	assert.False(t, ok, "TryResolve should report false for an absent id")
}
