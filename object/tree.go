package object

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/vcsobj/gitcore/plumbing"
	"github.com/vcsobj/gitcore/plumbing/filemode"
)

// TreeEntry is one child of a Tree: a name, its exact mode string (spec.md
// §4.9: "the implementation must preserve the exact mode string from
// existing entries, not re-normalize"), and the id of the blob or subtree
// it names.
type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	// modeText, when non-empty, is the literal mode spelling this entry
	// was decoded with (e.g. a non-canonical "040000" some other tool
	// wrote). Encode prefers this verbatim over FileMode.String() so a
	// round-tripped tree never changes id.
	modeText string
	Id       plumbing.Id
}

// Tree is the canonical, sorted list of a directory's immediate children.
type Tree struct {
	Entries []TreeEntry
}

// sortName is the canonical Git tree sort key: a directory's name is
// compared as if suffixed with "/", so "foo" sorts after "foo.txt" but
// before "foo/bar" would if it were a direct sibling (it never is, since a
// directory's children only ever hold one segment each).
func sortName(e TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

// Sort orders entries by their canonical sort key in place, the ordering
// required for two structurally-identical trees to hash identically
// regardless of insertion order (spec.md §8 "Tree canonicalization").
func (t *Tree) Sort() {
	sort.Slice(t.Entries, func(i, j int) bool {
		return sortName(t.Entries[i]) < sortName(t.Entries[j])
	})
}

// Encode serializes the tree to its canonical byte layout:
// "{mode} {name}\0{20-byte-id}" repeated for each entry in sort order.
// Entries must already be sorted; Encode does not sort defensively so that
// a caller who built the slice out of order gets a visibly wrong (but
// deterministic) encoding rather than a silently "fixed" one.
func (t Tree) Encode() []byte {
	var buf bytes.Buffer
	for _, e := range t.Entries {
		mode := e.modeText
		if mode == "" {
			mode = e.Mode.String()
		}
		buf.WriteString(mode)
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(e.Id[:])
	}
	return buf.Bytes()
}

// Hash returns the id this tree would have if written now.
func (t Tree) Hash() plumbing.Id {
	return plumbing.HashObject(plumbing.TreeObject, t.Encode())
}

// DecodeTree parses a tree object's canonical byte layout.
func DecodeTree(data []byte) (Tree, error) {
	var t Tree
	for len(data) > 0 {
		sp := bytes.IndexByte(data, ' ')
		if sp < 0 {
			return Tree{}, fmt.Errorf("object: malformed tree entry (no space)")
		}
		modeText := string(data[:sp])
		mode, err := filemode.New(modeText)
		if err != nil {
			return Tree{}, fmt.Errorf("object: malformed tree entry mode %q: %w", modeText, err)
		}

		rest := data[sp+1:]
		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return Tree{}, fmt.Errorf("object: malformed tree entry (no NUL)")
		}
		name := string(rest[:nul])

		idStart := nul + 1
		if idStart+plumbing.Size > len(rest) {
			return Tree{}, fmt.Errorf("object: truncated tree entry id")
		}
		id, _ := plumbing.FromBytes(rest[idStart : idStart+plumbing.Size])

		t.Entries = append(t.Entries, TreeEntry{Name: name, Mode: mode, modeText: modeText, Id: id})
		data = rest[idStart+plumbing.Size:]
	}
	return t, nil
}

// Find returns the entry named name, if any.
func (t Tree) Find(name string) (TreeEntry, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return TreeEntry{}, false
}
