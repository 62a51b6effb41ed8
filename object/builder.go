package object

import (
	"path"
	"sort"
	"strings"

	"github.com/vcsobj/gitcore/plumbing"
	"github.com/vcsobj/gitcore/plumbing/filemode"
)

// Edit is one path-keyed change the Commit Builder applies to the previous
// root tree: either write (blob id + mode) or remove.
type Edit struct {
	Path   string // slash-separated, relative to the tree root
	Remove bool
	Id     plumbing.Id // ignored when Remove is true
	Mode   filemode.FileMode
}

// TreeLookup resolves a tree's id to its decoded entries; the builder uses
// it to read whatever parts of the previous tree an edit's ancestor
// directories still need (the "start from the previous tree at that path"
// step of spec.md §4.9).
type TreeLookup func(id plumbing.Id) (Tree, error)

// BuiltTree is one new tree object produced by Build, keyed by the
// directory path it represents ("" for the root).
type BuiltTree struct {
	Path    string
	Tree    Tree
	Id      plumbing.Id
	Encoded []byte
}

// Build applies edits on top of baseTree (the zero Id for a fresh root with
// no prior history) and returns every newly-constructed tree, deepest
// first, plus the new root tree's id. It implements spec.md §4.9 steps 2-3:
// collect touched ancestor directories, then build bottom-up, each level
// consuming the child ids the deeper level just produced.
func Build(baseTree plumbing.Id, edits []Edit, lookup TreeLookup) ([]BuiltTree, plumbing.Id, error) {
	// touched maps every ancestor directory path (including "") that an
	// edit falls under to true, so step 3 knows exactly which levels need
	// rebuilding - an edit at "a/b/c.txt" touches "a/b", "a", and "".
	touched := map[string]bool{"": true}
	for _, e := range edits {
		dir := path.Dir(e.Path)
		if dir == "." {
			dir = ""
		}
		for d := dir; ; d = parentOf(d) {
			touched[d] = true
			if d == "" {
				break
			}
		}
	}

	dirs := make([]string, 0, len(touched))
	for d := range touched {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		return depthOf(dirs[i]) > depthOf(dirs[j]) // deepest first
	})

	// newChildId records, for a directory path, the id its already-built
	// child subtree now has, so the parent level can splice it in.
	newChildId := map[string]plumbing.Id{}
	var built []BuiltTree

	editsByDir := map[string][]Edit{}
	for _, e := range edits {
		dir := path.Dir(e.Path)
		if dir == "." {
			dir = ""
		}
		editsByDir[dir] = append(editsByDir[dir], e)
	}

	for _, dir := range dirs {
		t, err := loadTreeAt(baseTree, dir, lookup)
		if err != nil {
			return nil, plumbing.ZeroId, err
		}

		byName := map[string]TreeEntry{}
		for _, e := range t.Entries {
			byName[e.Name] = e
		}

		for _, e := range editsByDir[dir] {
			name := path.Base(e.Path)
			if e.Remove {
				delete(byName, name)
				continue
			}
			byName[name] = TreeEntry{Name: name, Mode: e.Mode, Id: e.Id}
		}

		// Splice in any child directory this pass already rebuilt.
		for childPath, childId := range newChildId {
			childDir := parentOf(childPath)
			if childDir != dir {
				continue
			}
			name := path.Base(childPath)
			if entry, ok := byName[name]; ok {
				entry.Id = childId
				byName[name] = entry
			} else {
				byName[name] = TreeEntry{Name: name, Mode: filemode.Dir, Id: childId}
			}
		}

		var nt Tree
		for _, e := range byName {
			nt.Entries = append(nt.Entries, e)
		}
		nt.Sort()

		id := nt.Hash()
		built = append(built, BuiltTree{Path: dir, Tree: nt, Id: id, Encoded: nt.Encode()})
		newChildId[dir] = id
	}

	root := newChildId[""]
	return built, root, nil
}

// loadTreeAt walks down from baseTree to dir, decoding each level via
// lookup. A missing intermediate (a brand-new directory) yields an empty
// Tree rather than an error, matching spec.md §4.9's "add brand-new
// entries not in the previous tree".
func loadTreeAt(baseTree plumbing.Id, dir string, lookup TreeLookup) (Tree, error) {
	if baseTree.IsZero() {
		return Tree{}, nil
	}
	cur, err := lookup(baseTree)
	if err != nil {
		return Tree{}, err
	}
	if dir == "" {
		return cur, nil
	}
	for _, seg := range strings.Split(dir, "/") {
		entry, ok := cur.Find(seg)
		if !ok || entry.Mode != filemode.Dir {
			return Tree{}, nil
		}
		cur, err = lookup(entry.Id)
		if err != nil {
			return Tree{}, err
		}
	}
	return cur, nil
}

func parentOf(dir string) string {
	if dir == "" {
		return ""
	}
	p := path.Dir(dir)
	if p == "." {
		return ""
	}
	return p
}

func depthOf(dir string) int {
	if dir == "" {
		return 0
	}
	return strings.Count(dir, "/") + 1
}
