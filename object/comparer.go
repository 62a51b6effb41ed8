package object

import (
	"path"

	"github.com/vcsobj/gitcore/plumbing"
	"github.com/vcsobj/gitcore/plumbing/filemode"
)

// ChangeKind classifies one entry in a Compare result.
type ChangeKind int

const (
	Added ChangeKind = iota
	Removed
	Modified
	Renamed
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Change is one flattened difference between two trees, per spec.md §4.10.
// For Renamed, From is the old path and Path is the new one; for every
// other kind, From is empty.
type Change struct {
	Kind ChangeKind
	Path string
	From string
	OldId, NewId plumbing.Id
	Mode         filemode.FileMode
}

// BlobSizer resolves a blob id to its content, needed only for the
// Phase 2 similarity scoring between candidate Removed/Added pairs - not
// for Phase 1, which only ever compares ids and never touches blob bytes.
type BlobSizer func(id plumbing.Id) ([]byte, error)

// CompareOptions tunes the comparer's rename heuristic; the zero value
// uses spec.md §4.10's defaults (0.5 for both thresholds).
type CompareOptions struct {
	SizeRatioThreshold   float64
	SimilarityThreshold  float64
}

func (o CompareOptions) withDefaults() CompareOptions {
	if o.SizeRatioThreshold == 0 {
		o.SizeRatioThreshold = 0.5
	}
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = 0.5
	}
	return o
}

// Compare recursively diffs two trees (identified by id, resolved via
// lookup) and returns a flat list of changes with rename detection.
// Identical subtree ids are never descended into or read, per spec.md
// §4.10's "must never materialize subtree bytes that are structurally
// identical" invariant.
func Compare(oldId, newId plumbing.Id, lookup TreeLookup, blobs BlobSizer, opts CompareOptions) ([]Change, error) {
	opts = opts.withDefaults()

	var removed, added []Change
	var changes []Change

	var walk func(dir string, oldId, newId plumbing.Id) error
	walk = func(dir string, oldId, newId plumbing.Id) error {
		if oldId == newId {
			return nil
		}

		oldTree, err := treeOrEmpty(oldId, lookup)
		if err != nil {
			return err
		}
		newTree, err := treeOrEmpty(newId, lookup)
		if err != nil {
			return err
		}

		oldByName := map[string]TreeEntry{}
		for _, e := range oldTree.Entries {
			oldByName[e.Name] = e
		}
		newByName := map[string]TreeEntry{}
		for _, e := range newTree.Entries {
			newByName[e.Name] = e
		}

		for name, oe := range oldByName {
			p := path.Join(dir, name)
			ne, ok := newByName[name]
			if !ok {
				removed = append(removed, Change{Kind: Removed, Path: p, OldId: oe.Id, Mode: oe.Mode})
				continue
			}
			if oe.Id == ne.Id {
				continue // structurally identical: do not descend
			}
			if oe.Mode == filemode.Dir && ne.Mode == filemode.Dir {
				if err := walk(p, oe.Id, ne.Id); err != nil {
					return err
				}
				continue
			}
			if oe.Mode == filemode.Dir || ne.Mode == filemode.Dir {
				// A file became a directory or vice versa: model as a
				// remove+add rather than a same-path modification.
				removed = append(removed, Change{Kind: Removed, Path: p, OldId: oe.Id, Mode: oe.Mode})
				added = append(added, Change{Kind: Added, Path: p, NewId: ne.Id, Mode: ne.Mode})
				continue
			}
			changes = append(changes, Change{Kind: Modified, Path: p, OldId: oe.Id, NewId: ne.Id, Mode: ne.Mode})
		}

		for name, ne := range newByName {
			if _, ok := oldByName[name]; ok {
				continue
			}
			p := path.Join(dir, name)
			if ne.Mode == filemode.Dir {
				// A brand-new directory: every leaf under it is an Added
				// entry, still eligible as a rename target in Phase 2.
				if err := walk(p, plumbing.ZeroId, ne.Id); err != nil {
					return err
				}
				continue
			}
			added = append(added, Change{Kind: Added, Path: p, NewId: ne.Id, Mode: ne.Mode})
		}

		return nil
	}

	if err := walk("", oldId, newId); err != nil {
		return nil, err
	}

	removed, added, renames := detectRenames(removed, added, blobs, opts)
	changes = append(changes, renames...)
	changes = append(changes, removed...)
	changes = append(changes, added...)
	return changes, nil
}

func treeOrEmpty(id plumbing.Id, lookup TreeLookup) (Tree, error) {
	if id.IsZero() {
		return Tree{}, nil
	}
	return lookup(id)
}

// detectRenames implements spec.md §4.10 Phase 2: among Removed/Added
// pairs of comparable size, score byte similarity and reclassify matches
// at or above the threshold as Renamed, removing them from their original lists.
func detectRenames(removed, added []Change, blobs BlobSizer, opts CompareOptions) (stillRemoved, stillAdded, renames []Change) {
	if blobs == nil || len(removed) == 0 || len(added) == 0 {
		return removed, added, nil
	}

	usedAdded := make([]bool, len(added))
	addedData := make([][]byte, len(added))

	for _, r := range removed {
		oldData, err := blobs(r.OldId)
		if err != nil {
			stillRemoved = append(stillRemoved, r)
			continue
		}

		bestJ, bestSim := -1, 0.0
		for j, a := range added {
			if usedAdded[j] {
				continue
			}
			if addedData[j] == nil {
				d, err := blobs(a.NewId)
				if err != nil {
					continue
				}
				addedData[j] = d
			}
			newData := addedData[j]

			ratio := sizeRatio(len(oldData), len(newData))
			if ratio < opts.SizeRatioThreshold {
				continue
			}
			sim := byteSimilarity(oldData, newData)
			if sim >= opts.SimilarityThreshold && sim > bestSim {
				bestJ, bestSim = j, sim
			}
		}

		if bestJ == -1 {
			stillRemoved = append(stillRemoved, r)
			continue
		}
		usedAdded[bestJ] = true
		renames = append(renames, Change{
			Kind: Renamed, Path: added[bestJ].Path, From: r.Path,
			OldId: r.OldId, NewId: added[bestJ].NewId, Mode: added[bestJ].Mode,
		})
	}

	for j, a := range added {
		if !usedAdded[j] {
			stillAdded = append(stillAdded, a)
		}
	}
	return stillRemoved, stillAdded, renames
}

func sizeRatio(a, b int) float64 {
	if a == 0 && b == 0 {
		return 1
	}
	if a == 0 || b == 0 {
		return 0
	}
	if a > b {
		a, b = b, a
	}
	return float64(a) / float64(b)
}

// byteSimilarity returns a normalized similarity in [0,1] based on the
// longest-common-subsequence length between a and b, the same notion of
// "normalized edit-distance similarity" spec.md §4.10 calls for. Computed
// with a rolling two-row DP to keep memory O(min(len(a),len(b))) rather
// than O(len(a)*len(b)).
func byteSimilarity(a, b []byte) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	prev := make([]int, len(a)+1)
	cur := make([]int, len(a)+1)
	for _, bb := range b {
		for i, aa := range a {
			if aa == bb {
				cur[i+1] = prev[i] + 1
			} else if prev[i+1] >= cur[i] {
				cur[i+1] = prev[i+1]
			} else {
				cur[i+1] = cur[i]
			}
		}
		prev, cur = cur, prev
	}
	lcs := prev[len(a)]
	return 2 * float64(lcs) / float64(len(a)+len(b))
}
