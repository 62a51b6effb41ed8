// Package repository implements the Connection surface: open a
// repository directory, resolve objects by id, walk references, diff
// trees, and append new commits through the Commit Builder.
package repository

import (
	"errors"
	"fmt"

	billy "github.com/go-git/go-billy/v5"

	"github.com/vcsobj/gitcore/object"
	"github.com/vcsobj/gitcore/plumbing"
	"github.com/vcsobj/gitcore/plumbing/format/index"
	"github.com/vcsobj/gitcore/storage/filesystem"
)

// Repository is an open connection to one on-disk repository directory.
type Repository struct {
	fs      billy.Filesystem
	storage *filesystem.Storage
}

// Open validates and opens the repository rooted at fs, per spec.md
// §4.1-§4.2: unsupported features (alternates, reftable, an unknown
// repository format version, or one of the extensions filesystem.Config
// checks) are reported up as plumbing.ErrUnsupported and are fatal.
// Extension keys that Config does not name are ignored.
func Open(fs billy.Filesystem) (*Repository, error) {
	s, err := filesystem.Open(fs)
	if err != nil {
		return nil, err
	}
	return &Repository{fs: fs, storage: s}, nil
}

// Close releases every open pack file descriptor held by the repository.
func (r *Repository) Close() error {
	return r.storage.Close()
}

// Resolve materializes id regardless of its stored type.
func (r *Repository) Resolve(id plumbing.Id) (plumbing.ObjectType, []byte, error) {
	return r.storage.Get(id)
}

// ResolveCommit decodes id as a commit, failing with
// plumbing.ErrTypeMismatch if it names some other kind of object.
func (r *Repository) ResolveCommit(id plumbing.Id) (object.Commit, error) {
	b, err := r.storage.GetType(plumbing.CommitObject, id)
	if err != nil {
		return object.Commit{}, err
	}
	c, err := object.DecodeCommit(b)
	if err != nil {
		return object.Commit{}, plumbing.NewError(plumbing.KindCorrupt, err).WithId(id)
	}
	return c, nil
}

// ResolveTree decodes id as a tree.
func (r *Repository) ResolveTree(id plumbing.Id) (object.Tree, error) {
	b, err := r.storage.GetType(plumbing.TreeObject, id)
	if err != nil {
		return object.Tree{}, err
	}
	t, err := object.DecodeTree(b)
	if err != nil {
		return object.Tree{}, plumbing.NewError(plumbing.KindCorrupt, err).WithId(id)
	}
	return t, nil
}

// ResolveBlob returns a blob's raw content.
func (r *Repository) ResolveBlob(id plumbing.Id) ([]byte, error) {
	return r.storage.GetType(plumbing.BlobObject, id)
}

// ResolveTag decodes id as an annotated tag.
func (r *Repository) ResolveTag(id plumbing.Id) (object.Tag, error) {
	b, err := r.storage.GetType(plumbing.TagObject, id)
	if err != nil {
		return object.Tag{}, err
	}
	t, err := object.DecodeTag(b)
	if err != nil {
		return object.Tag{}, plumbing.NewError(plumbing.KindCorrupt, err).WithId(id)
	}
	return t, nil
}

// TryResolve resolves hex - a full id or an abbreviation of at least 4
// hex characters - returning ok=false rather than an error when nothing
// matches, so a caller probing a user-supplied committish doesn't need to
// special-case plumbing.ErrNotFound itself.
func (r *Repository) TryResolve(hex string) (plumbing.Id, bool, error) {
	id, err := r.resolveHex(hex)
	if errors.Is(err, plumbing.ErrNotFound) {
		return plumbing.ZeroId, false, nil
	}
	if err != nil {
		return plumbing.ZeroId, false, err
	}
	return id, true, nil
}

func (r *Repository) resolveHex(hex string) (plumbing.Id, error) {
	if len(hex) == plumbing.HexSize {
		if id, ok := plumbing.FromHex(hex); ok {
			has, err := r.storage.Has(id)
			if err != nil {
				return plumbing.ZeroId, err
			}
			if !has {
				return plumbing.ZeroId, plumbing.ErrNotFound.WithId(id)
			}
			return id, nil
		}
	}
	return r.storage.ResolvePrefix(hex)
}

// Head returns the reference HEAD ultimately points at, following a
// symbolic chain to its hash reference.
func (r *Repository) Head() (*plumbing.Reference, error) {
	ref, err := r.storage.Refs.Reference(plumbing.HEAD)
	if err != nil {
		return nil, err
	}
	return r.resolveSymbolic(ref)
}

func (r *Repository) resolveSymbolic(ref *plumbing.Reference) (*plumbing.Reference, error) {
	seen := map[plumbing.ReferenceName]bool{}
	for ref.Type() == plumbing.SymbolicReference {
		if seen[ref.Name()] {
			return nil, plumbing.NewError(plumbing.KindCorrupt,
				fmt.Errorf("reference cycle detected at %s", ref.Name())).WithPath(ref.Name().String())
		}
		seen[ref.Name()] = true

		next, err := r.storage.Refs.Reference(ref.Target())
		if err != nil {
			return nil, err
		}
		ref = next
	}
	return ref, nil
}

// Branches returns every local branch reference (refs/heads/*).
func (r *Repository) Branches() ([]*plumbing.Reference, error) {
	return r.filterRefs(func(n plumbing.ReferenceName) bool { return n.IsBranch() })
}

// Remotes returns every remote-tracking reference (refs/remotes/*).
func (r *Repository) Remotes() ([]*plumbing.Reference, error) {
	return r.filterRefs(func(n plumbing.ReferenceName) bool { return n.IsRemote() })
}

// Tags returns every tag reference (refs/tags/*).
func (r *Repository) Tags() ([]*plumbing.Reference, error) {
	return r.filterRefs(func(n plumbing.ReferenceName) bool { return n.IsTag() })
}

func (r *Repository) filterRefs(keep func(plumbing.ReferenceName) bool) ([]*plumbing.Reference, error) {
	all, err := r.storage.Refs.References()
	if err != nil {
		return nil, err
	}
	out := make([]*plumbing.Reference, 0, len(all))
	for _, ref := range all {
		if keep(ref.Name()) {
			out = append(out, ref)
		}
	}
	return out, nil
}

// resolveCommittish accepts a reference name, HEAD, or a hex id (full or
// abbreviated) and returns the commit id it names.
func (r *Repository) resolveCommittish(committish string) (plumbing.Id, error) {
	name := plumbing.ReferenceName(committish)
	if name == plumbing.HEAD || name.IsBranch() || name.IsTag() || name.IsRemote() {
		ref, err := r.storage.Refs.Reference(name)
		if err == nil {
			resolved, err := r.resolveSymbolic(ref)
			if err != nil {
				return plumbing.ZeroId, err
			}
			return r.peelToCommit(resolved.Hash())
		} else if !errors.Is(err, plumbing.ErrNotFound) {
			return plumbing.ZeroId, err
		}
	}

	id, err := r.resolveHex(committish)
	if err != nil {
		return plumbing.ZeroId, err
	}
	return r.peelToCommit(id)
}

// peelToCommit follows a single annotated-tag indirection (spec.md's
// tag objects point at one other object, commonly a commit) down to the
// commit it ultimately names.
func (r *Repository) peelToCommit(id plumbing.Id) (plumbing.Id, error) {
	typ, _, err := r.storage.Get(id)
	if err != nil {
		return plumbing.ZeroId, err
	}
	if typ == plumbing.CommitObject {
		return id, nil
	}
	if typ != plumbing.TagObject {
		return plumbing.ZeroId, plumbing.ErrTypeMismatch.WithId(id)
	}
	tag, err := r.ResolveTag(id)
	if err != nil {
		return plumbing.ZeroId, err
	}
	return tag.TargetId, nil
}

// treeLookup adapts Repository's storage-backed tree resolution to the
// object.TreeLookup shape the builder and comparer both need.
func (r *Repository) treeLookup(id plumbing.Id) (object.Tree, error) {
	return r.ResolveTree(id)
}

// blobSizer adapts blob resolution to the object.BlobSizer shape the
// comparer's rename-detection pass needs.
func (r *Repository) blobSizer(id plumbing.Id) ([]byte, error) {
	return r.ResolveBlob(id)
}

// IndexEntries returns the repository's staging file entries, read-only
// (Connection.index.entries, spec.md §6). A repository with no staging
// file - including every repository this core itself creates, since the
// Commit Builder never touches one - returns an empty slice rather than
// an error.
func (r *Repository) IndexEntries() ([]*index.Entry, error) {
	idx, err := r.storage.Index()
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, nil
	}
	return idx.Entries, nil
}

// Compare diffs the trees of two commits (or any two committishes) and
// returns the flattened, rename-detected change list.
func (r *Repository) Compare(oldCommittish, newCommittish string, opts object.CompareOptions) ([]object.Change, error) {
	oldId, err := r.resolveCommittish(oldCommittish)
	if err != nil {
		return nil, err
	}
	newId, err := r.resolveCommittish(newCommittish)
	if err != nil {
		return nil, err
	}

	oldCommit, err := r.ResolveCommit(oldId)
	if err != nil {
		return nil, err
	}
	newCommit, err := r.ResolveCommit(newId)
	if err != nil {
		return nil, err
	}

	return object.Compare(oldCommit.TreeId, newCommit.TreeId, r.treeLookup, r.blobSizer, opts)
}
