package repository

import (
	"fmt"

	"github.com/vcsobj/gitcore/object"
	"github.com/vcsobj/gitcore/plumbing"
	"github.com/vcsobj/gitcore/plumbing/filemode"
	"github.com/vcsobj/gitcore/plumbing/format/packfile"
	"github.com/vcsobj/gitcore/storage/filesystem"
)

// LooseBlobThreshold is spec.md §4.9's exact cutoff: a blob at or above
// this size is written directly via the loose-object writer instead of
// being queued for the pack writer, regardless of how many other edits
// are being committed alongside it.
const LooseBlobThreshold = 512 * 1024 * 1024

// FileEdit is one path-keyed change a caller of Commit wants applied to
// the branch's current tree: either new content (written as a blob),
// a reuse of an already-stored blob id, or a removal.
type FileEdit struct {
	Path    string
	Remove  bool
	Content []byte            // ignored when Remove or Id is set
	Id      plumbing.Id       // an already-stored blob id, bypassing Content
	Mode    filemode.FileMode // defaults to filemode.Regular for new content
}

// CommitMetadata carries the header fields Commit doesn't otherwise
// derive from repository state.
type CommitMetadata struct {
	Author    object.Signature
	Committer object.Signature
	Message   string
}

// CommitOptions tunes how Commit updates the branch and HEAD.
type CommitOptions struct {
	// AmendPrevious replaces the branch's current tip instead of adding
	// a new commit on top of it, reusing the tip's parents.
	AmendPrevious bool
	// AllowEmpty permits a commit whose tree is identical to its sole
	// parent's (normally rejected as plumbing.ErrConflict).
	AllowEmpty bool
	// UpdateHead additionally moves HEAD to the branch being committed
	// to, when HEAD is not already a symbolic reference pointing there
	// (e.g. a detached HEAD, or a brand-new branch).
	UpdateHead bool
}

// Commit applies edits on top of branch's current tree and appends one
// new commit, implementing the Commit Builder (spec.md §4.9) end to end:
// blob routing by size, bottom-up tree construction, commit assembly,
// a single pack write for everything but oversize blobs, and a
// compare-and-swap ref update guarded by the repository lock.
func (r *Repository) Commit(branch plumbing.ReferenceName, edits []FileEdit, meta CommitMetadata, opts CommitOptions) (plumbing.Id, error) {
	lock, err := filesystem.AcquireLock(r.fs)
	if err != nil {
		return plumbing.ZeroId, err
	}
	defer lock.Release()

	current, err := r.storage.Refs.Reference(branch)
	var oldTip *object.Commit
	switch {
	case err == nil:
		c, err := r.ResolveCommit(current.Hash())
		if err != nil {
			return plumbing.ZeroId, err
		}
		oldTip = &c
	case isNotFoundErr(err):
		if opts.AmendPrevious {
			return plumbing.ZeroId, plumbing.NewError(plumbing.KindConflict,
				fmt.Errorf("cannot amend %s: branch does not exist", branch)).WithPath(branch.String())
		}
	default:
		return plumbing.ZeroId, err
	}

	var baseTree plumbing.Id
	var parents []plumbing.Id
	if oldTip != nil {
		baseTree = oldTip.TreeId
		if opts.AmendPrevious {
			parents = oldTip.ParentIds
		} else {
			parents = []plumbing.Id{current.Hash()}
		}
	}

	pw := filesystem.NewPackWriter(r.fs)
	treeEdits := make([]object.Edit, 0, len(edits))

	for _, e := range edits {
		if e.Remove {
			treeEdits = append(treeEdits, object.Edit{Path: e.Path, Remove: true})
			continue
		}

		mode := e.Mode
		if mode == filemode.Empty {
			mode = filemode.Regular
		}

		id := e.Id
		if id.IsZero() && e.Content != nil {
			id = plumbing.HashObject(plumbing.BlobObject, e.Content)
			if err := r.writeBlob(pw, id, e.Content); err != nil {
				return plumbing.ZeroId, err
			}
		}

		treeEdits = append(treeEdits, object.Edit{Path: e.Path, Id: id, Mode: mode})
	}

	built, root, err := object.Build(baseTree, treeEdits, r.treeLookup)
	if err != nil {
		return plumbing.ZeroId, err
	}

	if root == baseTree && len(parents) <= 1 && !opts.AllowEmpty {
		return plumbing.ZeroId, plumbing.NewError(plumbing.KindConflict,
			fmt.Errorf("commit would be empty")).WithPath(branch.String())
	}

	for _, t := range built {
		pw.Add(packfile.EntryToPack{Id: t.Id, Type: plumbing.TreeObject, Content: t.Encoded})
	}

	commit := object.Commit{
		TreeId:    root,
		ParentIds: parents,
		Author:    meta.Author,
		Committer: meta.Committer,
		Message:   meta.Message,
	}
	commitId := commit.Hash()
	pw.Add(packfile.EntryToPack{Id: commitId, Type: plumbing.CommitObject, Content: commit.Encode()})

	checksum, idx, err := pw.Finish()
	if err != nil {
		return plumbing.ZeroId, err
	}
	r.storage.AddPack(checksum, idx)

	newRef := plumbing.NewHashReference(branch, commitId)
	if err := r.storage.Refs.SetReference(newRef, current); err != nil {
		return plumbing.ZeroId, err
	}

	if opts.UpdateHead {
		if err := r.updateHead(branch); err != nil {
			return plumbing.ZeroId, err
		}
	}

	return commitId, nil
}

// writeBlob routes a new blob's content to the loose writer or the pack
// writer, per spec.md §4.9's size threshold.
func (r *Repository) writeBlob(pw *filesystem.PackWriter, id plumbing.Id, content []byte) error {
	if int64(len(content)) < LooseBlobThreshold {
		pw.Add(packfile.EntryToPack{Id: id, Type: plumbing.BlobObject, Content: content})
		return nil
	}

	w, err := filesystem.NewObjectWriter(r.fs)
	if err != nil {
		return err
	}
	if err := w.WriteHeader(plumbing.BlobObject, int64(len(content))); err != nil {
		return err
	}
	if _, err := w.Write(content); err != nil {
		return err
	}
	return w.Close()
}

// updateHead points HEAD at branch, either by updating the existing
// symbolic reference's target or by creating a new one.
func (r *Repository) updateHead(branch plumbing.ReferenceName) error {
	head, err := r.storage.Refs.Reference(plumbing.HEAD)
	if err == nil && head.Type() == plumbing.SymbolicReference && head.Target() == branch {
		return nil
	}
	return r.storage.Refs.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, branch), nil)
}

func isNotFoundErr(err error) bool {
	e, ok := plumbing.As(err)
	return ok && e.Kind == plumbing.KindNotFound
}
