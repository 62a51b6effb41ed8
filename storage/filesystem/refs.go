package filesystem

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	billyutil "github.com/go-git/go-billy/v5/util"

	"github.com/vcsobj/gitcore/plumbing"
)

// peeledLine records a "^<hex>" annotation immediately following a tag
// entry in packed-refs, so a rewrite preserves it without re-deriving the
// peeled commit (the core never resolves annotated tags just to rewrite
// the ref file that names them).
type peeledLine struct {
	afterIndex int
	hex        string
}

// ReferenceStorage reads and writes refs: the loose refs/ tree, HEAD, and
// packed-refs. Reads are cached after the first Load; Set always goes
// straight to disk so a concurrent writer's change is visible on the next
// Load (the resolver that owns this ReferenceStorage is expected to
// re-open when it wants a fresh view, per spec.md §5's snapshot-at-
// construction ordering guarantee).
type ReferenceStorage struct {
	dir *DotGit

	mu   sync.Mutex
	refs map[plumbing.ReferenceName]*plumbing.Reference
}

// NewReferenceStorage returns a ReferenceStorage backed by dir.
func NewReferenceStorage(dir *DotGit) *ReferenceStorage {
	return &ReferenceStorage{dir: dir}
}

// Reference returns the named reference, or plumbing.ErrNotFound.
func (r *ReferenceStorage) Reference(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	if err := r.load(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.refs[name]
	if !ok {
		return nil, plumbing.ErrNotFound.WithPath(name.String())
	}
	return ref, nil
}

// References returns every reference currently on disk (HEAD, loose refs,
// and packed-refs combined; a loose ref shadows a packed one of the same
// name).
func (r *ReferenceStorage) References() ([]*plumbing.Reference, error) {
	if err := r.load(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*plumbing.Reference, 0, len(r.refs))
	for _, ref := range r.refs {
		out = append(out, ref)
	}
	return out, nil
}

// Reload discards the cached reference set so the next call re-reads disk.
func (r *ReferenceStorage) Reload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = nil
}

func (r *ReferenceStorage) load() error {
	r.mu.Lock()
	if r.refs != nil {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	refs := make(map[plumbing.ReferenceName]*plumbing.Reference)

	packed, _, err := r.readPackedRefs()
	if err != nil {
		return err
	}
	for _, ref := range packed {
		refs[ref.Name()] = ref
	}

	if err := r.walkLooseRefs(refsPath, refs); err != nil {
		return err
	}

	if head, err := r.readLooseRef(plumbing.HEAD.String()); err == nil {
		refs[plumbing.HEAD] = head
	} else if !os.IsNotExist(err) {
		return err
	}

	r.mu.Lock()
	r.refs = refs
	r.mu.Unlock()
	return nil
}

func (r *ReferenceStorage) walkLooseRefs(dir string, out map[plumbing.ReferenceName]*plumbing.Reference) error {
	entries, err := r.dir.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		path := r.dir.fs.Join(dir, e.Name())
		if e.IsDir() {
			if err := r.walkLooseRefs(path, out); err != nil {
				return err
			}
			continue
		}

		ref, err := r.readLooseRef(path)
		if err != nil {
			return err
		}
		out[ref.Name()] = ref
	}
	return nil
}

func (r *ReferenceStorage) readLooseRef(path string) (*plumbing.Reference, error) {
	f, err := r.dir.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return plumbing.NewReferenceFromStrings(path, strings.TrimSpace(string(b))), nil
}

// readPackedRefs parses packed-refs, returning the references it names and
// the raw peeled-tag lines (keyed by the index, within the returned slice,
// of the ref line they annotate) so a rewrite can reproduce them verbatim.
func (r *ReferenceStorage) readPackedRefs() ([]*plumbing.Reference, []peeledLine, error) {
	f, err := r.dir.fs.Open(packedRefsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	defer f.Close()

	var (
		refs    []*plumbing.Reference
		peeled  []peeledLine
		scanner = bufio.NewScanner(f)
	)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		switch line[0] {
		case '#':
			continue
		case '^':
			peeled = append(peeled, peeledLine{afterIndex: len(refs) - 1, hex: line[1:]})
		default:
			parts := strings.SplitN(line, " ", 2)
			if len(parts) != 2 {
				return nil, nil, fmt.Errorf("filesystem: malformed packed-refs line %q", line)
			}
			refs = append(refs, plumbing.NewReferenceFromStrings(parts[1], parts[0]))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	return refs, peeled, nil
}

// SetReference writes ref to its loose-ref path (refs/heads/<name> or
// HEAD), validating its name first. If old is non-nil, the write only
// proceeds when the current on-disk value matches old.Hash() (a plumbing
// compare-and-swap); a mismatch is reported as plumbing.ErrConflict.
func (r *ReferenceStorage) SetReference(ref *plumbing.Reference, old *plumbing.Reference) error {
	if err := ref.Name().Validate(); err != nil {
		return err
	}

	path := ref.Name().String()
	if old != nil {
		current, err := r.readLooseRef(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		if err == nil && current.Hash() != old.Hash() {
			return plumbing.NewError(plumbing.KindConflict, fmt.Errorf("reference %q has changed", path)).WithPath(path)
		}
	}

	content := ref.Strings()[1] + "\n"
	if err := r.writeLooseRef(path, content); err != nil {
		return err
	}

	r.Reload()
	return nil
}

func (r *ReferenceStorage) writeLooseRef(path, content string) error {
	f, err := r.dir.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer f.Close()

	type locker interface {
		Lock() error
	}
	if l, ok := f.(locker); ok {
		if err := l.Lock(); err != nil {
			return err
		}
	}

	_, err = f.Write([]byte(content))
	return err
}

// RemoveReference deletes a loose ref and, if present, its packed-refs
// entry (scrubbing packed-refs requires a full rewrite since the format
// has no in-place deletion).
func (r *ReferenceStorage) RemoveReference(name plumbing.ReferenceName) error {
	err := r.dir.fs.Remove(name.String())
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	if rerr := r.rewritePackedRefsWithout(name); rerr != nil {
		return rerr
	}

	r.Reload()
	return nil
}

func (r *ReferenceStorage) rewritePackedRefsWithout(name plumbing.ReferenceName) error {
	refs, peeled, err := r.readPackedRefs()
	if err != nil {
		return err
	}

	idx := -1
	for i, ref := range refs {
		if ref.Name() == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}

	var buf strings.Builder
	for i, ref := range refs {
		if i == idx {
			continue
		}
		s := ref.Strings()
		fmt.Fprintf(&buf, "%s %s\n", s[1], s[0])
		for _, p := range peeled {
			if p.afterIndex == i {
				fmt.Fprintf(&buf, "^%s\n", p.hex)
			}
		}
	}

	return billyutil.WriteFile(r.dir.fs, packedRefsPath, []byte(buf.String()), 0666)
}
