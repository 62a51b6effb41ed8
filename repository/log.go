package repository

import (
	"container/heap"
	"io"
	"time"

	"github.com/vcsobj/gitcore/object"
	"github.com/vcsobj/gitcore/plumbing"
)

// LogOrder selects the relative order Log emits commits in. Both orders
// only ever emit a commit after it has become reachable from the
// traversal's frontier; they differ in which reachable commit comes
// next.
type LogOrder int

const (
	// LogOrderTime visits the reachable commit with the latest committer
	// timestamp first, across the whole frontier - the usual "git log"
	// reading order.
	LogOrderTime LogOrder = iota
	// LogOrderTopological visits depth-first, finishing one parent chain
	// before returning to a sibling, so a commit is always emitted before
	// the rest of the branch it was merged into is explored.
	LogOrderTopological
)

// LogOptions configures Log's traversal.
type LogOptions struct {
	// FirstParentOnly restricts the walk to each commit's first parent,
	// skipping merged-in side history entirely.
	FirstParentOnly bool
	// Order selects LogOrderTime (the default) or LogOrderTopological.
	Order LogOrder
	// ExcludeReachableFrom, if non-zero, prunes every ancestor of this
	// commit (inclusive) from the walk - the "A..B" shape of a range.
	ExcludeReachableFrom plumbing.Id
	// Since and Until bound emitted commits by committer time; a zero
	// value leaves that side unbounded. Bounding never stops the
	// traversal early, since an out-of-window commit's ancestors can
	// still be in-window (a rebased or backdated commit).
	Since, Until time.Time
	// PathFilter, if non-empty, keeps only commits whose tree entry at
	// this path differs from the corresponding entry in the commit's
	// first parent (or is present at all, for a root commit).
	PathFilter string
}

// LogEntry is one commit produced by Log.
type LogEntry struct {
	Id     plumbing.Id
	Commit object.Commit
}

// CommitIter lazily walks commit history. Next returns io.EOF once the
// walk is exhausted; Close releases any resources held early.
type CommitIter struct {
	repo *Repository
	opts LogOptions

	excluded map[plumbing.Id]bool
	seen     map[plumbing.Id]bool

	// Exactly one of stack (topological) or pending (time) is active.
	stack   []plumbing.Id
	pending commitHeap
}

// Log starts a lazy traversal of history reachable from committish
// (a reference name, HEAD, or a hex id), per spec.md §6's "log(committish,
// options) -> lazy sequence of LogEntry".
func (r *Repository) Log(committish string, opts LogOptions) (*CommitIter, error) {
	start, err := r.resolveCommittish(committish)
	if err != nil {
		return nil, err
	}

	it := &CommitIter{
		repo: r,
		opts: opts,
		seen: map[plumbing.Id]bool{},
	}

	if !opts.ExcludeReachableFrom.IsZero() {
		excluded, err := r.ancestorSet(opts.ExcludeReachableFrom, opts.FirstParentOnly)
		if err != nil {
			return nil, err
		}
		it.excluded = excluded
	}

	if it.excluded[start] {
		if opts.Order == LogOrderTopological {
			it.stack = nil
		}
		return it, nil
	}

	switch opts.Order {
	case LogOrderTopological:
		it.stack = []plumbing.Id{start}
	default:
		c, err := r.ResolveCommit(start)
		if err != nil {
			return nil, err
		}
		heap.Push(&it.pending, heapEntry{id: start, commit: c})
	}
	return it, nil
}

// ancestorSet eagerly walks every ancestor of id (id included), for
// ExcludeReachableFrom pruning.
func (r *Repository) ancestorSet(id plumbing.Id, firstParentOnly bool) (map[plumbing.Id]bool, error) {
	seen := map[plumbing.Id]bool{}
	stack := []plumbing.Id{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true

		c, err := r.ResolveCommit(cur)
		if err != nil {
			return nil, err
		}
		parents := c.ParentIds
		if firstParentOnly && len(parents) > 1 {
			parents = parents[:1]
		}
		for _, p := range parents {
			if !seen[p] {
				stack = append(stack, p)
			}
		}
	}
	return seen, nil
}

// Next returns the next commit in the walk, or io.EOF when exhausted.
func (it *CommitIter) Next() (LogEntry, error) {
	for {
		id, c, ok, err := it.advance()
		if err != nil {
			return LogEntry{}, err
		}
		if !ok {
			return LogEntry{}, io.EOF
		}
		if it.seen[id] || it.excluded[id] {
			continue
		}
		it.seen[id] = true

		if err := it.pushParents(id, c); err != nil {
			return LogEntry{}, err
		}

		if !it.inWindow(c) {
			continue
		}
		if it.opts.PathFilter != "" {
			touched, err := it.repo.pathTouched(c, it.opts.PathFilter)
			if err != nil {
				return LogEntry{}, err
			}
			if !touched {
				continue
			}
		}

		return LogEntry{Id: id, Commit: c}, nil
	}
}

// advance pops the next candidate id off whichever frontier (stack xor
// heap) this iterator's Order uses, decoding it if that hasn't happened
// already.
func (it *CommitIter) advance() (plumbing.Id, object.Commit, bool, error) {
	if it.opts.Order == LogOrderTopological {
		if len(it.stack) == 0 {
			return plumbing.ZeroId, object.Commit{}, false, nil
		}
		id := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]
		c, err := it.repo.ResolveCommit(id)
		if err != nil {
			return plumbing.ZeroId, object.Commit{}, false, err
		}
		return id, c, true, nil
	}

	if it.pending.Len() == 0 {
		return plumbing.ZeroId, object.Commit{}, false, nil
	}
	e := heap.Pop(&it.pending).(heapEntry)
	return e.id, e.commit, true, nil
}

func (it *CommitIter) pushParents(id plumbing.Id, c object.Commit) error {
	parents := c.ParentIds
	if it.opts.FirstParentOnly && len(parents) > 1 {
		parents = parents[:1]
	}

	if it.opts.Order == LogOrderTopological {
		// Push in reverse so the first parent is popped (and so
		// explored) first, matching a depth-first, first-parent-leaning
		// walk.
		for i := len(parents) - 1; i >= 0; i-- {
			p := parents[i]
			if !it.seen[p] && !it.excluded[p] {
				it.stack = append(it.stack, p)
			}
		}
		return nil
	}

	for _, p := range parents {
		if it.seen[p] || it.excluded[p] {
			continue
		}
		pc, err := it.repo.ResolveCommit(p)
		if err != nil {
			return err
		}
		heap.Push(&it.pending, heapEntry{id: p, commit: pc})
	}
	return nil
}

func (it *CommitIter) inWindow(c object.Commit) bool {
	if !it.opts.Since.IsZero() && c.Committer.When.Before(it.opts.Since) {
		return false
	}
	if !it.opts.Until.IsZero() && c.Committer.When.After(it.opts.Until) {
		return false
	}
	return true
}

// Close releases resources held by the iterator. The walk holds nothing
// beyond Go-managed memory (no open file descriptors), so Close is a
// no-op kept for symmetry with the lazy-sequence contract.
func (it *CommitIter) Close() {}

// pathTouched reports whether commit's tree entry at path differs from
// its first parent's (or exists at all, for a root commit).
func (r *Repository) pathTouched(c object.Commit, path string) (bool, error) {
	curId, curOk, err := r.entryAtPath(c.TreeId, path)
	if err != nil {
		return false, err
	}
	if len(c.ParentIds) == 0 {
		return curOk, nil
	}

	parent, err := r.ResolveCommit(c.ParentIds[0])
	if err != nil {
		return false, err
	}
	parentId, parentOk, err := r.entryAtPath(parent.TreeId, path)
	if err != nil {
		return false, err
	}

	if curOk != parentOk {
		return true, nil
	}
	return curOk && curId != parentId, nil
}

// entryAtPath walks treeId down a slash-separated path and returns the
// id of whatever is there (blob or subtree).
func (r *Repository) entryAtPath(treeId plumbing.Id, path string) (plumbing.Id, bool, error) {
	segments := splitPath(path)
	cur := treeId
	for i, seg := range segments {
		t, err := r.ResolveTree(cur)
		if err != nil {
			return plumbing.ZeroId, false, err
		}
		entry, ok := t.Find(seg)
		if !ok {
			return plumbing.ZeroId, false, nil
		}
		if i == len(segments)-1 {
			return entry.Id, true, nil
		}
		cur = entry.Id
	}
	return plumbing.ZeroId, false, nil
}

func splitPath(path string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if i > start {
				segs = append(segs, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		segs = append(segs, path[start:])
	}
	return segs
}

// heapEntry pairs a commit id with its decoded commit, ordered by
// committer time (descending) for commitHeap.
type heapEntry struct {
	id     plumbing.Id
	commit object.Commit
}

// commitHeap is a container/heap max-heap on committer time, the
// "visit the latest-timestamped reachable commit next" frontier
// LogOrderTime walks.
type commitHeap []heapEntry

func (h commitHeap) Len() int { return len(h) }
func (h commitHeap) Less(i, j int) bool {
	return h[i].commit.Committer.When.After(h[j].commit.Committer.When)
}
func (h commitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *commitHeap) Push(x interface{}) {
	*h = append(*h, x.(heapEntry))
}
func (h *commitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
