// Package commitgraph reads the chunked commit-graph file git uses to
// accelerate history walks without opening every commit object, per
// https://git-scm.com/docs/commit-graph.
package commitgraph

import (
	"io"
	"time"

	"github.com/vcsobj/gitcore/plumbing"
)

// CommitData is the reduced, commit-graph-resident view of a commit: just
// enough to walk history without decoding the full commit object.
type CommitData struct {
	TreeId        plumbing.Id
	ParentIndexes []uint32
	ParentIds     []plumbing.Id
	Generation    uint64
	When          time.Time
}

// Index provides indexed access to a commit-graph's nodes by commit id.
type Index interface {
	// IndexOf returns the commit-graph index for a commit id.
	IndexOf(id plumbing.Id) (uint32, error)
	// IdOf returns the commit id stored at a commit-graph index.
	IdOf(idx uint32) (plumbing.Id, error)
	// CommitDataOf returns the reduced commit data at a commit-graph index.
	CommitDataOf(idx uint32) (*CommitData, error)
	// Ids returns every commit id present in the index.
	Ids() []plumbing.Id

	io.Closer
}
