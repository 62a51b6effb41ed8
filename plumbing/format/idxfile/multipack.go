package idxfile

import (
	"github.com/vcsobj/gitcore/plumbing"
)

// MultiPackIndex is a single index spanning several pack files
// (objects/pack/multi-pack-index). It reuses MemoryIndex's fanout/binary
// search over the combined id table, and additionally records which pack
// each id lives in.
type MultiPackIndex struct {
	*MemoryIndex
	packNames []string // indexed by the same position as MemoryIndex.ids
}

// NewMultiPackIndex builds a MultiPackIndex from parallel id/offset/crc/pack
// slices (all must be sorted together by id ascending).
func NewMultiPackIndex(ids []plumbing.Id, offsets []int64, crcs []uint32, packNames []string) *MultiPackIndex {
	return &MultiPackIndex{
		MemoryIndex: NewMemoryIndex(ids, offsets, crcs),
		packNames:   packNames,
	}
}

// FindPack returns the pack-name and offset pair for id, per spec.md §4.2's
// multi-pack index contract: "the lookup returns (pack-id, offset) instead
// of just offset."
func (m *MultiPackIndex) FindPack(id plumbing.Id) (packName string, offset int64, ok bool) {
	pos, found := m.search(id)
	if !found {
		return "", 0, false
	}
	return m.packNames[pos], m.offsets[pos], true
}
