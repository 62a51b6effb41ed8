package idxfile

import (
	"bytes"
	"sort"

	"github.com/vcsobj/gitcore/plumbing"
)

// MemoryIndex is a fully in-memory Index, built either by Decode-ing an
// on-disk .idx file or by a Builder while a new pack is being built.
// Lookups binary-search the fanout-selected slice of ids, so FindOffset is
// O(log(bucket size)) rather than O(log N), per spec.md §4.2.
type MemoryIndex struct {
	fanout   [256]uint32
	ids      []plumbing.Id
	offsets  []int64
	crcs     []uint32
	packSum  plumbing.Id
	idSum    plumbing.Id
	byOffset map[int64]int // lazily built, for FindId
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex builds a MemoryIndex directly from parallel id/offset/crc
// slices, which must already be sorted by id (ascending, byte-lexicographic)
// and of equal length. This is the shape Builder.Build produces.
func NewMemoryIndex(ids []plumbing.Id, offsets []int64, crcs []uint32) *MemoryIndex {
	idx := &MemoryIndex{ids: ids, offsets: offsets, crcs: crcs}
	idx.buildFanout()
	return idx
}

func (idx *MemoryIndex) buildFanout() {
	var b int
	for i, id := range idx.ids {
		for int(id[0]) > b {
			idx.fanout[b] = uint32(i)
			b++
		}
	}
	for ; b < 256; b++ {
		idx.fanout[b] = uint32(len(idx.ids))
	}
}

func (idx *MemoryIndex) bucket(first byte) (int, int) {
	var lo int
	if first > 0 {
		lo = int(idx.fanout[first-1])
	}
	return lo, int(idx.fanout[first])
}

// Count implements Index.
func (idx *MemoryIndex) Count() int { return len(idx.ids) }

func (idx *MemoryIndex) search(id plumbing.Id) (int, bool) {
	lo, hi := idx.bucket(id[0])
	want := id[:]
	pos := lo + sort.Search(hi-lo, func(i int) bool {
		return bytes.Compare(idx.ids[lo+i][:], want) >= 0
	})
	if pos < hi && idx.ids[pos] == id {
		return pos, true
	}
	return 0, false
}

// FindOffset implements Index.
func (idx *MemoryIndex) FindOffset(id plumbing.Id) (int64, bool) {
	pos, ok := idx.search(id)
	if !ok {
		return 0, false
	}
	return idx.offsets[pos], true
}

// FindCRC32 implements Index.
func (idx *MemoryIndex) FindCRC32(id plumbing.Id) (uint32, bool) {
	pos, ok := idx.search(id)
	if !ok {
		return 0, false
	}
	return idx.crcs[pos], true
}

// FindId implements Index. It builds a reverse offset->position map lazily
// on first use, mirroring go-git's ReaderAtIndex.buildOffsetHash.
func (idx *MemoryIndex) FindId(offset int64) (plumbing.Id, bool) {
	if idx.byOffset == nil {
		idx.byOffset = make(map[int64]int, len(idx.offsets))
		for i, o := range idx.offsets {
			idx.byOffset[o] = i
		}
	}
	pos, ok := idx.byOffset[offset]
	if !ok {
		return plumbing.ZeroId, false
	}
	return idx.ids[pos], true
}

// FindHexPrefix implements Index.
func (idx *MemoryIndex) FindHexPrefix(prefix string) []plumbing.Id {
	if len(prefix) == 0 {
		return nil
	}

	var first byte
	var lo, hi int
	if len(prefix) >= 2 {
		b, ok := decodeHexByte(prefix[:2])
		if !ok {
			return idx.scanPrefix(prefix)
		}
		first = b
		lo, hi = idx.bucket(first)
	} else {
		// A single hex digit spans 16 possible first bytes; scan all of
		// them. This only happens for prefixes shorter than 2 hex chars,
		// which spec.md §8 says should be rejected by the caller anyway.
		return idx.scanPrefix(prefix)
	}

	var out []plumbing.Id
	for i := lo; i < hi; i++ {
		if idx.ids[i].HasHexPrefix(prefix) {
			out = append(out, idx.ids[i])
		}
	}
	return out
}

func (idx *MemoryIndex) scanPrefix(prefix string) []plumbing.Id {
	var out []plumbing.Id
	for _, id := range idx.ids {
		if id.HasHexPrefix(prefix) {
			out = append(out, id)
		}
	}
	return out
}

func decodeHexByte(s string) (byte, bool) {
	hi, ok1 := decodeHexDigit(s[0])
	lo, ok2 := decodeHexDigit(s[1])
	if !ok1 || !ok2 {
		return 0, false
	}
	return hi<<4 | lo, true
}

func decodeHexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// EntryAt implements Index.
func (idx *MemoryIndex) EntryAt(i int) (Entry, error) {
	if i < 0 || i >= len(idx.ids) {
		return Entry{}, ErrInvalidIndex
	}
	return Entry{Id: idx.ids[i], Offset: idx.offsets[i], CRC32: idx.crcs[i]}, nil
}

// PackfileChecksum implements Index.
func (idx *MemoryIndex) PackfileChecksum() plumbing.Id { return idx.packSum }

// All returns every entry, in ascending id order.
func (idx *MemoryIndex) All() []Entry {
	out := make([]Entry, len(idx.ids))
	for i := range idx.ids {
		out[i], _ = idx.EntryAt(i)
	}
	return out
}
