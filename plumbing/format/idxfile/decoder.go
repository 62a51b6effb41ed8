package idxfile

import (
	"fmt"
	"io"

	intbin "github.com/vcsobj/gitcore/internal/binary"
	"github.com/vcsobj/gitcore/plumbing"
)

// Decode parses a complete on-disk v2 pack index from r into a
// MemoryIndex. It validates the magic, version, and that the fanout table
// agrees with the id count, per spec.md §3 ("Pack index (v2)").
func Decode(r io.Reader) (*MemoryIndex, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	}
	if magic != Header {
		return nil, fmt.Errorf("%w: bad signature", ErrInvalidIndex)
	}

	version, err := intbin.ReadUint32(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIndex, err)
	}
	if version != VersionSupported {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidIndex, version)
	}

	var fanout [256]uint32
	for i := range fanout {
		v, err := intbin.ReadUint32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated fanout: %w", ErrInvalidIndex, err)
		}
		fanout[i] = v
	}
	count := int(fanout[255])

	ids := make([]plumbing.Id, count)
	for i := 0; i < count; i++ {
		var b [plumbing.Size]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, fmt.Errorf("%w: truncated id table: %w", ErrInvalidIndex, err)
		}
		ids[i] = plumbing.Id(b)
	}
	if err := verifyFanout(fanout, ids); err != nil {
		return nil, err
	}

	crcs := make([]uint32, count)
	for i := 0; i < count; i++ {
		v, err := intbin.ReadUint32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated crc table: %w", ErrInvalidIndex, err)
		}
		crcs[i] = v
	}

	offsets32 := make([]uint32, count)
	var large []int64 // parsed lazily once we know how many large entries exist
	var largeNeeded int
	for i := 0; i < count; i++ {
		v, err := intbin.ReadUint32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated offset table: %w", ErrInvalidIndex, err)
		}
		offsets32[i] = v
		if v&Is64BitOffset != 0 {
			idx := int(v &^ Is64BitOffset)
			if idx+1 > largeNeeded {
				largeNeeded = idx + 1
			}
		}
	}

	if largeNeeded > 0 {
		large = make([]int64, largeNeeded)
		for i := range large {
			v, err := intbin.ReadUint64(r)
			if err != nil {
				return nil, fmt.Errorf("%w: truncated large offset table: %w", ErrInvalidIndex, err)
			}
			large[i] = int64(v)
		}
	}

	offsets := make([]int64, count)
	for i, v := range offsets32 {
		if v&Is64BitOffset != 0 {
			offsets[i] = large[v&^Is64BitOffset]
		} else {
			offsets[i] = int64(v)
		}
	}

	var packSum, idSum [plumbing.Size]byte
	if _, err := io.ReadFull(r, packSum[:]); err != nil {
		return nil, fmt.Errorf("%w: truncated pack checksum: %w", ErrInvalidIndex, err)
	}
	if _, err := io.ReadFull(r, idSum[:]); err != nil {
		return nil, fmt.Errorf("%w: truncated index checksum: %w", ErrInvalidIndex, err)
	}

	idx := NewMemoryIndex(ids, offsets, crcs)
	idx.packSum = plumbing.Id(packSum)
	idx.idSum = plumbing.Id(idSum)
	return idx, nil
}

// verifyFanout checks that every fanout entry agrees with the ids actually
// present, the invariant in spec.md §8 ("the fanout count at byte b equals
// the number of ids <= b"); Decode rejects an index that breaks it.
func verifyFanout(fanout [256]uint32, ids []plumbing.Id) error {
	var b int
	for i, id := range ids {
		for int(id[0]) > b {
			if fanout[b] != uint32(i) {
				return fmt.Errorf("%w: fanout[%d]=%d, want %d", ErrInvalidIndex, b, fanout[b], i)
			}
			b++
		}
	}
	for ; b < 256; b++ {
		if fanout[b] != uint32(len(ids)) {
			return fmt.Errorf("%w: fanout[%d]=%d, want %d", ErrInvalidIndex, b, fanout[b], len(ids))
		}
	}
	return nil
}
