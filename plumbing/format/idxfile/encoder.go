package idxfile

import (
	"io"

	intbin "github.com/vcsobj/gitcore/internal/binary"
	"github.com/vcsobj/gitcore/plumbing"
	gogithash "github.com/vcsobj/gitcore/plumbing/hash"
)

// Encode writes idx to w in the on-disk v2 format, returning the index's
// own trailing checksum (the SHA-1 of everything written before it). The
// pack-checksum field is taken from idx.PackfileChecksum(), which
// Builder.Build sets, as does decoding an existing index; an index made
// with NewMemoryIndex alone carries a zero pack checksum.
func Encode(w io.Writer, idx *MemoryIndex) (plumbing.Id, error) {
	h := gogithash.NewSHA1()
	mw := io.MultiWriter(w, h)

	if _, err := mw.Write(Header[:]); err != nil {
		return plumbing.ZeroId, err
	}
	if err := intbin.WriteUint32(mw, VersionSupported); err != nil {
		return plumbing.ZeroId, err
	}

	for _, c := range idx.fanout {
		if err := intbin.WriteUint32(mw, c); err != nil {
			return plumbing.ZeroId, err
		}
	}

	for _, id := range idx.ids {
		if _, err := mw.Write(id[:]); err != nil {
			return plumbing.ZeroId, err
		}
	}

	for _, c := range idx.crcs {
		if err := intbin.WriteUint32(mw, c); err != nil {
			return plumbing.ZeroId, err
		}
	}

	var large []int64
	for _, off := range idx.offsets {
		if off >= 1<<31 {
			v := uint32(Is64BitOffset | uint32(len(large)))
			large = append(large, off)
			if err := intbin.WriteUint32(mw, v); err != nil {
				return plumbing.ZeroId, err
			}
			continue
		}
		if err := intbin.WriteUint32(mw, uint32(off)); err != nil {
			return plumbing.ZeroId, err
		}
	}
	for _, off := range large {
		if err := intbin.WriteUint64(mw, uint64(off)); err != nil {
			return plumbing.ZeroId, err
		}
	}

	if _, err := mw.Write(idx.packSum[:]); err != nil {
		return plumbing.ZeroId, err
	}

	var sum plumbing.Id
	copy(sum[:], h.Sum(nil))
	if _, err := w.Write(sum[:]); err != nil {
		return plumbing.ZeroId, err
	}

	return sum, nil
}

// Builder accumulates (id, offset, crc) triples while a pack is being
// written, then produces a finished MemoryIndex sorted by id — the same
// role as go-git's idxfile.Writer fed by packfile scan callbacks.
type Builder struct {
	entries []Entry
}

// Add records one entry. Order of calls does not matter; Build sorts by id.
func (b *Builder) Add(id plumbing.Id, offset int64, crc uint32) {
	b.entries = append(b.entries, Entry{Id: id, Offset: offset, CRC32: crc})
}

// Build finalizes the index, given the checksum of the pack it describes.
func (b *Builder) Build(packSum plumbing.Id) *MemoryIndex {
	sortEntries(b.entries)

	ids := make([]plumbing.Id, len(b.entries))
	offsets := make([]int64, len(b.entries))
	crcs := make([]uint32, len(b.entries))
	for i, e := range b.entries {
		ids[i], offsets[i], crcs[i] = e.Id, e.Offset, e.CRC32
	}

	idx := NewMemoryIndex(ids, offsets, crcs)
	idx.packSum = packSum
	return idx
}
