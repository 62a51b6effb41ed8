package packfile

import (
	"compress/zlib"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/vcsobj/gitcore/plumbing"
	gogithash "github.com/vcsobj/gitcore/plumbing/hash"
)

// EntryToPack is one object the Encoder will write, optionally as a delta
// against another entry already queued earlier in the same pack (an
// OFS_DELTA, per spec.md §4.7 - this encoder never emits REF_DELTA, since
// every base it could reference is already in the pack being built).
type EntryToPack struct {
	Id      plumbing.Id
	Type    plumbing.ObjectType
	Content []byte

	// Base, if non-nil, is the id of another entry in the same Entries
	// slice (must appear earlier) to encode this one as an OFS_DELTA
	// against. DeltaContent must then hold the pre-computed instruction
	// stream (see Optimizer.Plan).
	Base         *plumbing.Id
	DeltaContent []byte
}

// Encoder writes a sequence of entries as a pack v2 stream: header, one
// entry per object (optionally OFS_DELTA-encoded), trailing SHA-1. This is
// the write-side counterpart of Scanner/Parse, taking pre-built entries
// (with delta planning already decided by the Optimizer) rather than
// reading live objects from a storer.
type Encoder struct {
	w       *offsetWriter
	hasher  hashWriter
	offsets map[plumbing.Id]int64
}

// hashWriter is the plain SHA-1 accumulator over the pack's raw bytes (the
// pack checksum, unlike an object id, hashes the stream directly with no
// "{type} {length}\0" header).
type hashWriter struct{ h interface {
	io.Writer
	Sum([]byte) []byte
} }

func (hw hashWriter) Write(p []byte) (int, error) { return hw.h.Write(p) }

func (hw hashWriter) Sum() plumbing.Id {
	var id plumbing.Id
	copy(id[:], hw.h.Sum(nil))
	return id
}

// NewEncoder wraps w for writing a new pack.
func NewEncoder(w io.Writer) *Encoder {
	h := hashWriter{h: gogithash.NewSHA1()}
	mw := io.MultiWriter(w, h)
	return &Encoder{
		w:       &offsetWriter{w: mw},
		hasher:  h,
		offsets: make(map[plumbing.Id]int64),
	}
}

// Encode writes entries as a complete pack and returns its trailing
// checksum plus, for every entry, the (offset, CRC32) pair the caller needs
// to build the matching .idx file (spec.md §4.2).
func (e *Encoder) Encode(entries []EntryToPack) (checksum plumbing.Id, offsets map[plumbing.Id]int64, crcs map[plumbing.Id]uint32, err error) {
	if err := e.writeHeader(len(entries)); err != nil {
		return plumbing.ZeroId, nil, nil, err
	}

	offsets = make(map[plumbing.Id]int64, len(entries))
	crcs = make(map[plumbing.Id]uint32, len(entries))

	for _, ent := range entries {
		crc, err := e.writeEntry(ent)
		if err != nil {
			return plumbing.ZeroId, nil, nil, err
		}
		offsets[ent.Id] = e.offsets[ent.Id]
		crcs[ent.Id] = crc
	}

	sum := e.hasher.Sum()
	if _, err := e.w.Write(sum[:]); err != nil {
		return plumbing.ZeroId, nil, nil, err
	}
	return sum, offsets, crcs, nil
}

func (e *Encoder) writeHeader(numEntries int) error {
	if _, err := e.w.Write(Signature[:]); err != nil {
		return err
	}
	var buf [8]byte
	putBE32(buf[0:4], VersionSupported)
	putBE32(buf[4:8], uint32(numEntries))
	_, err := e.w.Write(buf[:])
	return err
}

func (e *Encoder) writeEntry(ent EntryToPack) (uint32, error) {
	offset := e.w.offset
	e.offsets[ent.Id] = offset

	crcW := crc32.NewIEEE()
	tee := io.MultiWriter(e.w, crcW)

	payload := ent.Content
	wireType := ent.Type
	if ent.Base != nil {
		wireType = plumbing.OfsDeltaObject
		payload = ent.DeltaContent
	}

	if err := writeObjectHeader(tee, wireType, int64(len(payload))); err != nil {
		return 0, err
	}

	if ent.Base != nil {
		baseOffset, ok := e.offsets[*ent.Base]
		if !ok {
			return 0, fmt.Errorf("packfile: delta base %s not yet written", ent.Base)
		}
		if _, err := tee.Write(WriteOffset(offset - baseOffset)); err != nil {
			return 0, err
		}
	}

	zw := zlib.NewWriter(tee)
	if _, err := zw.Write(payload); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}

	return crcW.Sum32(), nil
}

func putBE32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
