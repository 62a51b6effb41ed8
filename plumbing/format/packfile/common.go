// Package packfile decodes and encodes the pack v2 binary format: a
// "PACK" header, a sequence of zlib-compressed object entries (some stored
// as REF_DELTA/OFS_DELTA against another object), and a trailing SHA-1 of
// everything preceding it.
package packfile

import (
	"errors"
	"io"

	intbin "github.com/vcsobj/gitcore/internal/binary"
	"github.com/vcsobj/gitcore/plumbing"
)

// Signature is the 4-byte magic opening every pack file.
var Signature = [4]byte{'P', 'A', 'C', 'K'}

// VersionSupported is the only pack version this core understands.
const VersionSupported uint32 = 2

const (
	firstLengthBits = 4 // bits of size packed into the first header byte
	lengthBits      = 7 // bits of size packed into each continuation byte
	maskContinue    = 0x80
	maskType        = 0x70
	maskFirstLength = 0x0f
	maskLength      = 0x7f
)

// ErrMalformedPack is returned for any structural corruption of a pack
// file's framing (bad signature, bad version, truncated header/footer).
var ErrMalformedPack = errors.New("packfile: malformed pack")

// ErrUnsupportedVersion is returned for a pack version other than 2.
var ErrUnsupportedVersion = errors.New("packfile: unsupported version")

// writeObjectHeader writes the variable-length type/size header described
// in spec.md §6 ("Pack variable-length size header"): the first byte packs
// 3 type bits and 4 size bits, each continuation byte packs 7 more size
// bits, little-endian.
func writeObjectHeader(w io.Writer, t plumbing.ObjectType, size int64) error {
	c := byte(size&maskFirstLength) | byte(t)<<4
	size >>= firstLengthBits

	var buf []byte
	for size != 0 {
		buf = append(buf, c|maskContinue)
		c = byte(size & maskLength)
		size >>= lengthBits
	}
	buf = append(buf, c)
	_, err := w.Write(buf)
	return err
}

// readObjectHeader reads the same framing back from r, which must supply
// ReadByte (callers pass a *bufio.Reader or equivalent).
func readObjectHeader(r io.ByteReader) (plumbing.ObjectType, int64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return plumbing.InvalidObject, 0, err
	}

	t := plumbing.ObjectType((b & maskType) >> 4)
	size := int64(b & maskFirstLength)
	shift := uint(firstLengthBits)

	for b&maskContinue != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return plumbing.InvalidObject, 0, err
		}
		size |= int64(b&maskLength) << shift
		shift += lengthBits
	}

	return t, size, nil
}

// offsetWriter wraps a Writer while counting the number of bytes written
// so far, giving writeEntry the current pack offset without re-seeking.
type offsetWriter struct {
	w      io.Writer
	offset int64
}

func (ow *offsetWriter) Write(p []byte) (int, error) {
	n, err := ow.w.Write(p)
	ow.offset += int64(n)
	return n, err
}

// WriteOffset is re-exported for callers outside this package that build
// OFS_DELTA headers directly (the pack writer).
func WriteOffset(c int64) []byte { return intbin.WriteOffset(c) }

// ReadOffset is re-exported for symmetry with WriteOffset.
func ReadOffset(r io.ByteReader) (int64, error) { return intbin.ReadOffset(r) }
