package packfile

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/vcsobj/gitcore/plumbing"
)

// Scanner provides sequential access to the data stored in a pack file,
// one Scan() call at a time: first the header, then one call per object
// entry, then the trailing checksum. It's a state machine: a chain of
// stateFn values, each returning the next state to run, with Data()
// exposing whatever the last state produced. Random access on top of a
// pack (resolving a single object by offset, or a delta's base) is built
// by the Parser and Reader in this package on top of a materialized
// offset index, rather than by seeking the Scanner itself.
type Scanner struct {
	r   *countingReader
	crc hash.Hash32

	version uint32
	objects uint32
	index   int

	nextFn stateFn
	data   PackData
	err    error
}

type stateFn func(*Scanner) (stateFn, error)

// NewScanner wraps r for sequential pack scanning.
func NewScanner(r io.Reader) *Scanner {
	s := &Scanner{nextFn: scanSignature, crc: crc32.NewIEEE()}
	s.r = newCountingReader(r, s.crc)
	return s
}

// Scan advances to the next section, returning false at EOF or on the
// first error (retrievable afterwards via Error()).
func (s *Scanner) Scan() bool {
	if s.err != nil || s.nextFn == nil {
		return false
	}
	for state := s.nextFn; state != nil; {
		var err error
		state, err = state(s)
		if err != nil {
			s.err = err
			return false
		}
	}
	return true
}

// Data returns the section produced by the most recent Scan() call.
func (s *Scanner) Data() PackData { return s.data }

// Error returns the first error encountered, if any.
func (s *Scanner) Error() error { return s.err }

// Offset returns the scanner's current byte offset into the pack stream.
func (s *Scanner) Offset() int64 { return s.r.offset }

func scanSignature(s *Scanner) (stateFn, error) {
	var sig [4]byte
	if _, err := io.ReadFull(s.r, sig[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPack, err)
	}
	if sig != Signature {
		return nil, fmt.Errorf("%w: bad signature", ErrMalformedPack)
	}
	return scanVersion, nil
}

func scanVersion(s *Scanner) (stateFn, error) {
	var buf [4]byte
	if _, err := io.ReadFull(s.r, buf[:]); err != nil {
		return nil, fmt.Errorf("%w: cannot read version", ErrMalformedPack)
	}
	v := be32(buf)
	if v != VersionSupported {
		return nil, ErrUnsupportedVersion
	}
	s.version = v
	return scanObjectsQty, nil
}

func scanObjectsQty(s *Scanner) (stateFn, error) {
	var buf [4]byte
	if _, err := io.ReadFull(s.r, buf[:]); err != nil {
		return nil, fmt.Errorf("%w: cannot read object count", ErrMalformedPack)
	}
	qty := be32(buf)
	s.objects = qty
	s.data = PackData{
		Section: HeaderSection,
		header:  Header{Version: s.version, ObjectsQty: qty},
	}
	if qty == 0 {
		s.nextFn = scanFooter
	} else {
		s.nextFn = scanObjectEntry
	}
	return nil, nil
}

func scanObjectEntry(s *Scanner) (stateFn, error) {
	s.index++
	offset := s.r.offset
	s.crc.Reset()

	typ, size, err := readObjectHeader(s.r)
	if err != nil {
		return nil, fmt.Errorf("%w: object header: %v", ErrMalformedPack, err)
	}

	oh := ObjectHeader{Offset: offset, Type: typ, Size: size}

	switch typ {
	case plumbing.OfsDeltaObject:
		back, err := ReadOffset(s.r)
		if err != nil {
			return nil, fmt.Errorf("%w: ofs-delta back-offset: %v", ErrMalformedPack, err)
		}
		oh.OffsetReference = offset - back
	case plumbing.RefDeltaObject:
		var idBuf [plumbing.Size]byte
		if _, err := io.ReadFull(s.r, idBuf[:]); err != nil {
			return nil, fmt.Errorf("%w: ref-delta base id: %v", ErrMalformedPack, err)
		}
		oh.Reference, _ = plumbing.FromBytes(idBuf[:])
	case plumbing.InvalidObject:
		return nil, fmt.Errorf("%w: invalid object type", ErrMalformedPack)
	}

	oh.ContentOffset = s.r.offset

	zr, err := zlib.NewReader(s.r)
	if err != nil {
		return nil, fmt.Errorf("%w: zlib init: %v", ErrMalformedPack, err)
	}

	content := new(bytes.Buffer)
	if !typ.IsDelta() {
		hasher := plumbing.NewHasher(typ, size)
		if _, err := io.Copy(io.MultiWriter(content, hasher), io.LimitReader(zr, size)); err != nil {
			zr.Close()
			return nil, fmt.Errorf("%w: inflate: %v", ErrMalformedPack, err)
		}
		oh.Hash = hasher.Sum()
	} else {
		if _, err := io.Copy(content, io.LimitReader(zr, size)); err != nil {
			zr.Close()
			return nil, fmt.Errorf("%w: inflate delta: %v", ErrMalformedPack, err)
		}
	}
	// Consume the rest of the zlib stream (end-of-block and Adler-32
	// trailer) so the next entry starts at the right offset and this
	// entry's CRC32 covers all of its compressed bytes.
	if _, err := io.Copy(io.Discard, zr); err != nil {
		zr.Close()
		return nil, fmt.Errorf("%w: inflate trailer: %v", ErrMalformedPack, err)
	}
	zr.Close()

	oh.content = content
	oh.Crc32 = s.crc.Sum32()

	s.data = PackData{Section: ObjectSection, objectHeader: oh}
	if s.index >= int(s.objects) {
		s.nextFn = scanFooter
	} else {
		s.nextFn = scanObjectEntry
	}
	return nil, nil
}

func scanFooter(s *Scanner) (stateFn, error) {
	var buf [plumbing.Size]byte
	if _, err := io.ReadFull(s.r, buf[:]); err != nil {
		return nil, fmt.Errorf("%w: cannot read checksum: %v", ErrMalformedPack, err)
	}
	checksum, _ := plumbing.FromBytes(buf[:])

	s.data = PackData{Section: FooterSection, checksum: checksum}
	s.nextFn = nil
	return nil, nil
}

func be32(b [4]byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// countingReader tracks how many bytes have been consumed from the
// underlying reader and feeds every consumed byte into crc, giving object
// entries both their pack offset and their per-entry CRC32 (computed, per
// gitformat-pack, over the entry's on-disk compressed bytes) without
// requiring the source to be an io.Seeker and without any read-ahead
// buffering that would desynchronize the offset bookkeeping.
type countingReader struct {
	r      io.Reader
	crc    hash.Hash32
	offset int64
}

func newCountingReader(r io.Reader, crc hash.Hash32) *countingReader {
	return &countingReader{r: r, crc: crc}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.offset += int64(n)
		c.crc.Write(p[:n])
	}
	return n, err
}

// ReadByte reads exactly one byte, satisfying io.ByteReader for the
// variable-length header and back-offset decoders.
func (c *countingReader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(c, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}
