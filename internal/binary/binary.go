// Package binary provides the small big-endian and variable-length integer
// helpers used by the pack and index formats.
package binary

import (
	"encoding/binary"
	"io"
)

// WriteUint32 writes v to w in big-endian order.
func WriteUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// ReadUint32 reads a big-endian uint32 from r.
func ReadUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// WriteUint64 writes v to w in big-endian order.
func WriteUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// ReadUint64 reads a big-endian uint64 from r.
func ReadUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// DecodeLEB128 decodes a base-128 varint (as used by delta headers) from the
// front of p, returning the value and the remaining bytes.
func DecodeLEB128(p []byte) (uint64, []byte) {
	var (
		v  uint64
		sh uint
	)
	for i := 0; i < len(p); i++ {
		b := p[i]
		v |= uint64(b&0x7f) << sh
		if b&0x80 == 0 {
			return v, p[i+1:]
		}
		sh += 7
	}
	return v, nil
}

// EncodeLEB128 encodes v as a base-128 varint, the little-endian
// continuation form used for delta base/target size headers (distinct from
// WriteOffset's big-endian OFS_DELTA encoding).
func EncodeLEB128(v uint64) []byte {
	c := byte(v & 0x7f)
	v >>= 7

	var out []byte
	for v != 0 {
		out = append(out, c|0x80)
		c = byte(v & 0x7f)
		v >>= 7
	}
	return append(out, c)
}

// DecodeLEB128FromReader mirrors DecodeLEB128 but reads one byte at a time
// from r, as needed when the delta stream is not fully buffered.
func DecodeLEB128FromReader(r io.ByteReader) (uint64, error) {
	var (
		v  uint64
		sh uint
	)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << sh
		if b&0x80 == 0 {
			return v, nil
		}
		sh += 7
	}
}

// WriteOffset encodes c using the packfile's OFS_DELTA variable-length
// negative offset encoding (big-endian continuation, see gitformat-pack).
func WriteOffset(c int64) []byte {
	if c == 0 {
		return []byte{0}
	}

	var tmp [10]byte
	n := len(tmp)
	n--
	tmp[n] = byte(c & 0x7f)
	c >>= 7
	for c != 0 {
		c--
		n--
		tmp[n] = byte(c&0x7f) | 0x80
		c >>= 7
	}
	return append([]byte(nil), tmp[n:]...)
}

// ReadOffset decodes the OFS_DELTA back-offset encoding from r.
func ReadOffset(r io.ByteReader) (int64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	val := int64(b & 0x7f)
	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		val++
		val = (val << 7) | int64(b&0x7f)
	}
	return val, nil
}
