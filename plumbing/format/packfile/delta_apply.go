package packfile

import (
	"bytes"
	"errors"
	"io"

	intbin "github.com/vcsobj/gitcore/internal/binary"
)

// ErrInvalidDelta is returned when a delta stream is structurally invalid:
// a size header that disagrees with the base, a copy instruction past the
// end of the base or target, or a truncated instruction stream.
var ErrInvalidDelta = errors.New("packfile: invalid delta")

// copy/insert instruction shape, per spec.md §3 ("Delta instructions"):
// high bit set -> copy, low 7 bits are a bitmap selecting which of 4
// offset bytes and 3 length bytes follow, little-endian assembly, a zero
// length field means 0x10000. High bit clear -> insert, low 7 bits (1-127)
// are a literal length, that many bytes follow.
const (
	copyOffsetBytes = 4
	copySizeBytes   = 3
	maxCopySize     = 0x10000
	maxInsertSize   = 127
)

// PatchDelta applies delta to base and returns the reconstructed target
// bytes, implementing spec.md §4.3 step 5 and the round-trip law in §8:
// apply(base, create_delta(target, base)) == target.
func PatchDelta(base, delta []byte) ([]byte, error) {
	if len(base) == 0 && len(delta) == 0 {
		return nil, ErrInvalidDelta
	}

	r := bytes.NewReader(delta)
	baseSize, err := intbin.DecodeLEB128FromReader(r)
	if err != nil {
		return nil, ErrInvalidDelta
	}
	if baseSize != uint64(len(base)) {
		return nil, ErrInvalidDelta
	}

	targetSize, err := intbin.DecodeLEB128FromReader(r)
	if err != nil {
		return nil, ErrInvalidDelta
	}

	out := make([]byte, 0, targetSize)
	for uint64(len(out)) < targetSize {
		cmd, err := r.ReadByte()
		if err != nil {
			return nil, ErrInvalidDelta
		}

		if cmd&0x80 != 0 {
			offset, size, err := decodeCopyInstruction(cmd, r)
			if err != nil {
				return nil, err
			}
			if offset+size > uint64(len(base)) || offset+size < offset {
				return nil, ErrInvalidDelta
			}
			out = append(out, base[offset:offset+size]...)
		} else if cmd != 0 {
			size := int(cmd)
			lit := make([]byte, size)
			if _, err := io.ReadFull(r, lit); err != nil {
				return nil, ErrInvalidDelta
			}
			out = append(out, lit...)
		} else {
			return nil, ErrInvalidDelta
		}
	}

	if uint64(len(out)) != targetSize {
		return nil, ErrInvalidDelta
	}
	return out, nil
}

func decodeCopyInstruction(cmd byte, r *bytes.Reader) (offset, size uint64, err error) {
	for i := 0; i < copyOffsetBytes; i++ {
		if cmd&(1<<uint(i)) != 0 {
			b, e := r.ReadByte()
			if e != nil {
				return 0, 0, ErrInvalidDelta
			}
			offset |= uint64(b) << (8 * uint(i))
		}
	}
	for i := 0; i < copySizeBytes; i++ {
		if cmd&(1<<uint(4+i)) != 0 {
			b, e := r.ReadByte()
			if e != nil {
				return 0, 0, ErrInvalidDelta
			}
			size |= uint64(b) << (8 * uint(i))
		}
	}
	if size == 0 {
		size = maxCopySize
	}
	return offset, size, nil
}
