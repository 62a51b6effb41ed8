package packfile

import intbin "github.com/vcsobj/gitcore/internal/binary"

// This file implements a rolling-hash delta matcher, diverging from a
// Myers-style sequence matcher (GetOpCodes-based diffing): instead of an
// O(n log n) diff over the whole buffers, the base is indexed into
// fixed-size blocks keyed by an Adler-32-style rolling checksum, and the
// target is scanned once, extending any hash match into the longest common
// run before falling back to a literal insert. The instruction *encoding*
// below (copy/insert opcode bitmap, LEB128-ish size headers) is the
// standard wire shape for a pack delta, since that's dictated by the pack
// format, not by the match-finding strategy.
const (
	blockSize     = 16   // bytes hashed together into one rolling-hash bucket key
	hashTableSize = 4096 // number of buckets in the base index
	maxBucketLen  = 16   // positions kept per bucket; oldest evicted first
)

// rollingHash is a simple Adler-32-style rolling checksum over a fixed
// window, cheap to slide one byte at a time.
type rollingHash struct {
	a, b uint32
}

func newRollingHash(data []byte) rollingHash {
	var h rollingHash
	for _, c := range data {
		h.a += uint32(c)
		h.b += h.a
	}
	return h
}

func (h rollingHash) sum() uint32 {
	return (h.b << 16) | (h.a & 0xffff)
}

func (h rollingHash) roll(out, in byte, n int) rollingHash {
	h.a = h.a - uint32(out) + uint32(in)
	h.b = h.b - uint32(n)*uint32(out) + h.a
	return h
}

func (h rollingHash) bucket() int {
	return int(h.sum() % hashTableSize)
}

// baseIndex maps rolling-hash buckets to candidate offsets in the base
// buffer, capped at maxBucketLen entries per bucket (oldest dropped) to
// bound both memory and worst-case match-extension cost.
type baseIndex struct {
	buckets [hashTableSize][]int
	base    []byte
}

func buildBaseIndex(base []byte) *baseIndex {
	idx := &baseIndex{base: base}
	if len(base) < blockSize {
		return idx
	}
	h := newRollingHash(base[:blockSize])
	for pos := 0; ; pos++ {
		b := h.bucket()
		bucket := idx.buckets[b]
		if len(bucket) >= maxBucketLen {
			bucket = bucket[1:]
		}
		idx.buckets[b] = append(bucket, pos)

		next := pos + blockSize
		if next >= len(base) {
			break
		}
		h = h.roll(base[pos], base[next], blockSize)
	}
	return idx
}

// longestMatch extends every candidate block at hash bucket b for
// target[pos:] into the longest run equal to some run in base, returning
// the best (baseOffset, length) pair found, or ok=false if none of the
// candidates actually match (a hash collision with no real overlap).
func (idx *baseIndex) longestMatch(target []byte, pos int, h rollingHash) (baseOffset, length int, ok bool) {
	for _, candidate := range idx.buckets[h.bucket()] {
		l := matchLen(idx.base[candidate:], target[pos:])
		if l >= blockSize && l > length {
			baseOffset, length, ok = candidate, l, true
		}
	}
	return
}

func matchLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

type instruction struct {
	isCopy bool
	// copy fields
	offset, length int
	// insert field
	literal []byte
}

// DiffDelta computes the instruction stream transforming baseBuf into
// targetBuf, implementing spec.md §4.6's "rolling-hash block matcher."
// Matching the round-trip law in spec.md §8, PatchDelta(baseBuf,
// DiffDelta(baseBuf, targetBuf)) == targetBuf.
func DiffDelta(baseBuf, targetBuf []byte) []byte {
	out := make([]byte, 0, len(targetBuf)/2+32)
	out = append(out, intbin.EncodeLEB128(uint64(len(baseBuf)))...)
	out = append(out, intbin.EncodeLEB128(uint64(len(targetBuf)))...)

	for _, ins := range deltaInstructions(baseBuf, targetBuf) {
		if ins.isCopy {
			out = append(out, encodeCopyInstruction(ins.offset, ins.length)...)
			continue
		}
		lit := ins.literal
		for len(lit) > maxInsertSize {
			out = append(out, byte(maxInsertSize))
			out = append(out, lit[:maxInsertSize]...)
			lit = lit[maxInsertSize:]
		}
		if len(lit) > 0 {
			out = append(out, byte(len(lit)))
			out = append(out, lit...)
		}
	}
	return out
}

// deltaInstructions runs the single-pass rolling-hash scan over target,
// coalescing adjacent literal bytes into one insert instruction and
// splitting any copy longer than maxCopySize into multiple copy
// instructions (the wire format caps a single copy's length field).
func deltaInstructions(baseBuf, targetBuf []byte) []instruction {
	var out []instruction
	if len(baseBuf) == 0 || len(targetBuf) < blockSize {
		if len(targetBuf) > 0 {
			out = append(out, instruction{literal: targetBuf})
		}
		return out
	}

	idx := buildBaseIndex(baseBuf)
	var literalStart int
	pos := 0
	h := newRollingHash(targetBuf[:blockSize])

	flushLiteral := func(end int) {
		if end > literalStart {
			out = append(out, instruction{literal: targetBuf[literalStart:end]})
		}
	}

	for pos+blockSize <= len(targetBuf) {
		if baseOffset, length, ok := idx.longestMatch(targetBuf, pos, h); ok {
			flushLiteral(pos)
			remaining := length
			copyBase := baseOffset
			for remaining > 0 {
				n := remaining
				if n > maxCopySize {
					n = maxCopySize
				}
				out = append(out, instruction{isCopy: true, offset: copyBase, length: n})
				copyBase += n
				remaining -= n
			}

			pos += length
			literalStart = pos
			if pos+blockSize <= len(targetBuf) {
				h = newRollingHash(targetBuf[pos : pos+blockSize])
			}
			continue
		}

		if pos+blockSize < len(targetBuf) {
			h = h.roll(targetBuf[pos], targetBuf[pos+blockSize], blockSize)
		}
		pos++
	}

	flushLiteral(len(targetBuf))
	return out
}

func encodeCopyInstruction(offset, length int) []byte {
	code := byte(0x80)
	var rest []byte

	for i := 0; i < copyOffsetBytes; i++ {
		b := byte(offset >> (8 * uint(i)))
		if b != 0 {
			rest = append(rest, b)
			code |= 1 << uint(i)
		}
	}
	size := length
	if size == maxCopySize {
		size = 0
	}
	for i := 0; i < copySizeBytes; i++ {
		b := byte(size >> (8 * uint(i)))
		if b != 0 {
			rest = append(rest, b)
			code |= 1 << uint(4+i)
		}
	}

	return append([]byte{code}, rest...)
}
