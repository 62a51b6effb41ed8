package idxfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vcsobj/gitcore/plumbing"
)

// Multi-pack-index on-disk format (objects/pack/multi-pack-index): a
// chunked container following the same table-of-contents shape as the
// commit-graph file (signature, chunk table, chunks addressed by 4-byte
// id), carrying a pack-name table plus the familiar fanout/lookup/offset
// chunks over the union of every listed pack's objects.
var midxSignature = [4]byte{'M', 'I', 'D', 'X'}

const (
	midxChunkPackNames  = "PNAM"
	midxChunkOIDFanout  = "OIDF"
	midxChunkOIDLookup  = "OIDL"
	midxChunkObjOffsets = "OOFF"
	midxChunkLargeOff   = "LOFF"
)

// DecodeMultiPackIndex reads a multi-pack-index file in full (the format is
// small relative to the packs it indexes, so unlike the per-pack index
// there is no streaming reader here).
func DecodeMultiPackIndex(r io.Reader) (*MultiPackIndex, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if len(data) < 12 || !bytes.Equal(data[0:4], midxSignature[:]) {
		return nil, fmt.Errorf("idxfile: bad multi-pack-index signature")
	}
	if data[4] != 1 {
		return nil, fmt.Errorf("idxfile: unsupported multi-pack-index version %d", data[4])
	}
	if data[5] != 1 {
		return nil, fmt.Errorf("idxfile: unsupported multi-pack-index hash id %d", data[5])
	}
	numChunks := int(data[6])
	numPacks := int(binary.BigEndian.Uint32(data[8:12]))

	type chunkSpan struct {
		start, end int64
	}
	chunks := make(map[string]chunkSpan, numChunks)

	const headerSize = 12
	tableStart := headerSize
	var prevID string
	var prevOff int64
	for i := 0; i <= numChunks; i++ {
		off := tableStart + i*12
		if off+12 > len(data) {
			return nil, fmt.Errorf("idxfile: truncated multi-pack-index chunk table")
		}
		id := string(data[off : off+4])
		offset := int64(binary.BigEndian.Uint64(data[off+4 : off+12]))

		if prevID != "" {
			chunks[prevID] = chunkSpan{start: prevOff, end: offset}
		}
		if id == "\x00\x00\x00\x00" {
			break
		}
		prevID, prevOff = id, offset
	}

	packNamesSpan, ok := chunks[midxChunkPackNames]
	if !ok {
		return nil, fmt.Errorf("idxfile: multi-pack-index missing PNAM chunk")
	}
	packNames := splitNulTerminated(data[packNamesSpan.start:packNamesSpan.end], numPacks)

	fanoutSpan, ok := chunks[midxChunkOIDFanout]
	if !ok {
		return nil, fmt.Errorf("idxfile: multi-pack-index missing OIDF chunk")
	}
	total := int(binary.BigEndian.Uint32(data[fanoutSpan.start+255*4 : fanoutSpan.start+256*4]))

	lookupSpan, ok := chunks[midxChunkOIDLookup]
	if !ok {
		return nil, fmt.Errorf("idxfile: multi-pack-index missing OIDL chunk")
	}
	ids := make([]plumbing.Id, total)
	for i := 0; i < total; i++ {
		copy(ids[i][:], data[lookupSpan.start+int64(i*plumbing.Size):])
	}

	offsetsSpan, ok := chunks[midxChunkObjOffsets]
	if !ok {
		return nil, fmt.Errorf("idxfile: multi-pack-index missing OOFF chunk")
	}
	largeSpan := chunks[midxChunkLargeOff]

	offsets := make([]int64, total)
	packIdxs := make([]uint32, total)
	for i := 0; i < total; i++ {
		rec := data[offsetsSpan.start+int64(i*8) : offsetsSpan.start+int64(i*8)+8]
		packIdxs[i] = binary.BigEndian.Uint32(rec[0:4])
		off32 := binary.BigEndian.Uint32(rec[4:8])
		if off32&0x80000000 != 0 {
			largeIdx := int64(off32 &^ 0x80000000)
			offsets[i] = int64(binary.BigEndian.Uint64(data[largeSpan.start+largeIdx*8 : largeSpan.start+largeIdx*8+8]))
		} else {
			offsets[i] = int64(off32)
		}
	}

	names := make([]string, total)
	for i, p := range packIdxs {
		if int(p) >= len(packNames) {
			return nil, fmt.Errorf("idxfile: multi-pack-index entry references out-of-range pack %d", p)
		}
		names[i] = packNames[p]
	}

	return NewMultiPackIndex(ids, offsets, nil, names), nil
}

func splitNulTerminated(b []byte, n int) []string {
	out := make([]string, 0, n)
	start := 0
	for i := 0; i < len(b) && len(out) < n; i++ {
		if b[i] == 0 {
			out = append(out, string(b[start:i]))
			start = i + 1
		}
	}
	return out
}
