package commitgraph

import "bytes"

const (
	chunkSigLen    = 4
	chunkSigStride = 4
)

// chunkSignatures coalesces the byte signatures of every known chunk, in
// ChunkType order, so ChunkTypeFromBytes can find one with a single Index
// call instead of a switch over four-byte comparisons.
var chunkSignatures = []byte("OIDFOIDLCDATEDGE\x00\x00\x00\x00")

// ChunkType identifies one chunk within a commit-graph file's chunk table.
type ChunkType int

const (
	OIDFanoutChunk ChunkType = iota // "OIDF"
	OIDLookupChunk                 // "OIDL"
	CommitDataChunk                // "CDAT"
	ExtraEdgeListChunk              // "EDGE"
	ZeroChunk                      // terminator, not a real chunk
)

// Signature returns the four-byte on-disk signature for ct.
func (ct ChunkType) Signature() []byte {
	if ct < 0 || ct >= ZeroChunk {
		return chunkSignatures[int(ZeroChunk)*chunkSigStride : int(ZeroChunk)*chunkSigStride+chunkSigLen]
	}
	return chunkSignatures[int(ct)*chunkSigStride : int(ct)*chunkSigStride+chunkSigLen]
}

// ChunkTypeFromBytes recognizes a four-byte chunk signature read from a
// chunk table entry.
func ChunkTypeFromBytes(b []byte) (ChunkType, bool) {
	idx := bytes.Index(chunkSignatures, b)
	if idx == -1 || idx%chunkSigStride != 0 {
		return -1, false
	}
	return ChunkType(idx / chunkSigStride), true
}
