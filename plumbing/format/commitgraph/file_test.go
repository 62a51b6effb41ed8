package commitgraph

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcsobj/gitcore/internal/binary"
	"github.com/vcsobj/gitcore/plumbing"
)

type memReaderAtCloser struct {
	*bytes.Reader
}

func (memReaderAtCloser) Close() error { return nil }

// buildGraph assembles a minimal one-chunk-table commit-graph file in
// memory with OIDF/OIDL/CDAT chunks (no EDGE chunk) for a linear history of
// the given commit ids, oldest first, each parented on the previous one.
func buildGraph(t *testing.T, ids []plumbing.Id, trees []plumbing.Id) []byte {
	t.Helper()

	n := len(ids)
	const chunkCount = 3
	headerLen := int64(8 + (chunkCount+1)*12)
	fanoutLen := int64(256 * 4)
	lookupLen := int64(n * plumbing.Size)
	dataLen := int64(n * (plumbing.Size + commitDataSize))

	fanoutOffset := headerLen
	lookupOffset := fanoutOffset + fanoutLen
	dataOffset := lookupOffset + lookupLen

	var buf bytes.Buffer
	buf.Write(fileSignature)
	buf.Write([]byte{1, 1, chunkCount, 0})

	writeEntry := func(sig []byte, offset int64) {
		buf.Write(sig)
		_ = binary.WriteUint64(&buf, uint64(offset))
	}
	writeEntry(OIDFanoutChunk.Signature(), fanoutOffset)
	writeEntry(OIDLookupChunk.Signature(), lookupOffset)
	writeEntry(CommitDataChunk.Signature(), dataOffset)
	writeEntry(ZeroChunk.Signature(), dataOffset+dataLen)

	sorted := append([]plumbing.Id(nil), ids...)
	plumbing.SortIds(sorted)
	indexOf := func(id plumbing.Id) uint32 {
		for i, s := range sorted {
			if s == id {
				return uint32(i)
			}
		}
		t.Fatalf("id %s not in sorted set", id)
		return 0
	}

	var fanout [256]uint32
	for _, id := range sorted {
		for b := int(id[0]); b < 256; b++ {
			fanout[b]++
		}
	}
	for _, v := range fanout {
		_ = binary.WriteUint32(&buf, v)
	}

	for _, id := range sorted {
		buf.Write(id[:])
	}

	for _, id := range sorted {
		var tree plumbing.Id
		var parent1 uint32 = 0x70000000
		for i, orig := range ids {
			if orig == id {
				tree = trees[i]
				if i > 0 {
					parent1 = indexOf(ids[i-1])
				}
			}
		}
		buf.Write(tree[:])
		_ = binary.WriteUint32(&buf, parent1)
		_ = binary.WriteUint32(&buf, 0x70000000)
		var genAndTime uint64 = (1 << 34) | 1700000000
		_ = binary.WriteUint64(&buf, genAndTime)
	}

	return buf.Bytes()
}

func TestFileIndexLinearHistory(t *testing.T) {
	id1 := mustId(t, "1111111111111111111111111111111111111111")
	id2 := mustId(t, "2222222222222222222222222222222222222222")
	id3 := mustId(t, "3333333333333333333333333333333333333333")
	tree1 := mustId(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tree2 := mustId(t, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	tree3 := mustId(t, "cccccccccccccccccccccccccccccccccccccccc")

	data := buildGraph(t, []plumbing.Id{id1, id2, id3}, []plumbing.Id{tree1, tree2, tree3})

	idx, err := OpenFileIndex(memReaderAtCloser{bytes.NewReader(data)})
	require.NoError(t, err)
	defer idx.Close()

	i3, err := idx.IndexOf(id3)
	require.NoError(t, err)
	cd, err := idx.CommitDataOf(i3)
	require.NoError(t, err)
	assert.Equal(t, tree3, cd.TreeId)
	require.Len(t, cd.ParentIds, 1)
	assert.Equal(t, id2, cd.ParentIds[0])

	gotId, err := idx.IdOf(i3)
	require.NoError(t, err)
	assert.Equal(t, id3, gotId)

	assert.Len(t, idx.Ids(), 3)
}

func TestFileIndexRejectsBadSignature(t *testing.T) {
	data := []byte("BAD!" + "\x01\x01\x00\x00")
	_, err := OpenFileIndex(memReaderAtCloser{bytes.NewReader(data)})
	assert.ErrorIs(t, err, ErrMalformedCommitGraph)
}

func mustId(t *testing.T, hex string) plumbing.Id {
	t.Helper()
	id, ok := plumbing.FromHex(hex)
	require.True(t, ok, "bad test hex id %q", hex)
	return id
}
