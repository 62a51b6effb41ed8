package commitgraph

import (
	"bytes"
	encbin "encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/vcsobj/gitcore/internal/binary"
	"github.com/vcsobj/gitcore/plumbing"
)

var (
	ErrUnsupportedVersion      = errors.New("commitgraph: unsupported version")
	ErrUnsupportedHash         = errors.New("commitgraph: unsupported hash algorithm")
	ErrMalformedCommitGraph    = errors.New("commitgraph: malformed commit-graph file")

	fileSignature = []byte{'C', 'G', 'P', 'H'}

	parentNone        = uint32(0x70000000)
	parentOctopusUsed = uint32(0x80000000)
	parentOctopusMask = uint32(0x7fffffff)
	parentLast        = uint32(0x80000000)
)

const commitDataSize = 16 // parent1(4) + parent2(4) + generation<<34|time(8)

// ReaderAtCloser is the minimum a commit-graph file needs to expose: random
// access for the chunk table and binary-search lookups, closed when the
// index is done with it.
type ReaderAtCloser interface {
	io.ReaderAt
	io.Closer
}

type fileIndex struct {
	reader  ReaderAtCloser
	fanout  [256]uint32
	offsets [int(ZeroChunk) + 1]int64
	parent  Index
}

// OpenFileIndex parses a single commit-graph file (no chain, no base layer).
func OpenFileIndex(reader ReaderAtCloser) (Index, error) {
	return OpenFileIndexWithParent(reader, nil)
}

// OpenFileIndexWithParent parses a commit-graph file that is one layer of a
// chain, falling through to parent for indices beyond this layer's range.
func OpenFileIndexWithParent(reader ReaderAtCloser, parent Index) (Index, error) {
	if reader == nil {
		return nil, io.ErrUnexpectedEOF
	}
	fi := &fileIndex{reader: reader, parent: parent}

	if err := fi.verifyHeader(); err != nil {
		return nil, err
	}
	if err := fi.readChunkTable(); err != nil {
		return nil, err
	}
	if err := fi.readFanout(); err != nil {
		return nil, err
	}
	return fi, nil
}

func (fi *fileIndex) Close() (err error) {
	if fi.parent != nil {
		defer func() {
			parentErr := fi.parent.Close()
			if err == nil {
				err = parentErr
			}
		}()
	}
	return fi.reader.Close()
}

func (fi *fileIndex) verifyHeader() error {
	sig := make([]byte, 4)
	if _, err := fi.reader.ReadAt(sig, 0); err != nil {
		return err
	}
	if !bytes.Equal(sig, fileSignature) {
		return ErrMalformedCommitGraph
	}

	hdr := make([]byte, 4)
	if _, err := fi.reader.ReadAt(hdr, 4); err != nil {
		return err
	}
	if hdr[0] != 1 {
		return ErrUnsupportedVersion
	}
	if hdr[1] != 1 {
		// Only SHA-1 (hash-id 1) commit-graphs are supported; hash-id 2
		// (SHA-256) is out of scope here.
		return ErrUnsupportedHash
	}

	return nil
}

func (fi *fileIndex) readChunkTable() error {
	chunkID := make([]byte, 4)
	for i := 0; ; i++ {
		entry := io.NewSectionReader(fi.reader, 8+int64(i)*12, 12)
		if _, err := io.ReadAtLeast(entry, chunkID, 4); err != nil {
			return err
		}
		offset, err := binary.ReadUint64(entry)
		if err != nil {
			return err
		}

		ct, ok := ChunkTypeFromBytes(chunkID)
		if !ok {
			continue
		}
		if ct == ZeroChunk || int(ct) >= len(fi.offsets) {
			break
		}
		fi.offsets[ct] = int64(offset)
	}

	if fi.offsets[OIDFanoutChunk] <= 0 || fi.offsets[OIDLookupChunk] <= 0 || fi.offsets[CommitDataChunk] <= 0 {
		return ErrMalformedCommitGraph
	}
	return nil
}

func (fi *fileIndex) readFanout() error {
	r := io.NewSectionReader(fi.reader, fi.offsets[OIDFanoutChunk], 256*4)
	for i := 0; i < 256; i++ {
		v, err := binary.ReadUint32(r)
		if err != nil {
			return err
		}
		if v > 0x7fffffff {
			return ErrMalformedCommitGraph
		}
		fi.fanout[i] = v
	}
	return nil
}

// IndexOf binary-searches the oid lookup table, then falls through to a
// chain parent for ids older than this layer.
func (fi *fileIndex) IndexOf(id plumbing.Id) (uint32, error) {
	var candidate plumbing.Id

	var low uint32
	if id[0] != 0 {
		low = fi.fanout[id[0]-1]
	}
	high := fi.fanout[id[0]]
	for low < high {
		mid := (low + high) >> 1
		offset := fi.offsets[OIDLookupChunk] + int64(mid)*plumbing.Size
		if _, err := fi.reader.ReadAt(candidate[:], offset); err != nil {
			return 0, err
		}
		switch bytes.Compare(id[:], candidate[:]) {
		case 0:
			return mid, nil
		case -1:
			high = mid
		default:
			low = mid + 1
		}
	}

	if fi.parent != nil {
		idx, err := fi.parent.IndexOf(id)
		if err != nil {
			return 0, err
		}
		return idx + fi.fanout[0xff], nil
	}
	return 0, plumbing.ErrNotFound
}

// IdOf returns the commit id stored at idx, falling through to the parent
// layer for indices this file doesn't own.
func (fi *fileIndex) IdOf(idx uint32) (id plumbing.Id, err error) {
	if idx >= fi.fanout[0xff] {
		if fi.parent != nil {
			return fi.parent.IdOf(idx - fi.fanout[0xff])
		}
		return id, ErrMalformedCommitGraph
	}
	offset := fi.offsets[OIDLookupChunk] + int64(idx)*plumbing.Size
	if _, err := fi.reader.ReadAt(id[:], offset); err != nil {
		return id, err
	}
	return id, nil
}

// CommitDataOf decodes the CDAT entry at idx, resolving parent indexes
// (including EDGE-chunk octopus merges) into both index and id form.
func (fi *fileIndex) CommitDataOf(idx uint32) (*CommitData, error) {
	if idx >= fi.fanout[0xff] {
		if fi.parent != nil {
			data, err := fi.parent.CommitDataOf(idx - fi.fanout[0xff])
			if err != nil {
				return nil, err
			}
			for i := range data.ParentIndexes {
				data.ParentIndexes[i] += fi.fanout[0xff]
			}
			return data, nil
		}
		return nil, plumbing.ErrNotFound
	}

	offset := fi.offsets[CommitDataChunk] + int64(idx)*(plumbing.Size+commitDataSize)
	r := io.NewSectionReader(fi.reader, offset, plumbing.Size+commitDataSize)

	var treeId plumbing.Id
	if _, err := io.ReadFull(r, treeId[:]); err != nil {
		return nil, err
	}
	parent1, err := binary.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	parent2, err := binary.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	genAndTime, err := binary.ReadUint64(r)
	if err != nil {
		return nil, err
	}

	var parentIndexes []uint32
	switch {
	case parent2&parentOctopusUsed == parentOctopusUsed:
		parentIndexes = []uint32{parent1 & parentOctopusMask}
		edgeOffset := fi.offsets[ExtraEdgeListChunk] + 4*int64(parent2&parentOctopusMask)
		buf := make([]byte, 4)
		for {
			if _, err := fi.reader.ReadAt(buf, edgeOffset); err != nil {
				return nil, err
			}
			p := encbin.BigEndian.Uint32(buf)
			edgeOffset += 4
			parentIndexes = append(parentIndexes, p&parentOctopusMask)
			if p&parentLast == parentLast {
				break
			}
		}
	case parent2 != parentNone:
		parentIndexes = []uint32{parent1 & parentOctopusMask, parent2 & parentOctopusMask}
	case parent1 != parentNone:
		parentIndexes = []uint32{parent1 & parentOctopusMask}
	}

	parentIds, err := fi.idsFromIndexes(parentIndexes)
	if err != nil {
		return nil, err
	}

	return &CommitData{
		TreeId:        treeId,
		ParentIndexes: parentIndexes,
		ParentIds:     parentIds,
		Generation:    genAndTime >> 34,
		When:          time.Unix(int64(genAndTime&0x3FFFFFFFF), 0),
	}, nil
}

func (fi *fileIndex) idsFromIndexes(indexes []uint32) ([]plumbing.Id, error) {
	ids := make([]plumbing.Id, len(indexes))
	for i, idx := range indexes {
		id, err := fi.IdOf(idx)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// Ids returns every commit id this layer (and its ancestors) holds.
func (fi *fileIndex) Ids() []plumbing.Id {
	ids := make([]plumbing.Id, fi.fanout[0xff])
	for i := uint32(0); i < fi.fanout[0xff]; i++ {
		offset := fi.offsets[OIDLookupChunk] + int64(i)*plumbing.Size
		if n, err := fi.reader.ReadAt(ids[i][:], offset); err != nil || n < plumbing.Size {
			return nil
		}
	}
	if fi.parent != nil {
		ids = append(ids, fi.parent.Ids()...)
	}
	return ids
}
