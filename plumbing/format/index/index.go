// Package index reads the git staging file ("index" under the
// repository directory): the flat list of tracked paths, each pinned to
// a blob id, mode, and stat cache, that a working tree checkout or
// Commit Builder reads to know what's staged. This core only reads it -
// Connection.index.entries is documented read-only, and the Commit
// Builder takes its tree edits directly rather than through a staged
// index - so only the version 2/3 entry table is decoded. The cache-tree,
// resolve-undo, split-index, untracked-cache, fsmonitor, and
// offset-table extensions (and index format version 4's prefix-compressed
// names) exist to accelerate or drive a working tree; with no working
// tree and no index mutation surface, this core never writes any of
// them, so it doesn't decode them either and skips each one unread.
package index

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	gitbinary "github.com/vcsobj/gitcore/internal/binary"
	"github.com/vcsobj/gitcore/plumbing"
	"github.com/vcsobj/gitcore/plumbing/filemode"
)

// ErrMalformedSignature is returned when the file doesn't open with the
// "DIRC" index signature.
var ErrMalformedSignature = errors.New("malformed index signature")

// ErrUnsupportedVersion is returned for an index version this core
// doesn't decode entries for (only 2 and 3 are read; 4's prefix-compressed
// names are a working-tree-checkout optimization this core has no use
// for).
var ErrUnsupportedVersion = errors.New("unsupported index version")

var indexSignature = []byte{'D', 'I', 'R', 'C'}

const (
	entryHeaderLength = 62
	entryExtended     = 0x4000
	nameMask          = 0xfff
	intentToAddMask   = 1 << 13
	skipWorktreeMask  = 1 << 14
)

// Stage identifies which side of a merge conflict an Entry represents.
// A Merged entry (the common case) has no conflict.
type Stage int

const (
	Merged       Stage = 0
	AncestorMode Stage = 1
	OurMode      Stage = 2
	TheirMode    Stage = 3
)

// Entry is one staged path: its content id, mode, stat cache, and merge
// stage.
type Entry struct {
	Id           plumbing.Id
	Name         string
	Mode         filemode.FileMode
	Stage        Stage
	Size         uint32
	CreatedAt    time.Time
	ModifiedAt   time.Time
	Dev, Inode   uint32
	UID, GID     uint32
	SkipWorktree bool
	IntentToAdd  bool
}

// Index is the decoded entry table of a staging file. Version is kept
// for callers that care, but every extension byte after the entry table
// is skipped unread rather than decoded into a field.
type Index struct {
	Version uint32
	Entries []*Entry
}

// Decode reads a staging file's entry table from r. It does not verify
// the trailing SHA-1 checksum: that would require buffering the whole
// stream through a hash, which only matters to a writer planning to
// trust and mutate the file back - this core never does.
func Decode(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)

	version, count, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	if version != 2 && version != 3 {
		return nil, ErrUnsupportedVersion
	}

	idx := &Index{Version: version}
	for i := uint32(0); i < count; i++ {
		e, err := readEntry(br, version)
		if err != nil {
			return nil, fmt.Errorf("index: entry %d: %w", i, err)
		}
		idx.Entries = append(idx.Entries, e)
	}

	return idx, nil
}

func readHeader(r io.Reader) (version, count uint32, err error) {
	var sig [4]byte
	if _, err := io.ReadFull(r, sig[:]); err != nil {
		return 0, 0, err
	}
	if !bytes.Equal(sig[:], indexSignature) {
		return 0, 0, ErrMalformedSignature
	}

	version, err = gitbinary.ReadUint32(r)
	if err != nil {
		return 0, 0, err
	}
	count, err = gitbinary.ReadUint32(r)
	if err != nil {
		return 0, 0, err
	}
	return version, count, nil
}

func readEntry(r *bufio.Reader, version uint32) (*Entry, error) {
	e := &Entry{}

	var sec, nsec, msec, mnsec uint32
	for _, dst := range []*uint32{&sec, &nsec, &msec, &mnsec, &e.Dev, &e.Inode} {
		v, err := gitbinary.ReadUint32(r)
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	mode, err := gitbinary.ReadUint32(r)
	if err != nil {
		return nil, err
	}
	e.Mode = filemode.FileMode(mode)

	for _, dst := range []*uint32{&e.UID, &e.GID, &e.Size} {
		v, err := gitbinary.ReadUint32(r)
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	var idBytes [plumbing.Size]byte
	if _, err := io.ReadFull(r, idBytes[:]); err != nil {
		return nil, err
	}
	e.Id, _ = plumbing.FromBytes(idBytes[:])

	flags, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	read := entryHeaderLength

	if sec != 0 || nsec != 0 {
		e.CreatedAt = time.Unix(int64(sec), int64(nsec))
	}
	if msec != 0 || mnsec != 0 {
		e.ModifiedAt = time.Unix(int64(msec), int64(mnsec))
	}
	e.Stage = Stage(flags>>12) & 0x3

	if flags&entryExtended != 0 {
		extended, err := readUint16(r)
		if err != nil {
			return nil, err
		}
		read += 2
		e.IntentToAdd = extended&intentToAddMask != 0
		e.SkipWorktree = extended&skipWorktreeMask != 0
	}

	nameLen := int(flags & nameMask)
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, err
	}
	e.Name = string(name)

	return e, padEntry(r, version, read+nameLen)
}

// readUint16 reads a big-endian uint16, the width git's index flags and
// extended-flags fields use (unlike the rest of the entry header, which
// is all uint32).
func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// padEntry discards the padding git writes so each entry ends on an
// 8-byte boundary (version 4 has no padding; it isn't reachable here
// since only 2 and 3 are accepted).
func padEntry(r io.Reader, version uint32, read int) error {
	if version == 4 {
		return nil
	}
	padLen := 8 - read%8
	_, err := io.CopyN(io.Discard, r, int64(padLen))
	return err
}
