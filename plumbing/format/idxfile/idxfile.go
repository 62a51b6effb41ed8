// Package idxfile reads and writes the pack index (v2) format: a sorted
// directory into a pack file keyed by object id, accelerated by a 256-entry
// fanout table over the first id byte.
package idxfile

import (
	"errors"

	"github.com/vcsobj/gitcore/plumbing"
)

// VersionSupported is the only pack index version this core understands.
const VersionSupported = 2

// Header is the 4-byte magic that opens a version-2 index file.
var Header = [4]byte{0xff, 't', 'O', 'c'}

// Is64BitOffset is the bit that, when set on a 4-byte offset table entry,
// indicates the real offset lives in the large-offset extension table at
// the index given by the low 31 bits.
const Is64BitOffset = uint32(1) << 31

// ErrInvalidIndex is returned for any structural problem with an idx file:
// bad magic, bad version, truncated sections, or a fanout that disagrees
// with the id table.
var ErrInvalidIndex = errors.New("idxfile: invalid index")

// Entry is one (id, offset, crc32) triple recovered from an index.
type Entry struct {
	Id     plumbing.Id
	Offset int64
	CRC32  uint32
}

// Index is the read side of a pack index: hash -> (pack, offset) lookups
// by binary search within the fanout-selected slice, per spec.md §4.2.
type Index interface {
	// Count returns the number of objects indexed.
	Count() int
	// FindOffset returns the pack offset for id, and whether it was found.
	FindOffset(id plumbing.Id) (int64, bool)
	// FindCRC32 returns the stored CRC32 for id, and whether it was found.
	FindCRC32(id plumbing.Id) (uint32, bool)
	// FindId returns the object id stored at the given pack offset.
	FindId(offset int64) (plumbing.Id, bool)
	// FindHexPrefix returns every id in the index whose hex string starts
	// with prefix, supporting abbreviated-id lookups shorter than 40 hex
	// characters (spec.md §8, "Abbreviated ids").
	FindHexPrefix(prefix string) []plumbing.Id
	// EntryAt returns the i'th entry in ascending id order.
	EntryAt(i int) (Entry, error)
	// PackfileChecksum is the trailing SHA-1 of the pack this index covers.
	PackfileChecksum() plumbing.Id
}
