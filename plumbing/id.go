// Package plumbing defines the object identity, object type, and structured
// error taxonomy shared by every layer of the core: loose objects, pack
// files, pack indexes, and the commit/tree builder.
package plumbing

import (
	"bytes"
	"encoding/hex"
)

// Size is the length in bytes of a SHA-1 object id. This core only
// implements the SHA-1 object format; a repository declaring
// extensions.objectformat=sha256 is rejected at Open time as Unsupported
// rather than partially supported.
const Size = 20

// HexSize is the length of an Id's lowercase hex representation.
const HexSize = Size * 2

// ZeroId is the well-known all-zero object id, used to represent "no
// object" in ref and index plumbing (e.g. the old side of a create, or the
// new side of a delete).
var ZeroId Id

// Id is the 20-byte SHA-1 identity of a Git object: the hash of
// "{type} {length}\0{raw-bytes}". Id is comparable and usable as a map key.
type Id [Size]byte

// FromHex decodes a lowercase or uppercase hex string into an Id. It
// returns false if s is not exactly HexSize hex characters.
func FromHex(s string) (Id, bool) {
	var id Id
	if len(s) != HexSize {
		return id, false
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, false
	}
	copy(id[:], b)
	return id, true
}

// FromBytes copies a 20-byte slice into an Id. It returns false if b is not
// exactly Size bytes long.
func FromBytes(b []byte) (Id, bool) {
	var id Id
	if len(b) != Size {
		return id, false
	}
	copy(id[:], b)
	return id, true
}

// String returns the lowercase 40-character hex representation.
func (id Id) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether id is the all-zero sentinel.
func (id Id) IsZero() bool {
	return id == ZeroId
}

// Compare orders id against another 20-byte slice, byte-wise.
func (id Id) Compare(b []byte) int {
	return bytes.Compare(id[:], b)
}

// HasPrefix reports whether id starts with the raw bytes in prefix, used
// for abbreviated-id matching once the candidate hex has been decoded down
// to whole bytes; see HasHexPrefix for odd-length hex prefixes.
func (id Id) HasPrefix(prefix []byte) bool {
	return bytes.HasPrefix(id[:], prefix)
}

// HasHexPrefix reports whether id's hex string starts with prefix, which
// may have an odd number of hex digits (e.g. "abc"). This is how
// abbreviated-id lookups with length < 40 are matched.
func (id Id) HasHexPrefix(prefix string) bool {
	full := id.String()
	if len(prefix) > len(full) {
		return false
	}
	return full[:len(prefix)] == prefix
}

// Less reports whether id sorts before other in byte-lexicographic order.
func (id Id) Less(other Id) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

// SortIds sorts ids in increasing byte-lexicographic order in place.
func SortIds(ids []Id) {
	sortIds(ids)
}
