package plumbing

import (
	"hash"
	"strconv"

	gogithash "github.com/vcsobj/gitcore/plumbing/hash"
)

// Hasher computes the object id for "{type} {length}\0{raw-bytes}", the
// content an object id is defined over (spec.md §3, "Object identity").
type Hasher struct {
	hash.Hash
}

// NewHasher returns a Hasher reset for t and size; call Write with the raw
// object bytes, then Sum to obtain the Id.
func NewHasher(t ObjectType, size int64) Hasher {
	h := Hasher{Hash: gogithash.NewSHA1()}
	h.Reset(t, size)
	return h
}

// Reset rewinds the hasher and re-writes the "{type} {length}\0" header.
func (h Hasher) Reset(t ObjectType, size int64) {
	h.Hash.Reset()
	h.Write(t.Bytes())
	h.Write([]byte(" "))
	h.Write([]byte(strconv.FormatInt(size, 10)))
	h.Write([]byte{0})
}

// Sum finalizes the hash into an Id.
func (h Hasher) Sum() Id {
	var id Id
	copy(id[:], h.Hash.Sum(nil))
	return id
}

// HashObject computes the Id of an in-memory object without needing a
// Hasher; it is the direct implementation of the "Object identity"
// invariant in spec.md §3.
func HashObject(t ObjectType, data []byte) Id {
	h := NewHasher(t, int64(len(data)))
	h.Write(data)
	return h.Sum()
}
