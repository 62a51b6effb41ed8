// Package hash centralizes the hash implementation used to compute object
// ids, so the rest of the core never imports crypto/sha1 directly. This
// mirrors go-git's plumbing/hash package: the default is a
// collision-detecting SHA-1 (sha1cd), swappable for tests or for a future
// object-format extension.
package hash

import (
	"hash"

	"github.com/pjbgf/sha1cd"
)

// Size is the digest size of the implemented object format (SHA-1).
const Size = 20

// newSHA1 is overridable by tests that want a plain, non-collision-detecting
// hash for speed.
var newSHA1 = sha1cd.New

// NewSHA1 returns a new hash.Hash computing collision-detecting SHA-1, the
// hash underlying every Id in this core.
func NewSHA1() hash.Hash {
	return newSHA1()
}
