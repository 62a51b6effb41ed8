package object

import "github.com/vcsobj/gitcore/plumbing"

// Blob is a file's raw content, addressed by the SHA-1 of
// "blob {size}\0{bytes}". Blob carries no name or mode; those live on the
// Tree entry that references it.
type Blob struct {
	Id   plumbing.Id
	Size int64
}

// NewBlob hashes data and returns the Blob plus its id, implementing
// spec.md §4.9 step 1 ("hash as a Blob").
func NewBlob(data []byte) (Blob, plumbing.Id) {
	id := plumbing.HashObject(plumbing.BlobObject, data)
	return Blob{Id: id, Size: int64(len(data))}, id
}
