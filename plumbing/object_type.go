package plumbing

import "fmt"

// ObjectType identifies the kind of a Git object. Commit, Tree, Blob, and
// Tag are materialized object kinds; OfsDelta and RefDelta only ever occur
// as pack entries, never as a resolved object.
type ObjectType int8

const (
	InvalidObject ObjectType = iota
	CommitObject
	TreeObject
	BlobObject
	TagObject
	// 5 is reserved in the on-disk encoding (unused type code).
	_
	OfsDeltaObject
	RefDeltaObject
)

// AnyObject is never a real on-disk type code; it is a sentinel callers
// pass to GetType/Resolve to mean "whatever type is stored", skipping the
// type-mismatch check.
const AnyObject ObjectType = -127

func (t ObjectType) String() string {
	switch t {
	case CommitObject:
		return "commit"
	case TreeObject:
		return "tree"
	case BlobObject:
		return "blob"
	case TagObject:
		return "tag"
	case OfsDeltaObject:
		return "ofs-delta"
	case RefDeltaObject:
		return "ref-delta"
	case AnyObject:
		return "any"
	default:
		return "invalid"
	}
}

// Bytes returns the on-the-wire ASCII spelling used in loose object headers
// ("commit", "tree", "blob", "tag").
func (t ObjectType) Bytes() []byte {
	return []byte(t.String())
}

// IsDelta reports whether t is one of the two pack-internal delta types.
func (t ObjectType) IsDelta() bool {
	return t == OfsDeltaObject || t == RefDeltaObject
}

// Valid reports whether t is a defined, non-reserved type code.
func (t ObjectType) Valid() bool {
	switch t {
	case CommitObject, TreeObject, BlobObject, TagObject, OfsDeltaObject, RefDeltaObject:
		return true
	default:
		return false
	}
}

// ParseObjectType parses the ASCII header spelling of an object type, as
// found in a loose object's "{type} {length}\0" header or a tag's "type"
// line.
func ParseObjectType(s string) (ObjectType, error) {
	switch s {
	case "commit":
		return CommitObject, nil
	case "tree":
		return TreeObject, nil
	case "blob":
		return BlobObject, nil
	case "tag":
		return TagObject, nil
	default:
		return InvalidObject, fmt.Errorf("plumbing: unknown object type %q", s)
	}
}
