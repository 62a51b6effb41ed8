package plumbing

import (
	"fmt"
	"strings"
)

// HEAD is the name of the reference that points at the repository's
// current checkout.
const HEAD ReferenceName = "HEAD"

const (
	refPrefix       = "refs/"
	refHeadPrefix   = refPrefix + "heads/"
	refTagPrefix    = refPrefix + "tags/"
	refRemotePrefix = refPrefix + "remotes/"
	refNotePrefix   = refPrefix + "notes/"
	symrefPrefix    = "ref: "
)

// ReferenceType discriminates a Reference's payload: a direct id, a
// symbolic pointer to another reference, or neither (invalid/zero value).
type ReferenceType int8

const (
	InvalidReference ReferenceType = iota
	HashReference
	SymbolicReference
)

func (t ReferenceType) String() string {
	switch t {
	case HashReference:
		return "hash-reference"
	case SymbolicReference:
		return "symbolic-reference"
	default:
		return "invalid-reference"
	}
}

// ReferenceName is a slash-separated reference path, e.g.
// "refs/heads/main" or the bare "HEAD".
type ReferenceName string

// NewBranchReferenceName builds the full name for a local branch.
func NewBranchReferenceName(name string) ReferenceName {
	return ReferenceName(refHeadPrefix + name)
}

// NewNoteReferenceName builds the full name for a notes ref.
func NewNoteReferenceName(name string) ReferenceName {
	return ReferenceName(refNotePrefix + name)
}

// NewRemoteReferenceName builds the full name for a remote-tracking branch.
func NewRemoteReferenceName(remote, name string) ReferenceName {
	return ReferenceName(refRemotePrefix + remote + "/" + name)
}

// NewRemoteHEADReferenceName builds the full name for a remote's HEAD
// pointer (e.g. "refs/remotes/origin/HEAD").
func NewRemoteHEADReferenceName(remote string) ReferenceName {
	return ReferenceName(refRemotePrefix + remote + "/HEAD")
}

// NewTagReferenceName builds the full name for a tag.
func NewTagReferenceName(name string) ReferenceName {
	return ReferenceName(refTagPrefix + name)
}

func (n ReferenceName) String() string {
	return string(n)
}

// Short returns n with its well-known prefix (refs/heads/, refs/tags/,
// refs/remotes/, refs/notes/, or bare refs/) stripped.
func (n ReferenceName) Short() string {
	s := string(n)
	res := s
	for _, prefix := range []string{refHeadPrefix, refTagPrefix, refRemotePrefix, refNotePrefix, refPrefix} {
		if strings.HasPrefix(s, prefix) {
			res = s[len(prefix):]
			break
		}
	}
	return res
}

func (n ReferenceName) IsBranch() bool {
	return strings.HasPrefix(string(n), refHeadPrefix)
}

func (n ReferenceName) IsNote() bool {
	return strings.HasPrefix(string(n), refNotePrefix)
}

func (n ReferenceName) IsRemote() bool {
	return strings.HasPrefix(string(n), refRemotePrefix)
}

func (n ReferenceName) IsTag() bool {
	return strings.HasPrefix(string(n), refTagPrefix)
}

// ErrInvalidReferenceName is returned by Validate when a reference name
// fails git's check-ref-format rules.
var ErrInvalidReferenceName = NewError(KindCorrupt, fmt.Errorf("invalid reference name"))

// Validate applies a subset of git's check-ref-format rules: components
// cannot be empty, start with '-' or '.', end in ".lock", or contain any of
// the ASCII control characters or the glob-like metacharacters
// (space, ~, ^, :, ?, *, [, \, @{). HEAD is always valid.
func (n ReferenceName) Validate() error {
	s := string(n)
	if s == string(HEAD) {
		return nil
	}
	if !strings.HasPrefix(s, refPrefix) || s == refPrefix {
		return n.invalid()
	}

	components := strings.Split(strings.TrimPrefix(s, refPrefix), "/")
	for _, c := range components {
		if c == "" || c == "." || c == ".." {
			return n.invalid()
		}
		if strings.HasPrefix(c, "-") || strings.HasPrefix(c, ".") {
			return n.invalid()
		}
		if strings.HasSuffix(c, ".lock") || strings.HasSuffix(c, ".") {
			return n.invalid()
		}
		if strings.Contains(c, "..") || strings.Contains(c, "@{") {
			return n.invalid()
		}
		for _, r := range c {
			if r < 0x20 || r == 0x7f {
				return n.invalid()
			}
			if strings.ContainsRune(" ~^:?*[\\", r) {
				return n.invalid()
			}
		}
	}
	return nil
}

func (n ReferenceName) invalid() error {
	return fmt.Errorf("%w: %q", ErrInvalidReferenceName, string(n))
}

// Reference is a named pointer: either directly at an object id, or
// symbolically at another reference name.
type Reference struct {
	t      ReferenceType
	n      ReferenceName
	h      Id
	target ReferenceName
}

// NewReferenceFromStrings builds a Reference from a ref name and its raw
// file content: either "ref: <target>" or a 40-char hex id.
func NewReferenceFromStrings(name, target string) *Reference {
	if strings.HasPrefix(target, symrefPrefix) {
		return NewSymbolicReference(ReferenceName(name), ReferenceName(strings.TrimPrefix(target, symrefPrefix)))
	}
	id, _ := FromHex(strings.TrimSpace(target))
	return NewHashReference(ReferenceName(name), id)
}

// NewHashReference builds a direct reference.
func NewHashReference(n ReferenceName, h Id) *Reference {
	return &Reference{t: HashReference, n: n, h: h}
}

// NewSymbolicReference builds a symbolic reference.
func NewSymbolicReference(n, target ReferenceName) *Reference {
	return &Reference{t: SymbolicReference, n: n, target: target}
}

func (r *Reference) Type() ReferenceType { return r.t }
func (r *Reference) Name() ReferenceName { return r.n }
func (r *Reference) Hash() Id            { return r.h }
func (r *Reference) Target() ReferenceName { return r.target }

// Strings returns the (name, content) pair this reference would be
// persisted as on disk.
func (r *Reference) Strings() [2]string {
	if r.Type() == SymbolicReference {
		return [2]string{r.Name().String(), symrefPrefix + r.Target().String()}
	}
	return [2]string{r.Name().String(), r.Hash().String()}
}

func (r *Reference) String() string {
	if r == nil || r.t == InvalidReference {
		return "<invalid reference>"
	}
	s := r.Strings()
	return fmt.Sprintf("%s %s", s[1], s[0])
}
