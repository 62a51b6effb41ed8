package plumbing

import (
	"errors"
	"fmt"
)

// Kind identifies the taxonomy of an *Error, per the error handling design:
// callers branch on Kind (via errors.Is against the matching sentinel, or
// by inspecting Error.Kind), never on message text.
type Kind int

const (
	// KindNotFound: a referenced id, path, or ref is absent.
	KindNotFound Kind = iota
	// KindAmbiguous: an abbreviated id matched more than one object.
	KindAmbiguous
	// KindCorrupt: a parse failure (bad magic, bad version, bad checksum,
	// invalid offset, oversize delta, unterminated header, truncated
	// zlib stream).
	KindCorrupt
	// KindUnsupported: a repository feature outside the supported set.
	KindUnsupported
	// KindConflict: index.lock held by another writer, or a branch
	// already exists and overwrite was not requested.
	KindConflict
	// KindCancelled: a long operation observed its cancellation signal.
	KindCancelled
	// KindTypeMismatch: the caller requested one object type but the
	// stored object is of a different type.
	KindTypeMismatch
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindAmbiguous:
		return "ambiguous"
	case KindCorrupt:
		return "corrupt"
	case KindUnsupported:
		return "unsupported"
	case KindConflict:
		return "conflict"
	case KindCancelled:
		return "cancelled"
	case KindTypeMismatch:
		return "type mismatch"
	default:
		return "unknown"
	}
}

// Error is the single structured error type returned across the core. It
// carries enough forensic detail (repository-relative path, object id,
// pack offset) to diagnose the failure without re-deriving it from a
// message string.
type Error struct {
	Kind   Kind
	Path   string
	Id     Id
	Offset int64
	// HasOffset distinguishes "offset 0 is meaningful" from "no offset
	// was recorded", since Offset's zero value is itself a valid offset.
	HasOffset bool
	Err       error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if !e.Id.IsZero() {
		msg += fmt.Sprintf(" (id %s)", e.Id)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (path %s)", e.Path)
	}
	if e.HasOffset {
		msg += fmt.Sprintf(" (offset %d)", e.Offset)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is supports errors.Is(err, plumbing.ErrNotFound) and its siblings by
// comparing Kind, not identity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel errors, one per Kind, for use with errors.Is.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrAmbiguous    = &Error{Kind: KindAmbiguous}
	ErrCorrupt      = &Error{Kind: KindCorrupt}
	ErrUnsupported  = &Error{Kind: KindUnsupported}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrCancelled    = &Error{Kind: KindCancelled}
	ErrTypeMismatch = &Error{Kind: KindTypeMismatch}
)

// NewError builds an *Error of the given kind, optionally wrapping cause.
func NewError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// WithId returns a copy of e annotated with the object id involved.
func (e *Error) WithId(id Id) *Error {
	c := *e
	c.Id = id
	return &c
}

// WithPath returns a copy of e annotated with a repository-relative path.
func (e *Error) WithPath(path string) *Error {
	c := *e
	c.Path = path
	return &c
}

// WithOffset returns a copy of e annotated with a pack byte offset.
func (e *Error) WithOffset(offset int64) *Error {
	c := *e
	c.Offset = offset
	c.HasOffset = true
	return &c
}

// As reports whether err is (or wraps) an *Error, mirroring errors.As for
// callers that want the full struct instead of just testing a Kind.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
