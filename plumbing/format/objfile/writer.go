package objfile

import (
	"compress/zlib"
	"errors"
	"io"
	"strconv"

	"github.com/vcsobj/gitcore/plumbing"
)

// ErrOverflow is returned by Write once more bytes have been written than
// WriteHeader declared.
var ErrOverflow = errors.New("objfile: write beyond declared size")

// ErrNegativeSize is returned by WriteHeader for a negative size.
var ErrNegativeSize = errors.New("objfile: negative object size")

// ErrInvalidType is returned by WriteHeader for plumbing.InvalidObject.
var ErrInvalidType = errors.New("objfile: invalid object type")

// Writer encodes a single loose object to the zlib-compressed
// "{type} {length}\0{raw-bytes}" format, computing the object's Id as
// content is written.
type Writer struct {
	w       io.Writer
	zw      *zlib.Writer
	hasher  plumbing.Hasher
	size    int64
	written int64
	header  bool
}

// NewWriter returns a Writer that streams its zlib-compressed output to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, zw: zlib.NewWriter(w)}
}

// WriteHeader writes the "{type} {length}\0" prefix. It must be called
// exactly once, before any call to Write.
func (w *Writer) WriteHeader(t plumbing.ObjectType, size int64) error {
	if !t.Valid() || t.IsDelta() {
		return ErrInvalidType
	}
	if size < 0 {
		return ErrNegativeSize
	}

	w.hasher = plumbing.NewHasher(t, size)
	w.size = size
	w.header = true

	header := t.String() + " " + strconv.FormatInt(size, 10) + "\x00"
	_, err := w.zw.Write([]byte(header))
	return err
}

// Write streams content bytes, compressing them and feeding the hasher. It
// returns ErrOverflow, with the partial byte count written, if p would
// exceed the size declared to WriteHeader.
func (w *Writer) Write(p []byte) (int, error) {
	overflow := (w.written + int64(len(p))) - w.size
	if overflow > 0 {
		p = p[:int64(len(p))-overflow]
	}

	n, err := w.zw.Write(p)
	if err == nil && n > 0 {
		w.hasher.Write(p[:n])
		w.written += int64(n)
	}

	if err == nil && overflow > 0 {
		return n, ErrOverflow
	}
	return n, err
}

// Hash returns the id of the object written so far.
func (w *Writer) Hash() plumbing.Id {
	return w.hasher.Sum()
}

// Close finalizes the zlib stream. It does not close the underlying
// writer.
func (w *Writer) Close() error {
	return w.zw.Close()
}

// WriteObject is a convenience wrapper that writes a complete loose object
// in one call and returns its Id.
func WriteObject(w io.Writer, t plumbing.ObjectType, data []byte) (plumbing.Id, error) {
	ow := NewWriter(w)
	if err := ow.WriteHeader(t, int64(len(data))); err != nil {
		return plumbing.ZeroId, err
	}
	if _, err := ow.Write(data); err != nil {
		return plumbing.ZeroId, err
	}
	if err := ow.Close(); err != nil {
		return plumbing.ZeroId, err
	}
	return ow.Hash(), nil
}
