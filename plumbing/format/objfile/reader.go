// Package objfile reads and writes loose objects: the zlib-wrapped
// "{type} {length}\0{raw-bytes}" files stored at
// <objects>/<id[0..2]>/<id[2..]>.
package objfile

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"errors"
	"io"
	"strconv"

	"github.com/vcsobj/gitcore/plumbing"
)

// ErrTruncatedHeader is returned when the zlib-decompressed stream ends
// before a NUL-terminated "{type} {length}" header was found.
var ErrTruncatedHeader = errors.New("objfile: truncated header")

// Reader reads a single loose object: first its type+length header, then
// its raw content, verifying the content length and computing the object's
// Id as it is streamed.
type Reader struct {
	zr     io.ReadCloser
	br     *bufio.Reader
	typ    plumbing.ObjectType
	size   int64
	read   int64
	hasher plumbing.Hasher
	header bool
}

// NewReader opens the zlib stream on r and returns a Reader. The header is
// not parsed until Header is called.
func NewReader(r io.Reader) (*Reader, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &Reader{zr: zr, br: bufio.NewReader(zr)}, nil
}

// Header reads and parses the "{type} {length}\0" prefix. It is safe to
// call more than once; subsequent calls return the cached result.
func (r *Reader) Header() (plumbing.ObjectType, int64, error) {
	if r.header {
		return r.typ, r.size, nil
	}

	typLine, err := r.br.ReadString(' ')
	if err != nil {
		return plumbing.InvalidObject, 0, ErrTruncatedHeader
	}
	typ, err := plumbing.ParseObjectType(typLine[:len(typLine)-1])
	if err != nil {
		return plumbing.InvalidObject, 0, err
	}

	sizeLine, err := r.br.ReadString(0)
	if err != nil {
		return plumbing.InvalidObject, 0, ErrTruncatedHeader
	}
	sizeStr := sizeLine[:len(sizeLine)-1]
	size, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil || size < 0 {
		return plumbing.InvalidObject, 0, ErrTruncatedHeader
	}

	r.typ, r.size, r.header = typ, size, true
	r.hasher = plumbing.NewHasher(typ, size)
	return typ, size, nil
}

// Read implements io.Reader over the object's content, feeding the
// hasher as bytes are consumed.
func (r *Reader) Read(p []byte) (int, error) {
	if !r.header {
		if _, _, err := r.Header(); err != nil {
			return 0, err
		}
	}

	n, err := r.br.Read(p)
	if n > 0 {
		r.hasher.Write(p[:n])
		r.read += int64(n)
	}
	if r.read > r.size || (err == io.EOF && r.read != r.size) {
		return n, plumbing.NewError(plumbing.KindCorrupt, ErrTruncatedHeader)
	}
	return n, err
}

// Hash returns the object's id, computed over every byte read so far. Call
// it after fully draining Read (e.g. via io.ReadAll) to get the id of the
// whole object.
func (r *Reader) Hash() plumbing.Id {
	return r.hasher.Sum()
}

// Close releases the underlying zlib stream.
func (r *Reader) Close() error {
	return r.zr.Close()
}

// ReadObject is a convenience wrapper that fully decodes a loose object
// into memory: its type and raw bytes.
func ReadObject(r io.Reader) (plumbing.ObjectType, []byte, error) {
	or, err := NewReader(r)
	if err != nil {
		return plumbing.InvalidObject, nil, err
	}
	defer or.Close()

	typ, size, err := or.Header()
	if err != nil {
		return plumbing.InvalidObject, nil, err
	}

	var buf bytes.Buffer
	buf.Grow(int(size))
	if _, err := io.Copy(&buf, or); err != nil {
		return plumbing.InvalidObject, nil, err
	}
	if int64(buf.Len()) != size {
		return plumbing.InvalidObject, nil, plumbing.NewError(plumbing.KindCorrupt, ErrTruncatedHeader)
	}
	return typ, buf.Bytes(), nil
}
