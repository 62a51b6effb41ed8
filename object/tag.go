package object

import (
	"bytes"
	"fmt"

	"github.com/vcsobj/gitcore/plumbing"
)

// Tag is an annotated tag: a pointer to another object plus a name,
// tagger, and message (as distinct from a lightweight tag, which is just a
// ref pointing directly at a commit with no Tag object involved).
type Tag struct {
	TargetId   plumbing.Id
	TargetType plumbing.ObjectType
	Name       string
	Tagger     Signature
	Message    string
}

// Encode serializes the tag to its canonical header-lines-then-message
// layout.
func (t Tag) Encode() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "object %s\n", t.TargetId)
	fmt.Fprintf(&buf, "type %s\n", t.TargetType)
	fmt.Fprintf(&buf, "tag %s\n", t.Name)
	fmt.Fprintf(&buf, "tagger %s\n", t.Tagger.Encode())
	buf.WriteByte('\n')
	buf.WriteString(t.Message)
	return buf.Bytes()
}

// Hash returns the id this tag would have if written now.
func (t Tag) Hash() plumbing.Id {
	return plumbing.HashObject(plumbing.TagObject, t.Encode())
}

// DecodeTag parses a tag object's canonical byte layout.
func DecodeTag(data []byte) (Tag, error) {
	var t Tag

	for len(data) > 0 {
		nl := bytes.IndexByte(data, '\n')
		if nl < 0 {
			return Tag{}, fmt.Errorf("object: truncated tag header")
		}
		line := data[:nl]
		data = data[nl+1:]

		if len(line) == 0 {
			break
		}

		sp := bytes.IndexByte(line, ' ')
		if sp < 0 {
			return Tag{}, fmt.Errorf("object: malformed tag header line %q", line)
		}
		key, value := string(line[:sp]), line[sp+1:]

		switch key {
		case "object":
			id, ok := plumbing.FromHex(string(value))
			if !ok {
				return Tag{}, fmt.Errorf("object: malformed target id %q", value)
			}
			t.TargetId = id
		case "type":
			typ, err := plumbing.ParseObjectType(string(value))
			if err != nil {
				return Tag{}, err
			}
			t.TargetType = typ
		case "tag":
			t.Name = string(value)
		case "tagger":
			sig, err := DecodeSignature(value)
			if err != nil {
				return Tag{}, err
			}
			t.Tagger = sig
		}
	}

	t.Message = string(data)
	return t, nil
}
