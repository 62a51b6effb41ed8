package object

import (
	"bytes"
	"fmt"

	"github.com/vcsobj/gitcore/plumbing"
)

// Commit is a point-in-time snapshot: a root tree, zero or more parents,
// author/committer signatures, and a free-form message.
type Commit struct {
	TreeId    plumbing.Id
	ParentIds []plumbing.Id
	Author    Signature
	Committer Signature
	Message   string
}

// Encode serializes the commit to its canonical header-lines-then-message
// layout: "tree {id}\n" then one "parent {id}\n" per parent, then
// "author ...\n", "committer ...\n", a blank line, then the message.
func (c Commit) Encode() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.TreeId)
	for _, p := range c.ParentIds {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author.Encode())
	fmt.Fprintf(&buf, "committer %s\n", c.Committer.Encode())
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// Hash returns the id this commit would have if written now.
func (c Commit) Hash() plumbing.Id {
	return plumbing.HashObject(plumbing.CommitObject, c.Encode())
}

// DecodeCommit parses a commit object's canonical byte layout.
func DecodeCommit(data []byte) (Commit, error) {
	var c Commit

	for len(data) > 0 {
		nl := bytes.IndexByte(data, '\n')
		if nl < 0 {
			return Commit{}, fmt.Errorf("object: truncated commit header")
		}
		line := data[:nl]
		data = data[nl+1:]

		if len(line) == 0 {
			break // blank line ends the header block
		}

		sp := bytes.IndexByte(line, ' ')
		if sp < 0 {
			return Commit{}, fmt.Errorf("object: malformed commit header line %q", line)
		}
		key, value := string(line[:sp]), line[sp+1:]

		switch key {
		case "tree":
			id, ok := plumbing.FromHex(string(value))
			if !ok {
				return Commit{}, fmt.Errorf("object: malformed tree id %q", value)
			}
			c.TreeId = id
		case "parent":
			id, ok := plumbing.FromHex(string(value))
			if !ok {
				return Commit{}, fmt.Errorf("object: malformed parent id %q", value)
			}
			c.ParentIds = append(c.ParentIds, id)
		case "author":
			sig, err := DecodeSignature(value)
			if err != nil {
				return Commit{}, err
			}
			c.Author = sig
		case "committer":
			sig, err := DecodeSignature(value)
			if err != nil {
				return Commit{}, err
			}
			c.Committer = sig
		default:
			// Unknown header line (e.g. "gpgsig", "mergetag", "encoding"):
			// skip, preserving compatibility with commits this core does
			// not specifically interpret. A signed/extended commit's
			// continuation lines are indented with a leading space; fold
			// those into the same skip.
			for len(data) > 0 && (data[0] == ' ') {
				next := bytes.IndexByte(data, '\n')
				if next < 0 {
					data = nil
					break
				}
				data = data[next+1:]
			}
		}
	}

	c.Message = string(data)
	return c, nil
}
