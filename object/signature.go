// Package object implements the four Git object kinds (blob, tree, commit,
// tag), canonical byte encoding/decoding for each, and the tree builder and
// comparer that sit on top of them.
package object

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// Signature identifies an author or committer: a name, an email, and a
// timestamp with its UTC offset, matching the "Name <email> unixtime
// +zone" line format used in commit and tag objects.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// DecodeSignature parses a signature line of the form "Name <email> 1136239445
// +0000" (trailing content after the first well-formed timestamp is
// ignored, matching git's own tolerant parser).
func DecodeSignature(b []byte) (Signature, error) {
	var sig Signature

	open := bytes.LastIndexByte(b, '<')
	shut := bytes.LastIndexByte(b, '>')
	if open < 0 || shut < 0 || shut < open {
		return sig, fmt.Errorf("object: malformed signature %q", b)
	}

	sig.Name = string(bytes.TrimRight(b[:open], " "))
	sig.Email = string(b[open+1 : shut])

	rest := bytes.TrimLeft(b[shut+1:], " ")
	fields := bytes.Fields(rest)
	if len(fields) < 2 {
		// Missing or malformed timestamp: tolerate it, as git does for
		// hand-edited or synthetic commits, leaving When zero.
		return sig, nil
	}

	secs, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil {
		return sig, nil
	}
	loc, err := parseTimezone(string(fields[1]))
	if err != nil {
		return sig, nil
	}
	sig.When = time.Unix(secs, 0).In(loc)
	return sig, nil
}

// Encode writes the signature in its canonical wire form.
func (s Signature) Encode() []byte {
	_, offset := s.When.Zone()
	sign := byte('+')
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	hh := offset / 3600
	mm := (offset % 3600) / 60
	return []byte(fmt.Sprintf("%s <%s> %d %c%02d%02d", s.Name, s.Email, s.When.Unix(), sign, hh, mm))
}

func parseTimezone(s string) (*time.Location, error) {
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return nil, fmt.Errorf("object: malformed timezone %q", s)
	}
	hh, err := strconv.Atoi(s[1:3])
	if err != nil {
		return nil, err
	}
	mm, err := strconv.Atoi(s[3:5])
	if err != nil {
		return nil, err
	}
	offset := hh*3600 + mm*60
	if s[0] == '-' {
		offset = -offset
	}
	return time.FixedZone(s, offset), nil
}
