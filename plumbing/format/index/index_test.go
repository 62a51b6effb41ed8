package index

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gitbinary "github.com/vcsobj/gitcore/internal/binary"
	"github.com/vcsobj/gitcore/plumbing"
	"github.com/vcsobj/gitcore/plumbing/filemode"
)

// buildEntry writes one version-2 entry, including its padding, in the
// on-disk layout Decode expects. flags must already include the name
// length in its low 12 bits.
func buildEntry(buf *bytes.Buffer, id plumbing.Id, mode filemode.FileMode, name string, flags uint16) {
	for _, v := range []uint32{0, 0, 0, 0, 0, 0} { // ctime, ctime_nsec, mtime, mtime_nsec, dev, ino
		gitbinary.WriteUint32(buf, v)
	}
	gitbinary.WriteUint32(buf, uint32(mode))
	for _, v := range []uint32{0, 0, uint32(len(name))} { // uid, gid, size
		gitbinary.WriteUint32(buf, v)
	}
	buf.Write(id[:])
	buf.WriteByte(byte(flags >> 8))
	buf.WriteByte(byte(flags))
	buf.WriteString(name)

	read := entryHeaderLength + len(name)
	pad := 8 - read%8
	buf.Write(make([]byte, pad))
}

// buildExtendedEntry is buildEntry plus the extended-flags word that
// IntentToAdd and SkipWorktree live in, set via the entryExtended bit.
func buildExtendedEntry(buf *bytes.Buffer, id plumbing.Id, mode filemode.FileMode, name string, extended uint16) {
	for _, v := range []uint32{0, 0, 0, 0, 0, 0} {
		gitbinary.WriteUint32(buf, v)
	}
	gitbinary.WriteUint32(buf, uint32(mode))
	for _, v := range []uint32{0, 0, uint32(len(name))} {
		gitbinary.WriteUint32(buf, v)
	}
	buf.Write(id[:])

	flags := uint16(len(name)) | entryExtended
	buf.WriteByte(byte(flags >> 8))
	buf.WriteByte(byte(flags))
	buf.WriteByte(byte(extended >> 8))
	buf.WriteByte(byte(extended))
	buf.WriteString(name)

	read := entryHeaderLength + 2 + len(name)
	pad := 8 - read%8
	buf.Write(make([]byte, pad))
}

func TestDecodeVersion2Entry(t *testing.T) {
	id, _ := plumbing.FromHex("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	var buf bytes.Buffer
	buf.Write(indexSignature)
	gitbinary.WriteUint32(&buf, 2)
	gitbinary.WriteUint32(&buf, 1)
	buildEntry(&buf, id, filemode.Regular, "hello.go", uint16(len("hello.go")))

	idx, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), idx.Version)
	require.Len(t, idx.Entries, 1)

	e := idx.Entries[0]
	assert.Equal(t, "hello.go", e.Name)
	assert.Equal(t, id, e.Id)
	assert.Equal(t, filemode.Regular, e.Mode)
	assert.Equal(t, Merged, e.Stage)
}

func TestDecodeMultipleEntriesAndExtendedFlags(t *testing.T) {
	idA, _ := plumbing.FromHex("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	idB, _ := plumbing.FromHex("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	var buf bytes.Buffer
	buf.Write(indexSignature)
	gitbinary.WriteUint32(&buf, 2)
	gitbinary.WriteUint32(&buf, 2)
	buildEntry(&buf, idA, filemode.Regular, "a.txt", uint16(len("a.txt")))
	buildExtendedEntry(&buf, idB, filemode.Executable, "b.go", intentToAddMask)

	idx, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, idx.Entries, 2)
	assert.Equal(t, "a.txt", idx.Entries[0].Name)

	b := idx.Entries[1]
	assert.Equal(t, "b.go", b.Name)
	assert.Equal(t, filemode.Executable, b.Mode)
	assert.True(t, b.IntentToAdd)
}

func TestDecodeRejectsBadSignature(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("XXXX")
	gitbinary.WriteUint32(&buf, 2)
	gitbinary.WriteUint32(&buf, 0)

	_, err := Decode(&buf)
	assert.ErrorIs(t, err, ErrMalformedSignature)
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(indexSignature)
	gitbinary.WriteUint32(&buf, 4)
	gitbinary.WriteUint32(&buf, 0)

	_, err := Decode(&buf)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}
