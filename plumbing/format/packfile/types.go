package packfile

import (
	"bytes"

	"github.com/vcsobj/gitcore/plumbing"
)

// Section identifies which part of the pack stream the most recent Scan()
// call produced, mirroring spec.md §4.3's "sequential scanner" shape.
type Section int

const (
	// HeaderSection is produced exactly once, before any objects.
	HeaderSection Section = iota
	// ObjectSection is produced once per object entry.
	ObjectSection
	// FooterSection is produced exactly once, after the last object.
	FooterSection
)

// Header is the version and object count that follow the "PACK" signature
// in the pack file's 12-byte preamble.
type Header struct {
	Version    uint32
	ObjectsQty uint32
}

// ObjectHeader describes one object entry's framing: its pack offset, wire
// type (possibly a delta type), declared inflated size, and - for delta
// entries - the base reference, plus the already-inflated content.
type ObjectHeader struct {
	Offset        int64
	Type          plumbing.ObjectType
	Size          int64
	ContentOffset int64
	Crc32         uint32

	// OffsetReference is set for OFS_DELTA entries: the pack offset of the
	// base object, computed from the back-offset encoding.
	OffsetReference int64
	// Reference is set for REF_DELTA entries: the id of the base object.
	Reference plumbing.Id

	// Hash is set for non-delta entries once their content has been
	// streamed through the object hasher.
	Hash plumbing.Id

	content *bytes.Buffer
}

// Content returns the object's inflated bytes. For non-delta objects this
// is the final object content; for delta objects it is the raw delta
// instruction stream, not yet applied to a base.
func (oh *ObjectHeader) Content() []byte {
	if oh.content == nil {
		return nil
	}
	if oh.content.Len() == 0 {
		return []byte{}
	}
	return oh.content.Bytes()
}

// PackData is the value produced by one Scan() call; exactly one of
// header/objectHeader/checksum is meaningful, selected by Section.
type PackData struct {
	Section Section

	header       Header
	objectHeader ObjectHeader
	checksum     plumbing.Id
}

// HeaderData returns the parsed pack header. Only valid when Section ==
// HeaderSection.
func (d PackData) HeaderData() Header { return d.header }

// ObjectHeaderData returns the parsed object entry. Only valid when Section ==
// ObjectSection.
func (d PackData) ObjectHeaderData() ObjectHeader { return d.objectHeader }

// Checksum returns the pack's trailing SHA-1. Only valid when Section ==
// FooterSection.
func (d PackData) Checksum() plumbing.Id { return d.checksum }
