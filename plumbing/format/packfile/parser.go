package packfile

import (
	"fmt"
	"io"

	"github.com/vcsobj/gitcore/plumbing"
)

// ErrReferenceDeltaNotFound is returned when a REF_DELTA's base object is
// not present in the pack being parsed (a "thin" pack, not supported by
// this parser - thin-pack completion happens before Parse runs, not during
// it).
var ErrReferenceDeltaNotFound = fmt.Errorf("packfile: reference delta base not found in pack")

// ResolvedObject is a fully inflated object produced by Parse: for
// non-delta entries this is the scanner's own output; for delta entries it
// is the result of walking the delta chain down to its non-delta base and
// applying each instruction stream in turn.
type ResolvedObject struct {
	Id      plumbing.Id
	Type    plumbing.ObjectType
	Size    int64
	Offset  int64
	Crc32   uint32
	Content []byte
}

// Parse decodes every object in the pack read by r, resolving OFS_DELTA and
// REF_DELTA entries against the other objects in the same pack. It
// implements spec.md §4.3's full-pack decode path: the result set gives
// the Pack Writer/Indexer everything needed to build a .idx (id, offset,
// CRC32) without re-scanning the pack.
//
// Pending deltas are resolved in repeated passes: each pass first resolves
// every OFS_DELTA whose base offset is already resolved, then every
// REF_DELTA whose base id is. A REF_DELTA may name a base listed further on
// in the pack, and an OFS_DELTA may sit on top of such an entry, so passes
// continue until nothing is pending or a pass makes no progress.
func Parse(r io.Reader) (checksum plumbing.Id, objects []ResolvedObject, err error) {
	s := NewScanner(r)

	var count int
	byOffset := make(map[int64]*ResolvedObject)
	byId := make(map[plumbing.Id]*ResolvedObject)
	var pendingOfs []ObjectHeader
	var pendingRef []ObjectHeader

	for s.Scan() {
		d := s.Data()
		switch d.Section {
		case HeaderSection:
			count = int(d.HeaderData().ObjectsQty)
			objects = make([]ResolvedObject, 0, count)
		case ObjectSection:
			oh := d.ObjectHeaderData()
			switch oh.Type {
			case plumbing.OfsDeltaObject:
				pendingOfs = append(pendingOfs, oh)
			case plumbing.RefDeltaObject:
				pendingRef = append(pendingRef, oh)
			default:
				ro := ResolvedObject{
					Id: oh.Hash, Type: oh.Type, Size: oh.Size,
					Offset: oh.Offset, Crc32: oh.Crc32, Content: oh.Content(),
				}
				objects = append(objects, ro)
				byOffset[oh.Offset] = &objects[len(objects)-1]
				byId[oh.Hash] = &objects[len(objects)-1]
			}
		case FooterSection:
			checksum = d.Checksum()
		}
	}
	if err := s.Error(); err != nil {
		return plumbing.ZeroId, nil, err
	}
	if count == 0 {
		return checksum, objects, nil
	}

	resolve := func(oh ObjectHeader, base *ResolvedObject) {
		target, perr := PatchDelta(base.Content, oh.Content())
		if perr != nil {
			err = fmt.Errorf("resolving delta at offset %d: %w", oh.Offset, perr)
			return
		}
		id := plumbing.HashObject(base.Type, target)
		objects = append(objects, ResolvedObject{
			Id: id, Type: base.Type, Size: int64(len(target)),
			Offset: oh.Offset, Crc32: oh.Crc32, Content: target,
		})
		byOffset[oh.Offset] = &objects[len(objects)-1]
		byId[id] = &objects[len(objects)-1]
	}

	// Resolve deltas by repeated passes over whatever is still pending,
	// rather than assuming REF_DELTA bases always precede OFS_DELTA ones
	// or vice versa: a delta may target an object that is itself still an
	// unresolved delta in the other list. Each pass resolves everything
	// whose base has become available; the chain-depth bound (spec.md
	// §4.7) guarantees this converges in at most that many passes.
	for len(pendingOfs) > 0 || len(pendingRef) > 0 {
		progressed := false

		var stillOfs []ObjectHeader
		for _, oh := range pendingOfs {
			base, ok := byOffset[oh.OffsetReference]
			if !ok {
				stillOfs = append(stillOfs, oh)
				continue
			}
			resolve(oh, base)
			if err != nil {
				return plumbing.ZeroId, nil, err
			}
			progressed = true
		}
		pendingOfs = stillOfs

		var stillRef []ObjectHeader
		for _, oh := range pendingRef {
			base, ok := byId[oh.Reference]
			if !ok {
				stillRef = append(stillRef, oh)
				continue
			}
			resolve(oh, base)
			if err != nil {
				return plumbing.ZeroId, nil, err
			}
			progressed = true
		}
		pendingRef = stillRef

		if !progressed {
			return plumbing.ZeroId, nil, ErrReferenceDeltaNotFound
		}
	}

	return checksum, objects, nil
}
