package filesystem

import (
	"fmt"
	"os"
	"runtime"

	billy "github.com/go-git/go-billy/v5"

	"github.com/vcsobj/gitcore/plumbing"
	"github.com/vcsobj/gitcore/plumbing/format/idxfile"
	"github.com/vcsobj/gitcore/plumbing/format/objfile"
	"github.com/vcsobj/gitcore/plumbing/format/packfile"
)

// ObjectWriter writes one loose object to a temp file under objects/pack/
// and atomically renames it into place on Close, so a reader never
// observes a partially written loose object (spec.md §5's atomic-rename
// ordering guarantee, applied to the loose side as well as the pack
// side).
type ObjectWriter struct {
	*objfile.Writer

	fs billy.Filesystem
	f  billy.File
}

// NewObjectWriter begins a new loose-object write. The caller must call
// WriteHeader before writing content, then Close to finalize.
func NewObjectWriter(fs billy.Filesystem) (*ObjectWriter, error) {
	f, err := fs.TempFile(fs.Join(objectsPath, packPath), "tmp_obj_")
	if err != nil {
		return nil, err
	}

	return &ObjectWriter{
		Writer: objfile.NewWriter(f),
		fs:     fs,
		f:      f,
	}, nil
}

// Close finalizes the object: flushes the zlib stream, closes the temp
// file, and renames it to objects/<xx>/<rest> under the id just computed
// from the written bytes.
func (w *ObjectWriter) Close() error {
	if err := w.Writer.Close(); err != nil {
		return err
	}
	if err := w.f.Close(); err != nil {
		return err
	}

	id := w.Writer.Hash()
	hex := id.String()
	path := w.fs.Join(objectsPath, hex[0:2], hex[2:])

	if err := w.fs.Rename(w.f.Name(), path); err != nil {
		return err
	}
	fixPermissions(w.fs, path)
	return nil
}

// PackWriter accumulates entries in memory (the Commit Builder's typical
// batch: one commit, its touched trees, and any new blobs) and, on
// Finish, encodes them as a single pack plus matching index to a temp
// name, then atomically renames both into place. Unlike the loose-object
// writer, no repository lock is required: pack files are content-
// addressed and a concurrent writer's final name only collides when the
// bytes are identical (spec.md §5).
type PackWriter struct {
	fs      billy.Filesystem
	entries []packfile.EntryToPack
}

// NewPackWriter returns a PackWriter that will encode entries to fs on
// Finish.
func NewPackWriter(fs billy.Filesystem) *PackWriter {
	return &PackWriter{fs: fs}
}

// Add queues one object for the pack being built.
func (w *PackWriter) Add(entry packfile.EntryToPack) {
	w.entries = append(w.entries, entry)
}

// Finish encodes the queued entries, writes pack + idx to temp files, and
// renames both into objects/pack/. It returns the pack's checksum (also
// its filename component) and the resulting index, ready to be merged
// into a resolver's in-memory index set without a rescan.
func (w *PackWriter) Finish() (plumbing.Id, *idxfile.MemoryIndex, error) {
	fw, err := w.fs.TempFile(w.fs.Join(objectsPath, packPath), "tmp_pack_")
	if err != nil {
		return plumbing.ZeroId, nil, err
	}

	enc := packfile.NewEncoder(fw)
	checksum, offsets, crcs, err := enc.Encode(w.entries)
	if err != nil {
		_ = fw.Close()
		_ = w.fs.Remove(fw.Name())
		return plumbing.ZeroId, nil, err
	}
	if err := fw.Close(); err != nil {
		return plumbing.ZeroId, nil, err
	}

	var b idxfile.Builder
	for _, e := range w.entries {
		b.Add(e.Id, offsets[e.Id], crcs[e.Id])
	}
	idx := b.Build(checksum)

	base := w.fs.Join(objectsPath, packPath, fmt.Sprintf("pack-%s", checksum))

	idxFile, err := w.fs.TempFile(w.fs.Join(objectsPath, packPath), "tmp_idx_")
	if err != nil {
		return plumbing.ZeroId, nil, err
	}
	if _, err := idxfile.Encode(idxFile, idx); err != nil {
		_ = idxFile.Close()
		return plumbing.ZeroId, nil, err
	}
	if err := idxFile.Close(); err != nil {
		return plumbing.ZeroId, nil, err
	}
	if err := w.fs.Rename(idxFile.Name(), base+idxExt); err != nil {
		return plumbing.ZeroId, nil, err
	}
	fixPermissions(w.fs, base+idxExt)

	if err := w.fs.Rename(fw.Name(), base+packExt); err != nil {
		return plumbing.ZeroId, nil, err
	}
	fixPermissions(w.fs, base+packExt)

	return checksum, idx, nil
}

func fixPermissions(fs billy.Filesystem, path string) {
	if runtime.GOOS == "windows" {
		return
	}

	type chmoder interface {
		Chmod(name string, mode os.FileMode) error
	}
	if c, ok := fs.(chmoder); ok {
		_ = c.Chmod(path, 0o444)
	}
}
