package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	billy "github.com/go-git/go-billy/v5"

	"github.com/vcsobj/gitcore/cache"
	"github.com/vcsobj/gitcore/plumbing"
	"github.com/vcsobj/gitcore/plumbing/format/commitgraph"
	"github.com/vcsobj/gitcore/plumbing/format/idxfile"
	"github.com/vcsobj/gitcore/plumbing/format/index"
	"github.com/vcsobj/gitcore/plumbing/format/objfile"
	"github.com/vcsobj/gitcore/plumbing/format/packfile"
)

const reftablePath = "reftable"

// Storage is the Object Resolver (spec.md §4.1) for one on-disk
// repository directory. It snapshots the set of known packs at
// construction time, per spec.md §5's ordering guarantee: a pack written
// by this process after Open becomes visible only through a fresh Open
// (or an explicit AddPack), never retroactively to an already-open
// Storage.
type Storage struct {
	dir   *DotGit
	Refs  *ReferenceStorage
	cache cache.Object
	bufs  cache.Buffer

	mu       sync.RWMutex
	packs    []string // hex checksums, snapshot order
	indices  map[string]idxfile.Index
	midx     *idxfile.MultiPackIndex
	graph    commitgraph.Index
	packFile map[string]billy.File
}

// Open validates the repository's feature set and builds a Storage ready
// for lookups. Unsupported features are reported as plumbing.ErrUnsupported
// and are fatal: the caller should not retry.
func Open(fs billy.Filesystem) (*Storage, error) {
	dir := New(fs)

	cfg, err := ReadConfig(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if has, err := dir.HasAlternates(); err != nil {
		return nil, err
	} else if has {
		return nil, plumbing.NewError(plumbing.KindUnsupported,
			errUnsupportedFeature("objects/info/alternates")).WithPath(alternatesPath)
	}

	if _, err := fs.Stat(reftablePath); err == nil {
		return nil, plumbing.NewError(plumbing.KindUnsupported,
			errUnsupportedFeature("reftable reference storage")).WithPath(reftablePath)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	s := &Storage{
		dir:      dir,
		Refs:     NewReferenceStorage(dir),
		cache:    cache.NewObjectLRUDefault(),
		bufs:     cache.NewBufferLRUDefault(),
		indices:  make(map[string]idxfile.Index),
		packFile: make(map[string]billy.File),
	}

	if err := s.loadPacks(); err != nil {
		return nil, err
	}

	if midx, err := dir.MultiPackIndex(); err != nil {
		return nil, err
	} else {
		s.midx = midx
	}

	if graph, err := dir.CommitGraph(); err != nil {
		return nil, err
	} else {
		s.graph = graph
	}

	return s, nil
}

func errUnsupportedFeature(name string) error {
	return fmt.Errorf("repository feature not supported: %s", name)
}

func (s *Storage) loadPacks() error {
	packs, err := s.dir.ObjectPacks()
	if err != nil {
		return err
	}

	for _, hex := range packs {
		f, err := s.dir.ObjectPackIdx(hex)
		if err != nil {
			return err
		}
		idx, err := idxfile.Decode(f)
		cerr := f.Close()
		if err != nil {
			return err
		}
		if cerr != nil {
			return cerr
		}

		s.indices[hex] = idx
		s.packs = append(s.packs, hex)
	}

	return nil
}

// CommitGraph returns the repository's commit-graph accelerator, or nil
// if none is present.
func (s *Storage) CommitGraph() commitgraph.Index {
	return s.graph
}

// Filesystem returns the billy filesystem this Storage was opened
// against, for callers that need to reach repository files Storage
// itself doesn't decode (e.g. the staging index).
func (s *Storage) Filesystem() billy.Filesystem {
	return s.dir.Filesystem()
}

// Index decodes the repository's staging file, if present.
func (s *Storage) Index() (*index.Index, error) {
	return s.dir.Index()
}

// Get resolves id to its materialized type and decoded bytes, walking the
// lookup order cache, loose, each pack, multi-pack index, not-found. An
// error decoding the object out of a pack is returned at once rather than
// skipped in favour of the remaining packs. The LFS spillover directory is
// not consulted.
func (s *Storage) Get(id plumbing.Id) (plumbing.ObjectType, []byte, error) {
	if e, ok := s.cache.Get(id); ok {
		return e.Type, e.Content, nil
	}

	if t, b, err := s.getLoose(id); err == nil {
		s.cache.Put(cache.Entry{Id: id, Type: t, Content: b})
		return t, b, nil
	} else if !isNotFound(err) {
		return 0, nil, err
	}

	if t, b, err := s.getFromPacks(id); err == nil {
		s.cache.Put(cache.Entry{Id: id, Type: t, Content: b})
		return t, b, nil
	} else if !isNotFound(err) {
		return 0, nil, err
	}

	if t, b, err := s.getFromMultiPack(id); err == nil {
		s.cache.Put(cache.Entry{Id: id, Type: t, Content: b})
		return t, b, nil
	} else if !isNotFound(err) {
		return 0, nil, err
	}

	return 0, nil, plumbing.ErrNotFound.WithId(id)
}

// Has reports whether id is resolvable, without materializing its
// content - used by callers that only need an existence check (e.g.
// validating a caller-supplied full-length hex id before trusting it).
func (s *Storage) Has(id plumbing.Id) (bool, error) {
	if _, _, err := s.Get(id); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetType resolves id and additionally verifies it has the requested
// type, per spec.md §4.1's "type mismatch is a fatal error".
func (s *Storage) GetType(t plumbing.ObjectType, id plumbing.Id) ([]byte, error) {
	got, b, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if t != plumbing.AnyObject && got != t {
		return nil, plumbing.ErrTypeMismatch.WithId(id)
	}
	return b, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, plumbing.ErrNotFound)
}

func (s *Storage) getLoose(id plumbing.Id) (plumbing.ObjectType, []byte, error) {
	f, err := s.dir.Object(id)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	r, err := objfile.NewReader(f)
	if err != nil {
		return 0, nil, plumbing.NewError(plumbing.KindCorrupt, err).WithId(id)
	}
	defer r.Close()

	t, _, err := r.Header()
	if err != nil {
		return 0, nil, plumbing.NewError(plumbing.KindCorrupt, err).WithId(id)
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return 0, nil, plumbing.NewError(plumbing.KindCorrupt, err).WithId(id)
	}
	return t, b, nil
}

func (s *Storage) getFromPacks(id plumbing.Id) (plumbing.ObjectType, []byte, error) {
	s.mu.RLock()
	packs := s.packs
	s.mu.RUnlock()

	for _, hex := range packs {
		s.mu.RLock()
		idx := s.indices[hex]
		s.mu.RUnlock()

		offset, ok := idx.FindOffset(id)
		if !ok {
			continue
		}

		ra, err := s.packReaderAt(hex)
		if err != nil {
			return 0, nil, err
		}

		t, b, err := packfile.ReadObjectAt(ra, offset, s.resolveBase(hex, idx, ra))
		if err != nil {
			return 0, nil, plumbing.NewError(plumbing.KindCorrupt, err).WithId(id).WithOffset(offset)
		}
		return t, b, nil
	}

	return 0, nil, plumbing.ErrNotFound.WithId(id)
}

func (s *Storage) getFromMultiPack(id plumbing.Id) (plumbing.ObjectType, []byte, error) {
	if s.midx == nil {
		return 0, nil, plumbing.ErrNotFound.WithId(id)
	}

	hex, offset, ok := s.midx.FindPack(id)
	if !ok {
		return 0, nil, plumbing.ErrNotFound.WithId(id)
	}

	ra, err := s.packReaderAt(hex)
	if err != nil {
		return 0, nil, err
	}

	idx := s.midx.MemoryIndex
	t, b, err := packfile.ReadObjectAt(ra, offset, s.resolveBase(hex, idx, ra))
	if err != nil {
		return 0, nil, plumbing.NewError(plumbing.KindCorrupt, err).WithId(id).WithOffset(offset)
	}
	return t, b, nil
}

// resolveBase builds the ResolveBaseFunc packfile.ReadObjectAt needs to
// materialize a delta base. Delta chains in a well-formed pack share
// bases across many entries (a whole file's history of deltas all chains
// to one ancestor), so the same offset is re-resolved often within a
// single resolver's lifetime; this checks the object cache by id first
// (FindId is an O(1) reverse lookup already built into the index). Each
// base it decodes is also stored in the raw-bytes buffer cache, keyed by
// pack offset, but that cache is not read here: a base whose offset has no
// id in the index is decoded again every time it is needed.
func (s *Storage) resolveBase(hex string, idx idxfile.Index, ra io.ReaderAt) packfile.ResolveBaseFunc {
	var resolve packfile.ResolveBaseFunc
	resolve = func(offset int64, id plumbing.Id) (plumbing.ObjectType, []byte, error) {
		baseId, haveId := idx.FindId(offset)
		if haveId {
			if e, ok := s.cache.Get(baseId); ok {
				return e.Type, e.Content, nil
			}
		}

		t, b, err := packfile.ReadObjectAt(ra, offset, resolve)
		if err != nil {
			return 0, nil, err
		}

		s.bufs.Put(offset, b)
		if haveId {
			s.cache.Put(cache.Entry{Id: baseId, Type: t, Content: b})
		}
		return t, b, nil
	}
	return resolve
}

func (s *Storage) packReaderAt(hex string) (io.ReaderAt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.packFile[hex]; ok {
		return f, nil
	}

	f, err := s.dir.ObjectPack(hex)
	if err != nil {
		return nil, err
	}
	s.packFile[hex] = f
	return f, nil
}

// ResolvePrefix resolves an abbreviated hex id to the single matching
// full id, across loose objects, every pack index, and the multi-pack
// index. Fewer than 4 hex characters is rejected outright; more than one
// total match is plumbing.ErrAmbiguous.
func (s *Storage) ResolvePrefix(hexPrefix string) (plumbing.Id, error) {
	if len(hexPrefix) < 4 {
		return plumbing.ZeroId, plumbing.NewError(plumbing.KindCorrupt,
			fmt.Errorf("abbreviated id must be at least 4 hex characters")).WithPath(hexPrefix)
	}

	seen := make(map[plumbing.Id]struct{})

	loose, err := s.dir.Objects()
	if err != nil {
		return plumbing.ZeroId, err
	}
	for _, id := range loose {
		if id.HasHexPrefix(hexPrefix) {
			seen[id] = struct{}{}
		}
	}

	s.mu.RLock()
	indices := make([]idxfile.Index, 0, len(s.indices)+1)
	for _, idx := range s.indices {
		indices = append(indices, idx)
	}
	if s.midx != nil {
		indices = append(indices, s.midx)
	}
	s.mu.RUnlock()

	for _, idx := range indices {
		for _, id := range idx.FindHexPrefix(hexPrefix) {
			seen[id] = struct{}{}
		}
	}

	switch len(seen) {
	case 0:
		return plumbing.ZeroId, plumbing.ErrNotFound.WithPath(hexPrefix)
	case 1:
		for id := range seen {
			return id, nil
		}
	}
	return plumbing.ZeroId, plumbing.ErrAmbiguous.WithPath(hexPrefix)
}

// AddPack registers a pack that this process just finished writing,
// keyed by its checksum, into the live index set without a full Open
// rescan - the explicit AddPack the Storage doc comment mentions. The new pack's objects become resolvable through this same
// Storage immediately; packs written by any other process still wait for
// a fresh Open, per spec.md §5.
func (s *Storage) AddPack(checksum plumbing.Id, idx *idxfile.MemoryIndex) {
	hex := checksum.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indices[hex]; ok {
		return
	}
	s.indices[hex] = idx
	s.packs = append(s.packs, hex)
}

// Close releases every open pack file descriptor.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for hex, f := range s.packFile {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.packFile, hex)
	}
	return firstErr
}
