// Package filesystem implements the on-disk repository layout consumed by
// the core: HEAD, config, refs/ and packed-refs, loose objects under
// objects/, packs under objects/pack/, the optional multi-pack-index and
// commit-graph, and an LFS spillover tree. See dotgit.go for the layout
// scan, refs.go for reference storage, writers.go for the atomic
// loose-object and pack writers, and config.go for the config subset.
package filesystem

import (
	"fmt"
	"os"
	"strings"

	billy "github.com/go-git/go-billy/v5"

	"github.com/vcsobj/gitcore/plumbing"
	"github.com/vcsobj/gitcore/plumbing/format/commitgraph"
	"github.com/vcsobj/gitcore/plumbing/format/idxfile"
	gitindex "github.com/vcsobj/gitcore/plumbing/format/index"
)

const (
	objectsPath = "objects"
	packPath    = "pack"
	infoPath    = "info"

	packExt = ".pack"
	idxExt  = ".idx"

	packedRefsPath     = "packed-refs"
	configPath         = "config"
	refsPath           = "refs"
	multiPackIndexPath = "objects/pack/multi-pack-index"
	alternatesPath     = "objects/info/alternates"
	lfsObjectsPath     = "lfs/objects"
	indexPath          = "index"
)

// DotGit scans and mutates a single repository directory in the standard
// on-disk layout (spec.md §6). It holds no state beyond the filesystem
// handle: every call re-reads from disk, since the resolver that owns a
// DotGit is expected to snapshot whatever it needs at construction time.
type DotGit struct {
	fs billy.Filesystem
}

// New returns a DotGit rooted at fs, which must already point at the
// repository directory (the ".git" directory for a non-bare repository).
func New(fs billy.Filesystem) *DotGit {
	return &DotGit{fs: fs}
}

// Filesystem returns the underlying billy filesystem, for callers that
// need to open files DotGit doesn't expose directly (e.g. index.lock).
func (d *DotGit) Filesystem() billy.Filesystem {
	return d.fs
}

// Config opens the repository's config file for reading.
func (d *DotGit) Config() (billy.File, error) {
	return d.fs.Open(configPath)
}

// ConfigWriter truncates (or creates) the config file for writing.
func (d *DotGit) ConfigWriter() (billy.File, error) {
	return d.fs.Create(configPath)
}

// HasAlternates reports whether objects/info/alternates is present. The
// core does not support alternates (spec.md §4.1's feature-validation
// list); Open-time validation uses this to fail fast with a descriptive
// error rather than silently ignoring objects it can't see.
func (d *DotGit) HasAlternates() (bool, error) {
	_, err := d.fs.Stat(alternatesPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Objects returns the ids of every loose object under objects/<xx>/<rest>.
func (d *DotGit) Objects() ([]plumbing.Id, error) {
	dirs, err := d.fs.ReadDir(objectsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []plumbing.Id
	for _, dir := range dirs {
		if !dir.IsDir() || len(dir.Name()) != 2 || !isHex(dir.Name()) {
			continue
		}

		prefix := dir.Name()
		entries, err := d.fs.ReadDir(d.fs.Join(objectsPath, prefix))
		if err != nil {
			return nil, err
		}

		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			id, ok := plumbing.FromHex(prefix + e.Name())
			if !ok {
				continue
			}
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// Object opens the loose object file for id, if one exists.
func (d *DotGit) Object(id plumbing.Id) (billy.File, error) {
	hex := id.String()
	path := d.fs.Join(objectsPath, hex[0:2], hex[2:])
	f, err := d.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, plumbing.ErrNotFound.WithId(id).WithPath(path)
		}
		return nil, err
	}
	return f, nil
}

// ObjectPath returns the loose-object path for id without opening it, for
// callers building a temp-file-then-rename sequence (writers.go).
func (d *DotGit) ObjectPath(id plumbing.Id) string {
	hex := id.String()
	return d.fs.Join(objectsPath, hex[0:2], hex[2:])
}

// ObjectPacks returns the hex checksum of every pack under objects/pack,
// derived from the "pack-<hex>.pack" filename.
func (d *DotGit) ObjectPacks() ([]string, error) {
	dir := d.fs.Join(objectsPath, packPath)
	entries, err := d.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var packs []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "pack-") || !strings.HasSuffix(name, packExt) {
			continue
		}
		packs = append(packs, name[len("pack-"):len(name)-len(packExt)])
	}
	return packs, nil
}

// ObjectPack opens the pack file for the given hex checksum.
func (d *DotGit) ObjectPack(hex string) (billy.File, error) {
	return d.openPackFile(hex, packExt)
}

// ObjectPackIdx opens the index file for the given hex checksum.
func (d *DotGit) ObjectPackIdx(hex string) (billy.File, error) {
	return d.openPackFile(hex, idxExt)
}

func (d *DotGit) openPackFile(hex, ext string) (billy.File, error) {
	path := d.fs.Join(objectsPath, packPath, fmt.Sprintf("pack-%s%s", hex, ext))
	f, err := d.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, plumbing.NewError(plumbing.KindNotFound, err).WithPath(path)
		}
		return nil, err
	}
	return f, nil
}

// MultiPackIndex opens objects/pack/multi-pack-index, if present, and
// decodes it into an idxfile.MultiPackIndex.
func (d *DotGit) MultiPackIndex() (*idxfile.MultiPackIndex, error) {
	f, err := d.fs.Open(multiPackIndexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	return idxfile.DecodeMultiPackIndex(f)
}

// CommitGraph opens the commit-graph chain or single file under
// objects/info/, if present.
func (d *DotGit) CommitGraph() (commitgraph.Index, error) {
	idx, err := commitgraph.OpenChainOrFileIndex(d.fs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return idx, nil
}

// Index decodes the repository's staging file, if present. A repository
// that has never been checked out (e.g. one this core itself created
// through the Commit Builder alone) has no index file at all, which is
// reported as a nil Index rather than an error.
func (d *DotGit) Index() (*gitindex.Index, error) {
	f, err := d.fs.Open(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	return gitindex.Decode(f)
}

// LFSObject opens the spillover file for an LFS-stored blob: the naming
// convention is <objects-root>/<xx>/<yy>/<hex> keyed by the full content
// hash the LFS pointer names, not the git blob id.
func (d *DotGit) LFSObject(hex string) (billy.File, error) {
	if len(hex) < 4 {
		return nil, fmt.Errorf("filesystem: malformed LFS object hash %q", hex)
	}
	path := d.fs.Join(lfsObjectsPath, hex[0:2], hex[2:4], hex)
	f, err := d.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, plumbing.NewError(plumbing.KindNotFound, err).WithPath(path)
		}
		return nil, err
	}
	return f, nil
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b >= '0' && b <= '9':
		case b >= 'a' && b <= 'f':
		case b >= 'A' && b <= 'F':
		default:
			return false
		}
	}
	return true
}
