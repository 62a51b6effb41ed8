package filesystem

import (
	"os"

	billy "github.com/go-git/go-billy/v5"

	"github.com/vcsobj/gitcore/plumbing"
)

const indexLockPath = "index.lock"

// RepositoryLock is the repository-wide lock (index.lock) that must be
// held before mutating refs or writing the staging index, per spec.md
// §5. Acquisition is exclusive-create: a pre-existing lock file means
// another writer holds it. The pack writer deliberately does not use
// this lock (pack files are content-addressed and self-contained).
type RepositoryLock struct {
	fs billy.Filesystem
	f  billy.File
}

// AcquireLock creates index.lock exclusively, failing with
// plumbing.ErrConflict if it already exists.
func AcquireLock(fs billy.Filesystem) (*RepositoryLock, error) {
	f, err := fs.OpenFile(indexLockPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		if os.IsExist(err) {
			return nil, plumbing.NewError(plumbing.KindConflict, err).WithPath(indexLockPath)
		}
		return nil, err
	}
	return &RepositoryLock{fs: fs, f: f}, nil
}

// Release removes the lock file. Safe to call once after the guarded
// mutation completes, whether it succeeded or failed; the caller should
// defer this immediately after AcquireLock returns successfully so the
// lock is released even on an error path (a guaranteed-release block, per
// spec.md §5).
func (l *RepositoryLock) Release() error {
	if err := l.f.Close(); err != nil {
		return err
	}
	return l.fs.Remove(indexLockPath)
}
