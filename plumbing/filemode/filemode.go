// Package filemode defines the handful of Unix-style mode values Git
// assigns to tree entries, and their canonical ASCII octal spellings.
package filemode

import (
	"fmt"
	"os"
	"strconv"
)

// FileMode represents the mode of a tree entry, as a subset of Unix
// permission bits plus the object-kind bits Git overlays on top of them.
type FileMode uint32

const (
	Empty      FileMode = 0
	Dir        FileMode = 0o40000
	Regular    FileMode = 0o100644
	Deprecated FileMode = 0o100664
	Executable FileMode = 0o100755
	Symlink    FileMode = 0o120000
	Submodule  FileMode = 0o160000
)

// New parses the ASCII octal spelling of a mode, as found in a tree entry
// ("40000", "100644", ...). Leading zeros and odd lengths are tolerated,
// matching what "git diff-tree" and similar tools sometimes emit, but a
// non-octal string is rejected.
func New(s string) (FileMode, error) {
	if s == "" {
		return Empty, fmt.Errorf("filemode: empty mode string")
	}

	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return Empty, fmt.Errorf("filemode: invalid mode %q: %w", s, err)
	}
	return FileMode(n), nil
}

// NewFromOSFileMode translates a Go os.FileMode into the closest Git
// FileMode: directories become Dir, symlinks become Symlink, executable
// regular files become Executable, everything else regular becomes
// Regular.
func NewFromOSFileMode(m os.FileMode) (FileMode, error) {
	switch {
	case m.IsDir():
		return Dir, nil
	case m&os.ModeSymlink != 0:
		return Symlink, nil
	case m.IsRegular():
		if m&0o111 != 0 {
			return Executable, nil
		}
		return Regular, nil
	default:
		return Empty, fmt.Errorf("filemode: unsupported os.FileMode %s", m)
	}
}

// IsMalformed reports whether m is not one of the six modes Git itself
// ever writes into a tree.
func (m FileMode) IsMalformed() bool {
	switch m {
	case Dir, Regular, Deprecated, Executable, Symlink, Submodule:
		return false
	default:
		return true
	}
}

// IsFile reports whether m addresses blob content (regular or symlink),
// as opposed to a subtree or a submodule gitlink.
func (m FileMode) IsFile() bool {
	switch m {
	case Regular, Deprecated, Executable, Symlink:
		return true
	default:
		return false
	}
}

// String renders the canonical tree-entry spelling: six digits for any
// file mode ("100644", "100755", "120000"), five for a directory
// ("40000"), as required by spec.md §4.9's canonicalization rule.
func (m FileMode) String() string {
	switch m {
	case Dir:
		return "40000"
	case Submodule:
		return "160000"
	default:
		return fmt.Sprintf("%06o", uint32(m))
	}
}
