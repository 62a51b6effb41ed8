package filesystem

import (
	"fmt"
	"os"

	"github.com/go-git/gcfg"

	"github.com/vcsobj/gitcore/plumbing"
)

// Config is the subset of the git config file the core reads (spec.md
// §6): the repository-format version and bare flag, plus the four
// extensions whose presence signals a feature this core doesn't
// implement and must therefore refuse to open.
type Config struct {
	Core struct {
		RepositoryFormatVersion int  `gcfg:"repositoryformatversion"`
		Bare                    bool `gcfg:"bare"`
	}
	Extensions struct {
		ObjectFormat   string `gcfg:"objectformat"`
		RefStorage     string `gcfg:"refstorage"`
		WorktreeConfig string `gcfg:"worktreeconfig"`
		PartialClone   string `gcfg:"partialclone"`
	}
}

// ReadConfig reads and parses the repository's config file. A missing
// config file is not an error: it returns the zero Config (repo format
// version 0, no extensions), matching a freshly initialized repository.
func ReadConfig(dir *DotGit) (*Config, error) {
	cfg := &Config{}

	f, err := dir.Config()
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()

	if err := gcfg.FatalOnly(gcfg.ReadInto(cfg, f)); err != nil {
		return nil, plumbing.NewError(plumbing.KindCorrupt, err).WithPath(configPath)
	}
	return cfg, nil
}

// Validate rejects any repository feature outside the supported set,
// per spec.md §4.1 / §6. Every rejection is KindUnsupported and names the
// offending feature, since these are fatal at Open time with a
// descriptive message.
func (c *Config) Validate() error {
	if c.Core.RepositoryFormatVersion != 0 && c.Core.RepositoryFormatVersion != 1 {
		return unsupported("core.repositoryformatversion", c.Core.RepositoryFormatVersion)
	}
	if c.Extensions.ObjectFormat != "" && c.Extensions.ObjectFormat != "sha1" {
		return unsupported("extensions.objectformat", c.Extensions.ObjectFormat)
	}
	if c.Extensions.RefStorage != "" {
		return unsupported("extensions.refstorage", c.Extensions.RefStorage)
	}
	if c.Extensions.WorktreeConfig != "" {
		return unsupported("extensions.worktreeconfig", c.Extensions.WorktreeConfig)
	}
	if c.Extensions.PartialClone != "" {
		return unsupported("extensions.partialclone", c.Extensions.PartialClone)
	}
	return nil
}

func unsupported(feature string, value interface{}) error {
	return plumbing.NewError(plumbing.KindUnsupported,
		fmt.Errorf("repository feature not supported: %s=%v", feature, value))
}
