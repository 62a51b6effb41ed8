package filesystem

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	billyutil "github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcsobj/gitcore/plumbing"
)

func TestReadConfigMissingFileIsZeroValue(t *testing.T) {
	fs := memfs.New()
	dir := New(fs)

	cfg, err := ReadConfig(dir)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidateAccepts(t *testing.T) {
	fs := memfs.New()
	dir := New(fs)

	body := "[core]\n\trepositoryformatversion = 1\n\tbare = false\n"
	require.NoError(t, billyutil.WriteFile(fs, configPath, []byte(body), 0644))

	cfg, err := ReadConfig(dir)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Core.RepositoryFormatVersion)
}

func TestConfigValidateRejectsUnsupportedFeatures(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"repo format version", "[core]\n\trepositoryformatversion = 2\n"},
		{"object format", "[extensions]\n\tobjectformat = sha256\n"},
		{"ref storage", "[extensions]\n\trefstorage = reftable\n"},
		{"worktree config", "[extensions]\n\tworktreeconfig = true\n"},
		{"partial clone", "[extensions]\n\tpartialclone = origin\n"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fs := memfs.New()
			dir := New(fs)
			require.NoError(t, billyutil.WriteFile(fs, configPath, []byte(c.body), 0644))

			cfg, err := ReadConfig(dir)
			require.NoError(t, err)
			err = cfg.Validate()
			assert.Error(t, err, "expected an error for %s", c.name)
			assert.ErrorIs(t, err, plumbing.ErrUnsupported)
		})
	}
}
