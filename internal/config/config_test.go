package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/akasha/internal/cube"
	"github.com/roach88/akasha/internal/event"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("ak", pflag.ContinueOnError)
	fs.String("data-dir", cube.DefaultDataDir, "")
	fs.String("username", "", "")
	fs.String("time-mode", "local", "")
	fs.Bool("auto-repair", false, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{RepoRoot: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, event.Identity{}, cfg.Identity())
}

func TestLoadFileThenEnvThenFlags(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".eikyu", "config.yaml"),
		"username: alice\nemail: alice@example.com\ntime_mode: utc\nkinds: [feat, fix]\n")

	cfg, err := Load(Options{RepoRoot: root})
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Author)
	assert.Equal(t, "utc", cfg.TimeMode)
	assert.Equal(t, []string{"feat", "fix"}, cfg.Kinds)
	assert.Equal(t, event.Identity{Author: "alice", Email: "alice@example.com"}, cfg.Identity())

	t.Setenv("AK_USERNAME", "bob")
	cfg, err = Load(Options{RepoRoot: root})
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.Author)

	cfg, err = Load(Options{RepoRoot: root, Flags: flags(t, "--username", "carol", "--auto-repair")})
	require.NoError(t, err)
	assert.Equal(t, "carol", cfg.Author)
	assert.True(t, cfg.AutoRepair)
	assert.Equal(t, "utc", cfg.TimeMode, "unset flags do not override the file")
}

func TestLoadDotenv(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".eikyu", "config.yaml"), "username: alice\n")
	writeFile(t, filepath.Join(root, ".env"), "AK_USERNAME=dora\nAK_KINDS=feat,wip\nOTHER=ignored\n")
	writeFile(t, filepath.Join(root, ".env.local"), "AK_TIME_MODE=iso8601\n")

	cfg, err := Load(Options{RepoRoot: root})
	require.NoError(t, err)
	assert.Equal(t, "dora", cfg.Author)
	assert.Equal(t, "iso8601", cfg.TimeMode)
	assert.Equal(t, []string{"feat", "wip"}, cfg.Kinds)
}

func TestLoadDataDirFromDotenv(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".env"), "AK_DATA_DIR=history\n")
	writeFile(t, filepath.Join(root, "history", "config.yaml"), "username: erin\n")

	cfg, err := Load(Options{RepoRoot: root})
	require.NoError(t, err)
	assert.Equal(t, "history", cfg.DataDir)
	assert.Equal(t, "erin", cfg.Author)
	assert.Equal(t, filepath.Join(root, "history"), cfg.Layout(root).Root)
}

func TestLoadRejectsInvalid(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".eikyu", "config.yaml"), "time_mode: martian\n")

	_, err := Load(Options{RepoRoot: root})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Problems)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".eikyu", "config.yaml"), "username: [unclosed\n")

	_, err := Load(Options{RepoRoot: root})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(Default()))

	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"slash in username", func(c *Config) { c.Author = "a/b" }},
		{"dot username", func(c *Config) { c.Author = ".." }},
		{"unknown time mode", func(c *Config) { c.TimeMode = "tai" }},
		{"kind with space", func(c *Config) { c.Kinds = []string{"two words"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.edit(&cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Author = "alice"
	cfg.Email = "alice@example.com"
	cfg.Ignore = []string{"*.log"}

	require.NoError(t, Write(cfg.Layout(root).ConfigPath(), cfg))

	got, err := Load(Options{RepoRoot: root})
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	bad := cfg
	bad.TimeMode = "never"
	assert.Error(t, Write(filepath.Join(root, "other.yaml"), bad))
}
