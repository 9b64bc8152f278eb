package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrBoothTJ/cblaster/internal/errors"
	"github.com/DrBoothTJ/cblaster/pkg/ncbi"
	"github.com/DrBoothTJ/cblaster/pkg/remote"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CBLASTER_CONFIG_PATH", "NCBI_EMAIL", "NCBI_API_KEY",
		"CBLASTER_BLAST_URL", "CBLASTER_EUTILS_URL", "CBLASTER_DIAMOND", "CBLASTER_THREADS",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, configVersion, cfg.Version)
	assert.Equal(t, ncbi.DefaultBlastURL, cfg.NCBI.BlastURL)
	assert.Equal(t, ncbi.DefaultEUtilsURL, cfg.NCBI.EUtilsURL)
	assert.Equal(t, remote.DefaultPollInterval, cfg.Remote.PollInterval)
	assert.Equal(t, remote.DefaultMaxPolls, cfg.Remote.MaxPolls)
	assert.Equal(t, 1, cfg.Local.Threads)
}

func TestSaveLoadConfig(t *testing.T) {
	clearEnv(t)
	path := ConfigPath(t.TempDir())

	cfg := DefaultConfig()
	cfg.NCBI.Email = "me@example.org"
	cfg.NCBI.APIKey = "secret"
	cfg.Remote.PollInterval = 30 * time.Second
	cfg.Local.DiamondPath = "/opt/diamond"
	cfg.Local.Threads = 8
	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, loadedPath, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, loadedPath)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\nncbi:\n  email: a@b.c\n"), 0600))

	cfg, _, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", cfg.NCBI.Email)
	assert.Equal(t, ncbi.DefaultBlastURL, cfg.NCBI.BlastURL)
	assert.Equal(t, remote.DefaultMaxPolls, cfg.Remote.MaxPolls)
}

func TestLoadConfig_NotFoundUsesDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, path, err := LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_Discovery(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.NCBI.Email = "found@example.org"
	require.NoError(t, SaveConfig(cfg, ConfigPath(root)))

	nested := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(nested, 0750))
	chdir(t, nested)

	loaded, path, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "found@example.org", loaded.NCBI.Email)
	assert.Equal(t, "config.yaml", filepath.Base(path))
}

func TestLoadConfig_EnvPath(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	cfg := DefaultConfig()
	cfg.Local.Threads = 4
	require.NoError(t, SaveConfig(cfg, path))
	t.Setenv("CBLASTER_CONFIG_PATH", path)

	loaded, loadedPath, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, path, loadedPath)
	assert.Equal(t, 4, loaded.Local.Threads)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("NCBI_EMAIL", "env@example.org")
	t.Setenv("NCBI_API_KEY", "key")
	t.Setenv("CBLASTER_BLAST_URL", "http://blast.test")
	t.Setenv("CBLASTER_EUTILS_URL", "http://eutils.test")
	t.Setenv("CBLASTER_DIAMOND", "/bin/diamond")
	t.Setenv("CBLASTER_THREADS", "12")

	cfg, _, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "env@example.org", cfg.NCBI.Email)
	assert.Equal(t, "key", cfg.NCBI.APIKey)
	assert.Equal(t, "http://blast.test", cfg.NCBI.BlastURL)
	assert.Equal(t, "http://eutils.test", cfg.NCBI.EUtilsURL)
	assert.Equal(t, "/bin/diamond", cfg.Local.DiamondPath)
	assert.Equal(t, 12, cfg.Local.Threads)
}

func TestLoadConfig_BadThreadsIgnored(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("CBLASTER_THREADS", "many")

	cfg, _, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Local.Threads)
}

func TestLoadConfig_Errors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	badYAML := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badYAML, []byte("version: [\n"), 0600))
	badVersion := filepath.Join(dir, "v2.yaml")
	require.NoError(t, os.WriteFile(badVersion, []byte("version: \"2\"\n"), 0600))

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(dir, "missing.yaml")},
		{"invalid yaml", badYAML},
		{"unsupported version", badVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadConfig(tt.path)
			require.Error(t, err)
			var userErr *errors.UserError
			require.ErrorAs(t, err, &userErr)
			assert.Equal(t, errors.ConfigError, userErr.Type)
		})
	}
}

func TestNCBIConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NCBI.Email = "me@example.org"
	cfg.NCBI.APIKey = "k"

	got := cfg.ncbiConfig()
	assert.Equal(t, ncbi.Config{
		BlastURL:  ncbi.DefaultBlastURL,
		EUtilsURL: ncbi.DefaultEUtilsURL,
		Tool:      ncbi.DefaultTool,
		Email:     "me@example.org",
		APIKey:    "k",
		Timeout:   5 * time.Minute,
	}, got)
}

func TestBuildConfigOutput_HidesAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NCBI.APIKey = "secret"

	out := buildConfigOutput("/x/.cblaster/config.yaml", cfg)
	assert.True(t, out.NCBI.APIKeySet)
	assert.Equal(t, "1m0s", out.Remote.PollInterval)

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, out))
	assert.NotContains(t, buf.String(), "secret")
	assert.Contains(t, buf.String(), `"api_key_set": true`)
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
