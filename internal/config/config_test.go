package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaultsWithNoFileOrEnv(t *testing.T) {
	cfg := Load("", nil)
	def := Default()
	assert.Equal(t, def.Enabled, cfg.Enabled)
	assert.Equal(t, def.CheckIntervalHours, cfg.CheckIntervalHours)
	assert.Equal(t, def.RepoOwner, cfg.RepoOwner)
	assert.Equal(t, def.RepoName, cfg.RepoName)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeTempJSON(t, `{"check_interval_hours": 6, "repo_owner": "acme", "repo_name": "widget"}`)
	cfg := Load(path, nil)

	assert.Equal(t, 6, cfg.CheckIntervalHours)
	assert.Equal(t, "acme", cfg.RepoOwner)
	assert.Equal(t, "widget", cfg.RepoName)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "does-not-exist.json"), nil)
	def := Default()
	assert.Equal(t, def.CheckIntervalHours, cfg.CheckIntervalHours)
}

// spec.md §6.4 names the override variable UPDATE_GITHUB_REPO_OWNER, not
// the mapstructure-key-derived UPDATE_REPO_OWNER.
func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeTempJSON(t, `{"repo_owner": "from-file"}`)
	t.Setenv("UPDATE_GITHUB_REPO_OWNER", "from-env")

	cfg := Load(path, nil)
	assert.Equal(t, "from-env", cfg.RepoOwner)
}

func TestLoadEnvEnabledBoolean(t *testing.T) {
	t.Setenv("UPDATE_ENABLED", "false")
	cfg := Load("", nil)
	assert.False(t, cfg.Enabled)
}

// spec.md §6.4 names every override variable explicitly; exercise the
// five whose env var name does not match its mapstructure key.
func TestLoadEnvAllDocumentedNames(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("UPDATE_INTERACTIVE_MODE", "false")
	t.Setenv("UPDATE_GITHUB_REPO_OWNER", "env-owner")
	t.Setenv("UPDATE_GITHUB_REPO_NAME", "env-repo")
	t.Setenv("UPDATE_TEMP_DIRECTORY", filepath.Join(dir, "temp"))
	t.Setenv("UPDATE_BACKUP_DIRECTORY", filepath.Join(dir, "backups"))

	cfg := Load("", nil)
	assert.False(t, cfg.Interactive)
	assert.Equal(t, "env-owner", cfg.RepoOwner)
	assert.Equal(t, "env-repo", cfg.RepoName)
	assert.Equal(t, filepath.Join(dir, "temp"), cfg.TempDir)
	assert.Equal(t, filepath.Join(dir, "backups"), cfg.BackupDir)
}

// spec.md §4.11: an invalid single key degrades to its default rather
// than failing the whole configuration.
func TestLoadInvalidCheckIntervalDegradesToDefault(t *testing.T) {
	path := writeTempJSON(t, `{"check_interval_hours": 0, "repo_owner": "acme"}`)
	cfg := Load(path, nil)

	assert.Equal(t, Default().CheckIntervalHours, cfg.CheckIntervalHours)
	assert.Equal(t, "acme", cfg.RepoOwner)
}

func TestLoadInvalidRepoOwnerDegradesToDefault(t *testing.T) {
	path := writeTempJSON(t, `{"repo_owner": "", "check_interval_hours": 12}`)
	cfg := Load(path, nil)

	assert.Equal(t, Default().RepoOwner, cfg.RepoOwner)
	assert.Equal(t, 12, cfg.CheckIntervalHours)
}

func TestLoadCreatesTempAndBackupDirs(t *testing.T) {
	base := t.TempDir()
	path := writeTempJSON(t, `{"temp_dir": "`+filepath.Join(base, "tmp")+`", "backup_dir": "`+filepath.Join(base, "backups")+`"}`)
	cfg := Load(path, nil)

	_, err := os.Stat(cfg.TempDir)
	assert.NoError(t, err)
	_, err = os.Stat(cfg.BackupDir)
	assert.NoError(t, err)
}
