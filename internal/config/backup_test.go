package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".docrank.yaml")

	t.Run("no config exists", func(t *testing.T) {
		backupPath, err := BackupFile(path)

		require.NoError(t, err)
		assert.Empty(t, backupPath)
	})

	t.Run("backup existing config", func(t *testing.T) {
		content := "version: 1\nsearch:\n  method: vote\n"
		writeFile(t, path, content)

		backupPath, err := BackupFile(path)

		require.NoError(t, err)
		require.NotEmpty(t, backupPath)
		data, err := os.ReadFile(backupPath)
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
		assert.Contains(t, filepath.Base(backupPath), ".docrank.yaml"+BackupSuffix+".")
	})
}

func TestBackupFile_KeepsNewest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".docrank.yaml")
	writeFile(t, path, "version: 1\n")

	var made []string
	for range MaxBackups + 2 {
		b, err := BackupFile(path)
		require.NoError(t, err)
		made = append(made, b)
		time.Sleep(2 * time.Millisecond)
	}

	backups, err := ListBackups(path)

	require.NoError(t, err)
	require.Len(t, backups, MaxBackups)
	assert.Equal(t, made[len(made)-1], backups[0], "newest first")
	assert.NotContains(t, backups, made[0])
}

func TestListBackups_MissingDir(t *testing.T) {
	backups, err := ListBackups(filepath.Join(t.TempDir(), "nope", ".docrank.yaml"))

	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestWriteProjectConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := NewConfig()

	// Given: no existing project config
	backup, err := WriteProjectConfig(dir, cfg)
	require.NoError(t, err)
	assert.Empty(t, backup)

	// When: writing again over the existing file
	cfg.Search.Method = "cascade"
	backup, err = WriteProjectConfig(dir, cfg)

	// Then: the previous file is kept as a backup
	require.NoError(t, err)
	require.NotEmpty(t, backup)
	old, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Contains(t, string(old), "weighted_sum")

	current, err := os.ReadFile(filepath.Join(dir, ProjectConfigFile))
	require.NoError(t, err)
	assert.Contains(t, string(current), "cascade")
}

func TestWriteProjectTemplate(t *testing.T) {
	dir := t.TempDir()
	content := "version: 1\n# search:\n#   method: vote\n"

	backup, err := WriteProjectTemplate(dir, content)

	require.NoError(t, err)
	assert.Empty(t, backup)
	data, err := os.ReadFile(filepath.Join(dir, ProjectConfigFile))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestWriteProjectTemplate_RejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()

	_, err := WriteProjectTemplate(dir, "search: [unclosed\n")

	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, ProjectConfigFile))
}
