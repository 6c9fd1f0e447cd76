package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join("storage", "books"), cfg.Storage.BooksPath())
	assert.Equal(t, filepath.Join("storage", "users"), cfg.Storage.UsersPath())
	assert.Equal(t, filepath.Join("storage", "loans"), cfg.Storage.LoansPath())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "library.yaml")
	yaml := `
storage:
  backend: sqlite
  sqlite_path: /tmp/lib.db
  books_file: /data/books.txt
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(configPath, []byte(yaml), 0644))

	cfg, err := Load(viper.New(), configPath)
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/lib.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "/data/books.txt", cfg.Storage.BooksPath(), "absolute paths ignore dir")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LIBRARY_STORAGE_DIR", "/srv/library")
	t.Setenv("LIBRARY_LOG_LEVEL", "warn")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "/srv/library/books", cfg.Storage.BooksPath())
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LIBRARY_STORAGE_BACKEND", "postgres")

	_, err := Load(viper.New(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
