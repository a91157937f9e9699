package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 384, cfg.Embedding.Dims)
	assert.Equal(t, 90*24*time.Hour, cfg.Retention.AgeThreshold)
	assert.Equal(t, 2, cfg.Retention.UsageFloor)
	assert.Equal(t, DecryptSkip, cfg.Retrieval.DecryptPolicy)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
storage:
  db_path: /tmp/hye/test.db
embedding:
  dims: 16
retention:
  age_threshold: 48h
  usage_floor: 5
retrieval:
  decrypt_policy: flag
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/hye/test.db", cfg.Storage.DBPath)
	assert.Equal(t, 16, cfg.Embedding.Dims)
	assert.Equal(t, 48*time.Hour, cfg.Retention.AgeThreshold)
	assert.Equal(t, 5, cfg.Retention.UsageFloor)
	assert.Equal(t, DecryptFlag, cfg.Retrieval.DecryptPolicy)
	// untouched sections keep defaults
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 3, cfg.Retrieval.ContextK)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "embedding:\n  dims: 16\n")
	t.Setenv("HYE_EMBEDDING_DIMS", "32")
	t.Setenv("HYE_RETENTION_INTERVAL", "1h")
	t.Setenv("HYE_STORAGE_DB_PATH", "/tmp/env.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Embedding.Dims)
	assert.Equal(t, time.Hour, cfg.Retention.Interval)
	assert.Equal(t, "/tmp/env.db", cfg.Storage.DBPath)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Setenv("HYE_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 384, cfg.Embedding.Dims)
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "embedding: [\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "word2vec"
	cfg.Embedding.Dims = 0
	cfg.Retrieval.DecryptPolicy = "explode"
	cfg.Crypto.Key = "not base64!"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"embedding.provider", "embedding.dims", "decrypt_policy", "crypto.key"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestKeyFilePath(t *testing.T) {
	cfg := Default()
	cfg.Storage.DBPath = "/data/hye/memory.db"
	assert.Equal(t, "/data/hye/memory.key", cfg.KeyFilePath())

	cfg.Crypto.KeyFile = "/secrets/k"
	assert.Equal(t, "/secrets/k", cfg.KeyFilePath())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".hye-memory", "memory.db"), expandHome("~/.hye-memory/memory.db"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
}
