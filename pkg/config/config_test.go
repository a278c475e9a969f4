package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/textindex/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StorageFS, cfg.Index.Storage)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 5*time.Second, cfg.Index.CommitInterval)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 600, cfg.Server.WriteRateLimit)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
index:
  storage: memory
  heapBudget: 2000000
  commitInterval: 250ms
search:
  defaultFields: [title, body]
`), 0o644))

	t.Setenv("TI_SERVER_PORT", "9100")
	t.Setenv("TI_INDEX_COMMIT_EVERY", "7")
	t.Setenv("TI_LOGGING_LEVEL", "debug")
	t.Setenv("TI_SERVER_WRITE_RATE_LIMIT", "0")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, StorageMemory, cfg.Index.Storage)
	assert.Equal(t, 2_000_000, cfg.Index.HeapBudget)
	assert.Equal(t, 250*time.Millisecond, cfg.Index.CommitInterval)
	assert.Equal(t, 7, cfg.Index.CommitEvery)
	assert.Equal(t, []string{"title", "body"}, cfg.Search.DefaultFields)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Zero(t, cfg.Server.WriteRateLimit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown storage", func(c *Config) { c.Index.Storage = "s3" }},
		{"fs without path", func(c *Config) { c.Index.Path = "" }},
		{"negative rate limit", func(c *Config) { c.Server.WriteRateLimit = -1 }},
		{"postgres without name", func(c *Config) { c.Index.Storage = StoragePostgres; c.Index.Name = "" }},
		{"negative budget", func(c *Config) { c.Index.HeapBudget = -1 }},
		{"limit above max", func(c *Config) { c.Search.DefaultLimit = 500 }},
		{"kafka without topic", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Topics.DocumentIngest = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), apperrors.ErrInvalidConfiguration)
		})
	}
	assert.NoError(t, defaultConfig().Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := defaultConfig()
	assert.Equal(t,
		"host=localhost port=5432 user=textindex password=localdev dbname=textindex sslmode=disable",
		cfg.Postgres.DSN(),
	)
}
