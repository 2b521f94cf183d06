package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/flow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Missing(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := config.Load(write(t, `
log_level: debug
store: redis
lock_ttl: 5s
redis:
  addr: redis:6379
  db: 2
http:
  port: 9000
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, config.StoreRedis, cfg.Store)
	assert.Equal(t, 5*time.Second, cfg.LockTTL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 9000, cfg.HTTP.Port)
	// Untouched keys keep their defaults
	assert.Equal(t, "flow:graph:", cfg.Redis.Prefix)
	assert.Equal(t, "graphs", cfg.GraphsDir)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		msg     string
	}{
		{"Unknown Store", "store: sqlite", `unknown store "sqlite"`},
		{"Bad Port", "http:\n  port: 70000", "invalid http port"},
		{"Bad YAML", "store: [", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(write(t, tt.content))
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestLoad_EncryptionKeyFromEnv(t *testing.T) {
	t.Setenv(config.EnvEncryptionKey, "from-env")

	cfg, err := config.Load(write(t, "encryption_key: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.EncryptionKey)

	cfg, err = config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.EncryptionKey)
}
