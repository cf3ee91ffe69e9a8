package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{"RPC_HOST", "RPC_PORT", "RPC_PATH", "RPC_MAX_BODY", "RPC_LOG_LEVEL", "RPC_GZIP", "RPC_ALLOWED_ORIGINS", "RPC_JOURNAL"}

// clearEnv unsets every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 7080, cfg.Port)
	assert.Equal(t, "/rpc", cfg.Path)
	assert.Equal(t, int64(1<<20), cfg.MaxBody)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.True(t, cfg.Gzip)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, "rpcwrap.log", cfg.Journal)
	assert.Equal(t, "127.0.0.1:7080", cfg.Addr())
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPC_HOST", "0.0.0.0")
	t.Setenv("RPC_PORT", "9000")
	t.Setenv("RPC_LOG_LEVEL", "DEBUG")
	t.Setenv("RPC_GZIP", "false")
	t.Setenv("RPC_ALLOWED_ORIGINS", "https://a.example;https://b.example")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.False(t, cfg.Gzip)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("RPC_PORT=7100\nRPC_PATH=/api/rpc\n"), 0o600))
	t.Setenv("RPC_PORT", "7200")
	// godotenv sets variables directly; restore them after the test.
	t.Setenv("RPC_PATH", "")
	require.NoError(t, os.Unsetenv("RPC_PATH"))

	cfg, err := Load(dotenv)
	require.NoError(t, err)
	assert.Equal(t, 7200, cfg.Port)
	assert.Equal(t, "/api/rpc", cfg.Path)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"RPC_PORT", "70000"},
		{"RPC_PORT", "not-a-port"},
		{"RPC_PATH", "rpc"},
		{"RPC_LOG_LEVEL", "chatty"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel(" warn ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)

	_, err = ParseLevel("")
	assert.Error(t, err)
}
