package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, ":5001", cfg.HTTP.Addr)
	require.Equal(t, 5*time.Second, cfg.Store.Timeout)
	require.Equal(t, 5, cfg.RateLimit.ContactMax)
	require.Equal(t, 100, cfg.RateLimit.APIMax)
	require.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	require.Equal(t, 3, cfg.Dispatcher.MaxRetryAttempts.Priority)
	require.Equal(t, 2, cfg.Dispatcher.MaxRetryAttempts.Standard)
	require.Equal(t, []string{"127.0.0.1:9092"}, cfg.Kafka.Brokers)
	require.Empty(t, cfg.ClickHouse.DSN)
}

func TestLoadMergesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":8088\"\nstore:\n  timeout: 2s\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8088", cfg.HTTP.Addr)
	require.Equal(t, 2*time.Second, cfg.Store.Timeout)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadIgnoresMissingFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.yaml"), filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("CONTACTDESK_HTTP_ADDR", ":9999")
	t.Setenv("CONTACTDESK_NOTIFIER_OPERATOR", "ops@example.org")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.HTTP.Addr)
	require.Equal(t, "ops@example.org", cfg.Notifier.Operator)
}

func TestLoadReadsDotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CONTACTDESK_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("CONTACTDESK_LOG_LEVEL") })

	cfg, err := Load("", path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
}
