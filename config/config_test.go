package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/paykit/addressing"
	"github.com/opd-ai/paykit/limits"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "file", c.Store.Driver)
	assert.Equal(t, []string{"default"}, c.Replay.Namespaces)
	assert.Equal(t, limits.DefaultMaxNonceRecords, c.Replay.MaxRecords)
	assert.Equal(t, 10*time.Minute, c.Replay.CleanupInterval)

	s, err := c.Strategy()
	require.NoError(t, err)
	assert.Equal(t, addressing.V2, s.Version())
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	path := writeFile(t, "paykit.yaml", `
log:
  level: debug
  format: json
store:
  driver: redis
  redis:
    addr: redis:6379
    db: 3
replay:
  namespaces: [requests, subscriptions]
  cleanup_interval: 90s
protocol:
  version: v1
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "json", c.Log.Format)
	assert.Equal(t, "redis", c.Store.Driver)
	assert.Equal(t, "redis:6379", c.Store.Redis.Addr)
	assert.Equal(t, 3, c.Store.Redis.DB)
	assert.Equal(t, "paykit:", c.Store.Redis.Prefix, "unset keys keep defaults")
	assert.Equal(t, []string{"requests", "subscriptions"}, c.Replay.Namespaces)
	assert.Equal(t, 90*time.Second, c.Replay.CleanupInterval)

	s, err := c.Strategy()
	require.NoError(t, err)
	assert.Equal(t, addressing.V1, s.Version())
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "paykit.yaml", "store:\n  driver: memory\n")
	t.Setenv("PAYKIT_STORE_DRIVER", "FILE")
	t.Setenv("PAYKIT_STORE_DIR", "/var/lib/paykit")
	t.Setenv("PAYKIT_REPLAY_NAMESPACES", " a , b,,c ")
	t.Setenv("PAYKIT_REPLAY_MAX_RECORDS", "42")
	t.Setenv("PAYKIT_METRICS_ENABLED", "false")
	t.Setenv("PAYKIT_REPLAY_CLEANUP_INTERVAL", "not-a-duration")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file", c.Store.Driver)
	assert.Equal(t, "/var/lib/paykit", c.Store.Dir)
	assert.Equal(t, []string{"a", "b", "c"}, c.Replay.Namespaces)
	assert.Equal(t, 42, c.Replay.MaxRecords)
	assert.False(t, c.Metrics.Enabled)
	assert.Equal(t, 10*time.Minute, c.Replay.CleanupInterval, "unparsable values are ignored")
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"log level", "log:\n  level: loud\n"},
		{"log format", "log:\n  format: xml\n"},
		{"driver", "store:\n  driver: etcd\n"},
		{"file without dir", "store:\n  driver: file\n  dir: \"\"\n"},
		{"namespace chars", "replay:\n  namespaces: [\"a/b\"]\n"},
		{"empty namespaces", "replay:\n  namespaces: []\n"},
		{"duplicate namespaces", "replay:\n  namespaces: [a, b, a]\n"},
		{"max records", "replay:\n  max_records: -1\n"},
		{"protocol", "protocol:\n  version: v3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.yaml", tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidateRejectsDuplicateNamespacesFromEnv(t *testing.T) {
	t.Setenv("PAYKIT_REPLAY_NAMESPACES", "a,a")
	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), `"a"`)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "bad.yaml", "log: [unclosed"))
	assert.Error(t, err)
}

func TestStoreConfigReadsPassphraseFromEnv(t *testing.T) {
	c := Default()
	c.Store.PassphraseEnv = "PAYKIT_TEST_PASSPHRASE"

	assert.Empty(t, c.StoreConfig().Passphrase)

	t.Setenv("PAYKIT_TEST_PASSPHRASE", "correct horse")
	sc := c.StoreConfig()
	assert.Equal(t, []byte("correct horse"), sc.Passphrase)
	assert.Equal(t, "file", sc.Driver)
	assert.Equal(t, "paykit:", sc.Redis.Prefix)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PAYKIT_LOG_LEVEL=warn\nPAYKIT_PROTOCOL_VERSION=1\n"), 0o600))
	t.Setenv("PAYKIT_LOG_LEVEL", "")
	t.Setenv("PAYKIT_PROTOCOL_VERSION", "")
	os.Unsetenv("PAYKIT_LOG_LEVEL")
	os.Unsetenv("PAYKIT_PROTOCOL_VERSION")

	loaded, err := LoadDotEnv(filepath.Join(dir, "missing.env"), envFile)
	require.NoError(t, err)
	assert.Equal(t, []string{envFile}, loaded)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", c.Log.Level)
	assert.Equal(t, "1", c.Protocol.Version)
}

func TestConfigureLogger(t *testing.T) {
	c := Default()
	c.Log.Level = "debug"
	c.Log.Format = "json"

	l := logrus.New()
	require.NoError(t, c.ConfigureLogger(l))
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
}
