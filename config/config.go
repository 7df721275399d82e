// Package config loads paykitctl configuration from YAML, dotenv files and
// PAYKIT_* environment variables, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/opd-ai/paykit/addressing"
	"github.com/opd-ai/paykit/kvstore"
	"github.com/opd-ai/paykit/limits"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full process configuration.
type Config struct {
	Log struct {
		// trace | debug | info | warn | error
		Level string `yaml:"level"`
		// text | json
		Format string `yaml:"format"`
	} `yaml:"log"`

	Store struct {
		// memory | file | redis
		Driver string `yaml:"driver"`
		Dir    string `yaml:"dir"`
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		// Name of the environment variable holding the at-rest passphrase.
		// The passphrase itself never appears in YAML.
		PassphraseEnv string `yaml:"passphrase_env"`
	} `yaml:"store"`

	Replay struct {
		Namespaces      []string      `yaml:"namespaces"`
		MaxRecords      int           `yaml:"max_records"`
		CleanupInterval time.Duration `yaml:"cleanup_interval"`
	} `yaml:"replay"`

	Protocol struct {
		// v1 | v2
		Version string `yaml:"version"`
	} `yaml:"protocol"`

	Metrics struct {
		Enabled   bool   `yaml:"enabled"`
		Namespace string `yaml:"namespace"`
	} `yaml:"metrics"`
}

// Default returns the built-in configuration.
func Default() *Config {
	var c Config
	c.Log.Level = "info"
	c.Log.Format = "text"
	c.Store.Driver = "file"
	c.Store.Dir = "./data/paykit"
	c.Store.Redis.Addr = "127.0.0.1:6379"
	c.Store.Redis.Prefix = "paykit:"
	c.Store.PassphraseEnv = "PAYKIT_STORE_PASSPHRASE"
	c.Replay.Namespaces = []string{"default"}
	c.Replay.MaxRecords = limits.DefaultMaxNonceRecords
	c.Replay.CleanupInterval = 10 * time.Minute
	c.Protocol.Version = addressing.V2.String()
	c.Metrics.Enabled = true
	c.Metrics.Namespace = "paykit"
	return &c
}

// Load reads path over the defaults, applies env overrides and validates. An
// empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	c.applyEnvOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadDotEnv loads the given dotenv files into the process environment
// without overriding variables that are already set. Missing files are
// skipped; it returns the files that were loaded.
func LoadDotEnv(files ...string) ([]string, error) {
	var loaded []string
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return loaded, fmt.Errorf("dotenv %s: %w", f, err)
		}
		loaded = append(loaded, f)
	}
	return loaded, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	switch c.Store.Driver {
	case "memory":
	case "file":
		if c.Store.Dir == "" {
			return fmt.Errorf("%w: store.dir is required for the file driver", ErrInvalidConfig)
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("%w: store.redis.addr is required for the redis driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: store.driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	if len(c.Replay.Namespaces) == 0 {
		return fmt.Errorf("%w: replay.namespaces is empty", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Replay.Namespaces))
	for _, ns := range c.Replay.Namespaces {
		if err := kvstore.ValidateKey(ns); err != nil {
			return fmt.Errorf("%w: replay namespace %q: %v", ErrInvalidConfig, ns, err)
		}
		if seen[ns] {
			return fmt.Errorf("%w: replay namespace %q listed twice", ErrInvalidConfig, ns)
		}
		seen[ns] = true
	}
	if c.Replay.MaxRecords < 1 {
		return fmt.Errorf("%w: replay.max_records must be positive", ErrInvalidConfig)
	}
	if c.Replay.CleanupInterval <= 0 {
		return fmt.Errorf("%w: replay.cleanup_interval must be positive", ErrInvalidConfig)
	}
	if _, err := addressing.ParseVersion(c.Protocol.Version); err != nil {
		return fmt.Errorf("%w: protocol.version: %v", ErrInvalidConfig, err)
	}
	return nil
}

// StoreConfig converts the store section, reading the passphrase from the
// configured environment variable.
func (c *Config) StoreConfig() kvstore.Config {
	sc := kvstore.Config{
		Driver: c.Store.Driver,
		Dir:    c.Store.Dir,
		Redis: kvstore.RedisConfig{
			Addr:     c.Store.Redis.Addr,
			Password: c.Store.Redis.Password,
			DB:       c.Store.Redis.DB,
			Prefix:   c.Store.Redis.Prefix,
		},
	}
	if c.Store.PassphraseEnv != "" {
		if v, ok := getEnvStr(c.Store.PassphraseEnv); ok {
			sc.Passphrase = []byte(v)
		}
	}
	return sc
}

// Strategy returns the configured addressing strategy.
func (c *Config) Strategy() (addressing.Strategy, error) {
	v, err := addressing.ParseVersion(c.Protocol.Version)
	if err != nil {
		return nil, err
	}
	return addressing.StrategyFor(v)
}

// ConfigureLogger applies the log section to l.
func (c *Config) ConfigureLogger(l *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	l.SetLevel(level)
	if c.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// ---- env helpers ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

func (c *Config) applyEnvOverrides() {
	// LOG
	if v, ok := getEnvStr("PAYKIT_LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := getEnvStr("PAYKIT_LOG_FORMAT"); ok {
		c.Log.Format = strings.ToLower(v)
	}

	// STORE
	if v, ok := getEnvStr("PAYKIT_STORE_DRIVER"); ok {
		c.Store.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("PAYKIT_STORE_DIR"); ok {
		c.Store.Dir = v
	}
	if v, ok := getEnvStr("PAYKIT_REDIS_ADDR"); ok {
		c.Store.Redis.Addr = v
	}
	if v, ok := getEnvStr("PAYKIT_REDIS_PASSWORD"); ok {
		c.Store.Redis.Password = v
	}
	if v, ok := getEnvInt("PAYKIT_REDIS_DB"); ok {
		c.Store.Redis.DB = v
	}
	if v, ok := getEnvStr("PAYKIT_REDIS_PREFIX"); ok {
		c.Store.Redis.Prefix = v
	}
	if v, ok := getEnvStr("PAYKIT_STORE_PASSPHRASE_ENV"); ok {
		c.Store.PassphraseEnv = v
	}

	// REPLAY
	if v, ok := getEnvCSV("PAYKIT_REPLAY_NAMESPACES"); ok {
		c.Replay.Namespaces = v
	}
	if v, ok := getEnvInt("PAYKIT_REPLAY_MAX_RECORDS"); ok {
		c.Replay.MaxRecords = v
	}
	if v, ok := getEnvDur("PAYKIT_REPLAY_CLEANUP_INTERVAL"); ok {
		c.Replay.CleanupInterval = v
	}

	// PROTOCOL
	if v, ok := getEnvStr("PAYKIT_PROTOCOL_VERSION"); ok {
		c.Protocol.Version = v
	}

	// METRICS
	if v, ok := getEnvBool("PAYKIT_METRICS_ENABLED"); ok {
		c.Metrics.Enabled = v
	}
	if v, ok := getEnvStr("PAYKIT_METRICS_NAMESPACE"); ok {
		c.Metrics.Namespace = v
	}
}
