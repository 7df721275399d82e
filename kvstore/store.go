package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// MaxKeyLength bounds key names.
const MaxKeyLength = 200

var (
	// ErrNotFound is returned by Get when the key holds no value.
	ErrNotFound = errors.New("kvstore: key not found")

	// ErrInvalidKey indicates a key outside the allowed character set.
	ErrInvalidKey = errors.New("kvstore: invalid key")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("kvstore: store closed")
)

// Store is a persistent key-value store holding opaque byte blobs.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver string // "memory" | "file" | "redis"
	Dir    string // file driver
	Redis  RedisConfig

	// Passphrase, when non-empty, wraps the backend with NewEncrypted.
	Passphrase []byte
}

// New creates a Store according to cfg.
func New(cfg Config) (Store, error) {
	var (
		inner Store
		err   error
	)
	switch cfg.Driver {
	case "memory", "":
		inner = NewMemory()
	case "file":
		inner, err = NewFile(cfg.Dir)
	case "redis":
		inner, err = NewRedis(cfg.Redis)
	default:
		return nil, fmt.Errorf("kvstore: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if len(cfg.Passphrase) == 0 {
		return inner, nil
	}
	enc, err := NewEncrypted(context.Background(), inner, cfg.Passphrase)
	if err != nil {
		_ = inner.Close()
		return nil, err
	}
	return enc, nil
}

// ValidateKey checks that key is non-empty, at most MaxKeyLength bytes and
// uses only [A-Za-z0-9._-], and is not "." or "..".
func ValidateKey(key string) error {
	if key == "" || len(key) > MaxKeyLength || key == "." || key == ".." {
		return fmt.Errorf("%w: length %d", ErrInvalidKey, len(key))
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return fmt.Errorf("%w: disallowed character at position %d", ErrInvalidKey, i)
		}
	}
	return nil
}
