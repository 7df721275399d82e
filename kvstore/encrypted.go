package kvstore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2Iterations is the number of iterations for key derivation (NIST recommendation)
	PBKDF2Iterations = 100000
	// EncryptionVersion is the current encryption format version
	EncryptionVersion = 1
	// SaltSize is the size of the salt for PBKDF2
	SaltSize = 32
	// SaltKey is the inner-store key holding the PBKDF2 salt
	SaltKey = "kvstore.salt"
)

// ErrDecryption indicates a value that does not authenticate under the
// current key: wrong passphrase, corruption, or a blob moved between keys.
var ErrDecryption = errors.New("kvstore: decryption failed")

// Encrypted wraps a Store with AES-256-GCM encryption at rest.
// Format of each value: [version:2][nonce:12][ciphertext+tag:N].
type Encrypted struct {
	mu    sync.RWMutex
	inner Store
	aead  cipher.AEAD
	key   [32]byte
}

// NewEncrypted derives an encryption key from passphrase and the salt kept in
// inner (generated on first use). The passphrase slice is wiped.
func NewEncrypted(ctx context.Context, inner Store, passphrase []byte) (*Encrypted, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("kvstore: passphrase cannot be empty")
	}

	salt, err := loadOrGenerateSalt(ctx, inner)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize salt: %w", err)
	}

	e := &Encrypted{inner: inner}
	derived := pbkdf2.Key(passphrase, salt, PBKDF2Iterations, 32, sha256.New)
	copy(e.key[:], derived)
	zeroBytes(derived)
	zeroBytes(passphrase)

	block, err := aes.NewCipher(e.key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	e.aead, err = cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return e, nil
}

func loadOrGenerateSalt(ctx context.Context, inner Store) ([]byte, error) {
	salt, err := inner.Get(ctx, SaltKey)
	if err == nil {
		if len(salt) != SaltSize {
			return nil, fmt.Errorf("invalid salt size: got %d, want %d", len(salt), SaltSize)
		}
		return salt, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	salt = make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if err := inner.Set(ctx, SaltKey, salt); err != nil {
		return nil, fmt.Errorf("failed to save salt: %w", err)
	}
	return salt, nil
}

// Get decrypts the value under key.
func (e *Encrypted) Get(ctx context.Context, key string) ([]byte, error) {
	if key == SaltKey {
		return nil, fmt.Errorf("%w: %s is reserved", ErrInvalidKey, SaltKey)
	}
	data, err := e.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return e.open(key, data)
}

// Set encrypts value and stores it under key.
func (e *Encrypted) Set(ctx context.Context, key string, value []byte) error {
	if key == SaltKey {
		return fmt.Errorf("%w: %s is reserved", ErrInvalidKey, SaltKey)
	}
	sealed, err := e.seal(key, value)
	if err != nil {
		return err
	}
	return e.inner.Set(ctx, key, sealed)
}

// Update decrypts, applies fn and re-encrypts inside the inner store's
// update, so it is as atomic as the inner store makes it.
func (e *Encrypted) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if key == SaltKey {
		return fmt.Errorf("%w: %s is reserved", ErrInvalidKey, SaltKey)
	}
	return Update(ctx, e.inner, key, func(current []byte, found bool) ([]byte, bool, error) {
		var plain []byte
		if found {
			var err error
			if plain, err = e.open(key, current); err != nil {
				return nil, false, err
			}
		}
		next, write, err := fn(plain, found)
		if err != nil || !write {
			return nil, false, err
		}
		sealed, err := e.seal(key, next)
		if err != nil {
			return nil, false, err
		}
		return sealed, true, nil
	})
}

func (e *Encrypted) open(key string, data []byte) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.aead == nil {
		return nil, ErrClosed
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < 2+nonceSize+e.aead.Overhead() {
		return nil, fmt.Errorf("%w: value too short (%d bytes)", ErrDecryption, len(data))
	}
	if v := binary.BigEndian.Uint16(data[0:2]); v != EncryptionVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrDecryption, v)
	}

	nonce := data[2 : 2+nonceSize]
	plaintext, err := e.aead.Open(nil, nonce, data[2+nonceSize:], []byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: wrong passphrase or corrupted data", ErrDecryption)
	}
	return plaintext, nil
}

func (e *Encrypted) seal(key string, value []byte) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.aead == nil {
		return nil, ErrClosed
	}
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	ciphertext := e.aead.Seal(nil, nonce, value, []byte(key))

	output := make([]byte, 2+len(nonce)+len(ciphertext))
	binary.BigEndian.PutUint16(output[0:2], EncryptionVersion)
	copy(output[2:2+len(nonce)], nonce)
	copy(output[2+len(nonce):], ciphertext)
	return output, nil
}

// Delete removes key from the inner store.
func (e *Encrypted) Delete(ctx context.Context, key string) error {
	if key == SaltKey {
		return fmt.Errorf("%w: %s is reserved", ErrInvalidKey, SaltKey)
	}
	return e.inner.Delete(ctx, key)
}

// Close wipes the key and closes the inner store.
func (e *Encrypted) Close() error {
	e.mu.Lock()
	zeroBytes(e.key[:])
	e.aead = nil
	e.mu.Unlock()
	return e.inner.Close()
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
