package sealedblob

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

const (
	// KeySize is the size of X25519 public and secret keys.
	KeySize = curve25519.PointSize
)

var (
	// ErrAuthenticationFailed indicates an envelope that does not open under
	// the given key and AAD.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrInvalidKey indicates a key of the wrong size or a low-order point.
	ErrInvalidKey = errors.New("invalid key")
)

// Cipher seals plaintexts to a recipient public key, bound to an AAD string.
type Cipher interface {
	Encrypt(plaintext, recipientPublicKey []byte, aad string) ([]byte, error)
	Decrypt(envelope, secretKey []byte, aad string) ([]byte, error)
}

// KeyPair is an X25519 key pair.
type KeyPair struct {
	Public [KeySize]byte
	Secret [KeySize]byte
}

// GenerateKeyPair creates a random X25519 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	kp := &KeyPair{}
	if _, err := rand.Read(kp.Secret[:]); err != nil {
		return nil, fmt.Errorf("failed to generate secret key: %w", err)
	}
	pub, err := curve25519.X25519(kp.Secret[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}
	copy(kp.Public[:], pub)
	return kp, nil
}

// KeyPairFromSecret derives the public key for secret.
func KeyPairFromSecret(secret []byte) (*KeyPair, error) {
	if len(secret) != KeySize {
		return nil, fmt.Errorf("%w: secret key must be %d bytes, got %d", ErrInvalidKey, KeySize, len(secret))
	}
	kp := &KeyPair{}
	copy(kp.Secret[:], secret)
	pub, err := curve25519.X25519(kp.Secret[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	copy(kp.Public[:], pub)
	return kp, nil
}

// Wipe zeroes the secret key.
func (kp *KeyPair) Wipe() {
	if kp == nil {
		return
	}
	wipe(kp.Secret[:])
}
