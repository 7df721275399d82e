package sealedblob

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/opd-ai/paykit/limits"
)

const (
	// EnvelopeVersion is the first byte of every envelope.
	EnvelopeVersion byte = 1

	hkdfInfo       = "paykit-sealed-blob-v1"
	headerSize     = 1 + KeySize + chacha20poly1305.NonceSizeX
	minEnvelopeLen = headerSize + chacha20poly1305.Overhead
)

// X25519Cipher is the reference Cipher. The zero value is ready to use.
type X25519Cipher struct {
	// Rand overrides the entropy source; nil means crypto/rand.
	Rand io.Reader
}

var _ Cipher = X25519Cipher{}

func (c X25519Cipher) random() io.Reader {
	if c.Rand != nil {
		return c.Rand
	}
	return rand.Reader
}

// Encrypt seals plaintext to recipientPublicKey, bound to aad.
func (c X25519Cipher) Encrypt(plaintext, recipientPublicKey []byte, aad string) ([]byte, error) {
	if err := limits.ValidatePayload(plaintext); err != nil {
		return nil, err
	}
	if len(recipientPublicKey) != KeySize {
		return nil, fmt.Errorf("%w: public key must be %d bytes, got %d", ErrInvalidKey, KeySize, len(recipientPublicKey))
	}

	var ephemeralSecret [KeySize]byte
	if _, err := io.ReadFull(c.random(), ephemeralSecret[:]); err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	defer wipe(ephemeralSecret[:])

	ephemeralPublic, err := curve25519.X25519(ephemeralSecret[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive ephemeral key: %w", err)
	}
	shared, err := curve25519.X25519(ephemeralSecret[:], recipientPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	defer wipe(shared)

	key, err := deriveKey(shared, ephemeralPublic, recipientPublicKey)
	if err != nil {
		return nil, err
	}
	defer wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	envelope := make([]byte, headerSize, headerSize+len(plaintext)+aead.Overhead())
	envelope[0] = EnvelopeVersion
	copy(envelope[1:1+KeySize], ephemeralPublic)
	nonce := envelope[1+KeySize : headerSize]
	if _, err := io.ReadFull(c.random(), nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aead.Seal(envelope, nonce, plaintext, []byte(aad)), nil
}

// Decrypt opens envelope with secretKey, checking that it was sealed with aad.
func (c X25519Cipher) Decrypt(envelope, secretKey []byte, aad string) ([]byte, error) {
	kp, err := KeyPairFromSecret(secretKey)
	if err != nil {
		return nil, err
	}
	defer kp.Wipe()

	if len(envelope) < minEnvelopeLen || envelope[0] != EnvelopeVersion {
		return nil, ErrAuthenticationFailed
	}
	ephemeralPublic := envelope[1 : 1+KeySize]
	nonce := envelope[1+KeySize : headerSize]

	shared, err := curve25519.X25519(kp.Secret[:], ephemeralPublic)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	defer wipe(shared)

	key, err := deriveKey(shared, ephemeralPublic, kp.Public[:])
	if err != nil {
		return nil, err
	}
	defer wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, envelope[headerSize:], []byte(aad))
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

func deriveKey(shared, ephemeralPublic, recipientPublic []byte) ([]byte, error) {
	salt := make([]byte, 0, 2*KeySize)
	salt = append(salt, ephemeralPublic...)
	salt = append(salt, recipientPublic...)

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, salt, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
