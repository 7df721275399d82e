package replay

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// NonceSize is the number of random bytes in a nonce.
	NonceSize = 32
	// NonceLength is the hex-encoded nonce length.
	NonceLength = 2 * NonceSize

	ledgerKeyPrefix = "paykit.nonces."
)

// Record is one ledger entry.
type Record struct {
	Nonce     string
	ExpiresAt int64
}

// NewNonce returns a fresh random nonce in canonical form.
func NewNonce() (string, error) {
	var b [NonceSize]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}

// NormalizeNonce lowercases n and checks it is NonceLength hex characters.
func NormalizeNonce(n string) (string, error) {
	if len(n) != NonceLength {
		return "", fmt.Errorf("%w: length %d, expected %d", ErrInvalidNonce, len(n), NonceLength)
	}
	n = strings.ToLower(n)
	for i := 0; i < len(n); i++ {
		c := n[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("%w: non-hex character at position %d", ErrInvalidNonce, i)
		}
	}
	return n, nil
}

// LedgerKey returns the store key for namespace.
func LedgerKey(namespace string) string {
	return ledgerKeyPrefix + namespace
}

// encodeLedger serializes records as {"<nonce>": expiresAt, ...}.
func encodeLedger(records map[string]int64) ([]byte, error) {
	return json.Marshal(records)
}

// decodeLedger parses a ledger blob. Any malformed entry fails the whole
// blob: a partially understood ledger is an unknown ledger.
func decodeLedger(data []byte) (map[string]int64, error) {
	records := make(map[string]int64)
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("corrupted ledger: %w", err)
	}
	if records == nil {
		return nil, fmt.Errorf("corrupted ledger: not an object")
	}
	for nonce := range records {
		canonical, err := NormalizeNonce(nonce)
		if err != nil || canonical != nonce {
			return nil, fmt.Errorf("corrupted ledger: malformed entry")
		}
	}
	return records, nil
}
