package addressing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/opd-ai/paykit/identity"
)

// RecipientScope returns the legacy (v1) scope of an identity: the lowercase
// hex SHA-256 of its normalized identifier.
func RecipientScope(id string) (string, error) {
	normalized, err := identity.Normalize(id)
	if err != nil {
		return "", err
	}
	return hashHex(string(normalized)), nil
}

// SubscriberScope is RecipientScope under the name used by subscription code.
func SubscriberScope(id string) (string, error) {
	return RecipientScope(id)
}

// ContextID returns the v2 context shared by a and b. The two normalized
// identifiers are ordered lexicographically and joined with ':' before
// hashing, so ContextID(a, b) == ContextID(b, a).
func ContextID(a, b string) (string, error) {
	na, err := identity.Normalize(a)
	if err != nil {
		return "", fmt.Errorf("first party: %w", err)
	}
	nb, err := identity.Normalize(b)
	if err != nil {
		return "", fmt.Errorf("second party: %w", err)
	}

	lo, hi := string(na), string(nb)
	if hi < lo {
		lo, hi = hi, lo
	}
	return hashHex(lo + contextSeparator + hi), nil
}

// ValidateSegment checks that s is a 64-character lowercase hex digest.
func ValidateSegment(s string) error {
	if len(s) != SegmentLength {
		return fmt.Errorf("%w: length %d, expected %d", ErrInvalidScope, len(s), SegmentLength)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: non-hex character at position %d", ErrInvalidScope, i)
		}
	}
	return nil
}

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
