package identity

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Alphabet is the z-base-32 symbol set used for public-key identifiers.
	Alphabet = "ybndrfg8ejkmcpqxot1uwisza345h769"

	// IdentifierLength is the length of an encoded 256-bit key (ceil(256/5)).
	IdentifierLength = 52

	// PrefixPK and PrefixPubky are the optional schemes accepted by Normalize.
	PrefixPK    = "pk:"
	PrefixPubky = "pubky://"
)

// ErrInvalidIdentifier is returned for malformed, wrong-length or
// wrong-alphabet identifiers. It is a caller/data error and never retryable.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// PublicKeyIdentifier is a normalized identifier: exactly IdentifierLength
// lowercase characters from Alphabet with no scheme prefix.
type PublicKeyIdentifier string

// String returns the identifier text.
func (id PublicKeyIdentifier) String() string { return string(id) }

var alphabetIndex = func() [256]bool {
	var table [256]bool
	for i := 0; i < len(Alphabet); i++ {
		table[Alphabet[i]] = true
	}
	return table
}()

// Normalize trims whitespace, strips an optional "pk:" or "pubky://" prefix,
// lowercases and validates raw. Normalizing an already-normalized identifier
// returns it unchanged.
func Normalize(raw string) (PublicKeyIdentifier, error) {
	s := strings.TrimSpace(raw)
	s = stripPrefix(s)
	s = strings.ToLower(s)

	if len(s) != IdentifierLength {
		return "", fmt.Errorf("%w: length %d, expected %d", ErrInvalidIdentifier, len(s), IdentifierLength)
	}
	for i := 0; i < len(s); i++ {
		if !alphabetIndex[s[i]] {
			return "", fmt.Errorf("%w: character at position %d is outside the z-base-32 alphabet", ErrInvalidIdentifier, i)
		}
	}
	return PublicKeyIdentifier(s), nil
}

// MustNormalize is like Normalize but panics on error. Intended for
// compile-time constants and tests.
func MustNormalize(raw string) PublicKeyIdentifier {
	id, err := Normalize(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// IsValid reports whether raw normalizes successfully.
func IsValid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}

// stripPrefix removes one leading scheme, matched case-insensitively.
func stripPrefix(s string) string {
	for _, prefix := range []string{PrefixPubky, PrefixPK} {
		if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			return s[len(prefix):]
		}
	}
	return s
}
