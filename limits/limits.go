package limits

import (
	"errors"
	"fmt"
	"unicode"
)

const (
	// MaxSegmentLength bounds object ids and object-type path segments.
	MaxSegmentLength = 128

	// MaxSealedPayload is the largest plaintext accepted for sealing (64 KiB).
	MaxSealedPayload = 64 * 1024

	// DefaultMaxNonceRecords is the default replay-ledger capacity.
	DefaultMaxNonceRecords = 100000
)

var (
	// ErrInvalidSegment indicates a path segment that cannot be embedded safely
	ErrInvalidSegment = errors.New("invalid path segment")

	// ErrPayloadEmpty indicates an empty payload was provided
	ErrPayloadEmpty = errors.New("empty payload")

	// ErrPayloadTooLarge indicates a payload exceeds MaxSealedPayload
	ErrPayloadTooLarge = errors.New("payload too large")
)

// ValidateSegment checks that s can be used verbatim as a single storage-path
// segment and as a single AAD field. name identifies the field in the error.
func ValidateSegment(name, s string) error {
	if s == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidSegment, name)
	}
	if len(s) > MaxSegmentLength {
		return fmt.Errorf("%w: %s length %d exceeds limit %d", ErrInvalidSegment, name, len(s), MaxSegmentLength)
	}
	if s == "." || s == ".." {
		return fmt.Errorf("%w: %s is a relative path element", ErrInvalidSegment, name)
	}
	for i, r := range s {
		switch {
		case r == '/' || r == ':':
			return fmt.Errorf("%w: %s contains separator at position %d", ErrInvalidSegment, name, i)
		case r == unicode.ReplacementChar || unicode.IsSpace(r) || unicode.IsControl(r):
			return fmt.Errorf("%w: %s contains disallowed character at position %d", ErrInvalidSegment, name, i)
		}
	}
	return nil
}

// ValidatePayload validates a plaintext against MaxSealedPayload.
func ValidatePayload(payload []byte) error {
	if len(payload) == 0 {
		return ErrPayloadEmpty
	}
	if len(payload) > MaxSealedPayload {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrPayloadTooLarge, len(payload), MaxSealedPayload)
	}
	return nil
}
