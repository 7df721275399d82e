// Package limits provides centralized size limits and validation for Paykit
// protocol values. Keeping them in one place ensures the path builders, the
// AAD builders, the mailbox and the replay guard all enforce the same bounds.
//
// # Segment Validation
//
// Object ids, acknowledgement object types and other caller-supplied path
// components are validated with [ValidateSegment]. A valid segment:
//
//   - is non-empty and at most MaxSegmentLength bytes,
//   - contains no '/' (path separator) and no ':' (AAD separator),
//   - contains no whitespace or control characters,
//   - is not "." or "..".
//
// These rules keep every StoragePath and AadString unambiguous: no field can
// smuggle a separator into the composed string, so distinct inputs always
// produce distinct outputs.
//
// # Payload Sizes
//
// MaxSealedPayload bounds plaintexts handed to the sealed-blob cipher:
//
//	if err := limits.ValidatePayload(plaintext); err != nil {
//	    return err
//	}
//
// # Nonce Ledger Capacity
//
// DefaultMaxNonceRecords is the default capacity of a replay ledger. The
// replay guard purges expired entries before refusing new nonces and never
// evicts unexpired ones.
package limits
