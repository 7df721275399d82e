// Package identity parses and validates Paykit public-key identifiers.
//
// A Paykit identity is a 256-bit Ed25519 public key rendered as 52 lowercase
// z-base-32 characters. Identifiers reach the protocol layer from many places
// (QR codes, deep links, contact lists, pasted text), so they arrive with
// surrounding whitespace, an optional "pk:" or "pubky://" scheme and mixed
// case. [Normalize] is the only way to obtain a [PublicKeyIdentifier]; every
// path and AAD builder in the addressing package normalizes its inputs first.
//
// # Normalization
//
//	id, err := identity.Normalize("pk:YBNDRFG8EJKMCPQXOT1UWISZA345H769YBNDRFG8EJKMCPQXOT1U")
//	if err != nil {
//	    // errors.Is(err, identity.ErrInvalidIdentifier)
//	}
//	fmt.Println(id) // ybndrfg8ejkmcpqxot1uwisza345h769ybndrfg8ejkmcpqxot1u
//
// Normalization never truncates or pads: a wrong length or a character outside
// the alphabet is a hard failure. Error messages describe the violated
// constraint (length, position) without echoing the input.
//
// # Thread Safety
//
// All functions are pure and safe for concurrent use.
package identity
