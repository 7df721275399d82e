// Package sealedblob defines the sealed-blob cipher boundary consumed by
// Paykit and provides a reference implementation.
//
// The protocol core never looks inside the cipher. It only supplies the AAD
// string that binds a ciphertext to its purpose, owner, storage path and
// object id. [Cipher] is the whole contract:
//
//	envelope, err := c.Encrypt(plaintext, recipientPublicKey, aad)
//	plaintext, err := c.Decrypt(envelope, recipientSecretKey, aad)
//	// errors.Is(err, sealedblob.ErrAuthenticationFailed) on any mismatch
//
// # X25519Cipher
//
// [X25519Cipher] seals to a Curve25519 public key with an ephemeral key
// agreement:
//
//	shared   = X25519(ephemeralSecret, recipientPublic)
//	key      = HKDF-SHA256(shared, salt = ephemeralPublic || recipientPublic, info)
//	envelope = version(1) || ephemeralPublic(32) || nonce(24) || XChaCha20-Poly1305(key, nonce, plaintext, aad)
//
// Every failure to open an envelope (wrong key, wrong AAD, tampering, bad
// framing) is reported as ErrAuthenticationFailed without further detail.
package sealedblob
