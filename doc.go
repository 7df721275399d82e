// Package paykit is the root of the Paykit v0 protocol toolkit for Go.
//
// The toolkit computes where Paykit objects live on a user's homeserver and
// which authenticated context their encryption is bound to, and it keeps a
// persistent single-use nonce ledger for signed messages. Identity and
// addressing are pure functions; only the kvstore backends touch disk or
// the network.
//
// # Packages
//
//   - identity: parse and normalize z-base-32 public-key identifiers.
//   - addressing: scopes, pair contexts, storage paths, AAD strings and the
//     v1/v2 addressing strategies.
//   - replay: the fail-closed nonce replay guard.
//   - kvstore: memory, file, Redis and encrypted-at-rest byte stores backing the guard.
//   - sealedblob: the sealed-blob cipher boundary and an X25519 implementation.
//   - noiseendpoint: the Noise endpoint record and IK handshake.
//   - mailbox: sealed object exchange over a storage backend.
//   - config, metrics: YAML/env configuration and Prometheus collectors.
//
// The paykitctl command exposes all of the above for operators.
//
// # Example
//
//	sender, _ := identity.Normalize("pk:" + alice)
//	path, _ := addressing.RequestPathFor(addressing.SymmetricContext{}, sender.String(), bob, requestID)
//	aad, _ := addressing.RequestAAD(sender.String(), path, requestID)
//	envelope, _ := sealedblob.X25519Cipher{}.Encrypt(payload, bobPublicKey, aad)
//
//	guard, _ := replay.NewGuard(store, "requests")
//	fresh, err := guard.CheckAndMark(ctx, nonce, expiresAt)
package paykit
