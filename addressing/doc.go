// Package addressing implements the Paykit v0 addressing and
// authentication-binding conventions.
//
// Every function in this package is a pure string computation over
// normalized identities: it derives where a protocol object lives on a
// homeserver (a StoragePath) and which non-secret context its ciphertext is
// bound to (an AadString). The output is a cross-platform contract; other
// implementations of the protocol reproduce it byte for byte, and the shared
// vectors in vectors_test.go pin it down.
//
// # Scopes and Contexts
//
// Legacy (v1) objects are filed under the recipient's scope, the SHA-256 of
// its normalized identifier:
//
//	scope, _ := addressing.RecipientScope(recipient)
//
// Current (v2) objects are filed under a context shared by both parties. It is
// symmetric, so sender and recipient compute the same segment independently:
//
//	ctx, _ := addressing.ContextID(sender, recipient)
//	// ctx == addressing.ContextID(recipient, sender)
//
// # Strategies
//
// The two schemes are variants of one [Strategy], picked explicitly by
// protocol version:
//
//	s, _ := addressing.StrategyFor(addressing.V2)
//	path, _ := addressing.RequestPathFor(s, sender, recipient, "req-123")
//	aad, _ := s.AAD(addressing.PurposeRequest, sender, path, "req-123")
//
// # Paths
//
// All paths are rooted at PathPrefix:
//
//	/pub/paykit.app/v0/requests/{segment}/{id}
//	/pub/paykit.app/v0/subscriptions/proposals/{segment}/{id}
//	/pub/paykit.app/v0/noise
//	/pub/paykit.app/v0/handoff/{id}
//	/pub/paykit.app/v0/acks/{objectType}/{segment}/{id}
//
// Directory variants drop the id and end in '/'.
//
// # AAD
//
//	paykit:v0:{purpose}:{path}:{id}           (v1)
//	paykit:v0:{purpose}:{owner}:{path}:{id}   (v2)
//
// No field may contain ':' so any single differing input yields a different
// AAD. AAD strings are not secret and may be logged.
package addressing
