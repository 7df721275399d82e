// Package replay implements the nonce replay guard that protects signed
// Paykit protocol messages from reuse.
//
// Every signed message carries a single-use nonce and an expiry. The
// signature-verification layer accepts a message only if the guard reports the
// nonce as fresh:
//
//	store, _ := kvstore.NewFile("/var/lib/paykit")
//	guard, err := replay.NewGuard(store, "alice")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := guard.Consume(ctx, msg.Nonce, msg.ExpiresAt); err != nil {
//	    // replay.ErrReplayDetected, replay.ErrStorageUnavailable, ...
//	    return authFailed
//	}
//
// # Ledger
//
// The guard keeps a mapping nonce -> expiresAt (epoch seconds) and persists it
// as one JSON object under the key "paykit.nonces.<namespace>" of a
// [kvstore.Store]. Each guard instance exclusively owns its namespace; nothing
// else should write that key.
//
// # Semantics
//
//   - CheckAndMark is an atomic test-and-set: only the first call for a nonce
//     returns true. Later calls return false whatever expiresAt they pass; a
//     record is never refreshed.
//   - CleanupExpired removes records with expiresAt strictly before the given
//     threshold. RunCleanup does so periodically and CleanupAll sweeps several
//     guards at process start.
//   - The guard fails closed. If the ledger cannot be read, decoded or written
//     it never reports a nonce as fresh and returns ErrStorageUnavailable.
//   - Capacity is bounded (WithMaxRecords). A full ledger first purges expired
//     records; if it is still full new nonces are refused with ErrLedgerFull.
//     Unexpired records are never evicted.
//
// # Thread Safety
//
// All methods are safe for concurrent use. One mutex per guard serializes
// load, check, mark and persist, so concurrent callers racing on the same
// nonce observe exactly one true.
package replay
