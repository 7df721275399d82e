package replay

import "errors"

var (
	// ErrReplayDetected indicates a nonce that was already consumed. It must
	// surface as an authentication failure and is never retryable.
	ErrReplayDetected = errors.New("replay detected")

	// ErrStorageUnavailable indicates the ledger could not be read, decoded or
	// written. Callers may retry; the guard never treats this state as fresh.
	ErrStorageUnavailable = errors.New("nonce ledger unavailable")

	// ErrInvalidNonce indicates a nonce that is not NonceLength hex characters.
	ErrInvalidNonce = errors.New("invalid nonce")

	// ErrLedgerFull indicates the ledger holds MaxRecords unexpired nonces.
	ErrLedgerFull = errors.New("nonce ledger full")
)
