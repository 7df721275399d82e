// Package kvstore provides the persistent key-value collaborator used by the
// replay guard and any other component that needs to keep a small opaque
// blob per namespace.
//
// The contract is deliberately narrow:
//
//	type Store interface {
//	    Get(ctx context.Context, key string) ([]byte, error) // ErrNotFound if absent
//	    Set(ctx context.Context, key string, value []byte) error
//	    Delete(ctx context.Context, key string) error
//	    Close() error
//	}
//
// Read-modify-write cycles go through [Update], which uses a backend's
// [Updater] implementation when it has one. Every built-in backend does, so
// two writers sharing a backend never lose each other's changes.
//
// # Backends
//
//   - [NewMemory]: in-process, backed by go-cache with no expiration. For tests
//     and short-lived processes.
//   - [NewFile]: one file per key under a directory, written atomically
//     (temp file, fsync, rename) with 0600 permissions. Writers hold an OS
//     lock on .locks/<key>, which serializes them across processes.
//   - [NewRedis]: a shared Redis instance via go-redis. Update uses
//     WATCH/MULTI and retries on conflict.
//   - [NewEncrypted]: wraps any other Store with AES-256-GCM encryption at rest.
//     The key is derived from a passphrase with PBKDF2-SHA256, the salt lives in
//     the inner store, and every value is bound to its key name so blobs cannot
//     be swapped between keys.
//
// [New] builds a backend from a [Config].
//
// Keys are restricted to [A-Za-z0-9._-] so every backend can store them
// verbatim, including as file names.
package kvstore
