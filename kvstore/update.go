package kvstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrConflict is returned when an optimistic update kept losing races.
var ErrConflict = errors.New("kvstore: concurrent update conflict")

// UpdateFunc computes the next value of a key from its current value. found
// is false when the key is absent. Returning write=false leaves the key
// untouched. It may be called more than once by backends that retry.
type UpdateFunc func(current []byte, found bool) (next []byte, write bool, err error)

// Updater is implemented by stores that run a read-modify-write of one key
// atomically with respect to every other writer of that key, including
// other processes sharing the backend.
type Updater interface {
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// Update applies fn to key, atomically when s implements Updater. Other
// stores fall back to ReadModifyWrite. Errors returned by fn are passed
// through unwrapped.
func Update(ctx context.Context, s Store, key string, fn UpdateFunc) error {
	if u, ok := s.(Updater); ok {
		return u.Update(ctx, key, fn)
	}
	return ReadModifyWrite(ctx, s, key, fn)
}

// ReadModifyWrite applies fn with a plain Get and Set. It is only atomic if
// the caller serializes every writer of key.
func ReadModifyWrite(ctx context.Context, s Store, key string, fn UpdateFunc) error {
	current, err := s.Get(ctx, key)
	found := true
	switch {
	case errors.Is(err, ErrNotFound):
		current, found = nil, false
	case err != nil:
		return err
	}

	next, write, err := fn(current, found)
	if err != nil || !write {
		return err
	}
	return s.Set(ctx, key, next)
}

func conflictError(key string, attempts int) error {
	return fmt.Errorf("%w: %s after %d attempts", ErrConflict, key, attempts)
}
