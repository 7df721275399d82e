package kvstore

import (
	"context"
	"sync"
	"sync/atomic"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process Store backed by go-cache. Values never expire.
// Writes are serialized so Update is atomic against Set and Delete.
type Memory struct {
	c      *gocache.Cache
	wmu    sync.Mutex
	closed atomic.Bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, 0)}
}

// Get returns a copy of the value stored under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	v, ok := m.c.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	b, _ := v.([]byte)
	return append([]byte(nil), b...), nil
}

// Set stores a copy of value under key.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.wmu.Lock()
	defer m.wmu.Unlock()
	m.c.Set(key, append([]byte(nil), value...), gocache.NoExpiration)
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.wmu.Lock()
	defer m.wmu.Unlock()
	m.c.Delete(key)
	return nil
}

// Update implements Updater.
func (m *Memory) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.wmu.Lock()
	defer m.wmu.Unlock()

	var current []byte
	v, found := m.c.Get(key)
	if found {
		b, _ := v.([]byte)
		current = append([]byte(nil), b...)
	}
	next, write, err := fn(current, found)
	if err != nil || !write {
		return err
	}
	m.c.Set(key, append([]byte(nil), next...), gocache.NoExpiration)
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	return m.c.ItemCount()
}

// Close discards all values.
func (m *Memory) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	m.c.Flush()
	return nil
}
