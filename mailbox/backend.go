package mailbox

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/opd-ai/paykit/identity"
)

// ErrNotFound is returned by a Backend for a missing object.
var ErrNotFound = errors.New("object not found")

// Backend stores opaque objects under an owner's public storage.
type Backend interface {
	Put(ctx context.Context, owner identity.PublicKeyIdentifier, path string, data []byte) error
	Get(ctx context.Context, owner identity.PublicKeyIdentifier, path string) ([]byte, error)
	// List returns the object names directly below dir, sorted.
	List(ctx context.Context, owner identity.PublicKeyIdentifier, dir string) ([]string, error)
}

// MemoryBackend is an in-process Backend.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[identity.PublicKeyIdentifier]map[string][]byte
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[identity.PublicKeyIdentifier]map[string][]byte)}
}

// Put implements Backend.
func (b *MemoryBackend) Put(_ context.Context, owner identity.PublicKeyIdentifier, path string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	slot := b.objects[owner]
	if slot == nil {
		slot = make(map[string][]byte)
		b.objects[owner] = slot
	}
	slot[path] = append([]byte(nil), data...)
	return nil
}

// Get implements Backend.
func (b *MemoryBackend) Get(_ context.Context, owner identity.PublicKeyIdentifier, path string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.objects[owner][path]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// List implements Backend.
func (b *MemoryBackend) List(_ context.Context, owner identity.PublicKeyIdentifier, dir string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	var names []string
	for path := range b.objects[owner] {
		name, ok := strings.CutPrefix(path, dir)
		if ok && name != "" && !strings.Contains(name, "/") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
