package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/paykit/kvstore"
)

var errInjected = errors.New("injected storage failure")

// faultyStore wraps a memory store and fails selected operations on demand.
type faultyStore struct {
	*kvstore.Memory
	failGet    atomic.Bool
	failSet    atomic.Bool
	failDelete atomic.Bool
	gets       atomic.Int32
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Memory: kvstore.NewMemory()}
}

func (f *faultyStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.gets.Add(1)
	if f.failGet.Load() {
		return nil, errInjected
	}
	return f.Memory.Get(ctx, key)
}

func (f *faultyStore) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet.Load() {
		return errInjected
	}
	return f.Memory.Set(ctx, key, value)
}

func (f *faultyStore) Delete(ctx context.Context, key string) error {
	if f.failDelete.Load() {
		return errInjected
	}
	return f.Memory.Delete(ctx, key)
}

// Update keeps the memory store's atomic update but honours the injected
// read and write failures.
func (f *faultyStore) Update(ctx context.Context, key string, fn kvstore.UpdateFunc) error {
	f.gets.Add(1)
	if f.failGet.Load() {
		return errInjected
	}
	return f.Memory.Update(ctx, key, func(current []byte, found bool) ([]byte, bool, error) {
		next, write, err := fn(current, found)
		if err == nil && write && f.failSet.Load() {
			return nil, false, errInjected
		}
		return next, write, err
	})
}

// fixedClock is a settable TimeProvider.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// nonceN returns a deterministic canonical nonce.
func nonceN(i int) string {
	return fmt.Sprintf("%064x", i+1)
}

// quietLogger returns a logger that records entries instead of printing them.
func quietLogger() (*logrus.Entry, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger), hook
}

func newTestGuard(t *testing.T, store kvstore.Store, opts ...Option) *Guard {
	t.Helper()
	entry, _ := quietLogger()
	g, err := NewGuard(store, "test", append([]Option{WithLogger(entry)}, opts...)...)
	require.NoError(t, err)
	return g
}
