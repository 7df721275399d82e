package kvstore

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "paykit.nonces.alice", []byte(`{"a":1}`)))
	got, err := s.Get(ctx, "paykit.nonces.alice")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), got)

	// Overwrite
	require.NoError(t, s.Set(ctx, "paykit.nonces.alice", []byte(`{}`)))
	got, err = s.Get(ctx, "paykit.nonces.alice")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{}`), got)

	// Returned slices are not aliased to stored state.
	got[0] = 'X'
	again, err := s.Get(ctx, "paykit.nonces.alice")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{}`), again)

	// Empty values are legal.
	require.NoError(t, s.Set(ctx, "empty", nil))
	got, err = s.Get(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Delete(ctx, "paykit.nonces.alice"))
	_, err = s.Get(ctx, "paykit.nonces.alice")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(ctx, "paykit.nonces.alice"), "deleting a missing key")

	for _, key := range []string{"", "a/b", "..", "has space", strings.Repeat("k", MaxKeyLength+1)} {
		assert.ErrorIs(t, s.Set(ctx, key, []byte("x")), ErrInvalidKey, "key %q", key)
		_, err := s.Get(ctx, key)
		assert.ErrorIs(t, err, ErrInvalidKey)
	}
}

func exerciseConcurrentWriters(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "k-" + string(rune('a'+i))
			assert.NoError(t, s.Set(ctx, key, []byte{byte(i)}))
			got, err := s.Get(ctx, key)
			assert.NoError(t, err)
			assert.Equal(t, []byte{byte(i)}, got)
		}(i)
	}
	wg.Wait()
}

// exerciseUpdate checks Update's contract on a single store.
func exerciseUpdate(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := "update-contract"
	_ = s.Delete(ctx, key)

	require.NoError(t, Update(ctx, s, key, func(current []byte, found bool) ([]byte, bool, error) {
		assert.False(t, found)
		assert.Nil(t, current)
		return []byte("v1"), true, nil
	}))
	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// write=false leaves the value alone.
	require.NoError(t, Update(ctx, s, key, func(current []byte, found bool) ([]byte, bool, error) {
		assert.True(t, found)
		assert.Equal(t, []byte("v1"), current)
		return []byte("ignored"), false, nil
	}))
	got, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// Callback errors come back as-is and nothing is written.
	boom := errors.New("boom")
	err = Update(ctx, s, key, func([]byte, bool) ([]byte, bool, error) {
		return []byte("v2"), true, boom
	})
	assert.ErrorIs(t, err, boom)
	got, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	assert.ErrorIs(t, Update(ctx, s, "a/b", func([]byte, bool) ([]byte, bool, error) {
		return nil, false, nil
	}), ErrInvalidKey)

	require.NoError(t, s.Delete(ctx, key))
}

// exerciseConcurrentUpdates increments one counter from many goroutines
// spread over stores that share a backend. Lost updates show up as a
// short count.
func exerciseConcurrentUpdates(t *testing.T, stores ...Store) {
	t.Helper()
	ctx := context.Background()
	key := "update-counter"
	_ = stores[0].Delete(ctx, key)

	const perStore = 25
	var wg sync.WaitGroup
	for _, s := range stores {
		for i := 0; i < perStore; i++ {
			wg.Add(1)
			go func(s Store) {
				defer wg.Done()
				assert.NoError(t, Update(ctx, s, key, func(current []byte, found bool) ([]byte, bool, error) {
					n := 0
					if found {
						var err error
						if n, err = strconv.Atoi(string(current)); err != nil {
							return nil, false, err
						}
					}
					return []byte(strconv.Itoa(n + 1)), true, nil
				}))
			}(s)
		}
	}
	wg.Wait()

	got, err := stores[0].Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(perStore*len(stores)), string(got))
	require.NoError(t, stores[0].Delete(ctx, key))
}

// plainStore hides a backend's Updater so Update takes the fallback path.
type plainStore struct{ Store }

func TestUpdateFallsBackToReadModifyWrite(t *testing.T) {
	s := plainStore{NewMemory()}
	_, ok := Store(s).(Updater)
	require.False(t, ok)

	exerciseUpdate(t, s)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	exerciseStore(t, s)
	exerciseConcurrentWriters(t, s)
	exerciseUpdate(t, s)
	exerciseConcurrentUpdates(t, s, s)

	require.NoError(t, s.Close())
	_, err := s.Get(context.Background(), "k-a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set(context.Background(), "k-a", nil), ErrClosed)
	assert.NoError(t, s.Close(), "double close")
}

func TestMemoryStoreLen(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	require.NoError(t, s.Set(ctx, "b", []byte("2")))
	assert.Equal(t, 2, s.Len())
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey("paykit.nonces.ns-1_A"))
	assert.ErrorIs(t, ValidateKey("."), ErrInvalidKey)
	assert.ErrorIs(t, ValidateKey("a\\b"), ErrInvalidKey)
	assert.ErrorIs(t, ValidateKey("ключ"), ErrInvalidKey)
}

func TestNewSelectsDriver(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = New(Config{Driver: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)

	s, err = New(Config{Driver: "memory", Passphrase: []byte("correct horse")})
	require.NoError(t, err)
	assert.IsType(t, &Encrypted{}, s)

	_, err = New(Config{Driver: "etcd"})
	assert.Error(t, err)

	_, err = New(Config{Driver: "file"})
	assert.Error(t, err)
}
