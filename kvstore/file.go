package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// lockDirName holds one lock file per key. It is not a valid key for File.
const lockDirName = ".locks"

// File stores each key as a file under a directory. Writers take an
// exclusive OS lock on the key's lock file, so Update is atomic across
// processes sharing dir.
type File struct {
	mu     sync.RWMutex
	dir    string
	closed bool
}

// NewFile creates (if needed) dir with 0700 permissions and returns a store rooted there.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("kvstore: file driver requires a directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &File{dir: dir}, nil
}

// Dir returns the root directory.
func (f *File) Dir() string { return f.dir }

func (f *File) checkKey(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if key == lockDirName {
		return fmt.Errorf("%w: %s is reserved", ErrInvalidKey, key)
	}
	return nil
}

// lockKey takes the cross-process lock for key. The caller holds f.mu.
func (f *File) lockKey(key string) (func(), error) {
	dir := filepath.Join(f.dir, lockDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	lf, err := os.OpenFile(filepath.Join(dir, key), os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock for %s: %w", key, err)
	}
	if err := lockFile(lf); err != nil {
		_ = lf.Close()
		return nil, fmt.Errorf("failed to lock %s: %w", key, err)
	}
	return func() {
		_ = unlockFile(lf)
		_ = lf.Close()
	}, nil
}

func (f *File) read(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, true, nil
}

// Get reads the file for key.
func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	if err := f.checkKey(key); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, ErrClosed
	}

	data, found, err := f.read(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return data, nil
}

// Set atomically replaces the file for key.
func (f *File) Set(_ context.Context, key string, value []byte) error {
	if err := f.checkKey(key); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	unlock, err := f.lockKey(key)
	if err != nil {
		return err
	}
	defer unlock()
	return atomicWriteFile(filepath.Join(f.dir, key), value, 0o600)
}

// Delete removes the file for key.
func (f *File) Delete(_ context.Context, key string) error {
	if err := f.checkKey(key); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	unlock, err := f.lockKey(key)
	if err != nil {
		return err
	}
	defer unlock()
	if err := os.Remove(filepath.Join(f.dir, key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Update implements Updater. The key's lock is held from the read until the
// new value has been renamed into place.
func (f *File) Update(_ context.Context, key string, fn UpdateFunc) error {
	if err := f.checkKey(key); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	unlock, err := f.lockKey(key)
	if err != nil {
		return err
	}
	defer unlock()

	current, found, err := f.read(key)
	if err != nil {
		return err
	}
	next, write, err := fn(current, found)
	if err != nil || !write {
		return err
	}
	return atomicWriteFile(filepath.Join(f.dir, key), next, 0o600)
}

// Close marks the store closed. Files stay on disk.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// atomicWriteFile writes data to a temp file in the same directory, syncs it
// and renames it over path. If rename fails because the target is locked
// (Windows), it retries after removing the target.
func atomicWriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(path)
		if err2 := os.Rename(tmpPath, path); err2 != nil {
			return fmt.Errorf("rename: %v (after remove: %v)", err, err2)
		}
	}
	return nil
}
