package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is the synchronous key-value contract behind the single
// well-known storage slot for the persisted credential. The key itself
// is environment-derived and opaque to this package. Get returns
// (nil, nil) when no value is stored.
type Store interface {
	Get() ([]byte, error)
	Set(value []byte) error
	Remove() error
}

// MemStore keeps the credential in process memory; used in tests and
// ephemeral runtimes.
type MemStore struct {
	mu    sync.Mutex
	value []byte
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Get() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.value == nil {
		return nil, nil
	}
	out := make([]byte, len(s.value))
	copy(out, s.value)
	return out, nil
}

func (s *MemStore) Set(value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = make([]byte, len(value))
	copy(s.value, value)
	return nil
}

func (s *MemStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = nil
	return nil
}

// FileStore persists the credential to a single file, written atomically
// so a crashed write never leaves a half-serialized blob behind.
type FileStore struct {
	path string
}

// NewFileStore constructs a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	return data, nil
}

// Set writes via temp file, fsync and rename. If rename fails with the
// destination locked (Windows), it removes and retries once.
func (s *FileStore) Set(value []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(value); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	_ = os.Chmod(tmpPath, 0o600)

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(s.path)
		if err2 := os.Rename(tmpPath, s.path); err2 != nil {
			return fmt.Errorf("rename: %v (after remove: %v)", err, err2)
		}
	}
	return nil
}

func (s *FileStore) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
