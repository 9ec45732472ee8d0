// Package store persists planner state as JSON values under string keys.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	appLog "weekposter/internal/log"
)

// Keys used by the planner.
const (
	KeyActivities = "activities"
	KeyBlocks     = "blocks"
	KeySettings   = "settings"
)

// Keys lists every key ClearAll removes.
var Keys = []string{KeyActivities, KeyBlocks, KeySettings}

// ErrUnavailable is returned when the backing storage cannot be written.
var ErrUnavailable = errors.New("store unavailable")

// KV is a minimal key-value boundary. Values are JSON-encoded.
type KV interface {
	// Get decodes the value stored under key into dst and reports whether
	// the key existed.
	Get(key string, dst any) (bool, error)
	Set(key string, v any) error
	Clear(key string) error
	// Available reports whether writes can currently succeed.
	Available() bool
}

// ClearAll removes every planner key from kv.
func ClearAll(kv KV) error {
	var errs []error
	for _, k := range Keys {
		if err := kv.Clear(k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var keyPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

func checkKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("store: invalid key %q", key)
	}
	return nil
}

// FileStore keeps one <key>.json file per key in Dir.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates dir (0700) if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("store: directory is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Get(key string, dst any) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	s.mu.Lock()
	data, err := os.ReadFile(s.path(key))
	s.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return true, nil
}

func (s *FileStore) Set(key string, v any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeAtomic(s.path(key), data); err != nil {
		appLog.Error("store write failed", err, "key", key, "dir", s.dir)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *FileStore) Clear(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Available probes the directory with a throwaway write.
func (s *FileStore) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	probe := filepath.Join(s.dir, ".probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return false
	}
	return os.Remove(probe) == nil
}

// writeAtomic writes through a temp file + rename, leaving 0600 perms.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".store-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// MemoryStore is an in-process KV, used by tests and -once runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(key string, dst any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return true, nil
}

func (m *MemoryStore) Set(key string, v any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Available() bool { return true }
