package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps all keys in a single JSON document on disk.
type FileStore struct {
	path   string
	mu     sync.Mutex
	values map[string]string
	loaded bool
}

// NewFileStore returns a store persisted at path. The file is read lazily.
// A file that cannot be decoded is reported by the first call and then
// treated as empty, so the next write replaces it.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) load() error {
	if fs.loaded {
		return nil
	}
	f, err := os.Open(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			fs.values = make(map[string]string)
			fs.loaded = true
			return nil
		}
		return fmt.Errorf("open %s: %w", fs.path, err)
	}
	defer f.Close()

	values := make(map[string]string)
	if err := json.NewDecoder(f).Decode(&values); err != nil {
		fs.values = make(map[string]string)
		fs.loaded = true
		return fmt.Errorf("decode %s: %w", fs.path, err)
	}
	fs.values = values
	fs.loaded = true
	return nil
}

func (fs *FileStore) save() error {
	if dir := filepath.Dir(fs.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	tmp := fs.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := json.NewEncoder(f).Encode(fs.values); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Get implements KeyValueStore.
func (fs *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.load(); err != nil {
		return "", false, err
	}
	v, ok := fs.values[key]
	return v, ok, nil
}

// Set implements KeyValueStore.
func (fs *FileStore) Set(_ context.Context, key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.load(); err != nil {
		return err
	}
	fs.values[key] = value
	return fs.save()
}

// Remove implements KeyValueStore.
func (fs *FileStore) Remove(_ context.Context, key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.load(); err != nil {
		return err
	}
	if _, ok := fs.values[key]; !ok {
		return nil
	}
	delete(fs.values, key)
	return fs.save()
}

// MemoryStore is a map-backed store that lives for the process lifetime.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get implements KeyValueStore.
func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implements KeyValueStore.
func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Remove implements KeyValueStore.
func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
