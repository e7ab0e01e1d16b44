package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Keystore is string-only durable key-value storage, the stand-in for the
// browser's localStorage.
type Keystore interface {
	// Get returns the value for key; the bool reports whether it exists.
	Get(key string) (string, bool, error)
	// Set stores value under key, durably.
	Set(key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// FileKeystore persists keys as a single JSON object in one file, written
// atomically (tmp file, fsync, rename).
type FileKeystore struct {
	mu   sync.Mutex
	path string
}

// NewFileKeystore creates a keystore backed by the file at path. The file is
// created on first Set.
func NewFileKeystore(path string) *FileKeystore {
	return &FileKeystore{path: path}
}

func (k *FileKeystore) Get(key string) (string, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, err := k.load()
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

func (k *FileKeystore) Set(key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, err := k.load()
	if err != nil {
		return err
	}
	m[key] = value
	return k.save(m)
}

func (k *FileKeystore) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, err := k.load()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return k.save(m)
}

func (k *FileKeystore) load() (map[string]string, error) {
	data, err := os.ReadFile(k.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keystore: read: %w", err)
	}
	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("keystore: parse: %w", err)
	}
	return m, nil
}

func (k *FileKeystore) save(m map[string]string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("keystore: encode: %w", err)
	}

	dir := filepath.Dir(k.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("keystore: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ansuz-keys-*")
	if err != nil {
		return fmt.Errorf("keystore: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("keystore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("keystore: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("keystore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, k.path); err != nil {
		return fmt.Errorf("keystore: rename: %w", err)
	}
	success = true
	return nil
}
