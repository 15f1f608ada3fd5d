package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Storage is a persisted key/value slot, the equivalent of browser local
// storage. store.SQLiteStore also satisfies it.
type Storage interface {
	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error
}

// FileStorage keeps slots in a JSON object on disk (mode 0600), e.g.
// ~/.shopadmin/credentials.json.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

// NewFileStorage returns a FileStorage for path. The file is created on the
// first write.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the backing file path.
func (f *FileStorage) Path() string {
	return f.path
}

func (f *FileStorage) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	slots := map[string]string{}
	if len(data) == 0 {
		return slots, nil
	}
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return slots, nil
}

func (f *FileStorage) write(slots map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(slots, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}

func (f *FileStorage) GetValue(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	slots, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := slots[key]
	return v, ok, nil
}

func (f *FileStorage) SetValue(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	slots, err := f.read()
	if err != nil {
		return err
	}
	slots[key] = value
	return f.write(slots)
}

func (f *FileStorage) DeleteValue(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	slots, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := slots[key]; !ok {
		return nil
	}
	delete(slots, key)
	return f.write(slots)
}

// MemoryStorage is an in-process Storage, used in tests and when the token
// comes from the environment.
type MemoryStorage struct {
	mu    sync.Mutex
	slots map[string]string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{slots: map[string]string{}}
}

func (m *MemoryStorage) GetValue(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.slots[key]
	return v, ok, nil
}

func (m *MemoryStorage) SetValue(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = value
	return nil
}

func (m *MemoryStorage) DeleteValue(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}
