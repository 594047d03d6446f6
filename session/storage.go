package session

import (
	"context"
	"sync"
)

// Storage is the persisted key/value state of the shell: the session token,
// cached display fields and the audit list.
type Storage interface {
	// Get returns the value under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// Append adds value to the end of the list under key.
	Append(ctx context.Context, key string, value []byte) error
	// Range returns the list under key in insertion order.
	Range(ctx context.Context, key string) ([][]byte, error)
}

// Keys names the persisted entries.
type Keys struct {
	Token    string
	UserName string
	UserRole string
	AuditLog string
}

// NewKeys derives the well-known keys from prefix, e.g. "erp" yields
// "erp_auth_token".
func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = "erp"
	}
	return Keys{
		Token:    prefix + "_auth_token",
		UserName: prefix + "_user_name",
		UserRole: prefix + "_user_role",
		AuditLog: prefix + "_audit_log",
	}
}

// MemoryStorage keeps state in process memory.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
	lists  map[string][][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		values: make(map[string]string),
		lists:  make(map[string][][]byte),
	}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
		delete(m.lists, k)
	}
	return nil
}

func (m *MemoryStorage) Append(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append(m.lists[key], append([]byte(nil), value...))
	return nil
}

func (m *MemoryStorage) Range(_ context.Context, key string) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.lists[key]
	out := make([][]byte, len(src))
	for i, v := range src {
		out[i] = append([]byte(nil), v...)
	}
	return out, nil
}
