package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

const (
	StorageKeyAccessToken  = "accessToken"
	StorageKeyRefreshToken = "refreshToken"
	StorageKeyUser         = "user"
)

// SessionKeys lists the persisted keys in the order they are written.
func SessionKeys() []string {
	return []string{StorageKeyAccessToken, StorageKeyRefreshToken, StorageKeyUser}
}

type JSONUserCodec struct{}

func (JSONUserCodec) Encode(user UserInfo) (string, error) {
	encoded, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("core: encode user payload: %w", err)
	}
	return string(encoded), nil
}

func (JSONUserCodec) Decode(payload string) (UserInfo, error) {
	if strings.TrimSpace(payload) == "" {
		return UserInfo{}, fmt.Errorf("core: user payload is empty")
	}
	decoded := UserInfo{}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return UserInfo{}, fmt.Errorf("core: decode user payload: %w", err)
	}
	return decoded, nil
}

// MemoryStorage is a process-local Storage, used by default and in tests.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]string{}}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	if m == nil {
		return "", false, fmt.Errorf("core: memory storage is nil")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key string, value string) error {
	if m == nil {
		return fmt.Errorf("core: memory storage is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, key string) error {
	if m == nil {
		return fmt.Errorf("core: memory storage is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Snapshot returns a copy of every stored value.
func (m *MemoryStorage) Snapshot() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.values))
	for key, value := range m.values {
		out[key] = value
	}
	return out
}
