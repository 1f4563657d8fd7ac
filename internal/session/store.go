// Package session defines the single-slot store that holds the session token.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// SlotName is the fixed key of the token slot.
const SlotName = "auth_token"

// ErrEmptyToken is returned when storing an empty token.
var ErrEmptyToken = errors.New("session token is empty")

// Store persists exactly one credential: the session token.
// A stored token stays valid until it is overwritten or cleared.
type Store interface {
	// Get returns the stored token and whether one is present.
	Get(ctx context.Context) (string, bool, error)
	// Set overwrites the stored token. The write is visible to the next Get.
	Set(ctx context.Context, token string) error
	// Clear removes the stored token.
	Clear(ctx context.Context) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != "", nil
}

func (m *MemoryStore) Set(_ context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrEmptyToken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
