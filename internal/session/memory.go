package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/joao-fontenele/levelup-gamer/internal/domain"
)

// Memory keeps sessions in process. Values are stored encoded so callers never share
// slices with the store.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) GetCart(_ context.Context, sessionID string) ([]domain.CartLine, error) {
	lines := []domain.CartLine{}
	if _, err := m.get(CartKey(sessionID), &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (m *Memory) SaveCart(_ context.Context, sessionID string, lines []domain.CartLine) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return m.set(CartKey(sessionID), lines)
}

func (m *Memory) GetCurrentUser(_ context.Context, sessionID string) (*domain.User, error) {
	var user domain.User
	found, err := m.get(UserKey(sessionID), &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

func (m *Memory) SetCurrentUser(_ context.Context, sessionID string, user domain.User) error {
	return m.set(UserKey(sessionID), user.Public())
}

func (m *Memory) ClearCurrentUser(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, UserKey(sessionID))
	return nil
}

func (m *Memory) get(key string, v any) (bool, error) {
	m.mu.RLock()
	data, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (m *Memory) set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	m.mu.Lock()
	m.values[key] = data
	m.mu.Unlock()
	return nil
}
