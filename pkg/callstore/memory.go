package callstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store suitable for single-node deployments and
// tests.
type Memory struct {
	mu    sync.RWMutex
	calls map[string]map[string]string
}

var _ Store = (*Memory)(nil)

// NewMemory bootstraps an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{calls: make(map[string]map[string]string)}
}

func (m *Memory) Set(_ context.Context, callID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	vals, ok := m.calls[callID]
	if !ok {
		vals = make(map[string]string)
		m.calls[callID] = vals
	}
	vals[key] = value
	return nil
}

func (m *Memory) Get(_ context.Context, callID, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.calls[callID][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Has(_ context.Context, callID, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.calls[callID][key]
	return ok, nil
}

func (m *Memory) Delete(_ context.Context, callID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if vals, ok := m.calls[callID]; ok {
		delete(vals, key)
		if len(vals) == 0 {
			delete(m.calls, callID)
		}
	}
	return nil
}

func (m *Memory) All(_ context.Context, callID string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vals, ok := m.calls[callID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := make(map[string]string, len(vals))
	for k, v := range vals {
		copied[k] = v
	}
	return copied, nil
}

func (m *Memory) Len(_ context.Context, callID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls[callID]), nil
}

func (m *Memory) Clear(_ context.Context, callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.calls, callID)
	return nil
}

func (m *Memory) ActiveCalls(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.calls))
	for id := range m.calls {
		ids = append(ids, id)
	}
	return ids, nil
}
