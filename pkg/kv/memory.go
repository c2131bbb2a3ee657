package kv

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// Memory is an in-process Store used as the default backend and in tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: map[string][]byte{}}
}

func (m *Memory) Get(ctx context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// Corrupt entries behave as missing.
		return false, nil
	}
	return true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Has(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	_, ok := m.entries[key]
	m.mu.RUnlock()
	return ok, nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.entries = map[string][]byte{}
	m.mu.Unlock()
	return nil
}

func (m *Memory) ClearPrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

// Corrupt overwrites the raw bytes at key, bypassing JSON encoding. Test
// helper for exercising corruption tolerance.
func (m *Memory) Corrupt(key string, raw []byte) {
	m.mu.Lock()
	m.entries[key] = raw
	m.mu.Unlock()
}
