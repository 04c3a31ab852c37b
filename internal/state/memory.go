package state

import (
	"context"
	"sync"
)

// MemoryState is an in-process, map-backed ForgeState. It exists for
// tests and for hosts that don't need durability across process
// restarts; it satisfies the same absence/propagation semantics as
// LibSQLState.
type MemoryState struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemoryState creates an empty MemoryState.
func NewMemoryState() *MemoryState {
	return &MemoryState{data: make(map[string]map[string][]byte)}
}

func (m *MemoryState) Get(ctx context.Context, sessionID, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket, ok := m.data[sessionID]
	if !ok {
		return nil, false, nil
	}
	v, ok := bucket[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (m *MemoryState) Set(ctx context.Context, sessionID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.data[sessionID]
	if !ok {
		bucket = make(map[string][]byte)
		m.data[sessionID] = bucket
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	bucket[key] = cp
	return nil
}

// Snapshot returns a shallow copy of a session's key/value pairs, for
// assertions in tests.
func (m *MemoryState) Snapshot(sessionID string) map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.data[sessionID]))
	for k, v := range m.data[sessionID] {
		out[k] = v
	}
	return out
}
