package store

import (
	"context"
	"sync"
)

type memKey struct {
	chainID uint64
	kind    Kind
	id      string
}

// Memory is an in-process KV backend.
type Memory struct {
	mu   sync.RWMutex
	data map[memKey][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[memKey][]byte)}
}

func (m *Memory) Get(_ context.Context, chainID uint64, kind Kind, id string) ([]byte, bool, error) {
	m.mu.RLock()
	data, ok := m.data[memKey{chainID, kind, id}]
	m.mu.RUnlock()
	return data, ok, nil
}

func (m *Memory) Apply(_ context.Context, chainID uint64, writes []Write) error {
	m.mu.Lock()
	for _, w := range writes {
		m.data[memKey{chainID, w.Kind, w.ID}] = append([]byte(nil), w.Data...)
	}
	m.mu.Unlock()
	return nil
}

// Count returns the number of stored entities of a kind on a chain.
func (m *Memory) Count(chainID uint64, kind Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for key := range m.data {
		if key.chainID == chainID && key.kind == kind {
			n++
		}
	}
	return n
}
