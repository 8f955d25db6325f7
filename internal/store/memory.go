package store

import (
	"context"
	"sync"

	"github.com/serroba/urls-node/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Repository.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings map[shortener.ShortID]shortener.Mapping
}

// NewMemoryStore creates a new in-memory mapping store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mappings: make(map[shortener.ShortID]shortener.Mapping),
	}
}

func (m *MemoryStore) Insert(_ context.Context, mapping *shortener.Mapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.mappings[mapping.ShortID]; ok {
		return shortener.ErrDuplicateID
	}

	m.mappings[mapping.ShortID] = *mapping

	return nil
}

func (m *MemoryStore) FindByShortID(_ context.Context, id shortener.ShortID) (*shortener.Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mapping, ok := m.mappings[id]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return &mapping, nil
}

// Len returns the number of stored mappings.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.mappings)
}

var _ shortener.Repository = (*MemoryStore)(nil)
