package sessions

import (
	"context"
	"sync"
)

// MemoryRepository is an in-process Repository used by tests and by SESSION_STORE=memory.
type MemoryRepository struct {
	mu    sync.Mutex
	saved *Session
	saves int
}

func NewMemoryRepository() *MemoryRepository { return &MemoryRepository{} }

func (m *MemoryRepository) Load(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return nil, nil
	}
	s := m.saved.Clone()
	return &s, nil
}

func (m *MemoryRepository) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if isEmpty(s) {
		m.saved = nil
		return nil
	}
	c := s.Clone()
	m.saved = &c
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryRepository) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
