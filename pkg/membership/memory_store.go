package membership

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type pairKey struct {
	userID   uuid.UUID
	tenantID uuid.UUID
}

// MemoryStore is an in-memory Store implementation for tests and examples.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[pairKey]*Membership
}

// NewMemoryStore creates an empty in-memory membership store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[pairKey]*Membership)}
}

func (s *MemoryStore) Get(ctx context.Context, userID, tenantID uuid.UUID) (*Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.items[pairKey{userID, tenantID}]
	if !ok {
		return nil, ErrNotMember
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) Insert(ctx context.Context, m *Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{m.UserID, m.TenantID}
	if _, ok := s.items[key]; ok {
		return ErrAlreadyMember
	}
	cp := *m
	s.items[key] = &cp
	return nil
}

func (s *MemoryStore) UpdateRole(ctx context.Context, userID, tenantID uuid.UUID, role Role) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.items[pairKey{userID, tenantID}]
	if !ok {
		return nil, ErrNotMember
	}
	m.Role = role
	m.UpdatedAt = time.Now().UTC()
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID, tenantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{userID, tenantID}
	if _, ok := s.items[key]; !ok {
		return ErrNotMember
	}
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Membership
	for key, m := range s.items {
		if key.userID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Membership
	for key, m := range s.items {
		if key.tenantID == tenantID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *MemoryStore) ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for key := range s.items {
		if key.userID == userID {
			return true, nil
		}
	}
	return false, nil
}
