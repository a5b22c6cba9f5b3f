package tenant

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation for tests and examples.
// It enforces the same uniqueness rules as the Postgres store.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*Tenant

	// OnOwnerCreated, when set, is invoked inside Create after the tenant row
	// is stored, standing in for the owner-membership insert of the real
	// store. An error rolls the tenant back, mirroring the transaction.
	OnOwnerCreated func(ctx context.Context, tenantID, ownerUserID uuid.UUID) error
}

// NewMemoryStore creates an empty in-memory tenant store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tenants: make(map[uuid.UUID]*Tenant)}
}

func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tenants {
		if t.Active && strings.EqualFold(t.Subdomain, subdomain) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrTenantNotFound
}

func (s *MemoryStore) GetByCustomDomain(ctx context.Context, domain string) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tenants {
		if t.Active && t.CustomDomain != "" && strings.EqualFold(t.CustomDomain, domain) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrTenantNotFound
}

func (s *MemoryStore) Create(ctx context.Context, t *Tenant, ownerUserID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.tenants {
		if strings.EqualFold(existing.Subdomain, t.Subdomain) {
			return ErrSubdomainTaken
		}
		if t.CustomDomain != "" && strings.EqualFold(existing.CustomDomain, t.CustomDomain) {
			return ErrCustomDomainTaken
		}
	}

	cp := *t
	s.tenants[t.ID] = &cp

	if s.OnOwnerCreated != nil {
		if err := s.OnOwnerCreated(ctx, t.ID, ownerUserID); err != nil {
			delete(s.tenants, t.ID)
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, t *Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[t.ID]; !ok {
		return ErrTenantNotFound
	}
	for id, existing := range s.tenants {
		if id == t.ID {
			continue
		}
		if strings.EqualFold(existing.Subdomain, t.Subdomain) {
			return ErrSubdomainTaken
		}
		if t.CustomDomain != "" && strings.EqualFold(existing.CustomDomain, t.CustomDomain) {
			return ErrCustomDomainTaken
		}
	}

	cp := *t
	s.tenants[t.ID] = &cp
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[id]; !ok {
		return ErrTenantNotFound
	}
	delete(s.tenants, id)
	return nil
}
