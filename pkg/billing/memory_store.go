package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type customerKey struct {
	userID   uuid.UUID
	tenantID uuid.UUID
}

// MemoryCustomerStore is an in-memory CustomerStore for development and
// tests.
type MemoryCustomerStore struct {
	mu     sync.RWMutex
	byPair map[customerKey]*Customer
}

// NewMemoryCustomerStore creates an empty in-memory customer store.
func NewMemoryCustomerStore() *MemoryCustomerStore {
	return &MemoryCustomerStore{byPair: make(map[customerKey]*Customer)}
}

func (s *MemoryCustomerStore) GetByUserTenant(ctx context.Context, userID, tenantID uuid.UUID) (*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byPair[customerKey{userID, tenantID}]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryCustomerStore) GetByCustomerID(ctx context.Context, customerID string) (*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.byPair {
		if c.CustomerID == customerID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrCustomerNotFound
}

func (s *MemoryCustomerStore) Create(ctx context.Context, c *Customer) (*Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := customerKey{c.UserID, c.TenantID}
	if existing, ok := s.byPair[key]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *c
	s.byPair[key] = &cp
	out := cp
	return &out, nil
}

// MemorySubscriptionStore is an in-memory SubscriptionStore for development
// and tests.
type MemorySubscriptionStore struct {
	mu   sync.RWMutex
	byID map[string]*Subscription
}

// NewMemorySubscriptionStore creates an empty in-memory subscription store.
func NewMemorySubscriptionStore() *MemorySubscriptionStore {
	return &MemorySubscriptionStore{byID: make(map[string]*Subscription)}
}

func (s *MemorySubscriptionStore) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.byID[subscriptionID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *MemorySubscriptionStore) ListByUserTenant(ctx context.Context, userID, tenantID uuid.UUID) ([]Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Subscription
	for _, sub := range s.byID {
		if sub.UserID == userID && sub.TenantID == tenantID {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemorySubscriptionStore) Upsert(ctx context.Context, sub *Subscription) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byID[sub.SubscriptionID]; ok {
		existing.Status = sub.Status
		existing.PriceID = sub.PriceID
		existing.ProductID = sub.ProductID
		existing.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		existing.CurrentPeriodStart = sub.CurrentPeriodStart
		existing.CurrentPeriodEnd = sub.CurrentPeriodEnd
		existing.CancelAt = sub.CancelAt
		existing.CanceledAt = sub.CanceledAt
		existing.UpdatedAt = time.Now().UTC()
		cp := *existing
		return &cp, nil
	}
	cp := *sub
	s.byID[sub.SubscriptionID] = &cp
	out := cp
	return &out, nil
}
