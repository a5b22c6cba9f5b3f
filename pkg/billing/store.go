package billing

import (
	"context"

	"github.com/google/uuid"
)

// CustomerStore persists user-to-provider customer mappings.
type CustomerStore interface {
	// GetByUserTenant returns the customer mapping for the pair, or
	// ErrCustomerNotFound.
	GetByUserTenant(ctx context.Context, userID, tenantID uuid.UUID) (*Customer, error)

	// GetByCustomerID returns the mapping for a provider customer id, or
	// ErrCustomerNotFound.
	GetByCustomerID(ctx context.Context, customerID string) (*Customer, error)

	// Create inserts the mapping. When a mapping for the same
	// (UserID, TenantID) pair already exists it returns the existing row
	// instead of failing, so concurrent provisioning converges on one
	// customer.
	Create(ctx context.Context, c *Customer) (*Customer, error)
}

// SubscriptionStore persists subscription mirrors.
type SubscriptionStore interface {
	// GetBySubscriptionID returns the record for a provider subscription
	// id, or ErrSubscriptionNotFound.
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*Subscription, error)

	// ListByUserTenant returns all records for the pair, newest first.
	ListByUserTenant(ctx context.Context, userID, tenantID uuid.UUID) ([]Subscription, error)

	// Upsert inserts the record keyed on SubscriptionID, or updates the
	// mutable state fields of the existing row. Identity fields of an
	// existing row are left untouched. It returns the stored record.
	Upsert(ctx context.Context, s *Subscription) (*Subscription, error)
}
