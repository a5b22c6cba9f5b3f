package billing

import (
	"time"

	"github.com/google/uuid"
)

// Customer links an application user within a tenant to a provider
// customer record. The (UserID, TenantID) pair is unique, as is CustomerID.
type Customer struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TenantID   uuid.UUID
	CustomerID string
	Email      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CustomerState is the read-through view of a customer combining the local
// mapping with the provider's current data. Provider is nil when the
// provider lookup failed or the remote record was deleted.
type CustomerState struct {
	Customer Customer
	Provider *ProviderCustomer
}
