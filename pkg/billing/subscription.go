package billing

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is the locally persisted mirror of a provider subscription.
// SubscriptionID is the provider's id and the upsert key; UserID, TenantID,
// CustomerID and SubscriptionID are identity fields set on insert and never
// rewritten by later syncs.
type Subscription struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	TenantID           uuid.UUID
	CustomerID         string
	SubscriptionID     string
	Status             Status
	PriceID            string
	ProductID          string
	CancelAtPeriodEnd  bool
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAt           *time.Time
	CanceledAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsActive reports whether the subscription currently grants access.
func (s *Subscription) IsActive() bool {
	return s.Status.IsActive()
}
