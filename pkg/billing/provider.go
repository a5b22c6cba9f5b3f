package billing

import (
	"context"
	"net/http"
)

// CreateCustomerParams carry the identity attached to a new provider
// customer. Metadata keys userId and tenantId are set from the IDs.
type CreateCustomerParams struct {
	Email    string
	Name     string
	UserID   string
	TenantID string
}

// CheckoutParams configure a provider-hosted checkout session.
type CheckoutParams struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	TrialDays  int64
}

// Provider abstracts the payment provider API surface the billing service
// needs. Implementations must be safe for concurrent use.
type Provider interface {
	CreateCustomer(ctx context.Context, params CreateCustomerParams) (*ProviderCustomer, error)
	RetrieveCustomer(ctx context.Context, customerID string) (*ProviderCustomer, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*Session, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (*Session, error)
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*SubscriptionPayload, error)

	// ParseWebhook verifies the payload signature against the request
	// headers and returns the decoded event envelope. It returns
	// ErrInvalidSignature when verification fails.
	ParseWebhook(payload []byte, header http.Header) (*Event, error)
}
