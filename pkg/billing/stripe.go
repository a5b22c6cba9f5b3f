package billing

import (
	"context"
	"fmt"
	"net/http"

	stripe "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeProvider implements Provider on top of the Stripe API.
type StripeProvider struct {
	apiKey        string
	webhookSecret string

	// Call sites are function fields so tests can stub the Stripe API
	// without network access.
	createCustomer        func(params *stripe.CustomerParams) (*stripe.Customer, error)
	getCustomer           func(id string, params *stripe.CustomerParams) (*stripe.Customer, error)
	createCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	createPortalSession   func(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
	callBackend           func(method, path, key string, params stripe.ParamsContainer, v stripe.LastResponseSetter) error
}

// NewStripeProvider returns a Provider backed by Stripe. apiKey is the
// secret key; webhookSecret is the endpoint signing secret used by
// ParseWebhook.
func NewStripeProvider(apiKey, webhookSecret string) *StripeProvider {
	stripe.Key = apiKey
	return &StripeProvider{
		apiKey:                apiKey,
		webhookSecret:         webhookSecret,
		createCustomer:        customer.New,
		getCustomer:           customer.Get,
		createCheckoutSession: checkoutsession.New,
		createPortalSession:   portalsession.New,
		callBackend:           stripe.GetBackend(stripe.APIBackend).Call,
	}
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, params CreateCustomerParams) (*ProviderCustomer, error) {
	cust, err := p.createCustomer(&stripe.CustomerParams{
		Params: stripe.Params{
			Context: ctx,
			Metadata: map[string]string{
				"userId":   params.UserID,
				"tenantId": params.TenantID,
			},
		},
		Email: stripe.String(params.Email),
		Name:  stripe.String(params.Name),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create customer: %v", ErrProvider, err)
	}
	return providerCustomerFrom(cust), nil
}

func (p *StripeProvider) RetrieveCustomer(ctx context.Context, customerID string) (*ProviderCustomer, error) {
	cust, err := p.getCustomer(customerID, &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve customer %s: %v", ErrProvider, customerID, err)
	}
	return providerCustomerFrom(cust), nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*Session, error) {
	sp := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(params.CustomerID),
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	if params.TrialDays > 0 {
		sp.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(params.TrialDays),
		}
	}
	sess, err := p.createCheckoutSession(sp)
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout session: %v", ErrProvider, err)
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*Session, error) {
	sess, err := p.createPortalSession(&stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create portal session: %v", ErrProvider, err)
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

// subscriptionResource decodes a subscription retrieve response into the
// local payload shape instead of the SDK struct, keeping the period fields
// readable regardless of the pinned API version.
type subscriptionResource struct {
	stripe.APIResource
	SubscriptionPayload
}

func (p *StripeProvider) RetrieveSubscription(ctx context.Context, subscriptionID string) (*SubscriptionPayload, error) {
	res := &subscriptionResource{}
	err := p.callBackend(http.MethodGet, "/v1/subscriptions/"+subscriptionID, p.apiKey,
		&stripe.Params{Context: ctx}, res)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve subscription %s: %v", ErrProvider, subscriptionID, err)
	}
	return &res.SubscriptionPayload, nil
}

func (p *StripeProvider) ParseWebhook(payload []byte, header http.Header) (*Event, error) {
	sig := header.Get("Stripe-Signature")
	event, err := webhook.ConstructEventWithOptions(payload, sig, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return &Event{
		ID:     event.ID,
		Type:   EventType(event.Type),
		Object: event.Data.Raw,
	}, nil
}

func providerCustomerFrom(c *stripe.Customer) *ProviderCustomer {
	pc := &ProviderCustomer{
		ID:      c.ID,
		Email:   c.Email,
		Name:    c.Name,
		Deleted: c.Deleted,
		Meta:    c.Metadata,
	}
	return pc
}
