package billing

import (
	"encoding/json"
	"time"
)

// Status is a subscription lifecycle state as reported by the payment
// provider. The set is closed; unknown provider strings map to StatusUnknown
// so comparison sites can handle them exhaustively.
type Status string

const (
	StatusActive            Status = "active"
	StatusTrialing          Status = "trialing"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusUnpaid            Status = "unpaid"
	StatusPaused            Status = "paused"
	StatusUnknown           Status = "unknown"
)

// ParseStatus maps a provider status string onto the closed Status set.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusActive, StatusTrialing, StatusPastDue, StatusCanceled,
		StatusIncomplete, StatusIncompleteExpired, StatusUnpaid, StatusPaused:
		return Status(s)
	default:
		return StatusUnknown
	}
}

// IsActive reports whether the status grants access. Active is derived, not
// stored: active and trialing both count.
func (s Status) IsActive() bool {
	return s == StatusActive || s == StatusTrialing
}

// Session is a provider-hosted checkout or portal session.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ProviderCustomer is the provider's current view of a customer record,
// fetched read-through and never persisted beyond id and email.
type ProviderCustomer struct {
	ID      string            `json:"id"`
	Email   string            `json:"email"`
	Name    string            `json:"name"`
	Deleted bool              `json:"deleted"`
	Meta    map[string]string `json:"metadata"`
}

// SubscriptionPayload is the provider's wire representation of a
// subscription, as delivered in webhook events and retrieve calls.
// Timestamps are epoch seconds; zero means absent.
type SubscriptionPayload struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	CancelAt           int64  `json:"cancel_at"`
	CanceledAt         int64  `json:"canceled_at"`
	Items              struct {
		Data []struct {
			Price struct {
				ID       string `json:"id"`
				Nickname string `json:"nickname"`
				Product  string `json:"product"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

// FirstPriceID returns the price id of the first line item, or "".
func (p *SubscriptionPayload) FirstPriceID() string {
	if len(p.Items.Data) == 0 {
		return ""
	}
	return p.Items.Data[0].Price.ID
}

// FirstProductID returns the product id of the first line item, or "".
func (p *SubscriptionPayload) FirstProductID() string {
	if len(p.Items.Data) == 0 {
		return ""
	}
	return p.Items.Data[0].Price.Product
}

// PlanName returns a human-readable plan name for notifications, falling
// back to "Subscription" when the price carries no nickname.
func (p *SubscriptionPayload) PlanName() string {
	if len(p.Items.Data) > 0 && p.Items.Data[0].Price.Nickname != "" {
		return p.Items.Data[0].Price.Nickname
	}
	return "Subscription"
}

// CheckoutSessionPayload is the provider's wire representation of a
// completed checkout session.
type CheckoutSessionPayload struct {
	ID           string `json:"id"`
	Mode         string `json:"mode"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
}

// EventType identifies a webhook event kind the synchronizer handles.
type EventType string

const (
	EventSubscriptionCreated EventType = "customer.subscription.created"
	EventSubscriptionUpdated EventType = "customer.subscription.updated"
	EventSubscriptionDeleted EventType = "customer.subscription.deleted"
	EventCheckoutCompleted   EventType = "checkout.session.completed"
)

// Event is a signature-verified webhook envelope. Object holds the raw
// data.object payload for the event type.
type Event struct {
	ID     string
	Type   EventType
	Object json.RawMessage
}

// epochToTime converts provider epoch seconds to UTC time; zero stays nil.
func epochToTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
