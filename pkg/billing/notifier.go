package billing

import "context"

// SubscriptionNotice carries the fields notification templates need.
type SubscriptionNotice struct {
	Email    string
	PlanName string
}

// Notifier sends billing lifecycle emails. Delivery is best effort: the
// synchronizer logs notifier failures and does not fail the sync, so a
// notice may be re-sent when an event is redelivered.
type Notifier interface {
	SendActivation(ctx context.Context, n SubscriptionNotice) error
	SendCancellation(ctx context.Context, n SubscriptionNotice) error
	SendPaymentFailed(ctx context.Context, n SubscriptionNotice) error
}

// NoopNotifier discards all notices.
type NoopNotifier struct{}

func (NoopNotifier) SendActivation(context.Context, SubscriptionNotice) error    { return nil }
func (NoopNotifier) SendCancellation(context.Context, SubscriptionNotice) error  { return nil }
func (NoopNotifier) SendPaymentFailed(context.Context, SubscriptionNotice) error { return nil }
