package billing

import "errors"

var (
	// ErrCustomerNotFound is returned when no billing customer exists for
	// the given lookup.
	ErrCustomerNotFound = errors.New("billing: customer not found")

	// ErrSubscriptionNotFound is returned when no subscription record
	// exists for the given lookup.
	ErrSubscriptionNotFound = errors.New("billing: subscription not found")

	// ErrUnknownPlan is returned when a plan slug has no configured price.
	ErrUnknownPlan = errors.New("billing: unknown plan")

	// ErrProvider wraps failures talking to the payment provider.
	ErrProvider = errors.New("billing: provider request failed")

	// ErrInvalidSignature is returned when a webhook payload fails
	// signature verification.
	ErrInvalidSignature = errors.New("billing: invalid webhook signature")

	// ErrInvalidPayload is returned when a webhook payload cannot be
	// decoded for its event type.
	ErrInvalidPayload = errors.New("billing: invalid webhook payload")
)
