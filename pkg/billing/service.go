package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service coordinates customer provisioning, subscription synchronization
// and checkout flows between the local stores and the payment provider.
type Service struct {
	customers CustomerStore
	subs      SubscriptionStore
	provider  Provider
	prices    PriceSource
	notifier  Notifier
	log       *slog.Logger
	trialDays int64

	locks keyedLocks
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithNotifier sets the lifecycle email notifier. Defaults to NoopNotifier.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithServiceLogger sets the logger. Defaults to slog.Default.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTrialDays sets a trial period applied to new checkout sessions.
func WithTrialDays(days int64) ServiceOption {
	return func(s *Service) { s.trialDays = days }
}

// NewService creates a billing service. All four arguments are required.
func NewService(customers CustomerStore, subs SubscriptionStore, provider Provider, prices PriceSource, opts ...ServiceOption) *Service {
	if customers == nil {
		panic("billing: customer store is required")
	}
	if subs == nil {
		panic("billing: subscription store is required")
	}
	if provider == nil {
		panic("billing: provider is required")
	}
	if prices == nil {
		panic("billing: price source is required")
	}
	s := &Service{
		customers: customers,
		subs:      subs,
		provider:  provider,
		prices:    prices,
		notifier:  NoopNotifier{},
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreateCustomer returns the billing customer for the (user, tenant)
// pair, provisioning one with the provider on first use. Concurrent calls
// for the same pair serialize on a per-pair lock and converge on a single
// provider customer.
func (s *Service) GetOrCreateCustomer(ctx context.Context, userID, tenantID uuid.UUID, email, name string) (*Customer, error) {
	existing, err := s.customers.GetByUserTenant(ctx, userID, tenantID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrCustomerNotFound) {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}

	key := userID.String() + ":" + tenantID.String()
	unlock := s.locks.lock(key)
	defer unlock()

	// Another call may have provisioned while we waited on the lock.
	existing, err = s.customers.GetByUserTenant(ctx, userID, tenantID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrCustomerNotFound) {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}

	pc, err := s.provider.CreateCustomer(ctx, CreateCustomerParams{
		Email:    email,
		Name:     name,
		UserID:   userID.String(),
		TenantID: tenantID.String(),
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created, err := s.customers.Create(ctx, &Customer{
		ID:         uuid.New(),
		UserID:     userID,
		TenantID:   tenantID,
		CustomerID: pc.ID,
		Email:      email,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("persist customer: %w", err)
	}
	if created.CustomerID != pc.ID {
		s.log.WarnContext(ctx, "duplicate provider customer provisioned",
			slog.String("kept", created.CustomerID),
			slog.String("orphaned", pc.ID))
	}
	return created, nil
}

// GetCustomerState returns the local customer mapping enriched with the
// provider's current record. A provider read failure or a deleted remote
// customer leaves Provider nil; the local mapping is still returned.
func (s *Service) GetCustomerState(ctx context.Context, userID, tenantID uuid.UUID) (*CustomerState, error) {
	cust, err := s.customers.GetByUserTenant(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	state := &CustomerState{Customer: *cust}
	pc, err := s.provider.RetrieveCustomer(ctx, cust.CustomerID)
	if err != nil {
		s.log.WarnContext(ctx, "provider customer lookup failed",
			slog.String("customer_id", cust.CustomerID),
			slog.Any("error", err))
		return state, nil
	}
	if !pc.Deleted {
		state.Provider = pc
	}
	return state, nil
}

// SyncSubscription applies a provider subscription payload to the local
// mirror. The upsert is keyed on the provider subscription id and is
// idempotent: applying the same payload twice leaves one unchanged record.
// A payload whose customer has no local mapping is logged and skipped.
func (s *Service) SyncSubscription(ctx context.Context, payload *SubscriptionPayload) (*Subscription, error) {
	cust, err := s.customers.GetByCustomerID(ctx, payload.Customer)
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			s.log.WarnContext(ctx, "subscription for unknown customer skipped",
				slog.String("subscription_id", payload.ID),
				slog.String("customer_id", payload.Customer))
			return nil, nil
		}
		return nil, fmt.Errorf("lookup customer: %w", err)
	}

	now := time.Now().UTC()
	stored, err := s.subs.Upsert(ctx, &Subscription{
		ID:                 uuid.New(),
		UserID:             cust.UserID,
		TenantID:           cust.TenantID,
		CustomerID:         payload.Customer,
		SubscriptionID:     payload.ID,
		Status:             ParseStatus(payload.Status),
		PriceID:            payload.FirstPriceID(),
		ProductID:          payload.FirstProductID(),
		CancelAtPeriodEnd:  payload.CancelAtPeriodEnd,
		CurrentPeriodStart: epochToTime(payload.CurrentPeriodStart),
		CurrentPeriodEnd:   epochToTime(payload.CurrentPeriodEnd),
		CancelAt:           epochToTime(payload.CancelAt),
		CanceledAt:         epochToTime(payload.CanceledAt),
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}
	return stored, nil
}

// GetUserSubscriptions returns all locally mirrored subscriptions for the
// (user, tenant) pair, newest first.
func (s *Service) GetUserSubscriptions(ctx context.Context, userID, tenantID uuid.UUID) ([]Subscription, error) {
	return s.subs.ListByUserTenant(ctx, userID, tenantID)
}

// HasActiveSubscription reports whether the pair holds at least one
// subscription in an access-granting status.
func (s *Service) HasActiveSubscription(ctx context.Context, userID, tenantID uuid.UUID) (bool, error) {
	subs, err := s.subs.ListByUserTenant(ctx, userID, tenantID)
	if err != nil {
		return false, err
	}
	for i := range subs {
		if subs[i].IsActive() {
			return true, nil
		}
	}
	return false, nil
}

// PriceIDForPlan resolves a plan slug to the provider price id.
func (s *Service) PriceIDForPlan(slug string) (string, error) {
	return s.prices.PriceID(slug)
}

// PlanSlugs returns the configured plan slugs, sorted.
func (s *Service) PlanSlugs() []string {
	return s.prices.Slugs()
}

// CheckoutInput configures a new checkout session for a plan.
type CheckoutInput struct {
	UserID     uuid.UUID
	TenantID   uuid.UUID
	Email      string
	Name       string
	PlanSlug   string
	SuccessURL string
	CancelURL  string
}

// CreateCheckoutSession provisions the customer if needed and starts a
// provider-hosted checkout for the plan.
func (s *Service) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*Session, error) {
	priceID, err := s.prices.PriceID(in.PlanSlug)
	if err != nil {
		return nil, err
	}
	cust, err := s.GetOrCreateCustomer(ctx, in.UserID, in.TenantID, in.Email, in.Name)
	if err != nil {
		return nil, err
	}
	return s.provider.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID: cust.CustomerID,
		PriceID:    priceID,
		SuccessURL: in.SuccessURL,
		CancelURL:  in.CancelURL,
		TrialDays:  s.trialDays,
	})
}

// CreatePortalSession starts a provider billing portal session for an
// existing customer. It returns ErrCustomerNotFound when the pair was
// never provisioned.
func (s *Service) CreatePortalSession(ctx context.Context, userID, tenantID uuid.UUID, returnURL string) (*Session, error) {
	cust, err := s.customers.GetByUserTenant(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	return s.provider.CreatePortalSession(ctx, cust.CustomerID, returnURL)
}

// HandleEvent applies a verified webhook event. Subscription events sync the
// mirror and send lifecycle emails; checkout completion retrieves the new
// subscription from the provider before syncing. Unhandled event types are
// ignored. Notification failures are logged, not returned, so provider
// retries re-apply an idempotent sync rather than duplicate state.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		payload, err := decodeSubscription(event.Object)
		if err != nil {
			return err
		}
		return s.applySubscription(ctx, payload, false)

	case EventSubscriptionDeleted:
		payload, err := decodeSubscription(event.Object)
		if err != nil {
			return err
		}
		return s.applySubscription(ctx, payload, true)

	case EventCheckoutCompleted:
		var sess CheckoutSessionPayload
		if err := json.Unmarshal(event.Object, &sess); err != nil {
			return fmt.Errorf("%w: checkout session: %v", ErrInvalidPayload, err)
		}
		if sess.Mode != "" && sess.Mode != "subscription" {
			return nil
		}
		if sess.Subscription == "" {
			s.log.InfoContext(ctx, "checkout completed without subscription, ignored",
				slog.String("session_id", sess.ID))
			return nil
		}
		payload, err := s.provider.RetrieveSubscription(ctx, sess.Subscription)
		if err != nil {
			return err
		}
		return s.applySubscription(ctx, payload, false)

	default:
		s.log.DebugContext(ctx, "webhook event ignored", slog.String("type", string(event.Type)))
		return nil
	}
}

func (s *Service) applySubscription(ctx context.Context, payload *SubscriptionPayload, deleted bool) error {
	if deleted {
		payload.Status = string(StatusCanceled)
	}

	var prev *Subscription
	if existing, err := s.subs.GetBySubscriptionID(ctx, payload.ID); err == nil {
		prev = existing
	}

	stored, err := s.SyncSubscription(ctx, payload)
	if err != nil {
		return err
	}
	if stored == nil {
		return nil
	}

	cust, err := s.customers.GetByCustomerID(ctx, stored.CustomerID)
	if err != nil {
		return nil
	}
	notice := SubscriptionNotice{Email: cust.Email, PlanName: payload.PlanName()}

	switch {
	case stored.Status == StatusCanceled && (prev == nil || prev.Status != StatusCanceled):
		if err := s.notifier.SendCancellation(ctx, notice); err != nil {
			s.log.ErrorContext(ctx, "cancellation email failed",
				slog.String("email", notice.Email), slog.Any("error", err))
		}
	case stored.IsActive() && (prev == nil || !prev.IsActive()):
		if err := s.notifier.SendActivation(ctx, notice); err != nil {
			s.log.ErrorContext(ctx, "activation email failed",
				slog.String("email", notice.Email), slog.Any("error", err))
		}
	case stored.Status == StatusPastDue && (prev == nil || prev.Status != StatusPastDue):
		if err := s.notifier.SendPaymentFailed(ctx, notice); err != nil {
			s.log.ErrorContext(ctx, "payment failed email failed",
				slog.String("email", notice.Email), slog.Any("error", err))
		}
	}
	return nil
}

func decodeSubscription(raw json.RawMessage) (*SubscriptionPayload, error) {
	var payload SubscriptionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: subscription: %v", ErrInvalidPayload, err)
	}
	return &payload, nil
}

// keyedLocks serializes work per string key.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedLocks) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
