package billing_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/billing"
)

// fakeProvider implements billing.Provider in memory.
type fakeProvider struct {
	mu              sync.Mutex
	createdCount    int32
	customers       map[string]*billing.ProviderCustomer
	subscriptions   map[string]*billing.SubscriptionPayload
	createErr       error
	retrieveSubErr  error
	retrieveCustErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		customers:     make(map[string]*billing.ProviderCustomer),
		subscriptions: make(map[string]*billing.SubscriptionPayload),
	}
}

func (f *fakeProvider) CreateCustomer(ctx context.Context, params billing.CreateCustomerParams) (*billing.ProviderCustomer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	n := atomic.AddInt32(&f.createdCount, 1)
	c := &billing.ProviderCustomer{
		ID:    fmt.Sprintf("cus_%03d", n),
		Email: params.Email,
		Name:  params.Name,
		Meta:  map[string]string{"userId": params.UserID, "tenantId": params.TenantID},
	}
	f.customers[c.ID] = c
	return c, nil
}

func (f *fakeProvider) RetrieveCustomer(ctx context.Context, customerID string) (*billing.ProviderCustomer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.retrieveCustErr != nil {
		return nil, f.retrieveCustErr
	}
	c, ok := f.customers[customerID]
	if !ok {
		return nil, billing.ErrProvider
	}
	return c, nil
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, params billing.CheckoutParams) (*billing.Session, error) {
	return &billing.Session{ID: "cs_test", URL: "https://checkout.example.com/cs_test"}, nil
}

func (f *fakeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (*billing.Session, error) {
	return &billing.Session{ID: "bps_test", URL: "https://portal.example.com/" + customerID}, nil
}

func (f *fakeProvider) RetrieveSubscription(ctx context.Context, subscriptionID string) (*billing.SubscriptionPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.retrieveSubErr != nil {
		return nil, f.retrieveSubErr
	}
	sub, ok := f.subscriptions[subscriptionID]
	if !ok {
		return nil, billing.ErrProvider
	}
	return sub, nil
}

func (f *fakeProvider) ParseWebhook(payload []byte, header http.Header) (*billing.Event, error) {
	var event billing.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, billing.ErrInvalidSignature
	}
	return &event, nil
}

// recordingNotifier counts notifications per kind.
type recordingNotifier struct {
	mu            sync.Mutex
	activations   []billing.SubscriptionNotice
	cancellations []billing.SubscriptionNotice
	failures      []billing.SubscriptionNotice
}

func (r *recordingNotifier) SendActivation(ctx context.Context, n billing.SubscriptionNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activations = append(r.activations, n)
	return nil
}

func (r *recordingNotifier) SendCancellation(ctx context.Context, n billing.SubscriptionNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancellations = append(r.cancellations, n)
	return nil
}

func (r *recordingNotifier) SendPaymentFailed(ctx context.Context, n billing.SubscriptionNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, n)
	return nil
}

type fixture struct {
	svc       *billing.Service
	provider  *fakeProvider
	customers *billing.MemoryCustomerStore
	subs      *billing.MemorySubscriptionStore
	notifier  *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		provider:  newFakeProvider(),
		customers: billing.NewMemoryCustomerStore(),
		subs:      billing.NewMemorySubscriptionStore(),
		notifier:  &recordingNotifier{},
	}
	f.svc = billing.NewService(f.customers, f.subs, f.provider,
		billing.StaticPrices{"pro": "price_pro", "team": "price_team"},
		billing.WithNotifier(f.notifier),
	)
	return f
}

func subscriptionPayload(subID, custID, status string) *billing.SubscriptionPayload {
	var p billing.SubscriptionPayload
	raw := fmt.Sprintf(`{
		"id": %q,
		"customer": %q,
		"status": %q,
		"cancel_at_period_end": false,
		"current_period_start": 1700000000,
		"current_period_end": 1702592000,
		"items": {"data": [{"price": {"id": "price_pro", "nickname": "Pro", "product": "prod_1"}}]}
	}`, subID, custID, status)
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		panic(err)
	}
	return &p
}

func TestService_GetOrCreateCustomer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("provisions once and reuses", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID, tenantID := uuid.New(), uuid.New()

		first, err := f.svc.GetOrCreateCustomer(ctx, userID, tenantID, "a@example.com", "A")
		require.NoError(t, err)
		second, err := f.svc.GetOrCreateCustomer(ctx, userID, tenantID, "a@example.com", "A")
		require.NoError(t, err)

		assert.Equal(t, first.CustomerID, second.CustomerID)
		assert.Equal(t, int32(1), atomic.LoadInt32(&f.provider.createdCount))
	})

	t.Run("same user in another tenant gets its own customer", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID := uuid.New()

		a, err := f.svc.GetOrCreateCustomer(ctx, userID, uuid.New(), "a@example.com", "A")
		require.NoError(t, err)
		b, err := f.svc.GetOrCreateCustomer(ctx, userID, uuid.New(), "a@example.com", "A")
		require.NoError(t, err)
		assert.NotEqual(t, a.CustomerID, b.CustomerID)
	})

	t.Run("concurrent calls converge on one customer", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID, tenantID := uuid.New(), uuid.New()

		const workers = 16
		results := make([]*billing.Customer, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				c, err := f.svc.GetOrCreateCustomer(ctx, userID, tenantID, "a@example.com", "A")
				require.NoError(t, err)
				results[i] = c
			}(i)
		}
		wg.Wait()

		for _, c := range results {
			assert.Equal(t, results[0].CustomerID, c.CustomerID)
		}
		assert.Equal(t, int32(1), atomic.LoadInt32(&f.provider.createdCount))
	})

	t.Run("provider failure surfaces", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.provider.createErr = billing.ErrProvider
		_, err := f.svc.GetOrCreateCustomer(ctx, uuid.New(), uuid.New(), "a@example.com", "A")
		assert.ErrorIs(t, err, billing.ErrProvider)
	})
}

func TestService_GetCustomerState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("combines local and provider views", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID, tenantID := uuid.New(), uuid.New()
		_, err := f.svc.GetOrCreateCustomer(ctx, userID, tenantID, "a@example.com", "A")
		require.NoError(t, err)

		state, err := f.svc.GetCustomerState(ctx, userID, tenantID)
		require.NoError(t, err)
		require.NotNil(t, state.Provider)
		assert.Equal(t, "a@example.com", state.Provider.Email)
	})

	t.Run("provider failure degrades to local view", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID, tenantID := uuid.New(), uuid.New()
		created, err := f.svc.GetOrCreateCustomer(ctx, userID, tenantID, "a@example.com", "A")
		require.NoError(t, err)

		f.provider.retrieveCustErr = billing.ErrProvider
		state, err := f.svc.GetCustomerState(ctx, userID, tenantID)
		require.NoError(t, err)
		assert.Nil(t, state.Provider)
		assert.Equal(t, created.CustomerID, state.Customer.CustomerID)
	})

	t.Run("unknown pair", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.svc.GetCustomerState(ctx, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, billing.ErrCustomerNotFound)
	})
}

func TestService_SyncSubscription(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("creates then updates the same record", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID, tenantID := uuid.New(), uuid.New()
		cust, err := f.svc.GetOrCreateCustomer(ctx, userID, tenantID, "a@example.com", "A")
		require.NoError(t, err)

		first, err := f.svc.SyncSubscription(ctx, subscriptionPayload("sub_1", cust.CustomerID, "trialing"))
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, billing.StatusTrialing, first.Status)
		assert.Equal(t, userID, first.UserID)
		assert.Equal(t, tenantID, first.TenantID)
		assert.Equal(t, "price_pro", first.PriceID)
		require.NotNil(t, first.CurrentPeriodEnd)
		assert.Equal(t, time.Unix(1702592000, 0).UTC(), *first.CurrentPeriodEnd)

		second, err := f.svc.SyncSubscription(ctx, subscriptionPayload("sub_1", cust.CustomerID, "active"))
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, billing.StatusActive, second.Status)

		subs, err := f.svc.GetUserSubscriptions(ctx, userID, tenantID)
		require.NoError(t, err)
		assert.Len(t, subs, 1)
	})

	t.Run("applying the same payload twice is a no-op", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		cust, err := f.svc.GetOrCreateCustomer(ctx, uuid.New(), uuid.New(), "a@example.com", "A")
		require.NoError(t, err)

		payload := subscriptionPayload("sub_1", cust.CustomerID, "active")
		first, err := f.svc.SyncSubscription(ctx, payload)
		require.NoError(t, err)
		second, err := f.svc.SyncSubscription(ctx, payload)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.Status, second.Status)
		assert.Equal(t, first.CurrentPeriodEnd, second.CurrentPeriodEnd)
	})

	t.Run("unknown provider customer skipped without error", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		stored, err := f.svc.SyncSubscription(ctx, subscriptionPayload("sub_1", "cus_ghost", "active"))
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("unknown status string maps to unknown", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		cust, err := f.svc.GetOrCreateCustomer(ctx, uuid.New(), uuid.New(), "a@example.com", "A")
		require.NoError(t, err)

		stored, err := f.svc.SyncSubscription(ctx, subscriptionPayload("sub_1", cust.CustomerID, "something_new"))
		require.NoError(t, err)
		assert.Equal(t, billing.StatusUnknown, stored.Status)
		assert.False(t, stored.IsActive())
	})
}

func TestService_HasActiveSubscription(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	userID, tenantID := uuid.New(), uuid.New()
	cust, err := f.svc.GetOrCreateCustomer(ctx, userID, tenantID, "a@example.com", "A")
	require.NoError(t, err)

	active, err := f.svc.HasActiveSubscription(ctx, userID, tenantID)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = f.svc.SyncSubscription(ctx, subscriptionPayload("sub_1", cust.CustomerID, "past_due"))
	require.NoError(t, err)
	active, err = f.svc.HasActiveSubscription(ctx, userID, tenantID)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = f.svc.SyncSubscription(ctx, subscriptionPayload("sub_2", cust.CustomerID, "trialing"))
	require.NoError(t, err)
	active, err = f.svc.HasActiveSubscription(ctx, userID, tenantID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestService_CreateCheckoutSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("provisions customer and returns session", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID, tenantID := uuid.New(), uuid.New()
		sess, err := f.svc.CreateCheckoutSession(ctx, billing.CheckoutInput{
			UserID:     userID,
			TenantID:   tenantID,
			Email:      "a@example.com",
			Name:       "A",
			PlanSlug:   "pro",
			SuccessURL: "https://app.example.com/done",
			CancelURL:  "https://app.example.com/cancel",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, sess.URL)

		_, err = f.customers.GetByUserTenant(ctx, userID, tenantID)
		assert.NoError(t, err)
	})

	t.Run("unknown plan rejected before provisioning", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.svc.CreateCheckoutSession(ctx, billing.CheckoutInput{
			UserID:   uuid.New(),
			TenantID: uuid.New(),
			PlanSlug: "enterprise",
		})
		assert.ErrorIs(t, err, billing.ErrUnknownPlan)
		assert.Equal(t, int32(0), atomic.LoadInt32(&f.provider.createdCount))
	})
}

func TestService_CreatePortalSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	userID, tenantID := uuid.New(), uuid.New()

	_, err := f.svc.CreatePortalSession(ctx, userID, tenantID, "https://app.example.com/billing")
	assert.ErrorIs(t, err, billing.ErrCustomerNotFound)

	cust, err := f.svc.GetOrCreateCustomer(ctx, userID, tenantID, "a@example.com", "A")
	require.NoError(t, err)

	sess, err := f.svc.CreatePortalSession(ctx, userID, tenantID, "https://app.example.com/billing")
	require.NoError(t, err)
	assert.Contains(t, sess.URL, cust.CustomerID)
}

func event(t *testing.T, typ billing.EventType, object any) *billing.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return &billing.Event{ID: "evt_" + uuid.NewString()[:8], Type: typ, Object: raw}
}

func TestService_HandleEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("created event syncs and notifies activation once", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		cust, err := f.svc.GetOrCreateCustomer(ctx, uuid.New(), uuid.New(), "a@example.com", "A")
		require.NoError(t, err)

		payload := subscriptionPayload("sub_1", cust.CustomerID, "active")
		require.NoError(t, f.svc.HandleEvent(ctx, event(t, billing.EventSubscriptionCreated, payload)))
		// Redelivery of the same event must not re-notify.
		require.NoError(t, f.svc.HandleEvent(ctx, event(t, billing.EventSubscriptionUpdated, payload)))

		require.Len(t, f.notifier.activations, 1)
		assert.Equal(t, "a@example.com", f.notifier.activations[0].Email)
		assert.Equal(t, "Pro", f.notifier.activations[0].PlanName)
	})

	t.Run("deleted event cancels and notifies exactly once", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		userID, tenantID := uuid.New(), uuid.New()
		cust, err := f.svc.GetOrCreateCustomer(ctx, userID, tenantID, "a@example.com", "A")
		require.NoError(t, err)

		active := subscriptionPayload("sub_1", cust.CustomerID, "active")
		require.NoError(t, f.svc.HandleEvent(ctx, event(t, billing.EventSubscriptionCreated, active)))

		deleted := subscriptionPayload("sub_1", cust.CustomerID, "canceled")
		require.NoError(t, f.svc.HandleEvent(ctx, event(t, billing.EventSubscriptionDeleted, deleted)))
		require.NoError(t, f.svc.HandleEvent(ctx, event(t, billing.EventSubscriptionDeleted, deleted)))

		stored, err := f.subs.GetBySubscriptionID(ctx, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, billing.StatusCanceled, stored.Status)
		assert.Len(t, f.notifier.cancellations, 1)

		ok, err := f.svc.HasActiveSubscription(ctx, userID, tenantID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("updated event with canceled status notifies cancellation once", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		cust, err := f.svc.GetOrCreateCustomer(ctx, uuid.New(), uuid.New(), "a@example.com", "A")
		require.NoError(t, err)

		require.NoError(t, f.svc.HandleEvent(ctx, event(t, billing.EventSubscriptionCreated,
			subscriptionPayload("sub_1", cust.CustomerID, "active"))))

		canceled := subscriptionPayload("sub_1", cust.CustomerID, "canceled")
		require.NoError(t, f.svc.HandleEvent(ctx, event(t, billing.EventSubscriptionUpdated, canceled)))
		// Redelivery stays quiet.
		require.NoError(t, f.svc.HandleEvent(ctx, event(t, billing.EventSubscriptionUpdated, canceled)))

		stored, err := f.subs.GetBySubscriptionID(ctx, "sub_1")
		require.NoError(t, err)
		assert.Equal(t, billing.StatusCanceled, stored.Status)
		assert.Len(t, f.notifier.cancellations, 1)
	})

	t.Run("past due event notifies payment failure", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		cust, err := f.svc.GetOrCreateCustomer(ctx, uuid.New(), uuid.New(), "a@example.com", "A")
		require.NoError(t, err)

		require.NoError(t, f.svc.HandleEvent(ctx, event(t, billing.EventSubscriptionCreated,
			subscriptionPayload("sub_1", cust.CustomerID, "active"))))
		require.NoError(t, f.svc.HandleEvent(ctx, event(t, billing.EventSubscriptionUpdated,
			subscriptionPayload("sub_1", cust.CustomerID, "past_due"))))

		assert.Len(t, f.notifier.failures, 1)
	})

	t.Run("checkout completion retrieves and syncs the subscription", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		cust, err := f.svc.GetOrCreateCustomer(ctx, uuid.New(), uuid.New(), "a@example.com", "A")
		require.NoError(t, err)

		f.provider.subscriptions["sub_new"] = subscriptionPayload("sub_new", cust.CustomerID, "active")

		require.NoError(t, f.svc.HandleEvent(ctx, event(t, billing.EventCheckoutCompleted,
			billing.CheckoutSessionPayload{
				ID:           "cs_1",
				Mode:         "subscription",
				Customer:     cust.CustomerID,
				Subscription: "sub_new",
			})))

		stored, err := f.subs.GetBySubscriptionID(ctx, "sub_new")
		require.NoError(t, err)
		assert.Equal(t, billing.StatusActive, stored.Status)
		assert.Len(t, f.notifier.activations, 1)
	})

	t.Run("checkout without subscription ignored", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		require.NoError(t, f.svc.HandleEvent(ctx, event(t, billing.EventCheckoutCompleted,
			billing.CheckoutSessionPayload{ID: "cs_1", Mode: "payment"})))
	})

	t.Run("unhandled event type ignored", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		require.NoError(t, f.svc.HandleEvent(ctx, &billing.Event{
			ID:     "evt_x",
			Type:   billing.EventType("invoice.paid"),
			Object: json.RawMessage(`{}`),
		}))
	})

	t.Run("event for unknown customer skipped", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		require.NoError(t, f.svc.HandleEvent(ctx, event(t, billing.EventSubscriptionCreated,
			subscriptionPayload("sub_1", "cus_ghost", "active"))))
		assert.Empty(t, f.notifier.activations)
	})
}
