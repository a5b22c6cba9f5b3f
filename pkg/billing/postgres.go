package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
)

// PostgresCustomerStore is the pgx-backed CustomerStore implementation.
type PostgresCustomerStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCustomerStore creates a CustomerStore backed by the pool.
func NewPostgresCustomerStore(pool *pgxpool.Pool) *PostgresCustomerStore {
	if pool == nil {
		panic("billing: pgx pool is required")
	}
	return &PostgresCustomerStore{pool: pool}
}

const customerColumns = `id, user_id, tenant_id, customer_id, email, created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.UserID, &c.TenantID, &c.CustomerID, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *PostgresCustomerStore) GetByUserTenant(ctx context.Context, userID, tenantID uuid.UUID) (*Customer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM billing_customer WHERE user_id = $1 AND tenant_id = $2`,
		userID, tenantID)
	return scanCustomer(row)
}

func (s *PostgresCustomerStore) GetByCustomerID(ctx context.Context, customerID string) (*Customer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM billing_customer WHERE customer_id = $1`, customerID)
	return scanCustomer(row)
}

// Create inserts the mapping. The conflict target is the (user_id,
// tenant_id) unique constraint; on conflict the no-op update lets
// RETURNING hand back the row that won, so racing callers converge.
func (s *PostgresCustomerStore) Create(ctx context.Context, c *Customer) (*Customer, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO billing_customer (id, user_id, tenant_id, customer_id, email, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, tenant_id) DO UPDATE SET updated_at = billing_customer.updated_at
		 RETURNING `+customerColumns,
		c.ID, c.UserID, c.TenantID, c.CustomerID, c.Email, c.CreatedAt, c.UpdatedAt)
	return scanCustomer(row)
}

// PostgresSubscriptionStore is the pgx-backed SubscriptionStore
// implementation.
type PostgresSubscriptionStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSubscriptionStore creates a SubscriptionStore backed by the
// pool.
func NewPostgresSubscriptionStore(pool *pgxpool.Pool) *PostgresSubscriptionStore {
	if pool == nil {
		panic("billing: pgx pool is required")
	}
	return &PostgresSubscriptionStore{pool: pool}
}

const subscriptionColumns = `id, user_id, tenant_id, customer_id, subscription_id, status, price_id, product_id,
	cancel_at_period_end, current_period_start, current_period_end, cancel_at, canceled_at, created_at, updated_at`

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var (
		sub    Subscription
		status string
	)
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.TenantID, &sub.CustomerID, &sub.SubscriptionID,
		&status, &sub.PriceID, &sub.ProductID, &sub.CancelAtPeriodEnd,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelAt, &sub.CanceledAt,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	sub.Status = ParseStatus(status)
	return &sub, nil
}

func (s *PostgresSubscriptionStore) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM billing_subscription WHERE subscription_id = $1`,
		subscriptionID)
	return scanSubscription(row)
}

func (s *PostgresSubscriptionStore) ListByUserTenant(ctx context.Context, userID, tenantID uuid.UUID) ([]Subscription, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+subscriptionColumns+` FROM billing_subscription
		 WHERE user_id = $1 AND tenant_id = $2
		 ORDER BY created_at DESC`,
		userID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

// Upsert inserts the record or, when the subscription id already exists,
// updates only the mutable state fields and keeps the identity columns.
func (s *PostgresSubscriptionStore) Upsert(ctx context.Context, sub *Subscription) (*Subscription, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO billing_subscription (
			id, user_id, tenant_id, customer_id, subscription_id, status, price_id, product_id,
			cancel_at_period_end, current_period_start, current_period_end, cancel_at, canceled_at,
			created_at, updated_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (subscription_id) DO UPDATE SET
			status = EXCLUDED.status,
			price_id = EXCLUDED.price_id,
			product_id = EXCLUDED.product_id,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at = EXCLUDED.cancel_at,
			canceled_at = EXCLUDED.canceled_at,
			updated_at = $16
		 RETURNING `+subscriptionColumns,
		sub.ID, sub.UserID, sub.TenantID, sub.CustomerID, sub.SubscriptionID,
		string(sub.Status), sub.PriceID, sub.ProductID, sub.CancelAtPeriodEnd,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAt, sub.CanceledAt,
		sub.CreatedAt, sub.UpdatedAt, time.Now().UTC())
	return scanSubscription(row)
}
