package tenant

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
)

// PostgresUserSource reads user records for migration.
type PostgresUserSource struct {
	pool *pgxpool.Pool
}

// NewPostgresUserSource creates a UserSource backed by the app_user table.
func NewPostgresUserSource(pool *pgxpool.Pool) *PostgresUserSource {
	if pool == nil {
		panic("tenant: pgx pool is required")
	}
	return &PostgresUserSource{pool: pool}
}

func (s *PostgresUserSource) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email FROM app_user WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PostgresUserSource) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, email FROM app_user ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// PostgresDataMigrator reassigns tenant-scoped rows with plain UPDATEs.
type PostgresDataMigrator struct {
	pool *pgxpool.Pool
}

// NewPostgresDataMigrator creates a DataMigrator over the uploads and
// billing mirror tables.
func NewPostgresDataMigrator(pool *pgxpool.Pool) *PostgresDataMigrator {
	if pool == nil {
		panic("tenant: pgx pool is required")
	}
	return &PostgresDataMigrator{pool: pool}
}

func (m *PostgresDataMigrator) ReassignUser(ctx context.Context, userID, tenantID uuid.UUID) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for _, table := range []string{"upload", "billing_customer", "billing_subscription"} {
		if _, err := tx.Exec(ctx,
			`UPDATE `+table+` SET tenant_id = $1 WHERE user_id = $2`,
			tenantID, userID,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (m *PostgresDataMigrator) ReassignOrphaned(ctx context.Context, tenantID uuid.UUID) (OrphanCounts, error) {
	var counts OrphanCounts

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return counts, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	// Orphaned rows are the ones whose tenant reference was never set; the
	// predicate must be IS NULL, not a comparison against the empty string.
	tag, err := tx.Exec(ctx, `UPDATE upload SET tenant_id = $1 WHERE tenant_id IS NULL`, tenantID)
	if err != nil {
		return counts, err
	}
	counts.Uploads = tag.RowsAffected()

	tag, err = tx.Exec(ctx, `UPDATE billing_customer SET tenant_id = $1 WHERE tenant_id IS NULL`, tenantID)
	if err != nil {
		return counts, err
	}
	counts.Customers = tag.RowsAffected()

	tag, err = tx.Exec(ctx, `UPDATE billing_subscription SET tenant_id = $1 WHERE tenant_id IS NULL`, tenantID)
	if err != nil {
		return counts, err
	}
	counts.Subscriptions = tag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return OrphanCounts{}, err
	}
	return counts, nil
}
