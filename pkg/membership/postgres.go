package membership

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantkit/pkg/pg"
)

// PostgresStore is the pgx-backed Store implementation.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Store backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("membership: pgx pool is required")
	}
	return &PostgresStore{pool: pool}
}

const membershipColumns = `id, user_id, tenant_id, role, created_at, updated_at`

func scanMembership(row pgx.Row) (*Membership, error) {
	var m Membership
	if err := row.Scan(&m.ID, &m.UserID, &m.TenantID, &m.Role, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID, tenantID uuid.UUID) (*Membership, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM tenant_membership WHERE user_id = $1 AND tenant_id = $2`,
		userID, tenantID)
	return scanMembership(row)
}

func (s *PostgresStore) Insert(ctx context.Context, m *Membership) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tenant_membership (id, user_id, tenant_id, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.UserID, m.TenantID, m.Role, m.CreatedAt, m.UpdatedAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return ErrAlreadyMember
	}
	return err
}

func (s *PostgresStore) UpdateRole(ctx context.Context, userID, tenantID uuid.UUID, role Role) (*Membership, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE tenant_membership SET role = $3, updated_at = now()
		 WHERE user_id = $1 AND tenant_id = $2
		 RETURNING `+membershipColumns,
		userID, tenantID, role)
	return scanMembership(row)
}

func (s *PostgresStore) Delete(ctx context.Context, userID, tenantID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM tenant_membership WHERE user_id = $1 AND tenant_id = $2`,
		userID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotMember
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+membershipColumns+` FROM tenant_membership WHERE user_id = $1 ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMemberships(rows)
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Membership, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+membershipColumns+` FROM tenant_membership WHERE tenant_id = $1 ORDER BY created_at`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMemberships(rows)
}

func (s *PostgresStore) ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenant_membership WHERE user_id = $1)`,
		userID).Scan(&exists)
	return exists, err
}

func collectMemberships(rows pgx.Rows) ([]Membership, error) {
	var out []Membership
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.ID, &m.UserID, &m.TenantID, &m.Role, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
