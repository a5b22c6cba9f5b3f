package tenant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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
		panic("tenant: pgx pool is required")
	}
	return &PostgresStore{pool: pool}
}

const tenantColumns = `id, subdomain, custom_domain, name, is_active, created_at, updated_at`

func scanTenant(row pgx.Row) (*Tenant, error) {
	var (
		t      Tenant
		domain *string
	)
	if err := row.Scan(&t.ID, &t.Subdomain, &domain, &t.Name, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	if domain != nil {
		t.CustomDomain = *domain
	}
	return &t, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenant WHERE id = $1`, id)
	return scanTenant(row)
}

func (s *PostgresStore) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenant WHERE lower(subdomain) = lower($1) AND is_active = true`,
		subdomain)
	return scanTenant(row)
}

func (s *PostgresStore) GetByCustomDomain(ctx context.Context, domain string) (*Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenant WHERE lower(custom_domain) = lower($1) AND is_active = true`,
		domain)
	return scanTenant(row)
}

func (s *PostgresStore) Create(ctx context.Context, t *Tenant, ownerUserID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var domain *string
	if t.CustomDomain != "" {
		domain = &t.CustomDomain
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO tenant (id, subdomain, custom_domain, name, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Subdomain, domain, t.Name, t.Active, t.CreatedAt, t.UpdatedAt,
	); err != nil {
		return mapUniqueViolation(err)
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx,
		`INSERT INTO tenant_membership (id, user_id, tenant_id, role, created_at, updated_at)
		 VALUES ($1, $2, $3, 'owner', $4, $4)`,
		uuid.New(), ownerUserID, t.ID, now,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) Update(ctx context.Context, t *Tenant) error {
	var domain *string
	if t.CustomDomain != "" {
		domain = &t.CustomDomain
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE tenant
		 SET subdomain = $2, custom_domain = $3, name = $4, is_active = $5, updated_at = $6
		 WHERE id = $1`,
		t.ID, t.Subdomain, domain, t.Name, t.Active, t.UpdatedAt,
	)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tenant WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// mapUniqueViolation translates 23505 on tenant columns into domain errors.
func mapUniqueViolation(err error) error {
	if !pg.IsDuplicateKeyError(err) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.Contains(pgErr.ConstraintName, "custom_domain") {
		return ErrCustomDomainTaken
	}
	return ErrSubdomainTaken
}
