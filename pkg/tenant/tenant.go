package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tenant represents an isolated customer organization reachable by a
// subdomain or, optionally, a dedicated custom domain.
type Tenant struct {
	ID           uuid.UUID `json:"id"`
	Subdomain    string    `json:"subdomain"`
	CustomDomain string    `json:"custom_domain,omitempty"`
	Name         string    `json:"name"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store defines tenant persistence.
//
// Lookup methods match case-insensitively and only return active tenants;
// inactive rows are invisible to request-time resolution. Both return
// ErrTenantNotFound when no row matches.
type Store interface {
	// GetByID retrieves a tenant regardless of its active flag.
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// GetBySubdomain retrieves an active tenant by its unique subdomain.
	GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)

	// GetByCustomDomain retrieves an active tenant by its unique custom domain.
	GetByCustomDomain(ctx context.Context, domain string) (*Tenant, error)

	// Create inserts the tenant row together with an owner membership for
	// ownerUserID. Both writes happen in one transaction: either the tenant
	// exists with its owner, or nothing is persisted.
	// Returns ErrSubdomainTaken or ErrCustomDomainTaken on uniqueness conflicts.
	Create(ctx context.Context, t *Tenant, ownerUserID uuid.UUID) error

	// Update persists mutable tenant fields (name, subdomain, custom domain,
	// active flag) and bumps UpdatedAt.
	Update(ctx context.Context, t *Tenant) error

	// Delete removes the tenant. Memberships are removed by the storage
	// layer's cascade; billing mirror rows are handled by migration code.
	Delete(ctx context.Context, id uuid.UUID) error
}
