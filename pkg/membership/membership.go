package membership

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role is a tenant access role. Roles form a strict hierarchy:
// member < admin < owner.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// Level returns the role's position in the hierarchy. Unknown roles get
// level 0 and therefore never satisfy a requirement.
func (r Role) Level() int {
	switch r {
	case RoleMember:
		return 1
	case RoleAdmin:
		return 2
	case RoleOwner:
		return 3
	default:
		return 0
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleAdmin, RoleOwner:
		return true
	default:
		return false
	}
}

// Membership binds a user to a tenant with an access role.
// At most one membership exists per (user, tenant) pair.
type Membership struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines membership persistence.
type Store interface {
	// Get retrieves the membership for a (user, tenant) pair.
	// Returns ErrNotMember when none exists.
	Get(ctx context.Context, userID, tenantID uuid.UUID) (*Membership, error)

	// Insert creates a membership. Returns ErrAlreadyMember when the pair
	// already has one.
	Insert(ctx context.Context, m *Membership) error

	// UpdateRole changes the role of an existing membership.
	// Returns ErrNotMember when none exists.
	UpdateRole(ctx context.Context, userID, tenantID uuid.UUID, role Role) (*Membership, error)

	// Delete removes the membership. Returns ErrNotMember when none exists.
	Delete(ctx context.Context, userID, tenantID uuid.UUID) error

	// ListByUser returns all memberships held by the user.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Membership, error)

	// ListByTenant returns all memberships within the tenant.
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Membership, error)

	// ExistsForUser reports whether the user holds any membership at all.
	ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error)
}
