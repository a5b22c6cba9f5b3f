package membership

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service implements membership mutations within a tenant.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService creates the membership mutation service.
func NewService(store Store, log *slog.Logger) *Service {
	if store == nil {
		panic("membership: Store is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}

// AddUser creates a membership. An empty role defaults to member.
// Returns ErrAlreadyMember when the user already belongs to the tenant.
func (s *Service) AddUser(ctx context.Context, userID, tenantID uuid.UUID, role Role) (*Membership, error) {
	if role == "" {
		role = RoleMember
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	now := time.Now().UTC()
	m := &Membership{
		ID:        uuid.New(),
		UserID:    userID,
		TenantID:  tenantID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Insert(ctx, m); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user added to tenant",
		"user_id", userID.String(), "tenant_id", tenantID.String(), "role", string(role))

	return m, nil
}

// RemoveUser deletes the user's membership in the tenant.
func (s *Service) RemoveUser(ctx context.Context, userID, tenantID uuid.UUID) error {
	if err := s.store.Delete(ctx, userID, tenantID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "user removed from tenant",
		"user_id", userID.String(), "tenant_id", tenantID.String())
	return nil
}

// UpdateRole changes the user's role within the tenant.
func (s *Service) UpdateRole(ctx context.Context, userID, tenantID uuid.UUID, role Role) (*Membership, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return s.store.UpdateRole(ctx, userID, tenantID, role)
}

// TenantsForUser lists all memberships held by a user.
func (s *Service) TenantsForUser(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	return s.store.ListByUser(ctx, userID)
}

// MembersOfTenant lists all memberships within a tenant.
func (s *Service) MembersOfTenant(ctx context.Context, tenantID uuid.UUID) ([]Membership, error) {
	return s.store.ListByTenant(ctx, tenantID)
}
