package tenant

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// subdomainRe matches the allowed subdomain alphabet after case folding.
var subdomainRe = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidateSubdomain case-folds the subdomain and checks the allowed alphabet.
// Returns the folded form or ErrInvalidSubdomain.
func ValidateSubdomain(subdomain string) (string, error) {
	folded := strings.ToLower(strings.TrimSpace(subdomain))
	if !subdomainRe.MatchString(folded) {
		return "", ErrInvalidSubdomain
	}
	return folded, nil
}

// Service implements tenant lifecycle management: creation with an owner
// membership, mutation, and deletion.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService creates the tenant lifecycle service.
func NewService(store Store, log *slog.Logger) *Service {
	if store == nil {
		panic("tenant: Store is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log}
}

// CreateTenant validates inputs and inserts the tenant together with an
// owner membership for ownerUserID. The store guarantees both rows are
// written in one transaction.
func (s *Service) CreateTenant(ctx context.Context, name, subdomain string, ownerUserID uuid.UUID, customDomain string) (*Tenant, error) {
	folded, err := ValidateSubdomain(subdomain)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &Tenant{
		ID:           uuid.New(),
		Name:         name,
		Subdomain:    folded,
		CustomDomain: strings.ToLower(strings.TrimSpace(customDomain)),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, t, ownerUserID); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "tenant created",
		"tenant_id", t.ID.String(),
		"subdomain", t.Subdomain,
		"owner_user_id", ownerUserID.String(),
	)

	return t, nil
}

// UpdateParams carries optional tenant mutations. Nil fields are left untouched.
type UpdateParams struct {
	Name         *string
	Subdomain    *string
	CustomDomain *string // empty string clears the custom domain
	Active       *bool
}

// UpdateTenant applies the non-nil fields of params and persists the result.
func (s *Service) UpdateTenant(ctx context.Context, id uuid.UUID, params UpdateParams) (*Tenant, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		t.Name = *params.Name
	}
	if params.Subdomain != nil {
		folded, err := ValidateSubdomain(*params.Subdomain)
		if err != nil {
			return nil, err
		}
		t.Subdomain = folded
	}
	if params.CustomDomain != nil {
		t.CustomDomain = strings.ToLower(strings.TrimSpace(*params.CustomDomain))
	}
	if params.Active != nil {
		t.Active = *params.Active
	}
	t.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

// DeleteTenant removes the tenant; memberships cascade at the storage layer.
func (s *Service) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "tenant deleted", "tenant_id", id.String())
	return nil
}
