package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Guard answers authorization questions about users within tenants. It is
// the composed entry point used by every tenant-scoped API handler.
type Guard struct {
	store    Store
	resolver *tenant.Resolver
	log      *slog.Logger
}

// NewGuard creates a Guard. The resolver may be nil if CurrentTenantForUser
// is never used.
func NewGuard(store Store, resolver *tenant.Resolver, log *slog.Logger) *Guard {
	if store == nil {
		panic("membership: Store is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Guard{store: store, resolver: resolver, log: log}
}

// Role returns the user's role within the tenant.
// Returns ErrNotMember when the user holds no membership there.
func (g *Guard) Role(ctx context.Context, userID, tenantID uuid.UUID) (Role, error) {
	m, err := g.store.Get(ctx, userID, tenantID)
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

// RequireAccess fails with ErrAccessDenied unless the user holds any
// membership in the tenant.
func (g *Guard) RequireAccess(ctx context.Context, userID, tenantID uuid.UUID) error {
	if _, err := g.store.Get(ctx, userID, tenantID); err != nil {
		if errors.Is(err, ErrNotMember) {
			return ErrAccessDenied
		}
		return err
	}
	return nil
}

// RequireRole fails with ErrAccessDenied unless the user's role level is at
// least the highest level among the required roles. Passing several roles
// means "the strictest of these": RequireRole(ctx, u, t, RoleAdmin,
// RoleOwner) demands owner.
func (g *Guard) RequireRole(ctx context.Context, userID, tenantID uuid.UUID, required ...Role) error {
	if len(required) == 0 {
		return g.RequireAccess(ctx, userID, tenantID)
	}

	requiredLevel := 0
	for _, r := range required {
		if !r.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidRole, r)
		}
		if r.Level() > requiredLevel {
			requiredLevel = r.Level()
		}
	}

	role, err := g.Role(ctx, userID, tenantID)
	if err != nil {
		if errors.Is(err, ErrNotMember) {
			return ErrAccessDenied
		}
		return err
	}

	if role.Level() < requiredLevel {
		return fmt.Errorf("%w: role %q is insufficient", ErrAccessDenied, role)
	}
	return nil
}

// CurrentTenantForUser resolves the tenant for the request host and returns
// it only when the user is a member. Any miss (no tenant context, unknown
// host, no membership) yields nil: callers decide whether that is fatal.
func (g *Guard) CurrentTenantForUser(ctx context.Context, userID uuid.UUID, host string, hdr http.Header) *tenant.Tenant {
	if g.resolver == nil {
		return nil
	}

	t := g.resolver.Resolve(ctx, host, hdr)
	if t == nil {
		return nil
	}

	if _, err := g.store.Get(ctx, userID, t.ID); err != nil {
		if !errors.Is(err, ErrNotMember) {
			g.log.ErrorContext(ctx, "membership lookup failed",
				"user_id", userID.String(), "tenant_id", t.ID.String(), "error", err)
		}
		return nil
	}
	return t
}
