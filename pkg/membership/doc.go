// Package membership binds users to tenants with hierarchical access roles
// and guards tenant-scoped operations.
//
// Roles form a strict hierarchy (member < admin < owner). Guard enforces it:
//
//	guard := membership.NewGuard(store, resolver, logger)
//
//	if err := guard.RequireRole(ctx, userID, tenantID, membership.RoleAdmin); err != nil {
//	    // 403
//	}
//
// CurrentTenantForUser composes host-based tenant resolution with a
// membership check and is the entry point for tenant-scoped handlers.
package membership
