// Package tenant provides multi-tenant request resolution and tenant
// lifecycle management for SaaS applications.
//
// Tenants are reachable through a subdomain (acme.example.com) or an
// optional custom domain (acme.io). The package derives the tenant for a
// request from its Host header, honoring classification hints set by an
// upstream edge layer, and exposes HTTP middleware that places the resolved
// tenant into the request context.
//
// # Resolution
//
//	store := tenant.NewPostgresStore(pool)
//	resolver := tenant.NewResolver(store, logger)
//
//	r.Use(tenant.Middleware(resolver,
//	    tenant.WithSkipPaths([]string{"/api", "/auth"}),
//	    tenant.WithCache(tenant.NewRedisCache(redisClient, "")),
//	))
//
// Resolution fails closed: storage errors are logged and treated as "no
// tenant found" rather than surfaced to every request.
//
// # Lifecycle
//
// Service creates tenants together with an owner membership in one
// transaction, and Migrator bootstraps personal tenants for users that
// predate multi-tenancy, reassigning their existing rows:
//
//	svc := tenant.NewService(store, logger)
//	t, err := svc.CreateTenant(ctx, "Acme", "acme", ownerID, "")
package tenant
