// Package tenantkit provides multi-tenant resolution, membership-based
// authorization, and billing-state synchronization for SaaS applications.
//
// The toolkit is split into focused packages:
//
//   - pkg/tenant: host-based tenant resolution (subdomains and custom
//     domains), HTTP middleware, caching, lifecycle management, and
//     single-user to multi-tenant data migration
//   - pkg/membership: user-tenant memberships with a three-level role
//     hierarchy (owner > admin > member) and an authorization guard
//   - pkg/billing: payment provider customer provisioning, checkout and
//     portal sessions, and webhook-driven subscription mirroring
//   - modules/tenants, modules/billing: mountable chi routers exposing the
//     services as JSON APIs
//
// Supporting packages cover the ambient concerns: pkg/pg (pgx pool,
// goose migrations), pkg/redis (shared client), pkg/config (env-based
// loading), pkg/logger (slog factories), and pkg/email (transactional
// delivery with subscription lifecycle mailers).
//
// Basic wiring:
//
//	pool, _ := pg.Connect(ctx, pgCfg)
//	store := tenant.NewPostgresStore(pool)
//	resolver := tenant.NewResolver(store, log)
//
//	r := chi.NewRouter()
//	r.Use(tenant.Middleware(resolver))
//	r.Mount("/tenants", tenants.Router(tenants.RouterOptions{...}))
//	r.Mount("/billing", billingmod.Router(billingmod.RouterOptions{...}))
//	r.Handle("/webhooks/billing", billing.NewWebhookHandler(billingSvc, log))
package tenantkit
