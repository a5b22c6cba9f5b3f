package tenant

import (
	"net/http"
	"strings"
	"time"
)

// Middleware creates HTTP middleware that resolves the tenant for each
// request's host and stores it in the request context.
//
// Hosts that carry no tenant information (root app, marketing pages) pass
// through without a tenant in context; hosts that name a subdomain or custom
// domain with no matching active tenant are rejected through the error
// handler. Resolved tenants are cached under their lookup identifier.
func Middleware(resolver *Resolver, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{
		cache:        NewInMemoryCache(),
		cacheTTL:     5 * time.Minute,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			lookup, value := Identify(r.Host, r.Header)
			if lookup == LookupNone {
				next.ServeHTTP(w, r)
				return
			}

			key := string(lookup) + ":" + value
			if cached, ok := cfg.cache.Get(r.Context(), key); ok {
				ctx := WithTenant(r.Context(), cached)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			t := resolver.Resolve(r.Context(), r.Host, r.Header)
			if t == nil {
				cfg.errorHandler(w, r, ErrTenantNotFound)
				return
			}

			cfg.cache.Set(r.Context(), key, t, cfg.cacheTTL)

			ctx := WithTenant(r.Context(), t)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenant creates middleware that ensures a tenant is present in the
// context. Use it to protect routes that only make sense inside a tenant.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t, ok := FromContext(r.Context())
			if !ok || t == nil {
				errorHandler(w, r, ErrNoTenantInContext)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
