package tenant

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Lookup identifies how a tenant should be looked up for a given host.
type Lookup string

const (
	// LookupNone means the host carries no tenant information (root app).
	LookupNone Lookup = ""
	// LookupSubdomain means the first host label is a tenant subdomain.
	LookupSubdomain Lookup = "subdomain"
	// LookupCustomDomain means the whole host is a tenant's custom domain.
	LookupCustomDomain Lookup = "custom-domain"
)

// Hint headers set by an upstream edge layer that already classified the
// host. When present they take precedence over re-deriving from the host so
// that edge and origin tiers never disagree.
const (
	HeaderLookupType = "X-Tenant-Lookup-Type"
	HeaderSubdomain  = "X-Tenant-Subdomain"
	HeaderHost       = "X-Tenant-Host"
)

// Identify classifies a host header into a lookup kind and value.
//
// The port is stripped and the host case-folded first. Localhost-style hosts
// treat the first label as a subdomain unless it is the loopback label
// itself. Production hosts with exactly two labels are candidate custom
// domains; three or more labels mean the first label is a subdomain.
//
// When hdr carries edge hints, those are honored instead of the host.
func Identify(host string, hdr http.Header) (Lookup, string) {
	if hdr != nil {
		switch hdr.Get(HeaderLookupType) {
		case string(LookupCustomDomain):
			if v := hdr.Get(HeaderHost); v != "" {
				return LookupCustomDomain, strings.ToLower(v)
			}
		case string(LookupSubdomain):
			if v := hdr.Get(HeaderSubdomain); v != "" {
				return LookupSubdomain, strings.ToLower(v)
			}
		}
	}

	host = strings.ToLower(host)
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	if host == "" {
		return LookupNone, ""
	}

	labels := strings.Split(host, ".")

	if strings.Contains(host, "localhost") || strings.Contains(host, "127.0.0.1") {
		sub := labels[0]
		if sub == "" || sub == "localhost" || sub == "127" {
			return LookupNone, ""
		}
		return LookupSubdomain, sub
	}

	switch {
	case len(labels) == 2:
		return LookupCustomDomain, host
	case len(labels) >= 3:
		return LookupSubdomain, labels[0]
	default:
		return LookupNone, ""
	}
}

// Resolver derives a tenant from request host information using a Store.
type Resolver struct {
	store Store
	log   *slog.Logger
}

// NewResolver creates a store-backed resolver. A nil logger falls back to
// slog.Default().
func NewResolver(store Store, log *slog.Logger) *Resolver {
	if store == nil {
		panic("tenant: Store is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{store: store, log: log}
}

// Resolve returns the active tenant matching the host header, or nil when
// the host carries no tenant context or no active tenant matches.
//
// A two-label production host is tried as a custom domain first and falls
// back to subdomain-style matching on the first label. Persistence failures
// are logged and degrade to nil: resolution fails closed rather than leaking
// storage errors into every request.
func (r *Resolver) Resolve(ctx context.Context, host string, hdr http.Header) *Tenant {
	lookup, value := Identify(host, hdr)

	switch lookup {
	case LookupCustomDomain:
		if t := r.lookup(ctx, r.store.GetByCustomDomain, value); t != nil {
			return t
		}
		// An edge hint names the custom domain authoritatively, so a miss is
		// final. Only host-derived candidates may still be a subdomain of a
		// two-label deployment.
		if hdr != nil && hdr.Get(HeaderLookupType) == string(LookupCustomDomain) {
			return nil
		}
		if labels := strings.Split(value, "."); len(labels) >= 2 {
			return r.lookup(ctx, r.store.GetBySubdomain, labels[0])
		}
		return nil
	case LookupSubdomain:
		return r.lookup(ctx, r.store.GetBySubdomain, value)
	default:
		return nil
	}
}

// ResolveRequest is a convenience wrapper for HTTP handlers.
func (r *Resolver) ResolveRequest(req *http.Request) *Tenant {
	return r.Resolve(req.Context(), req.Host, req.Header)
}

func (r *Resolver) lookup(ctx context.Context, get func(context.Context, string) (*Tenant, error), value string) *Tenant {
	t, err := get(ctx, value)
	if err != nil {
		if !errors.Is(err, ErrTenantNotFound) {
			r.log.ErrorContext(ctx, "tenant lookup failed", "identifier", value, "error", err)
		}
		return nil
	}
	return t
}
