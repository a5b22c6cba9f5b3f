package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when no tenant matches a lookup key.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInactiveTenant is returned when trying to use a soft-disabled tenant.
	ErrInactiveTenant = errors.New("tenant is inactive")

	// ErrNoTenantInContext is returned when no tenant is found in context.
	ErrNoTenantInContext = errors.New("no tenant in context")

	// ErrInvalidSubdomain is returned when a subdomain contains characters
	// outside [a-z0-9-] after case folding.
	ErrInvalidSubdomain = errors.New("subdomain must contain only lowercase letters, numbers, and hyphens")

	// ErrSubdomainTaken is returned when another tenant already owns the subdomain.
	ErrSubdomainTaken = errors.New("subdomain is already taken")

	// ErrCustomDomainTaken is returned when another tenant already owns the custom domain.
	ErrCustomDomainTaken = errors.New("custom domain is already taken")

	// ErrUserNotFound is returned by migration when the source user does not exist.
	ErrUserNotFound = errors.New("user not found")
)
