package membership

import "errors"

var (
	// ErrAccessDenied is returned when a user lacks membership or holds a
	// role below the required level. Never downgraded to a silent nil.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotMember is returned when no membership exists for a (user, tenant) pair.
	ErrNotMember = errors.New("user is not a member of this tenant")

	// ErrAlreadyMember is returned when adding a user that already belongs to the tenant.
	ErrAlreadyMember = errors.New("user is already a member of this tenant")

	// ErrInvalidRole is returned for a role outside {member, admin, owner}.
	ErrInvalidRole = errors.New("invalid membership role")
)
