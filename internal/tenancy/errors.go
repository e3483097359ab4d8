package tenancy

import (
	dErrors "wayfare/pkg/domain-errors"
)

// Coded sentinels for the tenancy error taxonomy. Services and middleware
// match them with errors.Is; the transport layer maps their codes to HTTP
// statuses (missing context → 400, inactive/membership → 403, unknown
// tenant → 404).
var (
	// ErrTenantNotFound: no tenant matches any resolution strategy and no
	// default exists. With a mandatory default tenant this indicates a
	// configuration invariant violation, not a routine miss.
	ErrTenantNotFound = dErrors.New(dErrors.CodeNotFound, "tenant not found")

	// ErrTenantInactive: tenant resolved but deactivated. The request is
	// rejected before any data access.
	ErrTenantInactive = dErrors.New(dErrors.CodeForbidden, "tenant is inactive")

	// ErrUserNotInTenant: authenticated user does not belong to the
	// resolved tenant. Rejected, never silently re-scoped.
	ErrUserNotInTenant = dErrors.New(dErrors.CodeForbidden, "user does not belong to tenant")

	// ErrMissingTenantContext: an isolated-entity operation was attempted
	// with no tenant bound. Its occurrence indicates a bypass of the
	// wrapped client and is logged as a security-relevant event.
	ErrMissingTenantContext = dErrors.New(dErrors.CodeBadRequest, "no tenant bound to request context")
)
