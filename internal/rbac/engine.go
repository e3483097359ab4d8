package rbac

import (
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
)

// ErrPermissionDenied is returned by Require when no role grants the action.
// Surfaced as an authorization failure, never masked as not-found.
var ErrPermissionDenied = dErrors.New(dErrors.CodeForbidden, "permission denied")

// HasPermission reports whether any of the roles grants (resource, action)
// for the given tenant. A role grants the permission if it carries an
// explicit (resource, action) entry or a (resource, Manage) entry.
//
// Tenant scoping: a role instantiated for tenant X grants nothing when
// evaluated against a different tenant, regardless of its permissions.
func HasPermission(tenantID id.TenantID, roles []Role, resource Resource, action Action) bool {
	for _, role := range roles {
		if role.TenantScope != tenantID {
			continue
		}
		for _, p := range role.Permissions {
			if p.Resource != resource {
				continue
			}
			if p.Action == action || p.Action == ActionManage {
				return true
			}
		}
	}
	return false
}

// Require returns ErrPermissionDenied unless HasPermission holds.
func Require(tenantID id.TenantID, roles []Role, resource Resource, action Action) error {
	if !HasPermission(tenantID, roles, resource, action) {
		return ErrPermissionDenied
	}
	return nil
}
