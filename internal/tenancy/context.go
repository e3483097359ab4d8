// Package tenancy carries the per-request tenant binding: the resolved
// tenant, the authenticated user's membership-checked identity, and the
// roles derived from it.
package tenancy

import (
	"time"

	"wayfare/internal/rbac"
	"wayfare/internal/tenancy/models"
	id "wayfare/pkg/domain"
)

// Resolution names the resolver strategy that matched a request.
type Resolution string

const (
	ResolutionCustomDomain Resolution = "custom_domain"
	ResolutionSubdomain    Resolution = "subdomain"
	ResolutionPathPrefix   Resolution = "path_prefix"
	ResolutionAdminRoute   Resolution = "admin_route"
	ResolutionDefault      Resolution = "default"
)

// Context is the immutable per-request tenant context.
//
// It is constructed exactly once per inbound request and then only read.
// It travels down the call chain as an explicit value (via the request's
// context.Context), never through shared state, so concurrent requests can
// never observe each other's binding.
type Context struct {
	TenantID   id.TenantID
	UserID     id.UserID
	Roles      []rbac.Role
	Resolution Resolution
	CreatedAt  time.Time
}

// Authenticated reports whether the context carries a user identity.
// Anonymous contexts suffice only for public and global operations.
func (c Context) Authenticated() bool {
	return !c.UserID.IsNil()
}

// HasPermission evaluates the context's roles against (resource, action).
func (c Context) HasPermission(resource rbac.Resource, action rbac.Action) bool {
	return rbac.HasPermission(c.TenantID, c.Roles, resource, action)
}

// BuildContext composes the resolved tenant with an optional authenticated
// user into a request context.
//
// A nil user yields an anonymous context with no roles. A present user must
// belong to the tenant and be active; any mismatch is ErrUserNotInTenant,
// never a context silently re-scoped to the user's own tenant. Roles come
// from the fixed designation mapping: admin → TenantAdmin, author →
// ContentManager, anything else → Viewer. SuperAdmin is never derivable
// here.
func BuildContext(tenant *models.Tenant, user *models.User, res Resolution, now time.Time) (Context, error) {
	if !tenant.IsActive() {
		return Context{}, ErrTenantInactive
	}

	rc := Context{
		TenantID:   tenant.ID,
		Resolution: res,
		CreatedAt:  now,
	}
	if user == nil {
		return rc, nil
	}

	if user.TenantID != tenant.ID || !user.IsActive() {
		return Context{}, ErrUserNotInTenant
	}

	role, ok := rbac.Instantiate(roleFor(user.Designation), tenant.ID)
	if !ok {
		return Context{}, ErrUserNotInTenant
	}
	rc.UserID = user.ID
	rc.Roles = []rbac.Role{role}
	return rc, nil
}

func roleFor(d models.Designation) rbac.TemplateName {
	switch d {
	case models.DesignationAdmin:
		return rbac.TemplateTenantAdmin
	case models.DesignationAuthor:
		return rbac.TemplateContentManager
	default:
		return rbac.TemplateViewer
	}
}
