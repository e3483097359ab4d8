// Package rbac resolves effective permissions from a small set of system
// role templates and answers "can this context perform action A on resource
// R".
//
// Templates are immutable. A tenant-bound role is a template instantiated
// against one tenant; it grants nothing outside that tenant, even under a
// confused context that somehow carries it (defense in depth against
// cross-tenant context mixups).
package rbac

import (
	id "wayfare/pkg/domain"
)

// Resource is a closed enumeration of protected resource kinds.
type Resource string

const (
	ResourceUser     Resource = "user"
	ResourceContent  Resource = "content"
	ResourceTrip     Resource = "trip"
	ResourceTenant   Resource = "tenant"
	ResourceAuditLog Resource = "audit_log"
)

// Action is a closed enumeration of operations on a resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionManage implies all other actions on the resource.
	ActionManage Action = "manage"
)

// Permission is one (resource, action) grant.
type Permission struct {
	Resource Resource
	Action   Action
}

// TemplateName identifies a system role template.
type TemplateName string

const (
	// TemplateSuperAdmin is the system-operator template. It is never
	// instantiated for a tenant and never derivable from a user
	// designation; it exists only for the out-of-band operator path.
	TemplateSuperAdmin TemplateName = "super_admin"

	TemplateTenantAdmin    TemplateName = "tenant_admin"
	TemplateContentManager TemplateName = "content_manager"
	TemplateViewer         TemplateName = "viewer"
)

// Role is a template instantiated for one tenant (TenantScope set), or the
// system-wide template itself (TenantScope nil).
type Role struct {
	Name        TemplateName
	TenantScope id.TenantID
	Permissions []Permission
}

// templates is the closed set of system role templates.
var templates = map[TemplateName][]Permission{
	TemplateSuperAdmin: {
		{ResourceUser, ActionManage},
		{ResourceContent, ActionManage},
		{ResourceTrip, ActionManage},
		{ResourceTenant, ActionManage},
		{ResourceAuditLog, ActionManage},
	},
	TemplateTenantAdmin: {
		{ResourceUser, ActionManage},
		{ResourceContent, ActionManage},
		{ResourceTrip, ActionManage},
		{ResourceAuditLog, ActionRead},
	},
	TemplateContentManager: {
		{ResourceContent, ActionManage},
		{ResourceTrip, ActionCreate},
		{ResourceTrip, ActionRead},
		{ResourceTrip, ActionUpdate},
	},
	TemplateViewer: {
		{ResourceContent, ActionRead},
		{ResourceTrip, ActionRead},
	},
}

// Instantiate binds a template to a tenant. Unknown templates and attempts
// to instantiate SuperAdmin for a tenant return a zero Role and false.
func Instantiate(name TemplateName, tenantID id.TenantID) (Role, bool) {
	if name == TemplateSuperAdmin {
		return Role{}, false
	}
	perms, ok := templates[name]
	if !ok {
		return Role{}, false
	}
	return Role{Name: name, TenantScope: tenantID, Permissions: perms}, true
}
