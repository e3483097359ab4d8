// Package audit records an append-only trail of mutations: who did what to
// which resource, in which tenant, and when. Entries are written after the
// mutation succeeds and never gate it.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"wayfare/internal/rbac"
	id "wayfare/pkg/domain"
)

// Action is the semantic name of a recorded mutation. Only business logic
// knows it; the storage layer never invents one.
type Action string

const (
	ActionTripCreated Action = "trip.created"
	ActionTripUpdated Action = "trip.updated"
	ActionTripDeleted Action = "trip.deleted"

	ActionActivityCreated Action = "activity.created"
	ActionActivityUpdated Action = "activity.updated"
	ActionActivityDeleted Action = "activity.deleted"

	ActionDocumentAttached Action = "document.attached"
	ActionDocumentDeleted  Action = "document.deleted"

	ActionContentCreated Action = "content.created"
	ActionContentUpdated Action = "content.updated"
	ActionContentDeleted Action = "content.deleted"

	ActionTenantCreated     Action = "tenant.created"
	ActionTenantDeactivated Action = "tenant.deactivated"
	ActionTenantReactivated Action = "tenant.reactivated"

	ActionUserCreated Action = "user.created"
	ActionUserUpdated Action = "user.updated"
)

// Entry is one immutable audit record. Before and After hold JSON snapshots
// of the affected resource where the caller supplied them.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	TenantID   id.TenantID     `json:"tenant_id"`
	UserID     id.UserID       `json:"user_id"`
	Action     Action          `json:"action"`
	Resource   rbac.Resource   `json:"resource"`
	ResourceID string          `json:"resource_id"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`

	// Request metadata captured from the middleware chain.
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	Device    string `json:"device,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// Store is the append-only persistence port for audit entries. No update or
// delete verb exists, here or anywhere else in the application.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	ListByTenant(ctx context.Context, tenantID id.TenantID, limit int) ([]*Entry, error)
}
