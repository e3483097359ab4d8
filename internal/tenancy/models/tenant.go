package models

import (
	"regexp"
	"strings"
	"time"

	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
)

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantStatusActive   TenantStatus = "active"
	TenantStatusInactive TenantStatus = "inactive"
)

// CanTransitionTo reports whether the status may move to target.
// Only active ↔ inactive transitions exist.
func (s TenantStatus) CanTransitionTo(target TenantStatus) bool {
	switch s {
	case TenantStatusActive:
		return target == TenantStatusInactive
	case TenantStatusInactive:
		return target == TenantStatusActive
	default:
		return false
	}
}

// Settings holds per-tenant configuration knobs. The enforcement kernel only
// stores and returns them; interpretation belongs to the application layer.
type Settings struct {
	DisplayName  string `json:"display_name,omitempty"`
	LogoURL      string `json:"logo_url,omitempty"`
	PrimaryColor string `json:"primary_color,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// Tenant is the aggregate root for a tenant organization.
//
// Invariants:
//   - Slug is a non-empty DNS-label-safe identifier, unique system-wide
//   - Domain, when set, is unique system-wide
//   - Status is either active or inactive; transitions: active ↔ inactive only
//   - CreatedAt is immutable after construction
//
// Tenant deactivation is an immediate security boundary: resolution surfaces
// inactive tenants as a distinguishable condition and no request context is
// ever built for one. Users and data of an inactive tenant need no cascaded
// status change — the resolver is the single point of enforcement, which
// keeps reactivation cheap and the audit trail clear.
type Tenant struct {
	ID        id.TenantID  `json:"id"`
	Name      string       `json:"name"`
	Slug      string       `json:"slug"`
	Domain    string       `json:"domain,omitempty"`
	Status    TenantStatus `json:"status"`
	Settings  Settings     `json:"settings"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// CanDeactivate checks if the tenant can transition to inactive status.
func (t *Tenant) CanDeactivate() error {
	if !t.Status.CanTransitionTo(TenantStatusInactive) {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant is already inactive")
	}
	return nil
}

// ApplyDeactivation transitions the tenant to inactive status.
// Call CanDeactivate first to validate the transition.
func (t *Tenant) ApplyDeactivation(now time.Time) {
	t.Status = TenantStatusInactive
	t.UpdatedAt = now
}

// CanReactivate checks if the tenant can transition to active status.
func (t *Tenant) CanReactivate() error {
	if !t.Status.CanTransitionTo(TenantStatusActive) {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant is already active")
	}
	return nil
}

// ApplyReactivation transitions the tenant to active status.
// Call CanReactivate first to validate the transition.
func (t *Tenant) ApplyReactivation(now time.Time) {
	t.Status = TenantStatusActive
	t.UpdatedAt = now
}

// NewTenant constructs an active tenant, validating name and slug.
// Domain is optional; when present it is lowercased for exact matching.
func NewTenant(tenantID id.TenantID, name, slug, domain string, now time.Time) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant name must be 128 characters or less")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant slug must be a DNS-label-safe identifier")
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	return &Tenant{
		ID:        tenantID,
		Name:      name,
		Slug:      slug,
		Domain:    domain,
		Status:    TenantStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
