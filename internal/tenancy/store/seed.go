// Package store seeds the tenant directory for local development.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"wayfare/internal/tenancy/models"
	tenantstore "wayfare/internal/tenancy/store/tenant"
	userstore "wayfare/internal/tenancy/store/user"
	id "wayfare/pkg/domain"
)

// DefaultTenantSlug names the fallback tenant every deployment must carry.
// Resolution falls back to it when no strategy matches.
const DefaultTenantSlug = "default"

// SeedDefaultTenant ensures the default tenant exists and returns it.
func SeedDefaultTenant(ctx context.Context, tenants tenantstore.Store) (*models.Tenant, error) {
	if existing, err := tenants.FindBySlug(ctx, DefaultTenantSlug); err == nil {
		return existing, nil
	}
	t, err := models.NewTenant(id.TenantID(uuid.New()), "Default", DefaultTenantSlug, "", time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("build default tenant: %w", err)
	}
	if err := tenants.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("seed default tenant: %w", err)
	}
	return t, nil
}

// SeedDemoData provisions two demo tenants with one user per designation,
// all sharing the password "wayfare-demo". Development only.
func SeedDemoData(ctx context.Context, tenants tenantstore.Store, users userstore.Store) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("wayfare-demo"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	now := time.Now().UTC()
	demos := []struct {
		name   string
		slug   string
		domain string
	}{
		{name: "Acme Travel", slug: "acme", domain: "travel.acme.test"},
		{name: "Globetrotter", slug: "globetrotter", domain: ""},
	}

	for _, d := range demos {
		t, err := models.NewTenant(id.TenantID(uuid.New()), d.name, d.slug, d.domain, now)
		if err != nil {
			return fmt.Errorf("build demo tenant %s: %w", d.slug, err)
		}
		if err := tenants.Create(ctx, t); err != nil {
			return fmt.Errorf("seed demo tenant %s: %w", d.slug, err)
		}

		for _, designation := range []models.Designation{
			models.DesignationAdmin,
			models.DesignationAuthor,
			models.DesignationMember,
		} {
			email := fmt.Sprintf("%s@%s.test", designation, d.slug)
			u, err := models.NewUser(id.UserID(uuid.New()), t.ID, email, designation, now)
			if err != nil {
				return fmt.Errorf("build demo user %s: %w", email, err)
			}
			u.PasswordHash = string(hash)
			if err := users.Create(ctx, u); err != nil {
				return fmt.Errorf("seed demo user %s: %w", email, err)
			}
		}
	}
	return nil
}
