// Package tenant persists tenant records for the directory.
package tenant

import (
	"context"

	"wayfare/internal/tenancy/models"
	id "wayfare/pkg/domain"
)

// Store is the tenant directory persistence contract.
//
// Error contract: methods return sentinel.ErrNotFound (wrapped) when the
// tenant does not exist and sentinel.ErrAlreadyUsed when slug or domain
// uniqueness would be violated. Infrastructure failures are wrapped with
// context.
type Store interface {
	// Create persists a tenant iff its slug and domain are unused
	// (case-insensitive). The uniqueness check and insert are atomic.
	Create(ctx context.Context, t *models.Tenant) error

	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	FindByDomain(ctx context.Context, domain string) (*models.Tenant, error)
	List(ctx context.Context) ([]*models.Tenant, error)

	// Execute atomically validates then mutates a tenant under the store's
	// lock (mutex or FOR UPDATE), returning the updated tenant.
	Execute(ctx context.Context, tenantID id.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error)
}
