// Package user persists user records and their tenant membership.
package user

import (
	"context"

	"wayfare/internal/tenancy/models"
	id "wayfare/pkg/domain"
)

// Store is the user persistence contract.
//
// Error contract: sentinel.ErrNotFound (wrapped) for missing users,
// sentinel.ErrAlreadyUsed when email uniqueness within a tenant would be
// violated.
type Store interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, tenantID id.TenantID, email string) (*models.User, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.User, error)
	Update(ctx context.Context, u *models.User) error
}
