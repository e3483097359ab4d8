package models

import (
	"strings"
	"time"

	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
)

// UserStatus is the lifecycle state of a user.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Designation is the stored role designation on a user record. It is the
// input to the fixed designation→role mapping during context construction.
type Designation string

const (
	DesignationAdmin  Designation = "admin"
	DesignationAuthor Designation = "author"
	DesignationMember Designation = "member"
)

// User belongs to exactly one tenant. Membership is the authoritative
// tenant binding for authenticated requests: a session token's tenant claim
// is only trusted after it is checked against this record.
type User struct {
	ID          id.UserID   `json:"id"`
	TenantID    id.TenantID `json:"tenant_id"`
	Email       string      `json:"email"`
	Designation Designation `json:"designation"`
	Status      UserStatus  `json:"status"`
	// PasswordHash is a bcrypt hash. Populated by provisioning; never
	// serialized to API responses.
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// NewUser constructs an active user bound to a tenant.
func NewUser(userID id.UserID, tenantID id.TenantID, email string, designation Designation, now time.Time) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user email must be a valid address")
	}
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user must belong to a tenant")
	}
	switch designation {
	case DesignationAdmin, DesignationAuthor, DesignationMember:
	default:
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown user designation")
	}
	return &User{
		ID:          userID,
		TenantID:    tenantID,
		Email:       email,
		Designation: designation,
		Status:      UserStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
