// Package domain provides typed identifiers shared across modules.
//
// IDs are distinct types over uuid.UUID so the compiler rejects cross-type
// assignment (a UserID can never stand in for a TenantID). Parse functions
// enforce the trust-boundary invariant: IDs must be valid, non-empty,
// non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "wayfare/pkg/domain-errors"
)

// TenantID identifies a tenant organization.
type TenantID uuid.UUID

// UserID identifies a user within exactly one tenant.
type UserID uuid.UUID

// RoleID identifies a role template or a tenant-bound role instance.
type RoleID uuid.UUID

// RecordID identifies a record held by the generic storage engine.
type RecordID uuid.UUID

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be the nil UUID")
	}
	return u, nil
}

// ParseTenantID validates and returns a TenantID.
func ParseTenantID(s string) (TenantID, error) {
	u, err := parseUUID(s, "tenant")
	return TenantID(u), err
}

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user")
	return UserID(u), err
}

// ParseRoleID validates and returns a RoleID.
func ParseRoleID(s string) (RoleID, error) {
	u, err := parseUUID(s, "role")
	return RoleID(u), err
}

// ParseRecordID validates and returns a RecordID.
func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record")
	return RecordID(u), err
}

// NewTenantID returns a fresh random TenantID.
func NewTenantID() TenantID { return TenantID(uuid.New()) }

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewRoleID returns a fresh random RoleID.
func NewRoleID() RoleID { return RoleID(uuid.New()) }

// NewRecordID returns a fresh random RecordID.
func NewRecordID() RecordID { return RecordID(uuid.New()) }

func (id TenantID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string   { return uuid.UUID(id).String() }
func (id RoleID) String() string   { return uuid.UUID(id).String() }
func (id RecordID) String() string { return uuid.UUID(id).String() }

// MarshalText implementations keep JSON and text encodings in canonical
// UUID string form rather than raw byte arrays.
func (id TenantID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id RoleID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id RecordID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// MarshalText encodes a nil UserID as the empty string. Absence is a legal
// state for a user identity (anonymous and operator requests); the other ID
// types have no such state and always encode the full UUID.
func (id UserID) MarshalText() ([]byte, error) {
	if id.IsNil() {
		return []byte(nil), nil
	}
	return []byte(id.String()), nil
}

func (id *TenantID) UnmarshalText(b []byte) error {
	parsed, err := ParseTenantID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// UnmarshalText accepts the empty string as the nil UserID, mirroring
// MarshalText. Non-empty input still goes through full validation.
func (id *UserID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*id = UserID{}
		return nil
	}
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RoleID) UnmarshalText(b []byte) error {
	parsed, err := ParseRoleID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RecordID) UnmarshalText(b []byte) error {
	parsed, err := ParseRecordID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IsNil reports whether the ID is the zero value.
func (id TenantID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// IsNil reports whether the ID is the zero value. A nil UserID denotes an
// unauthenticated (anonymous or system) request context.
func (id UserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// IsNil reports whether the ID is the zero value.
func (id RoleID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// IsNil reports whether the ID is the zero value.
func (id RecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
