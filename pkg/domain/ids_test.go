package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "wayfare/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs".
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseTenantID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseTenantID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseTenantID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseTenantID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, TenantID(validUUID), id)
	})
}

// TestParseID_SecurityInvariants validates trust-boundary parsing rules:
// parsing must reject attack vectors at API entry points.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE trips;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUserID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestAllIDTypes_ConsistentBehavior ensures all ID types parse identically.
// Inconsistent validation across ID types could create security holes.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errTenant := ParseTenantID(validUUID)
		_, errUser := ParseUserID(validUUID)
		_, errRole := ParseRoleID(validUUID)
		_, errRecord := ParseRecordID(validUUID)

		require.NoError(t, errTenant)
		require.NoError(t, errUser)
		require.NoError(t, errRole)
		require.NoError(t, errRecord)
	})

	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errTenant := ParseTenantID(input)
			_, errUser := ParseUserID(input)
			_, errRole := ParseRoleID(input)
			_, errRecord := ParseRecordID(input)

			require.Error(t, errTenant)
			require.Error(t, errUser)
			require.Error(t, errRole)
			require.Error(t, errRecord)
		})
	}
}

// TestTypeDistinction documents the compile-time invariant that typed IDs
// prevent cross-type assignment. If types become aliases, the commented
// assignments would compile and the invariant is broken.
func TestTypeDistinction(t *testing.T) {
	userID := UserID(uuid.New())
	tenantID := TenantID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ UserID = tenantID   // compile error
	// var _ TenantID = userID   // compile error

	assert.NotEqual(t, uuid.UUID(userID), uuid.UUID(tenantID))
}

// TestUserIDJSONRoundTrip covers the one ID type where absence is legal:
// a nil UserID (anonymous or operator request) must encode as the empty
// string and decode back to nil, while real IDs keep full validation.
func TestUserIDJSONRoundTrip(t *testing.T) {
	t.Run("nil encodes as empty and decodes to nil", func(t *testing.T) {
		var anon UserID
		b, err := json.Marshal(anon)
		require.NoError(t, err)
		assert.Equal(t, `""`, string(b))

		var got UserID
		require.NoError(t, json.Unmarshal(b, &got))
		assert.True(t, got.IsNil())
	})

	t.Run("non-nil round-trips canonically", func(t *testing.T) {
		userID := NewUserID()
		b, err := json.Marshal(userID)
		require.NoError(t, err)

		var got UserID
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, userID, got)
	})

	t.Run("struct field with nil user decodes", func(t *testing.T) {
		type envelope struct {
			UserID UserID `json:"user_id"`
		}
		b, err := json.Marshal(envelope{})
		require.NoError(t, err)

		var got envelope
		require.NoError(t, json.Unmarshal(b, &got))
		assert.True(t, got.UserID.IsNil())
	})

	t.Run("malformed input still rejected", func(t *testing.T) {
		var got UserID
		assert.Error(t, json.Unmarshal([]byte(`"not-a-uuid"`), &got))
	})
}

// FuzzParseTenantID tests that parsing never panics on arbitrary input and
// always returns either a valid round-trippable ID or an error.
func FuzzParseTenantID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE tenants;--")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseTenantID(input)
		if err != nil {
			return
		}
		roundTrip, err2 := ParseTenantID(id.String())
		if err2 != nil {
			t.Errorf("valid ID failed round-trip: %v", err2)
		}
		if roundTrip != id {
			t.Error("round-trip changed ID value")
		}
	})
}
