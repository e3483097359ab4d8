// Package session validates bearer tokens from the auth provider.
//
// A token yields an Identity: the authenticated user ID plus the tenant the
// token claims to belong to. The tenant claim is only a hint — context
// construction re-verifies membership against the user record and never
// trusts the claim on its own.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
)

// Identity is what a validated session token asserts about the caller.
type Identity struct {
	UserID     id.UserID
	TenantHint id.TenantID
}

// Claims are the JWT claims for access tokens issued by the auth provider.
type Claims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Validator verifies HS256-signed session tokens.
type Validator struct {
	signingKey []byte
	issuer     string
}

func NewValidator(signingKey, issuer string) *Validator {
	return &Validator{signingKey: []byte(signingKey), issuer: issuer}
}

// ValidateToken parses and verifies a bearer token, returning the identity it
// asserts. All failures map to CodeUnauthorized.
func (v *Validator) ValidateToken(tokenString string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	}, jwt.WithIssuer(v.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return Identity{}, dErrors.New(dErrors.CodeUnauthorized, "token carries no valid user id")
	}

	ident := Identity{UserID: userID}
	if claims.TenantID != "" {
		// A malformed hint is ignored rather than fatal: membership
		// verification decides tenant binding, not the token.
		if hint, err := id.ParseTenantID(claims.TenantID); err == nil {
			ident.TenantHint = hint
		}
	}
	return ident, nil
}

// GenerateToken signs a session token. Used by the dev login path and tests;
// production tokens come from the external auth provider.
func (v *Validator) GenerateToken(userID id.UserID, tenantID id.TenantID, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   userID.String(),
		TenantID: tenantID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    v.issuer,
		},
	})
	return token.SignedString(v.signingKey)
}
