package tenancy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"wayfare/internal/platform/session"
	"wayfare/internal/tenancy/models"
	userstore "wayfare/internal/tenancy/store/user"
	dErrors "wayfare/pkg/domain-errors"
	"wayfare/pkg/platform/sentinel"
	"wayfare/pkg/requestcontext"
)

type ctxKey struct{}

var contextKey = ctxKey{}

// WithContext stores the request's tenant context. The key is unexported;
// nothing outside this package can overwrite an established binding.
func WithContext(ctx context.Context, rc Context) context.Context {
	return context.WithValue(ctx, contextKey, rc)
}

// FromContext retrieves the tenant context established by the middleware.
func FromContext(ctx context.Context) (Context, bool) {
	rc, ok := ctx.Value(contextKey).(Context)
	return rc, ok
}

// TenantResolver is the resolution strategy chain consumed by Middleware.
type TenantResolver interface {
	Resolve(ctx context.Context, host, path string) (*models.Tenant, Resolution, error)
}

// IdentityValidator verifies bearer tokens.
type IdentityValidator interface {
	ValidateToken(token string) (session.Identity, error)
}

// Middleware resolves the tenant for every request, verifies the caller's
// membership when a bearer token is present, and stores the resulting
// Context for downstream handlers.
//
// Requests without a token proceed with an anonymous context. Requests with
// an invalid token are rejected with 401 rather than downgraded to
// anonymous, so a broken client never silently loses its identity.
type Middleware struct {
	resolver  TenantResolver
	validator IdentityValidator
	users     userstore.Store
	logger    *slog.Logger
}

func NewMiddleware(resolver TenantResolver, validator IdentityValidator, users userstore.Store, logger *slog.Logger) *Middleware {
	return &Middleware{resolver: resolver, validator: validator, users: users, logger: logger}
}

// Handler is the chi-compatible middleware entry point.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tenant, res, err := m.resolver.Resolve(ctx, r.Host, r.URL.Path)
		if err != nil {
			m.logger.WarnContext(ctx, "tenant resolution rejected request",
				"host", r.Host,
				"path", r.URL.Path,
				"error", err,
			)
			writeError(w, err)
			return
		}

		var user *models.User
		if token, ok := bearerToken(r); ok {
			ident, err := m.validator.ValidateToken(token)
			if err != nil {
				writeError(w, err)
				return
			}
			user, err = m.users.FindByID(ctx, ident.UserID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					writeError(w, dErrors.New(dErrors.CodeUnauthorized, "unknown user"))
					return
				}
				m.logger.ErrorContext(ctx, "user lookup failed", "user_id", ident.UserID, "error", err)
				writeError(w, dErrors.New(dErrors.CodeInternal, "user lookup failed"))
				return
			}
		}

		rc, err := BuildContext(tenant, user, res, requestcontext.Now(ctx))
		if err != nil {
			m.logger.WarnContext(ctx, "request context rejected",
				"tenant_id", tenant.ID,
				"error", err,
			)
			writeError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithContext(ctx, rc)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	return auth[len(prefix):], true
}

func writeError(w http.ResponseWriter, err error) {
	status := dErrors.ToHTTPStatus(dErrors.CodeOf(err))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
