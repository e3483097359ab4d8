package httptransport

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"wayfare/internal/audit"
	"wayfare/internal/rbac"
	"wayfare/internal/tenancy"
	"wayfare/internal/tenancy/models"
	tenantstore "wayfare/internal/tenancy/store/tenant"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
	"wayfare/pkg/requestcontext"
)

// Recorder appends audit entries for operator mutations.
type Recorder interface {
	Record(ctx context.Context, action audit.Action, resource rbac.Resource, resourceID string, before, after any)
}

// AdminHandler is the operator surface: tenant lifecycle and audit
// inspection. It authenticates with a shared operator token, not tenant
// membership; operators are not users of any tenant.
type AdminHandler struct {
	tenants  tenantstore.Store
	audit    audit.Store
	recorder Recorder
	logger   *slog.Logger
	token    string
}

func NewAdminHandler(tenants tenantstore.Store, auditStore audit.Store, recorder Recorder, logger *slog.Logger, token string) *AdminHandler {
	return &AdminHandler{tenants: tenants, audit: auditStore, recorder: recorder, logger: logger, token: token}
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.requireOperator)
		r.Post("/tenants", h.handleCreateTenant)
		r.Get("/tenants", h.handleListTenants)
		r.Post("/tenants/{tenantID}/deactivate", h.handleDeactivateTenant)
		r.Post("/tenants/{tenantID}/reactivate", h.handleReactivateTenant)
		r.Get("/tenants/{tenantID}/audit", h.handleListAudit)
	})
}

// requireOperator gates the surface on the configured token. An empty
// configured token disables the surface entirely.
func (h *AdminHandler) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		supplied := r.Header.Get("X-Admin-Token")
		if h.token == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(h.token)) != 1 {
			h.logger.WarnContext(r.Context(), "operator surface rejected request", "path", r.URL.Path)
			writeError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid operator token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// auditContext binds the affected tenant so its entry lands in that
// tenant's trail; operator requests carry no tenant of their own.
func auditContext(ctx context.Context, tenantID id.TenantID) context.Context {
	return tenancy.WithContext(ctx, tenancy.Context{
		TenantID:  tenantID,
		CreatedAt: requestcontext.Now(ctx),
	})
}

type createTenantRequest struct {
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Domain string `json:"domain"`
}

func (h *AdminHandler) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createTenantRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tenant, err := models.NewTenant(id.NewTenantID(), req.Name, req.Slug, req.Domain, requestcontext.Now(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.tenants.Create(ctx, tenant); err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(auditContext(ctx, tenant.ID), audit.ActionTenantCreated, rbac.ResourceTenant, tenant.ID.String(), nil, tenant)
	h.logger.InfoContext(ctx, "tenant created", "tenant_id", tenant.ID, "slug", tenant.Slug)
	writeJSON(w, http.StatusCreated, tenant)
}

func (h *AdminHandler) handleListTenants(w http.ResponseWriter, r *http.Request) {
	list, err := h.tenants.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenants": list})
}

func (h *AdminHandler) handleDeactivateTenant(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, audit.ActionTenantDeactivated,
		(*models.Tenant).CanDeactivate, (*models.Tenant).ApplyDeactivation)
}

func (h *AdminHandler) handleReactivateTenant(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, audit.ActionTenantReactivated,
		(*models.Tenant).CanReactivate, (*models.Tenant).ApplyReactivation)
}

func (h *AdminHandler) transition(w http.ResponseWriter, r *http.Request, action audit.Action,
	validate func(*models.Tenant) error, apply func(*models.Tenant, time.Time)) {
	ctx := r.Context()
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		writeError(w, err)
		return
	}

	var before *models.Tenant
	tenant, err := h.tenants.Execute(ctx, tenantID,
		func(t *models.Tenant) error {
			cp := *t
			before = &cp
			return validate(t)
		},
		func(t *models.Tenant) { apply(t, requestcontext.Now(ctx)) },
	)
	if err != nil {
		writeError(w, err)
		return
	}

	h.recorder.Record(auditContext(ctx, tenant.ID), action, rbac.ResourceTenant, tenant.ID.String(), before, tenant)
	h.logger.InfoContext(ctx, "tenant status changed", "tenant_id", tenant.ID, "status", tenant.Status)
	writeJSON(w, http.StatusOK, tenant)
}

func (h *AdminHandler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		writeError(w, err)
		return
	}
	limit := 100
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be between 1 and 1000"))
			return
		}
		limit = n
	}

	entries, err := h.audit.ListByTenant(r.Context(), tenantID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
