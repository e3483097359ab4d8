// Package httptransport is the thin HTTP layer: routing, request decoding,
// and domain-error translation. Business rules live in the services it
// delegates to.
package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wayfare/internal/tenancy"
	dErrors "wayfare/pkg/domain-errors"
	"wayfare/pkg/platform/middleware/metadata"
	"wayfare/pkg/platform/middleware/requesttime"
	"wayfare/pkg/platform/sentinel"
	"wayfare/pkg/requestcontext"
)

// NewRouter assembles the full middleware chain and mounts all surfaces.
//
// The tenant middleware guards only the tenant-facing API; health, metrics,
// and the operator surface stay outside it (operators are not tenant
// members, and a broken resolver must not take down health checks).
func NewRouter(tenantMW *tenancy.Middleware, tripsHandler *TripsHandler, adminHandler *AdminHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(requestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(tenantMW.Handler)
		tripsHandler.Register(r)
	})

	adminHandler.Register(r)
	return r
}

// requestID propagates the inbound correlation id, minting one when absent.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError translates domain and store errors into the JSON error
// envelope. Store sentinels that escape unwrapped by a coded error still
// map to their natural statuses.
func writeError(w http.ResponseWriter, err error) {
	status := dErrors.ToHTTPStatus(dErrors.CodeOf(err))
	if !hasDomainCode(err) {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrAlreadyUsed):
			status = http.StatusConflict
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func hasDomainCode(err error) bool {
	var de *dErrors.DomainError
	return errors.As(err, &de)
}
