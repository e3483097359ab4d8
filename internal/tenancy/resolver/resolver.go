// Package resolver maps an inbound request's host and path to the owning
// tenant via an ordered strategy chain.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"wayfare/internal/tenancy"
	"wayfare/internal/tenancy/metrics"
	"wayfare/internal/tenancy/models"
	tenantstore "wayfare/internal/tenancy/store/tenant"
	"wayfare/pkg/platform/sentinel"
)

// reservedSubdomains never resolve to a tenant; requests on them fall
// through to path and default resolution.
var reservedSubdomains = map[string]struct{}{
	"www":   {},
	"api":   {},
	"admin": {},
	"app":   {},
}

const clientPathPrefix = "/client/"

// Resolver resolves tenants using, in order: custom domain, subdomain of the
// base domain, /client/{slug} path prefix, admin-route fallback, and finally
// the default tenant. Resolution never fails for a well-formed host/path;
// the worst case is the default tenant. An inactive match is surfaced as
// ErrTenantInactive together with the tenant, never returned as usable.
type Resolver struct {
	tenants         tenantstore.Store
	defaultSlug     string
	adminPathPrefix string
	logger          *slog.Logger
	metrics         *metrics.Metrics
}

func New(tenants tenantstore.Store, defaultSlug, adminPathPrefix string, logger *slog.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{
		tenants:         tenants,
		defaultSlug:     defaultSlug,
		adminPathPrefix: adminPathPrefix,
		logger:          logger,
		metrics:         m,
	}
}

// Resolve returns the owning tenant and the strategy that matched.
//
// When the matched tenant is inactive, the tenant is returned alongside
// tenancy.ErrTenantInactive so callers can reject with context. The default
// tenant must exist and be active; a missing default is a configuration
// invariant violation reported as tenancy.ErrTenantNotFound.
func (r *Resolver) Resolve(ctx context.Context, host, path string) (*models.Tenant, tenancy.Resolution, error) {
	start := time.Now()
	defer r.metrics.ObserveResolve(start)

	host = normalizeHost(host)

	// 1. Custom domain.
	if host != "" {
		t, err := r.tenants.FindByDomain(ctx, host)
		if err == nil {
			return r.checked(ctx, t, tenancy.ResolutionCustomDomain)
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", fmt.Errorf("resolve by domain: %w", err)
		}
	}

	// 2. Subdomain.
	if slug, ok := subdomainSlug(host); ok {
		t, err := r.tenants.FindBySlug(ctx, slug)
		if err == nil {
			return r.checked(ctx, t, tenancy.ResolutionSubdomain)
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", fmt.Errorf("resolve by subdomain: %w", err)
		}
	}

	// 3. Path prefix /client/{slug}.
	if slug, ok := pathSlug(path); ok {
		t, err := r.tenants.FindBySlug(ctx, slug)
		if err == nil {
			return r.checked(ctx, t, tenancy.ResolutionPathPrefix)
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", fmt.Errorf("resolve by path: %w", err)
		}
	}

	// 4. Admin routes resolve to the default tenant without further lookup.
	if r.adminPathPrefix != "" && strings.HasPrefix(path, r.adminPathPrefix) {
		return r.defaultTenant(ctx, tenancy.ResolutionAdminRoute)
	}

	// 5. Default tenant.
	return r.defaultTenant(ctx, tenancy.ResolutionDefault)
}

func (r *Resolver) defaultTenant(ctx context.Context, res tenancy.Resolution) (*models.Tenant, tenancy.Resolution, error) {
	t, err := r.tenants.FindBySlug(ctx, r.defaultSlug)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			r.metrics.IncrementResolutionFailure("not_found")
			r.logger.ErrorContext(ctx, "default tenant missing", "slug", r.defaultSlug)
			return nil, "", tenancy.ErrTenantNotFound
		}
		return nil, "", fmt.Errorf("resolve default tenant: %w", err)
	}
	return r.checked(ctx, t, res)
}

func (r *Resolver) checked(ctx context.Context, t *models.Tenant, res tenancy.Resolution) (*models.Tenant, tenancy.Resolution, error) {
	if !t.IsActive() {
		r.metrics.IncrementResolutionFailure("inactive")
		r.logger.WarnContext(ctx, "resolved inactive tenant",
			"tenant_id", t.ID,
			"slug", t.Slug,
			"strategy", string(res),
		)
		return t, res, tenancy.ErrTenantInactive
	}
	r.metrics.IncrementResolution(string(res))
	return t, res, nil
}

// normalizeHost strips any port and lowercases the host.
func normalizeHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

// subdomainSlug extracts a candidate tenant slug from the leading label of a
// host with at least three dot-separated labels, skipping reserved labels.
func subdomainSlug(host string) (string, bool) {
	labels := strings.Split(host, ".")
	if len(labels) < 3 {
		return "", false
	}
	slug := labels[0]
	if slug == "" {
		return "", false
	}
	if _, reserved := reservedSubdomains[slug]; reserved {
		return "", false
	}
	return slug, true
}

// pathSlug extracts a tenant slug from a /client/{slug} path prefix.
func pathSlug(path string) (string, bool) {
	if !strings.HasPrefix(path, clientPathPrefix) {
		return "", false
	}
	rest := strings.TrimPrefix(path, clientPathPrefix)
	slug, _, _ := strings.Cut(rest, "/")
	if slug == "" {
		return "", false
	}
	return slug, true
}
