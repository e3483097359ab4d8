package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"wayfare/internal/tenancy/metrics"
	"wayfare/internal/tenancy/models"
	id "wayfare/pkg/domain"
)

const (
	cacheKeySlug   = "tenant:slug:"
	cacheKeyDomain = "tenant:domain:"
	cacheKeyID     = "tenant:id:"
)

// Cached is a read-through Redis cache in front of a tenant Store.
//
// Lookups populate the cache on miss; Create and Execute invalidate. Cache
// failures degrade to the inner store so a Redis outage never blocks tenant
// resolution. Status changes (deactivation) bust entries immediately, so the
// TTL only bounds staleness for out-of-band writes.
type Cached struct {
	inner   Store
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewCached(inner Store, client *redis.Client, ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *Cached {
	return &Cached{inner: inner, client: client, ttl: ttl, logger: logger, metrics: m}
}

func (c *Cached) Create(ctx context.Context, t *models.Tenant) error {
	if err := c.inner.Create(ctx, t); err != nil {
		return err
	}
	// New slugs/domains may have been cached as misses elsewhere; nothing to
	// invalidate since we never cache negative results.
	return nil
}

func (c *Cached) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	return c.readThrough(ctx, cacheKeyID+tenantID.String(), func() (*models.Tenant, error) {
		return c.inner.FindByID(ctx, tenantID)
	})
}

func (c *Cached) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return c.readThrough(ctx, cacheKeySlug+strings.ToLower(slug), func() (*models.Tenant, error) {
		return c.inner.FindBySlug(ctx, slug)
	})
}

func (c *Cached) FindByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	return c.readThrough(ctx, cacheKeyDomain+strings.ToLower(domain), func() (*models.Tenant, error) {
		return c.inner.FindByDomain(ctx, domain)
	})
}

func (c *Cached) List(ctx context.Context) ([]*models.Tenant, error) {
	return c.inner.List(ctx)
}

func (c *Cached) Execute(ctx context.Context, tenantID id.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error) {
	t, err := c.inner.Execute(ctx, tenantID, validate, mutate)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, t)
	return t, nil
}

func (c *Cached) readThrough(ctx context.Context, key string, load func() (*models.Tenant, error)) (*models.Tenant, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var t models.Tenant
		if err := json.Unmarshal(raw, &t); err == nil {
			c.metrics.CacheHits.Inc()
			return &t, nil
		}
		// Corrupt entry; fall through and overwrite.
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "tenant cache read failed", "key", key, "error", err)
	}
	c.metrics.CacheMisses.Inc()

	t, err := load()
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(t); err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "tenant cache write failed", "key", key, "error", err)
		}
	}
	return t, nil
}

func (c *Cached) invalidate(ctx context.Context, t *models.Tenant) {
	keys := []string{cacheKeyID + t.ID.String(), cacheKeySlug + strings.ToLower(t.Slug)}
	if t.Domain != "" {
		keys = append(keys, cacheKeyDomain+strings.ToLower(t.Domain))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.WarnContext(ctx, "tenant cache invalidation failed", "tenant_id", t.ID, "error", err)
	}
}
