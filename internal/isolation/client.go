package isolation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"wayfare/internal/isolation/metrics"
	"wayfare/internal/storage"
	"wayfare/internal/tenancy"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
	"wayfare/pkg/platform/sentinel"
)

// ErrCrossTenantOwner rejects a create or update whose referenced owner
// resolves to a different tenant.
var ErrCrossTenantOwner = dErrors.New(dErrors.CodeForbidden, "referenced owner does not belong to tenant")

// Client wraps a storage.Engine and enforces tenant isolation on every verb.
//
// Isolated reads, updates, deletes and counts get the request tenant
// injected into the filter on the entity's ownership path; the injected
// constraint overwrites any caller-supplied value on that path, so callers
// cannot widen their scope. Creates stamp the tenant onto DirectColumn
// entities and verify owner membership for ThroughOwner entities. Any
// isolated operation without a bound tenant fails closed with
// tenancy.ErrMissingTenantContext — the client never issues an unfiltered
// operation. Global entities pass through untouched.
type Client struct {
	engine     storage.Engine
	classifier *Classifier
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

func NewClient(engine storage.Engine, classifier *Classifier, logger *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		engine:     engine,
		classifier: classifier,
		logger:     logger,
		metrics:    m,
		tracer:     otel.Tracer("wayfare/isolation"),
	}
}

func (c *Client) FindOne(ctx context.Context, entity string, filter storage.Filter) (*storage.Record, error) {
	ctx, span := c.start(ctx, entity, "find_one")
	defer span.End()

	scoped, _, err := c.scopeFilter(ctx, entity, "find_one", filter)
	if err != nil {
		return nil, err
	}
	return c.engine.FindOne(ctx, entity, scoped)
}

func (c *Client) Find(ctx context.Context, entity string, filter storage.Filter) ([]*storage.Record, error) {
	ctx, span := c.start(ctx, entity, "find")
	defer span.End()

	scoped, _, err := c.scopeFilter(ctx, entity, "find", filter)
	if err != nil {
		return nil, err
	}
	return c.engine.Find(ctx, entity, scoped)
}

func (c *Client) Count(ctx context.Context, entity string, filter storage.Filter) (int, error) {
	ctx, span := c.start(ctx, entity, "count")
	defer span.End()

	scoped, _, err := c.scopeFilter(ctx, entity, "count", filter)
	if err != nil {
		return 0, err
	}
	return c.engine.Count(ctx, entity, scoped)
}

func (c *Client) Update(ctx context.Context, entity string, filter storage.Filter, set map[string]any) (int, error) {
	ctx, span := c.start(ctx, entity, "update")
	defer span.End()

	scoped, cls, err := c.scopeFilter(ctx, entity, "update", filter)
	if err != nil {
		return 0, err
	}
	if cls.IsIsolated() {
		switch cls.kind {
		case kindDirectColumn:
			// The tenant stamp is immutable; strip any attempt to rewrite it.
			set = clonePatchWithout(set, TenantField)
		case kindThroughOwner:
			// The owner reference decides which tenant the record resolves
			// to; a rewritten value must stay within the request tenant.
			if raw, ok := set[cls.OwnerField()]; ok {
				tenantID, err := c.requireTenant(ctx, entity, "update")
				if err != nil {
					return 0, err
				}
				if err := c.verifyOwner(ctx, cls, raw, tenantID); err != nil {
					return 0, err
				}
			}
		}
	}
	return c.engine.Update(ctx, entity, scoped, set)
}

func (c *Client) Delete(ctx context.Context, entity string, filter storage.Filter) (int, error) {
	ctx, span := c.start(ctx, entity, "delete")
	defer span.End()

	scoped, _, err := c.scopeFilter(ctx, entity, "delete", filter)
	if err != nil {
		return 0, err
	}
	return c.engine.Delete(ctx, entity, scoped)
}

// Create stamps DirectColumn entities with the request tenant, overwriting
// any caller-supplied value, and verifies owner membership for ThroughOwner
// entities before inserting.
func (c *Client) Create(ctx context.Context, entity string, rec *storage.Record) error {
	ctx, span := c.start(ctx, entity, "create")
	defer span.End()

	cls, err := c.classifier.Classify(entity)
	if err != nil {
		return err
	}
	if !cls.IsIsolated() {
		c.metrics.Operations.WithLabelValues(entity, "create", "global").Inc()
		return c.engine.Create(ctx, entity, rec)
	}

	tenantID, err := c.requireTenant(ctx, entity, "create")
	if err != nil {
		return err
	}
	c.metrics.Operations.WithLabelValues(entity, "create", "isolated").Inc()

	rec = rec.Clone()
	switch cls.kind {
	case kindDirectColumn:
		rec.Fields[TenantField] = tenantID.String()
	case kindThroughOwner:
		if err := c.verifyOwner(ctx, cls, rec.Fields[cls.OwnerField()], tenantID); err != nil {
			return err
		}
	}
	return c.engine.Create(ctx, entity, rec)
}

// verifyOwner checks the referenced owner exists within the request tenant.
// The lookup goes through the engine with the owner's own ownership path,
// so chains (activity→trip→user) resolve one hop at a time.
func (c *Client) verifyOwner(ctx context.Context, cls Classification, raw any, tenantID id.TenantID) error {
	if raw == nil || fmt.Sprint(raw) == "" {
		return dErrors.Newf(dErrors.CodeInvalidInput, "missing %s reference", cls.OwnerField())
	}
	ownerPath, err := c.classifier.TenantPath(cls.OwnerEntity())
	if err != nil {
		return err
	}
	_, err = c.engine.FindOne(ctx, cls.OwnerEntity(), storage.Filter{
		"id":      fmt.Sprint(raw),
		ownerPath: tenantID.String(),
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			c.metrics.CrossTenantOwner.Inc()
			c.logger.WarnContext(ctx, "owner reference outside tenant",
				"entity", cls.OwnerEntity(),
				"owner_id", fmt.Sprint(raw),
				"tenant_id", tenantID,
			)
			return ErrCrossTenantOwner
		}
		return fmt.Errorf("verify owner: %w", err)
	}
	return nil
}

// scopeFilter clones the caller's filter and injects the tenant constraint
// on the entity's ownership path. Global entities pass through as-is.
func (c *Client) scopeFilter(ctx context.Context, entity, verb string, filter storage.Filter) (storage.Filter, Classification, error) {
	cls, err := c.classifier.Classify(entity)
	if err != nil {
		return nil, Classification{}, err
	}
	if !cls.IsIsolated() {
		c.metrics.Operations.WithLabelValues(entity, verb, "global").Inc()
		return filter, cls, nil
	}

	tenantID, err := c.requireTenant(ctx, entity, verb)
	if err != nil {
		return nil, cls, err
	}
	path, err := c.classifier.TenantPath(entity)
	if err != nil {
		return nil, cls, err
	}

	c.metrics.Operations.WithLabelValues(entity, verb, "isolated").Inc()
	scoped := filter.Clone()
	scoped[path] = tenantID.String()
	return scoped, cls, nil
}

// requireTenant fails closed when no tenant is bound. Its occurrence means
// a caller reached storage without going through the request pipeline,
// which is a security event, not a routine error.
func (c *Client) requireTenant(ctx context.Context, entity, verb string) (id.TenantID, error) {
	rc, ok := tenancy.FromContext(ctx)
	if !ok || rc.TenantID.IsNil() {
		c.metrics.MissingTenantContext.Inc()
		c.logger.ErrorContext(ctx, "isolated operation without tenant context",
			"entity", entity,
			"verb", verb,
		)
		return id.TenantID{}, tenancy.ErrMissingTenantContext
	}
	return rc.TenantID, nil
}

func (c *Client) start(ctx context.Context, entity, verb string) (context.Context, trace.Span) {
	ctx, span := c.tracer.Start(ctx, "storage."+verb,
		trace.WithAttributes(
			attribute.String("entity", entity),
		))
	if rc, ok := tenancy.FromContext(ctx); ok {
		span.SetAttributes(attribute.String("tenant_id", rc.TenantID.String()))
	}
	return ctx, span
}

func clonePatchWithout(set map[string]any, field string) map[string]any {
	cp := make(map[string]any, len(set))
	for k, v := range set {
		if k == field {
			continue
		}
		cp[k] = v
	}
	return cp
}
