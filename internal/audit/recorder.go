package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"wayfare/internal/audit/metrics"
	"wayfare/internal/rbac"
	"wayfare/internal/tenancy"
	"wayfare/pkg/requestcontext"
)

// Recorder builds entries from the request context and appends them.
//
// Record is fire-and-forget: a failed write is logged and counted, never
// propagated. A broken audit sink must not make the product unusable.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewRecorder(store Store, logger *slog.Logger, m *metrics.Metrics) *Recorder {
	return &Recorder{store: store, logger: logger, metrics: m}
}

// Record appends one entry for a successful mutation. Tenant, user, and
// request metadata come from the context; before and after are optional
// snapshots of the resource and are serialized as JSON.
func (r *Recorder) Record(ctx context.Context, action Action, resource rbac.Resource, resourceID string, before, after any) {
	entry := &Entry{
		ID:         uuid.New(),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		RequestID:  requestcontext.RequestID(ctx),
		ClientIP:   requestcontext.ClientIP(ctx),
		Device:     requestcontext.DeviceSummary(ctx),
		Timestamp:  requestcontext.Now(ctx).UTC(),
	}
	if rc, ok := tenancy.FromContext(ctx); ok {
		entry.TenantID = rc.TenantID
		entry.UserID = rc.UserID
	}
	entry.Before = r.snapshot(ctx, action, "before", before)
	entry.After = r.snapshot(ctx, action, "after", after)

	if err := r.store.Append(ctx, entry); err != nil {
		r.metrics.WriteFailures.Inc()
		r.logger.ErrorContext(ctx, "audit write failed",
			"action", action,
			"resource", resource,
			"resource_id", resourceID,
			"error", err,
		)
		return
	}
	r.metrics.Entries.WithLabelValues(string(action)).Inc()
}

func (r *Recorder) snapshot(ctx context.Context, action Action, which string, v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		// Degrade to an entry without the snapshot rather than losing it.
		r.logger.WarnContext(ctx, "audit snapshot not serializable",
			"action", action,
			"snapshot", which,
			"error", err,
		)
		return nil
	}
	return raw
}
