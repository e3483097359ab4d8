// Package worker drains the audit outbox to the publisher.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"wayfare/internal/audit"
	"wayfare/internal/audit/metrics"
)

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

// Relay polls the outbox and publishes pending entries in order. Failures
// leave rows unpublished; the next tick retries them, so delivery is
// at-least-once and a broker outage only delays the trail.
type Relay struct {
	outbox    audit.Outbox
	publisher audit.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics

	interval  time.Duration
	batchSize int
}

func NewRelay(outbox audit.Outbox, publisher audit.Publisher, logger *slog.Logger, m *metrics.Metrics) *Relay {
	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
	}
}

// Run blocks until the context is cancelled, draining the outbox each tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				r.metrics.RelayFailures.Inc()
				r.logger.ErrorContext(ctx, "audit relay iteration failed", "error", err)
			}
		}
	}
}

// drain publishes one batch. A publish failure stops the batch mid-way so
// per-key ordering is preserved; everything already published is marked.
func (r *Relay) drain(ctx context.Context) error {
	for {
		batch, err := r.outbox.FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		published := make([]uuid.UUID, 0, len(batch))
		var publishErr error
		for _, e := range batch {
			if err := r.publisher.Publish(ctx, e.Key, e.Payload); err != nil {
				publishErr = err
				break
			}
			published = append(published, e.ID)
		}
		r.metrics.RelayPublished.Add(float64(len(published)))

		if len(published) > 0 {
			if err := r.outbox.MarkPublished(ctx, published); err != nil {
				return err
			}
		}
		if publishErr != nil {
			return publishErr
		}
		if len(batch) < r.batchSize {
			return nil
		}
	}
}
