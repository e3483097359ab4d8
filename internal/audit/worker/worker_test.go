package worker

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfare/internal/audit"
	"wayfare/internal/audit/metrics"
	"wayfare/internal/audit/store/memory"
	"wayfare/internal/rbac"
	id "wayfare/pkg/domain"
)

var testMetrics = metrics.New()

type capturingPublisher struct {
	published [][]byte
	keys      []string
	failAfter int // fail once this many records were accepted; -1 never
}

func (p *capturingPublisher) Publish(_ context.Context, key string, payload []byte) error {
	if p.failAfter >= 0 && len(p.published) >= p.failAfter {
		return errors.New("broker unavailable")
	}
	p.keys = append(p.keys, key)
	p.published = append(p.published, payload)
	return nil
}

func appendEntries(t *testing.T, store *memory.Store, tenantID id.TenantID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := store.Append(context.Background(), &audit.Entry{
			ID:         uuid.New(),
			TenantID:   tenantID,
			Action:     audit.ActionTripCreated,
			Resource:   rbac.ResourceTrip,
			ResourceID: "r",
			Timestamp:  time.Now().UTC(),
		})
		require.NoError(t, err)
	}
}

func TestDrainPublishesAndMarks(t *testing.T) {
	store := memory.New()
	tenantID := id.NewTenantID()
	appendEntries(t, store, tenantID, 3)

	pub := &capturingPublisher{failAfter: -1}
	relay := NewRelay(store, pub, slog.Default(), testMetrics)

	require.NoError(t, relay.drain(context.Background()))
	assert.Len(t, pub.published, 3)
	for _, key := range pub.keys {
		assert.Equal(t, tenantID.String(), key)
	}

	pending, err := store.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrainPagesThroughLargeBacklog(t *testing.T) {
	store := memory.New()
	appendEntries(t, store, id.NewTenantID(), 5)

	pub := &capturingPublisher{failAfter: -1}
	relay := NewRelay(store, pub, slog.Default(), testMetrics)
	relay.batchSize = 2

	require.NoError(t, relay.drain(context.Background()))
	assert.Len(t, pub.published, 5)
}

// A mid-batch failure marks only what was delivered; the rest stays queued
// for the next tick.
func TestDrainFailureRetainsUndelivered(t *testing.T) {
	store := memory.New()
	appendEntries(t, store, id.NewTenantID(), 3)

	pub := &capturingPublisher{failAfter: 2}
	relay := NewRelay(store, pub, slog.Default(), testMetrics)

	require.Error(t, relay.drain(context.Background()))
	assert.Len(t, pub.published, 2)

	pending, err := store.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// Broker recovers; the retained entry goes out on the next drain.
	pub.failAfter = -1
	require.NoError(t, relay.drain(context.Background()))
	assert.Len(t, pub.published, 3)
}

func TestRunStopsOnCancel(t *testing.T) {
	relay := NewRelay(memory.New(), &capturingPublisher{failAfter: -1}, slog.Default(), testMetrics)
	relay.interval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := relay.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
