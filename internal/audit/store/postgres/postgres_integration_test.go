//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"wayfare/internal/audit"
	"wayfare/internal/audit/store/postgres"
	"wayfare/internal/rbac"
	id "wayfare/pkg/domain"
	"wayfare/pkg/testutil/containers"
)

type AuditPostgresSuite struct {
	suite.Suite
	container *containers.PostgresContainer
	store     *postgres.Store
}

func TestAuditPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditPostgresSuite))
}

func (s *AuditPostgresSuite) SetupSuite() {
	s.container = containers.NewPostgresContainer(s.T())
	s.Require().NoError(s.container.ApplySchema(context.Background(), postgres.Schema))
	s.store = postgres.New(s.container.DB)
}

func (s *AuditPostgresSuite) SetupTest() {
	s.Require().NoError(s.container.TruncateTables(context.Background(), "audit_entries", "audit_outbox"))
}

func (s *AuditPostgresSuite) entry(tenantID id.TenantID, action audit.Action, at time.Time) *audit.Entry {
	return &audit.Entry{
		ID:         uuid.New(),
		TenantID:   tenantID,
		UserID:     id.NewUserID(),
		Action:     action,
		Resource:   rbac.ResourceTrip,
		ResourceID: uuid.NewString(),
		Before:     []byte(`{"title":"old"}`),
		After:      []byte(`{"title":"new"}`),
		RequestID:  "req-1",
		ClientIP:   "203.0.113.7",
		Device:     "Firefox on macOS",
		Timestamp:  at,
	}
}

func (s *AuditPostgresSuite) TestAppendAndList() {
	ctx := context.Background()
	tenantA := id.NewTenantID()
	tenantB := id.NewTenantID()
	base := time.Now().UTC().Truncate(time.Microsecond)

	first := s.entry(tenantA, audit.ActionTripCreated, base)
	second := s.entry(tenantA, audit.ActionTripUpdated, base.Add(time.Second))
	other := s.entry(tenantB, audit.ActionTripDeleted, base.Add(2*time.Second))
	s.Require().NoError(s.store.Append(ctx, first))
	s.Require().NoError(s.store.Append(ctx, second))
	s.Require().NoError(s.store.Append(ctx, other))

	entries, err := s.store.ListByTenant(ctx, tenantA, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(second.ID, entries[0].ID, "newest first")
	s.Equal(first.ID, entries[1].ID)

	got := entries[1]
	s.Equal(first.UserID, got.UserID)
	s.Equal(audit.ActionTripCreated, got.Action)
	s.Equal(rbac.ResourceTrip, got.Resource)
	s.Equal(first.ResourceID, got.ResourceID)
	s.JSONEq(`{"title":"old"}`, string(got.Before))
	s.JSONEq(`{"title":"new"}`, string(got.After))
	s.Equal("req-1", got.RequestID)
	s.Equal("Firefox on macOS", got.Device)
	s.WithinDuration(base, got.Timestamp, time.Millisecond)
}

func (s *AuditPostgresSuite) TestAnonymousUser() {
	ctx := context.Background()
	tenantID := id.NewTenantID()

	entry := s.entry(tenantID, audit.ActionTenantCreated, time.Now().UTC())
	entry.UserID = id.UserID{}
	entry.Before = nil
	entry.After = nil
	s.Require().NoError(s.store.Append(ctx, entry))

	entries, err := s.store.ListByTenant(ctx, tenantID, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.True(entries[0].UserID.IsNil())
	s.Empty(entries[0].Before)
	s.Empty(entries[0].After)
}

func (s *AuditPostgresSuite) TestOutboxLifecycle() {
	ctx := context.Background()
	tenantID := id.NewTenantID()
	base := time.Now().UTC()

	first := s.entry(tenantID, audit.ActionTripCreated, base)
	second := s.entry(tenantID, audit.ActionTripUpdated, base.Add(time.Second))
	s.Require().NoError(s.store.Append(ctx, first))
	s.Require().NoError(s.store.Append(ctx, second))

	pending, err := s.store.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(first.ID, pending[0].ID, "oldest first")
	s.Equal(tenantID.String(), pending[0].Key)
	s.NotEmpty(pending[0].Payload)

	s.Require().NoError(s.store.MarkPublished(ctx, []uuid.UUID{first.ID}))

	pending, err = s.store.FetchUnpublished(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(second.ID, pending[0].ID)

	// Marking is idempotent.
	s.Require().NoError(s.store.MarkPublished(ctx, []uuid.UUID{first.ID}))
	s.Require().NoError(s.store.MarkPublished(ctx, nil))
}
