package trips_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"wayfare/internal/audit"
	auditmetrics "wayfare/internal/audit/metrics"
	auditmem "wayfare/internal/audit/store/memory"
	"wayfare/internal/isolation"
	isolationmetrics "wayfare/internal/isolation/metrics"
	"wayfare/internal/rbac"
	"wayfare/internal/storage"
	"wayfare/internal/tenancy"
	"wayfare/internal/trips"
	"wayfare/internal/trips/mocks"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
	"wayfare/pkg/platform/sentinel"
)

// promauto registers against the default registry; share one instance of
// each metrics set across the test binary.
var (
	testIsolationMetrics = isolationmetrics.New()
	testAuditMetrics     = auditmetrics.New()
)

type fixture struct {
	engine     *storage.InMemoryEngine
	auditStore *auditmem.Store
	svc        *trips.Service

	tenantA id.TenantID
	tenantB id.TenantID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	classifier := isolation.NewClassifier()
	require.NoError(t, classifier.Validate())

	f := &fixture{
		engine:     storage.NewInMemoryEngine(),
		auditStore: auditmem.New(),
		tenantA:    id.NewTenantID(),
		tenantB:    id.NewTenantID(),
	}
	client := isolation.NewClient(f.engine, classifier, slog.Default(), testIsolationMetrics)
	recorder := audit.NewRecorder(f.auditStore, slog.Default(), testAuditMetrics)
	f.svc = trips.New(client, recorder, slog.Default())
	return f
}

// seedUser writes a user record directly through the engine, as
// provisioning would, and returns its identity.
func (f *fixture) seedUser(t *testing.T, tenantID id.TenantID) id.UserID {
	t.Helper()
	userID := id.NewUserID()
	rec := &storage.Record{
		ID:     id.RecordID(userID),
		Fields: map[string]any{"tenant_id": tenantID.String()},
	}
	require.NoError(t, f.engine.Create(context.Background(), "user", rec))
	return userID
}

func (f *fixture) bind(t *testing.T, tenantID id.TenantID, userID id.UserID, template rbac.TemplateName) context.Context {
	t.Helper()
	rc := tenancy.Context{
		TenantID:  tenantID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if template != "" {
		role, ok := rbac.Instantiate(template, tenantID)
		require.True(t, ok)
		rc.Roles = []rbac.Role{role}
	}
	return tenancy.WithContext(t.Context(), rc)
}

func (f *fixture) entries(t *testing.T, tenantID id.TenantID) []*audit.Entry {
	t.Helper()
	entries, err := f.auditStore.ListByTenant(context.Background(), tenantID, 100)
	require.NoError(t, err)
	return entries
}

// Every successful mutation produces exactly one audit entry carrying the
// acting tenant, user, and resource.
func TestCreateTripRecordsAudit(t *testing.T) {
	f := newFixture(t)
	author := f.seedUser(t, f.tenantA)
	ctx := f.bind(t, f.tenantA, author, rbac.TemplateContentManager)

	trip, err := f.svc.CreateTrip(ctx, trips.CreateTripInput{
		Title:       "Lisbon long weekend",
		Destination: "Lisbon",
		StartDate:   "2026-10-02",
		EndDate:     "2026-10-05",
	})
	require.NoError(t, err)
	assert.Equal(t, author, trip.OwnerID)

	entries := f.entries(t, f.tenantA)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, audit.ActionTripCreated, entry.Action)
	assert.Equal(t, rbac.ResourceTrip, entry.Resource)
	assert.Equal(t, trip.ID.String(), entry.ResourceID)
	assert.Equal(t, f.tenantA, entry.TenantID)
	assert.Equal(t, author, entry.UserID)
	assert.Nil(t, entry.Before)
	assert.NotNil(t, entry.After)
}

func TestCreateTripDenied(t *testing.T) {
	f := newFixture(t)

	t.Run("viewer lacks create", func(t *testing.T) {
		viewer := f.seedUser(t, f.tenantA)
		ctx := f.bind(t, f.tenantA, viewer, rbac.TemplateViewer)
		_, err := f.svc.CreateTrip(ctx, trips.CreateTripInput{Title: "nope"})
		assert.ErrorIs(t, err, rbac.ErrPermissionDenied)
	})

	t.Run("anonymous has no roles", func(t *testing.T) {
		ctx := f.bind(t, f.tenantA, id.UserID{}, "")
		_, err := f.svc.CreateTrip(ctx, trips.CreateTripInput{Title: "nope"})
		assert.ErrorIs(t, err, rbac.ErrPermissionDenied)
	})

	t.Run("no context at all", func(t *testing.T) {
		_, err := f.svc.CreateTrip(context.Background(), trips.CreateTripInput{Title: "nope"})
		assert.ErrorIs(t, err, tenancy.ErrMissingTenantContext)
	})

	// Denied attempts leave no trace in storage or the audit trail.
	n, err := f.engine.Count(context.Background(), "trip", storage.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.entries(t, f.tenantA))
}

func TestCreateTripValidation(t *testing.T) {
	f := newFixture(t)
	author := f.seedUser(t, f.tenantA)
	ctx := f.bind(t, f.tenantA, author, rbac.TemplateContentManager)

	_, err := f.svc.CreateTrip(ctx, trips.CreateTripInput{Title: ""})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = f.svc.CreateTrip(ctx, trips.CreateTripInput{Title: "x", StartDate: "next tuesday"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestTripLifecycle(t *testing.T) {
	f := newFixture(t)
	author := f.seedUser(t, f.tenantA)
	ctx := f.bind(t, f.tenantA, author, rbac.TemplateContentManager)

	trip, err := f.svc.CreateTrip(ctx, trips.CreateTripInput{Title: "Kyoto", Destination: "Kyoto"})
	require.NoError(t, err)

	got, err := f.svc.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kyoto", got.Title)

	list, err := f.svc.ListTrips(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	title := "Kyoto in autumn"
	updated, err := f.svc.UpdateTrip(ctx, trip.ID, trips.UpdateTripInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, "Kyoto", updated.Destination, "partial update keeps other fields")

	admin := f.seedUser(t, f.tenantA)
	adminCtx := f.bind(t, f.tenantA, admin, rbac.TemplateTenantAdmin)
	require.NoError(t, f.svc.DeleteTrip(adminCtx, trip.ID))

	_, err = f.svc.GetTrip(ctx, trip.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	entries := f.entries(t, f.tenantA)
	require.Len(t, entries, 3)
	// Newest first.
	assert.Equal(t, audit.ActionTripDeleted, entries[0].Action)
	assert.Equal(t, admin, entries[0].UserID)
	assert.Equal(t, audit.ActionTripUpdated, entries[1].Action)
	assert.NotNil(t, entries[1].Before)
	assert.NotNil(t, entries[1].After)
	assert.Equal(t, audit.ActionTripCreated, entries[2].Action)
}

// ContentManager may not delete trips; only admins carry trip delete.
func TestDeleteTripRequiresDelete(t *testing.T) {
	f := newFixture(t)
	author := f.seedUser(t, f.tenantA)
	ctx := f.bind(t, f.tenantA, author, rbac.TemplateContentManager)

	trip, err := f.svc.CreateTrip(ctx, trips.CreateTripInput{Title: "Oslo"})
	require.NoError(t, err)

	err = f.svc.DeleteTrip(ctx, trip.ID)
	assert.ErrorIs(t, err, rbac.ErrPermissionDenied)
}

func TestCrossTenantTripsInvisible(t *testing.T) {
	f := newFixture(t)
	authorA := f.seedUser(t, f.tenantA)
	ctxA := f.bind(t, f.tenantA, authorA, rbac.TemplateContentManager)

	trip, err := f.svc.CreateTrip(ctxA, trips.CreateTripInput{Title: "Reykjavik"})
	require.NoError(t, err)

	adminB := f.seedUser(t, f.tenantB)
	ctxB := f.bind(t, f.tenantB, adminB, rbac.TemplateTenantAdmin)

	_, err = f.svc.GetTrip(ctxB, trip.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	list, err := f.svc.ListTrips(ctxB)
	require.NoError(t, err)
	assert.Empty(t, list)

	title := "stolen"
	_, err = f.svc.UpdateTrip(ctxB, trip.ID, trips.UpdateTripInput{Title: &title})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	err = f.svc.DeleteTrip(ctxB, trip.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	// The other tenant's probing never lands in tenant A's audit trail.
	assert.Len(t, f.entries(t, f.tenantA), 1)
	assert.Empty(t, f.entries(t, f.tenantB))
}

func TestActivityFlow(t *testing.T) {
	f := newFixture(t)
	author := f.seedUser(t, f.tenantA)
	ctx := f.bind(t, f.tenantA, author, rbac.TemplateContentManager)

	trip, err := f.svc.CreateTrip(ctx, trips.CreateTripInput{Title: "Rome"})
	require.NoError(t, err)

	activity, err := f.svc.AddActivity(ctx, trip.ID, trips.AddActivityInput{
		Name:        "Colosseum tour",
		ScheduledAt: "2026-09-12T10:00:00Z",
	})
	require.NoError(t, err)

	_, err = f.svc.AddActivity(ctx, trip.ID, trips.AddActivityInput{Name: ""})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = f.svc.AddActivity(ctx, id.NewRecordID(), trips.AddActivityInput{Name: "orphan"})
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "unknown trip")

	list, err := f.svc.ListActivities(ctx, trip.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Colosseum tour", list[0].Name)

	require.NoError(t, f.svc.DeleteActivity(ctx, activity.ID))
	list, err = f.svc.ListActivities(ctx, trip.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteTripCascades(t *testing.T) {
	f := newFixture(t)
	author := f.seedUser(t, f.tenantA)
	authorCtx := f.bind(t, f.tenantA, author, rbac.TemplateContentManager)
	admin := f.seedUser(t, f.tenantA)
	adminCtx := f.bind(t, f.tenantA, admin, rbac.TemplateTenantAdmin)

	trip, err := f.svc.CreateTrip(authorCtx, trips.CreateTripInput{Title: "Porto"})
	require.NoError(t, err)
	_, err = f.svc.AddActivity(authorCtx, trip.ID, trips.AddActivityInput{Name: "river cruise"})
	require.NoError(t, err)
	_, err = f.svc.AttachDocument(authorCtx, trip.ID, trips.AttachDocumentInput{
		Name: "tickets.pdf", URL: "https://files.test/tickets.pdf",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteTrip(adminCtx, trip.ID))

	n, err := f.engine.Count(context.Background(), "activity", storage.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = f.engine.Count(context.Background(), "document", storage.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)

	// create trip + add activity + attach document + cascade (activity,
	// document) + delete trip.
	assert.Len(t, f.entries(t, f.tenantA), 6)
}

// A failed mutation records nothing: the audit trail only ever reflects
// mutations that succeeded.
func TestNoAuditOnFailedMutation(t *testing.T) {
	ctrl := gomock.NewController(t)
	data := mocks.NewMockDataStore(ctrl)
	recorder := mocks.NewMockRecorder(ctrl)
	svc := trips.New(data, recorder, slog.Default())

	f := newFixture(t)
	author := f.seedUser(t, f.tenantA)
	ctx := f.bind(t, f.tenantA, author, rbac.TemplateContentManager)

	t.Run("create fails", func(t *testing.T) {
		data.EXPECT().Create(gomock.Any(), "trip", gomock.Any()).Return(errors.New("storage down"))
		_, err := svc.CreateTrip(ctx, trips.CreateTripInput{Title: "doomed"})
		require.Error(t, err)
	})

	t.Run("update fails", func(t *testing.T) {
		tripID := id.NewRecordID()
		rec := &storage.Record{ID: tripID, Fields: map[string]any{
			"user_id": author.String(), "title": "old",
		}}
		data.EXPECT().FindOne(gomock.Any(), "trip", gomock.Any()).Return(rec, nil)
		data.EXPECT().Update(gomock.Any(), "trip", gomock.Any(), gomock.Any()).Return(0, errors.New("storage down"))

		title := "new"
		_, err := svc.UpdateTrip(ctx, tripID, trips.UpdateTripInput{Title: &title})
		require.Error(t, err)
	})
	// recorder had no expectations set: any Record call fails the test.
}
