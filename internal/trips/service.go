package trips

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks DataStore,Recorder

import (
	"context"
	"fmt"
	"log/slog"

	"wayfare/internal/audit"
	"wayfare/internal/rbac"
	"wayfare/internal/storage"
	"wayfare/internal/tenancy"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
	"wayfare/pkg/platform/sentinel"
)

// DataStore is the slice of the isolated storage client the service uses.
// Every call is tenant-constrained by the implementation; the service never
// talks to the engine directly.
type DataStore interface {
	Create(ctx context.Context, entity string, rec *storage.Record) error
	FindOne(ctx context.Context, entity string, filter storage.Filter) (*storage.Record, error)
	Find(ctx context.Context, entity string, filter storage.Filter) ([]*storage.Record, error)
	Count(ctx context.Context, entity string, filter storage.Filter) (int, error)
	Update(ctx context.Context, entity string, filter storage.Filter, set map[string]any) (int, error)
	Delete(ctx context.Context, entity string, filter storage.Filter) (int, error)
}

// Recorder appends audit entries for successful mutations.
type Recorder interface {
	Record(ctx context.Context, action audit.Action, resource rbac.Resource, resourceID string, before, after any)
}

type Service struct {
	data   DataStore
	audit  Recorder
	logger *slog.Logger
}

func New(data DataStore, recorder Recorder, logger *slog.Logger) *Service {
	return &Service{data: data, audit: recorder, logger: logger}
}

// require resolves the request context and checks the permission. A missing
// context is a pipeline bypass, not a permission failure.
func (s *Service) require(ctx context.Context, resource rbac.Resource, action rbac.Action) (tenancy.Context, error) {
	rc, ok := tenancy.FromContext(ctx)
	if !ok {
		return tenancy.Context{}, tenancy.ErrMissingTenantContext
	}
	if err := rbac.Require(rc.TenantID, rc.Roles, resource, action); err != nil {
		return tenancy.Context{}, err
	}
	return rc, nil
}

type CreateTripInput struct {
	Title       string
	Destination string
	StartDate   string
	EndDate     string
	Notes       string
}

func (in CreateTripInput) validate() error {
	if in.Title == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "trip title is required")
	}
	if err := parseDate("start_date", in.StartDate); err != nil {
		return err
	}
	return parseDate("end_date", in.EndDate)
}

// CreateTrip creates a trip owned by the requesting user.
func (s *Service) CreateTrip(ctx context.Context, in CreateTripInput) (*Trip, error) {
	rc, err := s.require(ctx, rbac.ResourceTrip, rbac.ActionCreate)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	trip := &Trip{
		ID:          id.NewRecordID(),
		OwnerID:     rc.UserID,
		Title:       in.Title,
		Destination: in.Destination,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Notes:       in.Notes,
	}
	if err := s.data.Create(ctx, entityTrip, tripRecord(trip)); err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}

	s.audit.Record(ctx, audit.ActionTripCreated, rbac.ResourceTrip, trip.ID.String(), nil, trip)
	s.logger.InfoContext(ctx, "trip created", "trip_id", trip.ID, "owner_id", trip.OwnerID)
	return trip, nil
}

// GetTrip returns one trip. A trip outside the request tenant does not
// exist as far as the caller can tell.
func (s *Service) GetTrip(ctx context.Context, tripID id.RecordID) (*Trip, error) {
	if _, err := s.require(ctx, rbac.ResourceTrip, rbac.ActionRead); err != nil {
		return nil, err
	}
	rec, err := s.data.FindOne(ctx, entityTrip, storage.Filter{"id": tripID.String()})
	if err != nil {
		return nil, fmt.Errorf("find trip: %w", err)
	}
	return tripFromRecord(rec)
}

// ListTrips returns the tenant's trips.
func (s *Service) ListTrips(ctx context.Context) ([]*Trip, error) {
	if _, err := s.require(ctx, rbac.ResourceTrip, rbac.ActionRead); err != nil {
		return nil, err
	}
	recs, err := s.data.Find(ctx, entityTrip, storage.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	trips := make([]*Trip, 0, len(recs))
	for _, rec := range recs {
		trip, err := tripFromRecord(rec)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, nil
}

type UpdateTripInput struct {
	Title       *string
	Destination *string
	StartDate   *string
	EndDate     *string
	Notes       *string
}

func (in UpdateTripInput) patch() (map[string]any, error) {
	set := map[string]any{}
	if in.Title != nil {
		if *in.Title == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "trip title cannot be empty")
		}
		set["title"] = *in.Title
	}
	if in.Destination != nil {
		set["destination"] = *in.Destination
	}
	if in.StartDate != nil {
		if err := parseDate("start_date", *in.StartDate); err != nil {
			return nil, err
		}
		set["start_date"] = *in.StartDate
	}
	if in.EndDate != nil {
		if err := parseDate("end_date", *in.EndDate); err != nil {
			return nil, err
		}
		set["end_date"] = *in.EndDate
	}
	if in.Notes != nil {
		set["notes"] = *in.Notes
	}
	if len(set) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "no fields to update")
	}
	return set, nil
}

// UpdateTrip applies a partial update and records before/after snapshots.
func (s *Service) UpdateTrip(ctx context.Context, tripID id.RecordID, in UpdateTripInput) (*Trip, error) {
	if _, err := s.require(ctx, rbac.ResourceTrip, rbac.ActionUpdate); err != nil {
		return nil, err
	}
	set, err := in.patch()
	if err != nil {
		return nil, err
	}

	filter := storage.Filter{"id": tripID.String()}
	beforeRec, err := s.data.FindOne(ctx, entityTrip, filter)
	if err != nil {
		return nil, fmt.Errorf("find trip: %w", err)
	}
	before, err := tripFromRecord(beforeRec)
	if err != nil {
		return nil, err
	}

	n, err := s.data.Update(ctx, entityTrip, filter, set)
	if err != nil {
		return nil, fmt.Errorf("update trip: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("update trip: %w", sentinel.ErrNotFound)
	}

	afterRec, err := s.data.FindOne(ctx, entityTrip, filter)
	if err != nil {
		return nil, fmt.Errorf("reload trip: %w", err)
	}
	after, err := tripFromRecord(afterRec)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.ActionTripUpdated, rbac.ResourceTrip, tripID.String(), before, after)
	return after, nil
}

// DeleteTrip removes a trip and everything attached to it.
func (s *Service) DeleteTrip(ctx context.Context, tripID id.RecordID) error {
	if _, err := s.require(ctx, rbac.ResourceTrip, rbac.ActionDelete); err != nil {
		return err
	}

	filter := storage.Filter{"id": tripID.String()}
	beforeRec, err := s.data.FindOne(ctx, entityTrip, filter)
	if err != nil {
		return fmt.Errorf("find trip: %w", err)
	}
	before, err := tripFromRecord(beforeRec)
	if err != nil {
		return err
	}

	// Children first, so a trip never dangles references. Each removed
	// child gets its own audit entry.
	tripRef := storage.Filter{"trip_id": tripID.String()}
	activities, err := s.data.Find(ctx, entityActivity, tripRef)
	if err != nil {
		return fmt.Errorf("list trip activities: %w", err)
	}
	documents, err := s.data.Find(ctx, entityDocument, tripRef)
	if err != nil {
		return fmt.Errorf("list trip documents: %w", err)
	}
	if _, err := s.data.Delete(ctx, entityActivity, tripRef); err != nil {
		return fmt.Errorf("delete trip activities: %w", err)
	}
	if _, err := s.data.Delete(ctx, entityDocument, tripRef); err != nil {
		return fmt.Errorf("delete trip documents: %w", err)
	}
	for _, rec := range activities {
		s.audit.Record(ctx, audit.ActionActivityDeleted, rbac.ResourceTrip, rec.ID.String(), rec.Fields, nil)
	}
	for _, rec := range documents {
		s.audit.Record(ctx, audit.ActionDocumentDeleted, rbac.ResourceTrip, rec.ID.String(), rec.Fields, nil)
	}

	n, err := s.data.Delete(ctx, entityTrip, filter)
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete trip: %w", sentinel.ErrNotFound)
	}

	s.audit.Record(ctx, audit.ActionTripDeleted, rbac.ResourceTrip, tripID.String(), before, nil)
	s.logger.InfoContext(ctx, "trip deleted", "trip_id", tripID)
	return nil
}
