package trips

import (
	"context"
	"fmt"
	"time"

	"wayfare/internal/audit"
	"wayfare/internal/rbac"
	"wayfare/internal/storage"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
	"wayfare/pkg/platform/sentinel"
)

type AddActivityInput struct {
	Name        string
	Location    string
	ScheduledAt string
	Notes       string
}

func (in AddActivityInput) validate() error {
	if in.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "activity name is required")
	}
	if in.ScheduledAt != "" {
		if _, err := time.Parse(time.RFC3339, in.ScheduledAt); err != nil {
			return dErrors.New(dErrors.CodeInvalidInput, "scheduled_at must be an RFC 3339 timestamp")
		}
	}
	return nil
}

// AddActivity schedules an activity on a trip. The trip lookup doubles as
// the existence check; the isolated client independently verifies the
// ownership chain on create.
func (s *Service) AddActivity(ctx context.Context, tripID id.RecordID, in AddActivityInput) (*Activity, error) {
	if _, err := s.require(ctx, rbac.ResourceTrip, rbac.ActionUpdate); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.data.FindOne(ctx, entityTrip, storage.Filter{"id": tripID.String()}); err != nil {
		return nil, fmt.Errorf("find trip: %w", err)
	}

	activity := &Activity{
		ID:          id.NewRecordID(),
		TripID:      tripID,
		Name:        in.Name,
		Location:    in.Location,
		ScheduledAt: in.ScheduledAt,
		Notes:       in.Notes,
	}
	if err := s.data.Create(ctx, entityActivity, activityRecord(activity)); err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}

	s.audit.Record(ctx, audit.ActionActivityCreated, rbac.ResourceTrip, activity.ID.String(), nil, activity)
	return activity, nil
}

// ListActivities returns a trip's activities.
func (s *Service) ListActivities(ctx context.Context, tripID id.RecordID) ([]*Activity, error) {
	if _, err := s.require(ctx, rbac.ResourceTrip, rbac.ActionRead); err != nil {
		return nil, err
	}
	recs, err := s.data.Find(ctx, entityActivity, storage.Filter{"trip_id": tripID.String()})
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	activities := make([]*Activity, 0, len(recs))
	for _, rec := range recs {
		a, err := activityFromRecord(rec)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, nil
}

// DeleteActivity removes one activity.
func (s *Service) DeleteActivity(ctx context.Context, activityID id.RecordID) error {
	if _, err := s.require(ctx, rbac.ResourceTrip, rbac.ActionUpdate); err != nil {
		return err
	}

	filter := storage.Filter{"id": activityID.String()}
	beforeRec, err := s.data.FindOne(ctx, entityActivity, filter)
	if err != nil {
		return fmt.Errorf("find activity: %w", err)
	}
	before, err := activityFromRecord(beforeRec)
	if err != nil {
		return err
	}

	n, err := s.data.Delete(ctx, entityActivity, filter)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete activity: %w", sentinel.ErrNotFound)
	}

	s.audit.Record(ctx, audit.ActionActivityDeleted, rbac.ResourceTrip, activityID.String(), before, nil)
	return nil
}

type AttachDocumentInput struct {
	Name        string
	URL         string
	ContentType string
}

func (in AttachDocumentInput) validate() error {
	if in.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "document name is required")
	}
	if in.URL == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "document url is required")
	}
	return nil
}

// AttachDocument links file metadata to a trip.
func (s *Service) AttachDocument(ctx context.Context, tripID id.RecordID, in AttachDocumentInput) (*Document, error) {
	if _, err := s.require(ctx, rbac.ResourceTrip, rbac.ActionUpdate); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.data.FindOne(ctx, entityTrip, storage.Filter{"id": tripID.String()}); err != nil {
		return nil, fmt.Errorf("find trip: %w", err)
	}

	doc := &Document{
		ID:          id.NewRecordID(),
		TripID:      tripID,
		Name:        in.Name,
		URL:         in.URL,
		ContentType: in.ContentType,
	}
	if err := s.data.Create(ctx, entityDocument, documentRecord(doc)); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.audit.Record(ctx, audit.ActionDocumentAttached, rbac.ResourceTrip, doc.ID.String(), nil, doc)
	return doc, nil
}

// ListDocuments returns a trip's attached documents.
func (s *Service) ListDocuments(ctx context.Context, tripID id.RecordID) ([]*Document, error) {
	if _, err := s.require(ctx, rbac.ResourceTrip, rbac.ActionRead); err != nil {
		return nil, err
	}
	recs, err := s.data.Find(ctx, entityDocument, storage.Filter{"trip_id": tripID.String()})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docs := make([]*Document, 0, len(recs))
	for _, rec := range recs {
		d, err := documentFromRecord(rec)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// DeleteDocument removes one document's metadata.
func (s *Service) DeleteDocument(ctx context.Context, documentID id.RecordID) error {
	if _, err := s.require(ctx, rbac.ResourceTrip, rbac.ActionUpdate); err != nil {
		return err
	}

	filter := storage.Filter{"id": documentID.String()}
	beforeRec, err := s.data.FindOne(ctx, entityDocument, filter)
	if err != nil {
		return fmt.Errorf("find document: %w", err)
	}
	before, err := documentFromRecord(beforeRec)
	if err != nil {
		return err
	}

	n, err := s.data.Delete(ctx, entityDocument, filter)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete document: %w", sentinel.ErrNotFound)
	}

	s.audit.Record(ctx, audit.ActionDocumentDeleted, rbac.ResourceTrip, documentID.String(), before, nil)
	return nil
}
