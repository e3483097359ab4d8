// Package trips implements the travel-planning domain on top of the
// isolated storage client: trips owned by users, their activities and
// documents, and tenant-wide content blocks.
package trips

import (
	"fmt"
	"time"

	"wayfare/internal/storage"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
)

// Storage entity names. All four are tenant-isolated; see the
// classification table in internal/isolation.
const (
	entityTrip     = "trip"
	entityActivity = "activity"
	entityDocument = "document"
	entityContent  = "content_block"
)

// Trip is one user's planned journey. OwnerID links it to the user whose
// tenant it inherits.
type Trip struct {
	ID          id.RecordID `json:"id"`
	OwnerID     id.UserID   `json:"owner_id"`
	Title       string      `json:"title"`
	Destination string      `json:"destination"`
	StartDate   string      `json:"start_date,omitempty"`
	EndDate     string      `json:"end_date,omitempty"`
	Notes       string      `json:"notes,omitempty"`
}

// Activity is one scheduled item on a trip.
type Activity struct {
	ID          id.RecordID `json:"id"`
	TripID      id.RecordID `json:"trip_id"`
	Name        string      `json:"name"`
	Location    string      `json:"location,omitempty"`
	ScheduledAt string      `json:"scheduled_at,omitempty"`
	Notes       string      `json:"notes,omitempty"`
}

// Document is file metadata attached to a trip; the file itself lives in
// external storage.
type Document struct {
	ID          id.RecordID `json:"id"`
	TripID      id.RecordID `json:"trip_id"`
	Name        string      `json:"name"`
	URL         string      `json:"url"`
	ContentType string      `json:"content_type,omitempty"`
}

// ContentBlock is tenant-scoped editorial content keyed for template
// lookup.
type ContentBlock struct {
	ID        id.RecordID `json:"id"`
	Key       string      `json:"key"`
	Title     string      `json:"title,omitempty"`
	Body      string      `json:"body"`
	Published bool        `json:"published"`
}

// parseDate accepts an empty value or an ISO date.
func parseDate(field, v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, v); err != nil {
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s must be a YYYY-MM-DD date", field)
	}
	return nil
}

func tripRecord(t *Trip) *storage.Record {
	return &storage.Record{
		ID: t.ID,
		Fields: map[string]any{
			"user_id":     t.OwnerID.String(),
			"title":       t.Title,
			"destination": t.Destination,
			"start_date":  t.StartDate,
			"end_date":    t.EndDate,
			"notes":       t.Notes,
		},
	}
}

func tripFromRecord(rec *storage.Record) (*Trip, error) {
	owner, err := id.ParseUserID(str(rec.Fields["user_id"]))
	if err != nil {
		return nil, fmt.Errorf("trip %s: %w", rec.ID, err)
	}
	return &Trip{
		ID:          rec.ID,
		OwnerID:     owner,
		Title:       str(rec.Fields["title"]),
		Destination: str(rec.Fields["destination"]),
		StartDate:   str(rec.Fields["start_date"]),
		EndDate:     str(rec.Fields["end_date"]),
		Notes:       str(rec.Fields["notes"]),
	}, nil
}

func activityRecord(a *Activity) *storage.Record {
	return &storage.Record{
		ID: a.ID,
		Fields: map[string]any{
			"trip_id":      a.TripID.String(),
			"name":         a.Name,
			"location":     a.Location,
			"scheduled_at": a.ScheduledAt,
			"notes":        a.Notes,
		},
	}
}

func activityFromRecord(rec *storage.Record) (*Activity, error) {
	tripID, err := id.ParseRecordID(str(rec.Fields["trip_id"]))
	if err != nil {
		return nil, fmt.Errorf("activity %s: %w", rec.ID, err)
	}
	return &Activity{
		ID:          rec.ID,
		TripID:      tripID,
		Name:        str(rec.Fields["name"]),
		Location:    str(rec.Fields["location"]),
		ScheduledAt: str(rec.Fields["scheduled_at"]),
		Notes:       str(rec.Fields["notes"]),
	}, nil
}

func documentRecord(d *Document) *storage.Record {
	return &storage.Record{
		ID: d.ID,
		Fields: map[string]any{
			"trip_id":      d.TripID.String(),
			"name":         d.Name,
			"url":          d.URL,
			"content_type": d.ContentType,
		},
	}
}

func documentFromRecord(rec *storage.Record) (*Document, error) {
	tripID, err := id.ParseRecordID(str(rec.Fields["trip_id"]))
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", rec.ID, err)
	}
	return &Document{
		ID:          rec.ID,
		TripID:      tripID,
		Name:        str(rec.Fields["name"]),
		URL:         str(rec.Fields["url"]),
		ContentType: str(rec.Fields["content_type"]),
	}, nil
}

func contentRecord(c *ContentBlock) *storage.Record {
	return &storage.Record{
		ID: c.ID,
		Fields: map[string]any{
			"key":       c.Key,
			"title":     c.Title,
			"body":      c.Body,
			"published": c.Published,
		},
	}
}

func contentFromRecord(rec *storage.Record) *ContentBlock {
	published, _ := rec.Fields["published"].(bool)
	return &ContentBlock{
		ID:        rec.ID,
		Key:       str(rec.Fields["key"]),
		Title:     str(rec.Fields["title"]),
		Body:      str(rec.Fields["body"]),
		Published: published,
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
