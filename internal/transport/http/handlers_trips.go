package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wayfare/internal/trips"
	id "wayfare/pkg/domain"
	dErrors "wayfare/pkg/domain-errors"
)

// TripService is the slice of the trips service the handler delegates to.
type TripService interface {
	CreateTrip(ctx context.Context, in trips.CreateTripInput) (*trips.Trip, error)
	GetTrip(ctx context.Context, tripID id.RecordID) (*trips.Trip, error)
	ListTrips(ctx context.Context) ([]*trips.Trip, error)
	UpdateTrip(ctx context.Context, tripID id.RecordID, in trips.UpdateTripInput) (*trips.Trip, error)
	DeleteTrip(ctx context.Context, tripID id.RecordID) error

	AddActivity(ctx context.Context, tripID id.RecordID, in trips.AddActivityInput) (*trips.Activity, error)
	ListActivities(ctx context.Context, tripID id.RecordID) ([]*trips.Activity, error)
	DeleteActivity(ctx context.Context, activityID id.RecordID) error

	AttachDocument(ctx context.Context, tripID id.RecordID, in trips.AttachDocumentInput) (*trips.Document, error)
	ListDocuments(ctx context.Context, tripID id.RecordID) ([]*trips.Document, error)
	DeleteDocument(ctx context.Context, documentID id.RecordID) error

	CreateContentBlock(ctx context.Context, in trips.CreateContentInput) (*trips.ContentBlock, error)
	GetContentBlock(ctx context.Context, key string) (*trips.ContentBlock, error)
	ListContentBlocks(ctx context.Context) ([]*trips.ContentBlock, error)
	UpdateContentBlock(ctx context.Context, blockID id.RecordID, in trips.UpdateContentInput) (*trips.ContentBlock, error)
	DeleteContentBlock(ctx context.Context, blockID id.RecordID) error
}

type TripsHandler struct {
	svc    TripService
	logger *slog.Logger
}

func NewTripsHandler(svc TripService, logger *slog.Logger) *TripsHandler {
	return &TripsHandler{svc: svc, logger: logger}
}

// Register mounts the tenant-facing API.
func (h *TripsHandler) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/trips", h.handleCreateTrip)
		r.Get("/trips", h.handleListTrips)
		r.Get("/trips/{tripID}", h.handleGetTrip)
		r.Patch("/trips/{tripID}", h.handleUpdateTrip)
		r.Delete("/trips/{tripID}", h.handleDeleteTrip)

		r.Post("/trips/{tripID}/activities", h.handleAddActivity)
		r.Get("/trips/{tripID}/activities", h.handleListActivities)
		r.Delete("/activities/{activityID}", h.handleDeleteActivity)

		r.Post("/trips/{tripID}/documents", h.handleAttachDocument)
		r.Get("/trips/{tripID}/documents", h.handleListDocuments)
		r.Delete("/documents/{documentID}", h.handleDeleteDocument)

		r.Post("/content", h.handleCreateContent)
		r.Get("/content", h.handleListContent)
		r.Get("/content/{key}", h.handleGetContent)
		r.Patch("/content/{blockID}", h.handleUpdateContent)
		r.Delete("/content/{blockID}", h.handleDeleteContent)
	})
}

func pathID(r *http.Request, name string) (id.RecordID, error) {
	return id.ParseRecordID(chi.URLParam(r, name))
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}

type tripRequest struct {
	Title       string `json:"title"`
	Destination string `json:"destination"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Notes       string `json:"notes"`
}

func (h *TripsHandler) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	trip, err := h.svc.CreateTrip(r.Context(), trips.CreateTripInput{
		Title:       req.Title,
		Destination: req.Destination,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

func (h *TripsHandler) handleListTrips(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListTrips(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trips": list})
}

func (h *TripsHandler) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}
	trip, err := h.svc.GetTrip(r.Context(), tripID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

type tripPatchRequest struct {
	Title       *string `json:"title"`
	Destination *string `json:"destination"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	Notes       *string `json:"notes"`
}

func (h *TripsHandler) handleUpdateTrip(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req tripPatchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	trip, err := h.svc.UpdateTrip(r.Context(), tripID, trips.UpdateTripInput{
		Title:       req.Title,
		Destination: req.Destination,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (h *TripsHandler) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.DeleteTrip(r.Context(), tripID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type activityRequest struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	ScheduledAt string `json:"scheduled_at"`
	Notes       string `json:"notes"`
}

func (h *TripsHandler) handleAddActivity(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req activityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	activity, err := h.svc.AddActivity(r.Context(), tripID, trips.AddActivityInput{
		Name:        req.Name,
		Location:    req.Location,
		ScheduledAt: req.ScheduledAt,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, activity)
}

func (h *TripsHandler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.svc.ListActivities(r.Context(), tripID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": list})
}

func (h *TripsHandler) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	activityID, err := pathID(r, "activityID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.DeleteActivity(r.Context(), activityID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type documentRequest struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

func (h *TripsHandler) handleAttachDocument(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req documentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	doc, err := h.svc.AttachDocument(r.Context(), tripID, trips.AttachDocumentInput{
		Name:        req.Name,
		URL:         req.URL,
		ContentType: req.ContentType,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *TripsHandler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathID(r, "tripID")
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.svc.ListDocuments(r.Context(), tripID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": list})
}

func (h *TripsHandler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID, err := pathID(r, "documentID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.DeleteDocument(r.Context(), documentID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type contentRequest struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (h *TripsHandler) handleCreateContent(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	block, err := h.svc.CreateContentBlock(r.Context(), trips.CreateContentInput{
		Key:   req.Key,
		Title: req.Title,
		Body:  req.Body,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, block)
}

func (h *TripsHandler) handleListContent(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListContentBlocks(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"content": list})
}

func (h *TripsHandler) handleGetContent(w http.ResponseWriter, r *http.Request) {
	block, err := h.svc.GetContentBlock(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

type contentPatchRequest struct {
	Title     *string `json:"title"`
	Body      *string `json:"body"`
	Published *bool   `json:"published"`
}

func (h *TripsHandler) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	blockID, err := pathID(r, "blockID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req contentPatchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	block, err := h.svc.UpdateContentBlock(r.Context(), blockID, trips.UpdateContentInput{
		Title:     req.Title,
		Body:      req.Body,
		Published: req.Published,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func (h *TripsHandler) handleDeleteContent(w http.ResponseWriter, r *http.Request) {
	blockID, err := pathID(r, "blockID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.DeleteContentBlock(r.Context(), blockID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
