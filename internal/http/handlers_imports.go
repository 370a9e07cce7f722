// Package httpx provides the HTTP handlers and router for the import job API.
package httpx

import (
	"errors"
	"net/http"

	"github.com/lettermill/import-api/internal/domain/model"
	"github.com/lettermill/import-api/internal/service"
)

// ImportHandlers provides HTTP handlers for import job operations.
type ImportHandlers struct {
	Svc *service.ImporterService
}

// Create accepts a record batch and either runs it inline, returning the
// final summary, or registers a background job and returns 202 with a
// snapshot for the caller to poll.
func (h *ImportHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateImportRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	outcome, err := h.Svc.CreateImport(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	if outcome.Polling {
		WriteJSON(w, http.StatusAccepted, outcome)
		return
	}
	WriteJSON(w, http.StatusOK, outcome)
}

// List returns job snapshots, optionally filtered by ?list= and ?status=.
func (h *ImportHandlers) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseJobFilter(w, r)
	if !ok {
		return
	}

	jobs, err := h.Svc.GetJobs(r.Context(), filter)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// Stats returns aggregate job counts per status.
func (h *ImportHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// Get returns one job snapshot by id.
func (h *ImportHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")})
		return
	}

	job, err := h.Svc.GetJob(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Retry creates a replacement job for a failed import. When the failed job's
// recovery info marks the remainder retry-safe, only the unprocessed tail of
// the stored batch is replayed.
func (h *ImportHandlers) Retry(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.Retry(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, job)
}

// Cancel requests cooperative cancellation of a pending or processing job.
// Workers observe the flag between sub-batches, so the snapshot returned here
// may briefly still report progress ticks.
func (h *ImportHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Clear soft-clears one terminal job so it stops appearing in listings.
func (h *ImportHandlers) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.ClearJob(r.Context(), r.PathValue("id")); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearFailed soft-clears every failed job in one sweep.
func (h *ImportHandlers) ClearFailed(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.Svc.ClearAllFailed(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int64{"cleared": cleared})
}

// parseJobFilter builds a JobFilter from query params, rejecting unknown
// status values instead of silently returning an unfiltered listing.
func parseJobFilter(w http.ResponseWriter, r *http.Request) (model.JobFilter, bool) {
	filter := model.JobFilter{ListName: r.URL.Query().Get("list")}

	if raw := r.URL.Query().Get("status"); raw != "" {
		var status model.JobStatus
		if err := status.UnmarshalText([]byte(raw)); err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_query", Err: err})
			return model.JobFilter{}, false
		}
		filter.Status = status
	}
	return filter, true
}
