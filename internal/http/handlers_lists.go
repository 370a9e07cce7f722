package httpx

import (
	"errors"
	"net/http"

	"github.com/lettermill/import-api/internal/service"
)

// ListHandlers provides HTTP handlers for destination list operations.
type ListHandlers struct {
	Svc *service.ImporterService
}

// List returns per-list subscriber counts from the destination store.
func (h *ListHandlers) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Svc.ListSummaries(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"lists": summaries})
}

// Delete removes a destination list and its subscribers. A list with an
// active import job is protected; ?force=1 cancels the job first.
func (h *ListHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("list name is required")})
		return
	}

	deleted, err := h.Svc.DeleteList(r.Context(), name, parseBoolQuery(r, "force"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
