package httpx

import (
	"context"
	"net/http"
	"time"
)

// readyTimeout bounds the dependency probe so a wedged database cannot hang
// the readiness endpoint.
const readyTimeout = 2 * time.Second

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	// Ready probes backing dependencies. Nil means readiness degrades to a
	// liveness check.
	Ready func(ctx context.Context) error
}

// Live reports process liveness. Always 200 while the server is serving.
func (h *HealthHandlers) Live(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness reports whether the service can reach its dependencies. Load
// balancers should route traffic only while this returns 200.
func (h *HealthHandlers) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.Ready == nil {
		h.Live(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.Ready(ctx); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
