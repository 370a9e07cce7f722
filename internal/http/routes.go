package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lettermill/import-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Importer *service.ImporterService
	// Ready probes backing dependencies for the readiness endpoint (optional).
	Ready func(ctx context.Context) error
	// MaxBodyBytes caps request body size; zero disables the cap.
	MaxBodyBytes int64
	Logger       *slog.Logger // Logger for request logging and panics (optional)
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	importHandlers := &ImportHandlers{Svc: services.Importer}
	listHandlers := &ListHandlers{Svc: services.Importer}

	healthHandlers := &HealthHandlers{Ready: services.Ready}

	registerImportRoutes(mux, importHandlers)
	registerListRoutes(mux, listHandlers)
	mux.HandleFunc("GET /healthz", healthHandlers.Live)
	mux.HandleFunc("HEAD /healthz", healthHandlers.Live)
	mux.HandleFunc("GET /readyz", healthHandlers.Readiness)

	var handler http.Handler = mux
	handler = BodyLimit(services.MaxBodyBytes)(handler)
	if services.Logger != nil {
		handler = Logging(services.Logger)(handler)
		handler = Recover(services.Logger)(handler)
	}
	return handler
}

func registerImportRoutes(mux *http.ServeMux, h *ImportHandlers) {
	mux.HandleFunc("POST /api/imports", h.Create)
	mux.HandleFunc("GET /api/imports", h.List)
	mux.HandleFunc("GET /api/imports/stats", h.Stats)
	mux.HandleFunc("GET /api/imports/{id}", h.Get)
	mux.HandleFunc("POST /api/imports/{id}/retry", h.Retry)
	mux.HandleFunc("POST /api/imports/{id}/cancel", h.Cancel)
	// The literal "failed" segment wins over the {id} wildcard in the 1.22
	// pattern mux, so a job literally named "failed" can never be addressed.
	mux.HandleFunc("DELETE /api/imports/failed", h.ClearFailed)
	mux.HandleFunc("DELETE /api/imports/{id}", h.Clear)
}

func registerListRoutes(mux *http.ServeMux, h *ListHandlers) {
	mux.HandleFunc("GET /api/lists", h.List)
	mux.HandleFunc("DELETE /api/lists/{name}", h.Delete)
}
