package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/erazemk/popis/internal/inventory"
	"github.com/erazemk/popis/internal/metrics"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(svc *inventory.Service, jwtSecret string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware)

	items := &ItemsHandler{Svc: svc}
	photos := &PhotosHandler{Svc: svc}
	transfer := &TransferHandler{Svc: svc}

	// Public.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Photo keys are content hashes, so image tags can load them without a
	// bearer token.
	r.Get("/api/photos/{key}", photos.Get)

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		r.Get("/api/categories", items.Counts)
		r.Route("/api/categories/{category}/items", func(r chi.Router) {
			r.Get("/", items.List)
			r.Post("/", items.Create)
			r.Get("/{id}", items.Get)
			r.Put("/{id}", items.Update)
			r.Put("/{id}/done", items.SetDone)
			r.Delete("/{id}", items.Delete)
		})

		r.Post("/api/photos", photos.Upload)

		r.Get("/api/export", transfer.Export)
		r.Post("/api/import", transfer.Import)
		r.Get("/api/archive", transfer.Archive)
	})

	return r
}
