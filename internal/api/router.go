package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/vslpipeline/internal/api/middleware"
	"github.com/kiranshivaraju/vslpipeline/internal/api/response"
	"github.com/kiranshivaraju/vslpipeline/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth        *mw.Auth
	RateLimit   *mw.RateLimit
	CORSOrigins []string

	// StorageDir is served read-only under /storage/. Empty disables it.
	StorageDir string

	HealthHandler     http.HandlerFunc
	CreateURLHandler  http.HandlerFunc
	BulkURLHandler    http.HandlerFunc
	GetURLHandler     http.HandlerFunc
	SearchHandler     http.HandlerFunc
	RunIngestHandler  http.HandlerFunc
	ResubmitHandler   http.HandlerFunc
	TaskStatusHandler http.HandlerFunc
	DeadLetterHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	if len(deps.CORSOrigins) > 0 {
		r.Use(mw.CORS(deps.CORSOrigins))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Get("/health", orNotImplemented(deps.HealthHandler))

	// Intake
	r.Post("/urls", orNotImplemented(deps.CreateURLHandler))
	r.Post("/urls/bulk", orNotImplemented(deps.BulkURLHandler))
	r.Get("/urls/{id}", orNotImplemented(deps.GetURLHandler))

	// Public search for the frontend, limited per client
	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}
		r.Get("/api/search", orNotImplemented(deps.SearchHandler))
	})

	// Operator routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.Auth.RequireScope(models.ScopeAdmin))

		r.Post("/run_ingest_now", orNotImplemented(deps.RunIngestHandler))
		r.Post("/resubmit", orNotImplemented(deps.ResubmitHandler))
		r.Get("/tasks/{taskID}", orNotImplemented(deps.TaskStatusHandler))
		r.Get("/dlq", orNotImplemented(deps.DeadLetterHandler))
	})

	if deps.StorageDir != "" {
		fs := http.StripPrefix("/storage/", http.FileServer(http.Dir(deps.StorageDir)))
		r.Get("/storage/*", fs.ServeHTTP)
	}

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
