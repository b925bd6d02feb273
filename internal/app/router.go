package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/maxvolts/maxvolts/internal/identity"
)

// RouteMounter is implemented by each vertical's HTTP handler.
type RouteMounter interface {
	MountRoutes(r chi.Router)
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *identity.SessionManager
	ClientHandler  RouteMounter
	CatalogHandler RouteMounter
	BillingHandler RouteMounter
	ReportHandler  RouteMounter
	JobHandler     RouteMounter
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.ClientHandler != nil {
		r.Route("/clients", params.ClientHandler.MountRoutes)
	}
	if params.CatalogHandler != nil {
		r.Route("/catalog", params.CatalogHandler.MountRoutes)
	}
	if params.BillingHandler != nil {
		r.Route("/billing", params.BillingHandler.MountRoutes)
	}
	if params.ReportHandler != nil {
		r.Route("/reports", params.ReportHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
