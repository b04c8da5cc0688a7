package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/vytor/openingtiers/internal/metrics"
)

func (s *Server) Routes() http.Handler {
	if s.Metrics == nil {
		s.Metrics = metrics.Noop{}
	}

	r := chi.NewRouter()
	r.Use(loggingMiddleware)
	r.Use(recoveryMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   s.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "Not Found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Detail: "Method Not Allowed"})
	})

	r.Get("/", s.handleIndex)
	r.Handle("/static/*", staticHandler())

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.MetricsHandler != nil {
		r.Handle("/metrics", s.MetricsHandler)
	}

	r.Get("/openings", s.handleListOpenings)
	r.Get("/openings/{id}", s.handleGetOpening)
	r.Get("/openings/{id}/statistics", s.handleOpeningStatistics)

	r.Get("/tier-list", s.handleGetTierList)
	r.Post("/tier-list", s.handleUpdateTierList)

	r.Get("/statistics/summary", s.handleSummary)
	r.Get("/statistics/top-performers", s.handleTopPerformers)

	r.Get("/updates", s.handleListUpdates)
	r.Post("/updates", s.handleTriggerUpdate)
	r.Get("/updates/status", s.handleUpdateStatus)
	r.Get("/updates/{id}", s.handleGetUpdate)

	return r
}
