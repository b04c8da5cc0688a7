package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vytor/openingtiers/internal/errors"
	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/metrics"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/scheduler"
	"github.com/vytor/openingtiers/internal/services"
)

// UpdateScheduler is the part of the scheduler the API drives.
type UpdateScheduler interface {
	Trigger(mode models.UpdateMode) error
	Status() scheduler.Status
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	OpeningService    services.OpeningService
	TierListService   services.TierListService
	StatisticsService services.StatisticsService
	UpdateRunService  services.UpdateRunService

	// Scheduler is nil when the server runs without a refresh loop.
	Scheduler      UpdateScheduler
	DB             Pinger
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	CORSOrigins    []string
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// queryInt returns nil when the parameter is absent.
func queryInt(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.NewValidationError(name, "must be an integer")
	}
	return &v, nil
}

func pathID(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		logger.FromContext(r.Context()).Warn("invalid id: %s", idStr)
		return 0, errors.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}
