package api

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vytor/openingtiers/internal/errors"
	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/scheduler"
)

type updateAccepted struct {
	Message string            `json:"message"`
	Mode    models.UpdateMode `json:"mode"`
}

func (s *Server) handleListUpdates(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(w, r, err)
		return
	}
	runs, err := s.UpdateRunService.List(r.Context(), limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetUpdate(w http.ResponseWriter, r *http.Request) {
	run, err := s.UpdateRunService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if s.Scheduler == nil {
		handleError(w, r, errors.NewUnavailableError("Scheduler is not running"))
		return
	}
	writeJSON(w, http.StatusOK, s.Scheduler.Status())
}

func (s *Server) handleTriggerUpdate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if s.Scheduler == nil {
		handleError(w, r, errors.NewUnavailableError("Scheduler is not running"))
		return
	}

	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type")))
	if raw == "" {
		raw = string(models.ModeIncremental)
	}
	mode, ok := models.ParseUpdateMode(raw)
	if !ok {
		handleError(w, r, errors.NewValidationError("type", "must be full or incremental"))
		return
	}

	if err := s.Scheduler.Trigger(mode); err != nil {
		switch {
		case stderrors.Is(err, scheduler.ErrRunInProgress):
			handleError(w, r, errors.NewConflictError("An update is already in progress", err))
		case stderrors.Is(err, scheduler.ErrStopped):
			handleError(w, r, errors.NewUnavailableError("Scheduler is shutting down"))
		default:
			handleError(w, r, err)
		}
		return
	}

	log.Info("manual %s update started", mode)
	writeJSON(w, http.StatusAccepted, updateAccepted{Message: "Update started", Mode: mode})
}
