package services

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/vytor/openingtiers/internal/errors"
	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/repository"
)

const DefaultRunsLimit = 20

// UpdateRunService exposes the history of refresh runs
type UpdateRunService interface {
	List(ctx context.Context, limit *int) ([]models.UpdateRun, error)
	Get(ctx context.Context, id string) (*models.UpdateRun, error)
}

type updateRunService struct {
	runRepo repository.UpdateRunRepository
}

// NewUpdateRunService creates a new UpdateRunService
func NewUpdateRunService(runRepo repository.UpdateRunRepository) UpdateRunService {
	return &updateRunService{runRepo: runRepo}
}

func (s *updateRunService) List(ctx context.Context, l *int) ([]models.UpdateRun, error) {
	log := logger.FromContext(ctx)

	n, err := limit(l, DefaultRunsLimit, MaxLimit)
	if err != nil {
		return nil, err
	}
	runs, err := s.runRepo.List(ctx, n)
	if err != nil {
		log.Error("failed to list update runs: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if runs == nil {
		runs = []models.UpdateRun{}
	}
	return runs, nil
}

func (s *updateRunService) Get(ctx context.Context, id string) (*models.UpdateRun, error) {
	log := logger.FromContext(ctx)

	run, err := s.runRepo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("Update run")
		}
		log.Error("failed to get update run %s: %v", id, err)
		return nil, errors.NewInternalError(err)
	}
	return run, nil
}
