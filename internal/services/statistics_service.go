package services

import (
	"context"
	"strings"

	"github.com/vytor/openingtiers/internal/errors"
	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/repository"
)

const DefaultTopLimit = 10

// TopPerformersQuery holds the raw top-performers parameters.
type TopPerformersQuery struct {
	RatingRange string
	TimeControl string
	Metric      string
	MinGames    *int
	Limit       *int
}

// StatisticsService handles aggregate statistics
type StatisticsService interface {
	Summary(ctx context.Context) (*models.StatisticsSummary, error)
	TopPerformers(ctx context.Context, q TopPerformersQuery) ([]models.TopPerformer, error)
}

type statisticsService struct {
	statRepo repository.StatisticRepository
	runRepo  repository.UpdateRunRepository
}

// NewStatisticsService creates a new StatisticsService
func NewStatisticsService(statRepo repository.StatisticRepository, runRepo repository.UpdateRunRepository) StatisticsService {
	return &statisticsService{statRepo: statRepo, runRepo: runRepo}
}

func (s *statisticsService) Summary(ctx context.Context) (*models.StatisticsSummary, error) {
	log := logger.FromContext(ctx)
	log.Debug("computing statistics summary")

	summary, err := s.statRepo.Summary(ctx)
	if err != nil {
		log.Error("failed to compute summary: %v", err)
		return nil, errors.NewInternalError(err)
	}

	run, err := s.runRepo.Latest(ctx)
	if err != nil {
		log.Error("failed to load latest update run: %v", err)
		return nil, errors.NewInternalError(err)
	}
	summary.LastRun = run

	if summary.AvailableRatingRanges == nil {
		summary.AvailableRatingRanges = []string{}
	}
	if summary.AvailableTimeControls == nil {
		summary.AvailableTimeControls = []string{}
	}
	return summary, nil
}

func (s *statisticsService) TopPerformers(ctx context.Context, q TopPerformersQuery) ([]models.TopPerformer, error) {
	log := logger.FromContext(ctx)

	sc, err := optionalScope(q.RatingRange, q.TimeControl)
	if err != nil {
		return nil, err
	}
	metric := strings.TrimSpace(q.Metric)
	if metric == "" {
		metric = "performance_score"
	}
	if !models.IsStatMetric(metric) {
		return nil, errors.NewValidationError("metric", "must be one of "+strings.Join(models.StatMetrics, ", "))
	}
	minGames, err := minGames(q.MinGames)
	if err != nil {
		return nil, err
	}
	limit, err := limit(q.Limit, DefaultTopLimit, MaxLimit)
	if err != nil {
		return nil, err
	}

	filter := models.TopPerformerFilter{Scope: sc, Metric: metric, MinGames: minGames, Limit: limit}
	log.Debug("listing top performers: metric=%s scope=%s min_games=%d limit=%d", metric, sc, minGames, limit)

	top, err := s.statRepo.TopPerformers(ctx, filter)
	if err != nil {
		log.Error("failed to list top performers: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if top == nil {
		top = []models.TopPerformer{}
	}
	return top, nil
}
