package services

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/vytor/openingtiers/internal/errors"
	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/repository"
	"github.com/vytor/openingtiers/internal/scope"
)

const (
	DefaultMinGames = 100
	DefaultLimit    = 50
	MaxLimit        = 500
)

// OpeningQuery holds the raw openings listing parameters. Nil pointers and
// empty strings mean "use the default".
type OpeningQuery struct {
	RatingRange string
	TimeControl string
	MinGames    *int
	SortBy      string
	Order       string
	Limit       *int
}

// OpeningService handles opening-related business logic
type OpeningService interface {
	List(ctx context.Context, q OpeningQuery) ([]models.Opening, error)
	Get(ctx context.Context, id int64) (*models.Opening, error)
	Statistics(ctx context.Context, id int64, ratingRange, timeControl string) ([]models.OpeningStatistic, error)
}

type openingService struct {
	openingRepo repository.OpeningRepository
	statRepo    repository.StatisticRepository
}

// NewOpeningService creates a new OpeningService
func NewOpeningService(openingRepo repository.OpeningRepository, statRepo repository.StatisticRepository) OpeningService {
	return &openingService{openingRepo: openingRepo, statRepo: statRepo}
}

func (s *openingService) List(ctx context.Context, q OpeningQuery) ([]models.Opening, error) {
	log := logger.FromContext(ctx)

	filter, err := q.filter()
	if err != nil {
		return nil, err
	}
	log.Debug("listing openings: scope=%s min_games=%d sort=%s %s limit=%d",
		filter.Scope, filter.MinGames, filter.SortBy, filter.Order, filter.Limit)

	openings, err := s.openingRepo.List(ctx, filter)
	if err != nil {
		log.Error("failed to list openings: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if openings == nil {
		openings = []models.Opening{}
	}
	return openings, nil
}

func (q OpeningQuery) filter() (models.OpeningFilter, error) {
	sc, err := optionalScope(q.RatingRange, q.TimeControl)
	if err != nil {
		return models.OpeningFilter{}, err
	}

	minGames, err := minGames(q.MinGames)
	if err != nil {
		return models.OpeningFilter{}, err
	}

	sortBy := strings.TrimSpace(q.SortBy)
	if sortBy == "" {
		sortBy = "performance_score"
	}
	if !models.IsOpeningSortField(sortBy) {
		return models.OpeningFilter{}, errors.NewValidationError("sort_by",
			"must be one of "+strings.Join(models.OpeningSortFields, ", "))
	}

	order := strings.ToLower(strings.TrimSpace(q.Order))
	switch order {
	case "":
		order = "desc"
	case "asc", "desc":
	default:
		return models.OpeningFilter{}, errors.NewValidationError("order", "must be asc or desc")
	}

	limit, err := limit(q.Limit, DefaultLimit, MaxLimit)
	if err != nil {
		return models.OpeningFilter{}, err
	}

	return models.OpeningFilter{
		Scope:    sc,
		MinGames: minGames,
		SortBy:   sortBy,
		Order:    order,
		Limit:    limit,
	}, nil
}

func (s *openingService) Get(ctx context.Context, id int64) (*models.Opening, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting opening: id=%d", id)

	opening, err := s.openingRepo.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFoundError("Opening")
		}
		log.Error("failed to get opening: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if opening == nil {
		return nil, errors.NewNotFoundError("Opening")
	}
	return opening, nil
}

func (s *openingService) Statistics(ctx context.Context, id int64, ratingRange, timeControl string) ([]models.OpeningStatistic, error) {
	log := logger.FromContext(ctx)

	sc, err := optionalScope(ratingRange, timeControl)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	stats, err := s.statRepo.ListForOpening(ctx, id, sc)
	if err != nil {
		log.Error("failed to list statistics for opening %d: %v", id, err)
		return nil, errors.NewInternalError(err)
	}
	if stats == nil {
		stats = []models.OpeningStatistic{}
	}
	return stats, nil
}

// optionalScope normalises the dimensions that were given. An absent
// dimension stays empty, which repositories read as "no filter".
func optionalScope(ratingRange, timeControl string) (models.Scope, error) {
	var sc models.Scope
	if strings.TrimSpace(ratingRange) != "" {
		rr, err := scope.NormalizeRatingRange(ratingRange)
		if err != nil {
			return sc, errors.NewValidationError("rating_range", err.Error())
		}
		sc.RatingRange = rr
	}
	if strings.TrimSpace(timeControl) != "" {
		tc, err := scope.NormalizeTimeControl(timeControl)
		if err != nil {
			return sc, errors.NewValidationError("time_control", err.Error())
		}
		sc.TimeControl = tc
	}
	return sc, nil
}

func minGames(v *int) (int, error) {
	if v == nil {
		return DefaultMinGames, nil
	}
	if *v < 0 {
		return 0, errors.NewValidationError("min_games", "cannot be negative")
	}
	return *v, nil
}

func limit(v *int, def, max int) (int, error) {
	if v == nil {
		return def, nil
	}
	if *v < 1 || *v > max {
		return 0, errors.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", max))
	}
	return *v, nil
}
