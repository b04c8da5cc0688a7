package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vytor/openingtiers/internal/models"
)

var (
	// ErrUnknownOpening is returned when a write references an opening id
	// that does not exist.
	ErrUnknownOpening = errors.New("unknown opening")
	// ErrPositionTaken is returned when a tier slot is already held by an
	// opening outside the write batch.
	ErrPositionTaken = errors.New("tier position already taken")
)

// OpeningRepository handles opening data access
type OpeningRepository interface {
	Get(ctx context.Context, id int64) (*models.Opening, error)
	List(ctx context.Context, filter models.OpeningFilter) ([]models.Opening, error)
	Count(ctx context.Context) (int, error)
}

// StatisticRepository handles opening statistic data access
type StatisticRepository interface {
	// Upsert writes opening and stat in one transaction. The opening is
	// matched by its UCI moves, the statistic by its natural key.
	Upsert(ctx context.Context, opening models.Opening, stat models.OpeningStatistic) (*models.OpeningStatistic, error)
	ListForOpening(ctx context.Context, openingID int64, scope models.Scope) ([]models.OpeningStatistic, error)
	TopPerformers(ctx context.Context, filter models.TopPerformerFilter) ([]models.TopPerformer, error)
	Summary(ctx context.Context) (*models.StatisticsSummary, error)
	// Freshness returns collected_at for every stored statistic, keyed by
	// the opening's UCI line and scope.
	Freshness(ctx context.Context) (map[models.StatKey]time.Time, error)
}

// TierListRepository handles tier list data access
type TierListRepository interface {
	List(ctx context.Context, scope models.TierScope, unassignedLimit int) ([]models.TierListItem, error)
	// Apply merges updates into the scope atomically.
	Apply(ctx context.Context, scope models.TierScope, updates []models.TierUpdate) error
}

// UpdateRunRepository handles update run data access
type UpdateRunRepository interface {
	Create(ctx context.Context, run models.UpdateRun) error
	Finish(ctx context.Context, run models.UpdateRun) error
	Get(ctx context.Context, id string) (*models.UpdateRun, error)
	List(ctx context.Context, limit int) ([]models.UpdateRun, error)
	Latest(ctx context.Context) (*models.UpdateRun, error)
}
