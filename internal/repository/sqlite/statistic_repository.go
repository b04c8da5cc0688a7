package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/repository"
)

type statisticRepository struct {
	db *sql.DB
}

// NewStatisticRepository creates a new StatisticRepository implementation
func NewStatisticRepository(db *sql.DB) repository.StatisticRepository {
	return &statisticRepository{db: db}
}

func (r *statisticRepository) Upsert(ctx context.Context, opening models.Opening, stat models.OpeningStatistic) (*models.OpeningStatistic, error) {
	log := logger.FromContext(ctx).WithPrefix("statistic_repo").WithFields(map[string]any{
		"line":  joinUCI(opening.MovesUCI),
		"scope": stat.Scope().String(),
	})

	san, err := json.Marshal(opening.MovesSequence)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	stat.CollectedAt = utc(stat.CollectedAt)
	if stat.DataSource == "" {
		stat.DataSource = "lichess"
	}

	err = tx(ctx, r.db, func(tx *sql.Tx) error {
		// ECO and name are only filled in when missing.
		err := tx.QueryRowContext(ctx, `
INSERT INTO openings (eco_code, name, moves_sequence, moves_uci, fen, popularity_rank, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(moves_uci) DO UPDATE SET
    eco_code        = COALESCE(openings.eco_code, excluded.eco_code),
    name            = COALESCE(openings.name, excluded.name),
    popularity_rank = COALESCE(excluded.popularity_rank, openings.popularity_rank),
    updated_at      = excluded.updated_at
RETURNING id
`, nullString(opening.ECOCode), nullString(opening.Name), string(san), joinUCI(opening.MovesUCI),
			opening.FEN, opening.PopularityRank, now, now).Scan(&stat.OpeningID)
		if err != nil {
			return fmt.Errorf("upsert opening: %w", err)
		}

		err = tx.QueryRowContext(ctx, `
INSERT INTO opening_statistics (
    opening_id, white_wins, black_wins, draws, total_games,
    win_rate_white, win_rate_black, draw_rate, performance_score,
    rating_range, time_control, average_rating, data_source, collected_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(opening_id, rating_range, time_control) DO UPDATE SET
    white_wins        = excluded.white_wins,
    black_wins        = excluded.black_wins,
    draws             = excluded.draws,
    total_games       = excluded.total_games,
    win_rate_white    = excluded.win_rate_white,
    win_rate_black    = excluded.win_rate_black,
    draw_rate         = excluded.draw_rate,
    performance_score = excluded.performance_score,
    average_rating    = excluded.average_rating,
    data_source       = excluded.data_source,
    collected_at      = excluded.collected_at
RETURNING id
`, stat.OpeningID, stat.WhiteWins, stat.BlackWins, stat.Draws, stat.TotalGames,
			stat.WinRateWhite, stat.WinRateBlack, stat.DrawRate, stat.PerformanceScore,
			stat.RatingRange, stat.TimeControl, stat.AverageRating, stat.DataSource, stat.CollectedAt).Scan(&stat.ID)
		if err != nil {
			return fmt.Errorf("upsert statistic: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to upsert record: %v", err)
		return nil, err
	}
	log.Debug("record upserted: opening_id=%d, statistic_id=%d", stat.OpeningID, stat.ID)
	return &stat, nil
}

func (r *statisticRepository) ListForOpening(ctx context.Context, openingID int64, sc models.Scope) ([]models.OpeningStatistic, error) {
	log := logger.FromContext(ctx).WithPrefix("statistic_repo")
	log.Debug("listing statistics: opening_id=%d, scope=%s", openingID, sc)

	q := sqlBuilder.Select(statColumns...).
		From("opening_statistics s").
		Where(squirrel.Eq{"s.opening_id": openingID})
	q = scopeWhere(q, sc).OrderBy("s.collected_at DESC", "s.id ASC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list statistics: %v", err)
		return nil, err
	}
	defer rows.Close()

	stats := []models.OpeningStatistic{}
	for rows.Next() {
		var s models.OpeningStatistic
		if err := rows.Scan(statDest(&s)...); err != nil {
			log.Error("failed to scan statistic row: %v", err)
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *statisticRepository) TopPerformers(ctx context.Context, filter models.TopPerformerFilter) ([]models.TopPerformer, error) {
	log := logger.FromContext(ctx).WithPrefix("statistic_repo")

	metric := filter.Metric
	if !models.IsStatMetric(metric) {
		return nil, fmt.Errorf("unsupported metric %q", metric)
	}
	log.Debug("top performers: metric=%s, scope=%s, min_games=%d, limit=%d", metric, filter.Scope, filter.MinGames, filter.Limit)

	col := "s." + metric
	q := sqlBuilder.Select(columns(openingColumns, statColumns)...).
		Column(col).
		From("opening_statistics s").
		Join("openings o ON o.id = s.opening_id").
		Where(squirrel.GtOrEq{"s.total_games": filter.MinGames}).
		Where(squirrel.NotEq{col: nil})
	q = scopeWhere(q, filter.Scope).
		OrderBy(col+" DESC", "s.total_games DESC", "o.id ASC", "s.id ASC")

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	q = q.Limit(uint64(limit))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query top performers: %v", err)
		return nil, err
	}
	defer rows.Close()

	out := []models.TopPerformer{}
	for rows.Next() {
		var tp models.TopPerformer
		dest, finish := openingDest(&tp.Opening)
		dest = append(dest, statDest(&tp.Statistics)...)
		dest = append(dest, &tp.MetricValue)
		if err := rows.Scan(dest...); err != nil {
			log.Error("failed to scan top performer row: %v", err)
			return nil, err
		}
		if err := finish(); err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

func (r *statisticRepository) Summary(ctx context.Context) (*models.StatisticsSummary, error) {
	log := logger.FromContext(ctx).WithPrefix("statistic_repo")
	log.Debug("computing statistics summary")

	sum := &models.StatisticsSummary{
		AvailableRatingRanges: []string{},
		AvailableTimeControls: []string{},
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM openings`).Scan(&sum.TotalOpenings); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM opening_statistics`).Scan(&sum.TotalStatistics); err != nil {
		return nil, err
	}

	// Ordering instead of MAX keeps the column's DATETIME type for scanning.
	var last time.Time
	err := r.db.QueryRowContext(ctx, `SELECT collected_at FROM opening_statistics ORDER BY collected_at DESC LIMIT 1`).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, err
	default:
		sum.LastUpdated = &last
	}

	var errRR, errTC error
	sum.AvailableRatingRanges, errRR = r.distinct(ctx, "rating_range")
	sum.AvailableTimeControls, errTC = r.distinct(ctx, "time_control")
	if err := errors.Join(errRR, errTC); err != nil {
		log.Error("failed to list distinct scopes: %v", err)
		return nil, err
	}
	return sum, nil
}

func (r *statisticRepository) distinct(ctx context.Context, column string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT `+column+` FROM opening_statistics ORDER BY `+column+` ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *statisticRepository) Freshness(ctx context.Context) (map[models.StatKey]time.Time, error) {
	log := logger.FromContext(ctx).WithPrefix("statistic_repo")

	rows, err := r.db.QueryContext(ctx, `
SELECT o.moves_uci, s.rating_range, s.time_control, s.collected_at
FROM opening_statistics s
JOIN openings o ON o.id = s.opening_id
`)
	if err != nil {
		log.Error("failed to load freshness: %v", err)
		return nil, err
	}
	defer rows.Close()

	out := make(map[models.StatKey]time.Time)
	for rows.Next() {
		var (
			k  models.StatKey
			at time.Time
		)
		if err := rows.Scan(&k.Line, &k.RatingRange, &k.TimeControl, &at); err != nil {
			return nil, err
		}
		out[k] = at
	}
	log.Debug("loaded freshness for %d statistics", len(out))
	return out, rows.Err()
}
