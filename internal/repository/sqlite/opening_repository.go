package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/repository"
)

type openingRepository struct {
	db *sql.DB
}

// NewOpeningRepository creates a new OpeningRepository implementation
func NewOpeningRepository(db *sql.DB) repository.OpeningRepository {
	return &openingRepository{db: db}
}

func (r *openingRepository) Get(ctx context.Context, id int64) (*models.Opening, error) {
	log := logger.FromContext(ctx).WithPrefix("opening_repo")
	log.Debug("getting opening: id=%d", id)

	query, args, err := sqlBuilder.Select(openingColumns...).
		From("openings o").
		Where(squirrel.Eq{"o.id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var o models.Opening
	dest, finish := openingDest(&o)
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("opening not found: id=%d", id)
		} else {
			log.Error("failed to get opening: %v", err)
		}
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, fmt.Errorf("decode opening %d: %w", id, err)
	}
	return &o, nil
}

// sortExpr maps a public sort field to the SQL expression ranking an opening
// by its statistics. Stat fields aggregate over the matching rows so every
// opening appears once.
func sortExpr(field, order string) string {
	agg := "MAX"
	if order == "asc" {
		agg = "MIN"
	}
	switch field {
	case "name":
		return "o.name"
	case "popularity_rank":
		return "o.popularity_rank"
	case "total_games", "win_rate_white", "win_rate_black", "draw_rate",
		"average_rating", "collected_at":
		return agg + "(s." + field + ")"
	default:
		return agg + "(s.performance_score)"
	}
}

// List returns openings with at least one statistic matching the filter,
// ordered by the requested field and then by id. NULL sort keys go last.
func (r *openingRepository) List(ctx context.Context, filter models.OpeningFilter) ([]models.Opening, error) {
	log := logger.FromContext(ctx).WithPrefix("opening_repo")
	log.Debug("listing openings: scope=%s, min_games=%d, sort_by=%s, order=%s, limit=%d",
		filter.Scope, filter.MinGames, filter.SortBy, filter.Order, filter.Limit)

	order := "DESC"
	if filter.Order == "asc" {
		order = "ASC"
	}
	expr := sortExpr(filter.SortBy, filter.Order)

	q := sqlBuilder.Select(openingColumns...).
		Column(expr+" AS sort_key").
		From("openings o").
		Join("opening_statistics s ON s.opening_id = o.id").
		Where(squirrel.GtOrEq{"s.total_games": filter.MinGames})
	q = scopeWhere(q, filter.Scope)
	q = q.GroupBy("o.id").
		OrderBy(expr+" IS NULL", expr+" "+order, "o.id ASC")

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	q = q.Limit(uint64(limit))

	query, args, err := q.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list openings: %v", err)
		return nil, err
	}
	defer rows.Close()

	openings := []models.Opening{}
	for rows.Next() {
		var (
			o       models.Opening
			sortKey any
		)
		dest, finish := openingDest(&o)
		if err := rows.Scan(append(dest, &sortKey)...); err != nil {
			log.Error("failed to scan opening row: %v", err)
			return nil, err
		}
		if err := finish(); err != nil {
			return nil, fmt.Errorf("decode opening %d: %w", o.ID, err)
		}
		openings = append(openings, o)
	}
	log.Debug("found %d openings", len(openings))
	return openings, rows.Err()
}

func (r *openingRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM openings`).Scan(&n)
	return n, err
}
