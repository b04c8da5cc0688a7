package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/repository"
)

type tierListRepository struct {
	db *sql.DB
}

// NewTierListRepository creates a new TierListRepository implementation
func NewTierListRepository(db *sql.DB) repository.TierListRepository {
	return &tierListRepository{db: db}
}

const rankOrder = "CASE t.tier_rank WHEN 'S' THEN 0 WHEN 'A' THEN 1 WHEN 'B' THEN 2 WHEN 'C' THEN 3 ELSE 4 END"

// List returns the scope's assigned openings first, then up to
// unassignedLimit unassigned openings that have a statistic in the scope.
func (r *tierListRepository) List(ctx context.Context, sc models.TierScope, unassignedLimit int) ([]models.TierListItem, error) {
	log := logger.FromContext(ctx).WithPrefix("tierlist_repo").WithFields(map[string]any{
		"scope":   sc.Scope.String(),
		"user_id": sc.UserID,
	})

	assigned, err := r.assigned(ctx, sc)
	if err != nil {
		log.Error("failed to list assigned openings: %v", err)
		return nil, err
	}
	pool, err := r.unassigned(ctx, sc, unassignedLimit)
	if err != nil {
		log.Error("failed to list unassigned openings: %v", err)
		return nil, err
	}
	log.Debug("tier list has %d assigned and %d unassigned items", len(assigned), len(pool))
	return append(assigned, pool...), nil
}

func (r *tierListRepository) assigned(ctx context.Context, sc models.TierScope) ([]models.TierListItem, error) {
	query, args, err := sqlBuilder.Select(columns(openingColumns, statColumns)...).
		Columns("t.tier_rank", "t.tier_position").
		From("tier_list_entries t").
		Join("openings o ON o.id = t.opening_id").
		LeftJoin("opening_statistics s ON s.opening_id = o.id AND s.rating_range = ? AND s.time_control = ?",
			sc.RatingRange, sc.TimeControl).
		Where(squirrel.Eq{
			"t.rating_range": sc.RatingRange,
			"t.time_control": sc.TimeControl,
			"t.user_id":      sc.UserID,
		}).
		OrderBy(rankOrder, "t.tier_position ASC", "o.id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.TierListItem{}
	for rows.Next() {
		var (
			item     models.TierListItem
			stat     nullStat
			rank     models.TierRank
			position int
		)
		dest, finish := openingDest(&item.Opening)
		dest = append(dest, stat.dest()...)
		dest = append(dest, &rank, &position)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if err := finish(); err != nil {
			return nil, err
		}
		item.Statistics = stat.value()
		item.TierRank = &rank
		item.TierPosition = &position
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *tierListRepository) unassigned(ctx context.Context, sc models.TierScope, limit int) ([]models.TierListItem, error) {
	if limit <= 0 {
		limit = 50
	}
	query, args, err := sqlBuilder.Select(columns(openingColumns, statColumns)...).
		From("opening_statistics s").
		Join("openings o ON o.id = s.opening_id").
		Where(squirrel.Eq{"s.rating_range": sc.RatingRange, "s.time_control": sc.TimeControl}).
		Where(`NOT EXISTS (
    SELECT 1 FROM tier_list_entries t
    WHERE t.opening_id = o.id AND t.rating_range = ? AND t.time_control = ? AND t.user_id = ?
)`, sc.RatingRange, sc.TimeControl, sc.UserID).
		OrderBy("s.performance_score DESC", "o.id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.TierListItem{}
	for rows.Next() {
		var (
			item models.TierListItem
			stat models.OpeningStatistic
		)
		dest, finish := openingDest(&item.Opening)
		dest = append(dest, statDest(&stat)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if err := finish(); err != nil {
			return nil, err
		}
		item.Statistics = &stat
		items = append(items, item)
	}
	return items, rows.Err()
}

type slot struct {
	rank     models.TierRank
	position int
}

// Apply merges updates into the scope in one transaction. Openings in the
// batch get their entry replaced; entries of other openings are untouched.
// It fails with ErrUnknownOpening or ErrPositionTaken without writing.
func (r *tierListRepository) Apply(ctx context.Context, sc models.TierScope, updates []models.TierUpdate) error {
	log := logger.FromContext(ctx).WithPrefix("tierlist_repo").WithFields(map[string]any{
		"scope":   sc.Scope.String(),
		"user_id": sc.UserID,
	})
	log.Debug("applying %d tier updates", len(updates))
	if len(updates) == 0 {
		return nil
	}

	ids := make([]int64, len(updates))
	for i, u := range updates {
		ids[i] = u.OpeningID
	}
	scopeEq := squirrel.Eq{
		"rating_range": sc.RatingRange,
		"time_control": sc.TimeControl,
		"user_id":      sc.UserID,
	}

	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		if err := checkOpeningsExist(ctx, tx, ids); err != nil {
			return err
		}

		created, err := createdAt(ctx, tx, scopeEq, ids)
		if err != nil {
			return err
		}

		query, args, err := sqlBuilder.Delete("tier_list_entries").
			Where(scopeEq).
			Where(squirrel.Eq{"opening_id": ids}).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clear batch entries: %w", err)
		}

		held, err := heldSlots(ctx, tx, scopeEq)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, u := range updates {
			rank := models.TierRank(strings.ToUpper(u.TierRank))
			if other, ok := held[slot{rank, u.TierPosition}]; ok {
				return fmt.Errorf("%w: %s/%d is held by opening %d", repository.ErrPositionTaken, rank, u.TierPosition, other)
			}
			c, ok := created[u.OpeningID]
			if !ok {
				c = now
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO tier_list_entries (opening_id, tier_rank, tier_position, rating_range, time_control, user_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, u.OpeningID, string(rank), u.TierPosition, sc.RatingRange, sc.TimeControl, sc.UserID, c, now); err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: %s/%d", repository.ErrPositionTaken, rank, u.TierPosition)
				}
				return fmt.Errorf("insert tier entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Warn("tier update rejected: %v", err)
		return err
	}
	log.Info("applied %d tier updates", len(updates))
	return nil
}

func checkOpeningsExist(ctx context.Context, tx *sql.Tx, ids []int64) error {
	query, args, err := sqlBuilder.Select("id").From("openings").Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return err
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	found := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, id := range ids {
		if !found[id] {
			return fmt.Errorf("%w: %d", repository.ErrUnknownOpening, id)
		}
	}
	return nil
}

func createdAt(ctx context.Context, tx *sql.Tx, scopeEq squirrel.Eq, ids []int64) (map[int64]time.Time, error) {
	query, args, err := sqlBuilder.Select("opening_id", "created_at").
		From("tier_list_entries").
		Where(scopeEq).
		Where(squirrel.Eq{"opening_id": ids}).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]time.Time)
	for rows.Next() {
		var (
			id int64
			at time.Time
		)
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		out[id] = at
	}
	return out, rows.Err()
}

func heldSlots(ctx context.Context, tx *sql.Tx, scopeEq squirrel.Eq) (map[slot]int64, error) {
	query, args, err := sqlBuilder.Select("opening_id", "tier_rank", "tier_position").
		From("tier_list_entries").
		Where(scopeEq).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[slot]int64)
	for rows.Next() {
		var (
			id int64
			s  slot
		)
		if err := rows.Scan(&id, &s.rank, &s.position); err != nil {
			return nil, err
		}
		out[s] = id
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
