package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/models"
)

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

func tx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	log := logger.FromContext(ctx).WithPrefix("repo")
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction: %v", err)
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		log.Debug("transaction rolled back due to error: %v", err)
		return err
	}
	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction: %v", err)
		return err
	}
	log.Debug("transaction committed")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Column lists shared by the joins below. Openings are aliased o and
// statistics s.
var (
	openingColumns = []string{
		"o.id", "o.eco_code", "o.name", "o.moves_sequence", "o.moves_uci",
		"o.fen", "o.popularity_rank", "o.created_at", "o.updated_at",
	}
	statColumns = []string{
		"s.id", "s.opening_id", "s.white_wins", "s.black_wins", "s.draws", "s.total_games",
		"s.win_rate_white", "s.win_rate_black", "s.draw_rate", "s.performance_score",
		"s.rating_range", "s.time_control", "s.average_rating", "s.data_source", "s.collected_at",
	}
)

func columns(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// openingDest returns scan targets for openingColumns and a finish func that
// decodes the serialised move lists.
func openingDest(o *models.Opening) ([]any, func() error) {
	var sanJSON, uci string
	dest := []any{
		&o.ID, &o.ECOCode, &o.Name, &sanJSON, &uci,
		&o.FEN, &o.PopularityRank, &o.CreatedAt, &o.UpdatedAt,
	}
	return dest, func() error {
		if err := json.Unmarshal([]byte(sanJSON), &o.MovesSequence); err != nil {
			return err
		}
		o.MovesUCI = splitUCI(uci)
		return nil
	}
}

func statDest(s *models.OpeningStatistic) []any {
	return []any{
		&s.ID, &s.OpeningID, &s.WhiteWins, &s.BlackWins, &s.Draws, &s.TotalGames,
		&s.WinRateWhite, &s.WinRateBlack, &s.DrawRate, &s.PerformanceScore,
		&s.RatingRange, &s.TimeControl, &s.AverageRating, &s.DataSource, &s.CollectedAt,
	}
}

// nullStat receives statColumns from a LEFT JOIN.
type nullStat struct {
	ID               sql.NullInt64
	OpeningID        sql.NullInt64
	WhiteWins        sql.NullInt64
	BlackWins        sql.NullInt64
	Draws            sql.NullInt64
	TotalGames       sql.NullInt64
	WinRateWhite     sql.NullFloat64
	WinRateBlack     sql.NullFloat64
	DrawRate         sql.NullFloat64
	PerformanceScore sql.NullFloat64
	RatingRange      sql.NullString
	TimeControl      sql.NullString
	AverageRating    sql.NullInt64
	DataSource       sql.NullString
	CollectedAt      sql.NullTime
}

func (n *nullStat) dest() []any {
	return []any{
		&n.ID, &n.OpeningID, &n.WhiteWins, &n.BlackWins, &n.Draws, &n.TotalGames,
		&n.WinRateWhite, &n.WinRateBlack, &n.DrawRate, &n.PerformanceScore,
		&n.RatingRange, &n.TimeControl, &n.AverageRating, &n.DataSource, &n.CollectedAt,
	}
}

func (n *nullStat) value() *models.OpeningStatistic {
	if !n.ID.Valid {
		return nil
	}
	s := &models.OpeningStatistic{
		ID:               n.ID.Int64,
		OpeningID:        n.OpeningID.Int64,
		WhiteWins:        int(n.WhiteWins.Int64),
		BlackWins:        int(n.BlackWins.Int64),
		Draws:            int(n.Draws.Int64),
		TotalGames:       int(n.TotalGames.Int64),
		WinRateWhite:     n.WinRateWhite.Float64,
		WinRateBlack:     n.WinRateBlack.Float64,
		DrawRate:         n.DrawRate.Float64,
		PerformanceScore: n.PerformanceScore.Float64,
		RatingRange:      n.RatingRange.String,
		TimeControl:      n.TimeControl.String,
		DataSource:       n.DataSource.String,
		CollectedAt:      n.CollectedAt.Time,
	}
	if n.AverageRating.Valid {
		r := int(n.AverageRating.Int64)
		s.AverageRating = &r
	}
	return s
}

func joinUCI(uci []string) string {
	return strings.Join(uci, ",")
}

func splitUCI(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func nullString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// scopeWhere narrows a statistics query to the non-empty dimensions of sc.
func scopeWhere(q squirrel.SelectBuilder, sc models.Scope) squirrel.SelectBuilder {
	if sc.RatingRange != "" {
		q = q.Where(squirrel.Eq{"s.rating_range": sc.RatingRange})
	}
	if sc.TimeControl != "" {
		q = q.Where(squirrel.Eq{"s.time_control": sc.TimeControl})
	}
	return q
}
