// Package processor turns collected records into stored statistics.
package processor

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/vytor/openingtiers/internal/collector"
	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/repository"
)

// DataSource is recorded on every statistic the processor writes.
const DataSource = "lichess"

// Result summarises one Process call.
type Result struct {
	Stored   int
	Skipped  int
	Openings int
	// Errors holds storage failures; validation skips are only counted.
	Errors []string
}

// Options tunes one Process call.
type Options struct {
	// SkipPopularity leaves stored popularity ranks untouched. Incremental
	// batches only hold a subset of the catalog, so ranks computed from them
	// would be misleading.
	SkipPopularity bool
}

type Processor struct {
	stats repository.StatisticRepository
}

func New(stats repository.StatisticRepository) *Processor {
	return &Processor{stats: stats}
}

// Process validates and upserts every record. Each record is written in its
// own transaction; a bad or failing record never stops the batch. The error
// is non-nil only when ctx is cancelled.
func (p *Processor) Process(ctx context.Context, records []collector.Record, opts Options) (*Result, error) {
	log := logger.FromContext(ctx).WithPrefix("processor")
	log.Info("processing %d records", len(records))

	res := &Result{}
	valid := make([]collector.Record, 0, len(records))
	for _, rec := range records {
		if err := Validate(rec); err != nil {
			res.Skipped++
			log.Warn("skipping %s (%s): %v", rec.Line.String(), rec.Scope, err)
			continue
		}
		valid = append(valid, rec)
	}

	var ranks map[string]int
	if !opts.SkipPopularity {
		ranks = PopularityRanks(valid)
	}
	openings := make(map[string]bool)

	for _, rec := range valid {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		opening, stat := Build(rec)
		if rank, ok := ranks[rec.Line.Key()]; ok {
			opening.PopularityRank = &rank
		}

		if _, err := p.stats.Upsert(ctx, opening, stat); err != nil {
			msg := fmt.Sprintf("%s (%s): %v", rec.Line.String(), rec.Scope, err)
			res.Errors = append(res.Errors, msg)
			log.Error("failed to store %s", msg)
			continue
		}
		res.Stored++
		openings[rec.Line.Key()] = true
	}
	res.Openings = len(openings)

	log.Info("stored %d statistics for %d openings, skipped %d, %d errors",
		res.Stored, res.Openings, res.Skipped, len(res.Errors))
	return res, nil
}

// Validate rejects records that cannot produce a meaningful statistic.
func Validate(rec collector.Record) error {
	if rec.WhiteWins < 0 || rec.BlackWins < 0 || rec.Draws < 0 {
		return fmt.Errorf("negative counts: white=%d black=%d draws=%d", rec.WhiteWins, rec.BlackWins, rec.Draws)
	}
	total := rec.WhiteWins + rec.BlackWins + rec.Draws
	if total == 0 {
		return fmt.Errorf("no games")
	}
	if rec.ReportedTotal != 0 {
		slack := math.Max(1, 0.001*float64(total))
		if math.Abs(float64(rec.ReportedTotal-total)) > slack {
			return fmt.Errorf("reported total %d does not match counted %d", rec.ReportedTotal, total)
		}
	}
	if len(rec.Line.UCI) == 0 {
		return fmt.Errorf("empty move line")
	}
	if rec.Scope.RatingRange == "" || rec.Scope.TimeControl == "" {
		return fmt.Errorf("missing scope")
	}
	return nil
}

// PerformanceScore is 100 * (white win rate + half the draw rate) plus
// 5 * log10(total games).
func PerformanceScore(winRateWhite, drawRate float64, totalGames int) float64 {
	if totalGames <= 0 {
		return 0
	}
	return 100*(winRateWhite+0.5*drawRate) + 5*math.Log10(float64(totalGames))
}

// Build derives the opening and statistic rows for a valid record.
func Build(rec collector.Record) (models.Opening, models.OpeningStatistic) {
	total := rec.WhiteWins + rec.BlackWins + rec.Draws
	w := float64(rec.WhiteWins) / float64(total)
	b := float64(rec.BlackWins) / float64(total)
	d := float64(rec.Draws) / float64(total)

	opening := models.Opening{
		MovesSequence: rec.Line.SAN,
		MovesUCI:      rec.Line.UCI,
		FEN:           rec.Line.FEN,
	}
	if rec.ECO != "" {
		eco := rec.ECO
		opening.ECOCode = &eco
	}
	if rec.Name != "" {
		name := rec.Name
		opening.Name = &name
	}

	stat := models.OpeningStatistic{
		WhiteWins:        rec.WhiteWins,
		BlackWins:        rec.BlackWins,
		Draws:            rec.Draws,
		TotalGames:       total,
		WinRateWhite:     w,
		WinRateBlack:     b,
		DrawRate:         d,
		PerformanceScore: PerformanceScore(w, d, total),
		RatingRange:      rec.Scope.RatingRange,
		TimeControl:      rec.Scope.TimeControl,
		DataSource:       DataSource,
		CollectedAt:      rec.CollectedAt,
	}
	if rec.AverageRating > 0 {
		avg := rec.AverageRating
		stat.AverageRating = &avg
	}
	return opening, stat
}

// PopularityRanks ranks lines by their largest game count across scopes,
// most popular first. Ties go to the alphabetically smaller SAN string.
func PopularityRanks(records []collector.Record) map[string]int {
	type line struct {
		key   string
		san   string
		games int
	}
	best := make(map[string]*line)
	for _, rec := range records {
		k := rec.Line.Key()
		total := rec.WhiteWins + rec.BlackWins + rec.Draws
		if l, ok := best[k]; ok {
			if total > l.games {
				l.games = total
			}
			continue
		}
		best[k] = &line{key: k, san: rec.Line.String(), games: total}
	}

	lines := make([]*line, 0, len(best))
	for _, l := range best {
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].games != lines[j].games {
			return lines[i].games > lines[j].games
		}
		return lines[i].san < lines[j].san
	})

	ranks := make(map[string]int, len(lines))
	for i, l := range lines {
		ranks[l.key] = i + 1
	}
	return ranks
}
