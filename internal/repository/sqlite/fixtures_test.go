package sqlite_test

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/repository"
)

func strPtr(s string) *string { return &s }

func opening(san, uci string) models.Opening {
	return models.Opening{
		MovesSequence: strings.Fields(san),
		MovesUCI:      strings.Split(uci, ","),
		FEN:           "fen " + uci,
	}
}

func stat(rr, tc string, white, black, draws int, at time.Time) models.OpeningStatistic {
	total := white + black + draws
	s := models.OpeningStatistic{
		WhiteWins:   white,
		BlackWins:   black,
		Draws:       draws,
		TotalGames:  total,
		RatingRange: rr,
		TimeControl: tc,
		CollectedAt: at,
	}
	s.WinRateWhite = float64(white) / float64(total)
	s.WinRateBlack = float64(black) / float64(total)
	s.DrawRate = float64(draws) / float64(total)
	s.PerformanceScore = 100*(s.WinRateWhite+0.5*s.DrawRate) + 5*math.Log10(float64(total))
	return s
}

func mustUpsert(ctx context.Context, repo repository.StatisticRepository, o models.Opening, st models.OpeningStatistic) *models.OpeningStatistic {
	out, err := repo.Upsert(ctx, o, st)
	if err != nil {
		panic(err)
	}
	return out
}
