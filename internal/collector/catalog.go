package collector

import (
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/moves"
)

// DefaultCatalog is the fixed list of popular lines collected by default.
var DefaultCatalog = []string{
	"e4",
	"d4",
	"Nf3",
	"c4",
	"g3",
	"e4 e5 Nf3",
	"e4 e5 Bc4",
	"e4 e5 Bb5",
	"e4 c5 Nf3",
	"e4 c6 e5",
	"e4 e6 e5",
	"e4 Nf6",
	"d4 d5 c4",
	"d4 Nf6 c4",
	"d4 Nf6 Nf3",
	"d4 g6 e4",
	"d4 e6 e4",
	"d4 c5",
	"Nf3 Nf6",
	"c4 e5",
	"c4 Nf6",
	"f4",
	"b3",
	"g3 g6",
}

// Target is one line to fetch within one scope.
type Target struct {
	Line  moves.Line
	Scope models.Scope
}

// BuildTargets parses every catalog line once and pairs it with every scope.
// A line that does not parse becomes one failure per scope.
func BuildTargets(catalog []string, scopes []models.Scope) ([]Target, []models.FetchFailure) {
	var (
		targets  []Target
		failures []models.FetchFailure
	)
	for _, text := range catalog {
		line, err := moves.Parse(moves.Split(text))
		if err != nil {
			for _, sc := range scopes {
				failures = append(failures, models.FetchFailure{
					Line:        text,
					RatingRange: sc.RatingRange,
					TimeControl: sc.TimeControl,
					Error:       err.Error(),
				})
			}
			continue
		}
		for _, sc := range scopes {
			targets = append(targets, Target{Line: line, Scope: sc})
		}
	}
	return targets, failures
}
