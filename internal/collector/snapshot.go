package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/moves"
	"github.com/vytor/openingtiers/internal/scope"
)

// snapshotEntry is one record in a snapshot file.
type snapshotEntry struct {
	MovesSequence []string `json:"moves_sequence"`
	ECOCode       string   `json:"eco_code"`
	OpeningName   string   `json:"opening_name"`
	WhiteWins     int      `json:"white_wins"`
	BlackWins     int      `json:"black_wins"`
	Draws         int      `json:"draws"`
	TotalGames    int      `json:"total_games"`
	AverageRating int      `json:"average_rating,omitempty"`
	RatingRange   string   `json:"rating_range,omitempty"`
	TimeControl   string   `json:"time_control,omitempty"`
	CollectedAt   string   `json:"collected_at"`
}

// snapshotTimeLayouts are accepted for collected_at. Timestamps without a
// zone are read as UTC.
var snapshotTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// SnapshotName is the file name used for records collected at t.
func SnapshotName(t time.Time) string {
	return "openings_data_" + t.UTC().Format("20060102_150405") + ".json"
}

// WriteSnapshot saves records as an indented JSON array under dir and
// returns the file path.
func WriteSnapshot(dir string, records []Record, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	entries := make([]snapshotEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, snapshotEntry{
			MovesSequence: rec.Line.SAN,
			ECOCode:       rec.ECO,
			OpeningName:   rec.Name,
			WhiteWins:     rec.WhiteWins,
			BlackWins:     rec.BlackWins,
			Draws:         rec.Draws,
			TotalGames:    rec.WhiteWins + rec.BlackWins + rec.Draws,
			AverageRating: rec.AverageRating,
			RatingRange:   rec.Scope.RatingRange,
			TimeControl:   rec.Scope.TimeControl,
			CollectedAt:   rec.CollectedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	path := filepath.Join(dir, SnapshotName(now))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// ReadSnapshot decodes a snapshot. Entries whose moves or scope do not parse
// are returned as failures; the rest become records. A missing scope means
// all/all and a missing collected_at means now.
func ReadSnapshot(r io.Reader, now time.Time) ([]Record, []models.FetchFailure, error) {
	var entries []snapshotEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, nil, fmt.Errorf("decode snapshot: %w", err)
	}

	var (
		records  []Record
		failures []models.FetchFailure
	)
	for _, e := range entries {
		text := strings.Join(e.MovesSequence, " ")
		fail := func(err error) {
			failures = append(failures, models.FetchFailure{
				Line:        text,
				RatingRange: e.RatingRange,
				TimeControl: e.TimeControl,
				Error:       err.Error(),
			})
		}

		line, err := moves.Parse(e.MovesSequence)
		if err != nil {
			fail(err)
			continue
		}
		sc, err := scope.Normalize(e.RatingRange, e.TimeControl)
		if err != nil {
			fail(err)
			continue
		}
		at, err := parseCollectedAt(e.CollectedAt, now)
		if err != nil {
			fail(err)
			continue
		}

		rec := Record{
			Line:          line,
			Scope:         sc,
			ECO:           line.ECO,
			Name:          line.Name,
			WhiteWins:     e.WhiteWins,
			BlackWins:     e.BlackWins,
			Draws:         e.Draws,
			ReportedTotal: e.TotalGames,
			AverageRating: e.AverageRating,
			CollectedAt:   at,
		}
		if e.OpeningName != "" {
			rec.ECO = e.ECOCode
			rec.Name = e.OpeningName
		}
		records = append(records, rec)
	}
	return records, failures, nil
}

func parseCollectedAt(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now.UTC(), nil
	}
	for _, layout := range snapshotTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid collected_at %q", s)
}
