package collector_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/openingtiers/internal/collector"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/moves"
)

func TestSnapshot_WriteThenRead(t *testing.T) {
	line, err := moves.Parse([]string{"e4", "c5"})
	require.NoError(t, err)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := collector.Record{
		Line:          line,
		Scope:         blitz1600,
		ECO:           "B20",
		Name:          "Sicilian Defense",
		WhiteWins:     500,
		BlackWins:     400,
		Draws:         100,
		AverageRating: 1700,
		CollectedAt:   at,
	}

	dir := t.TempDir()
	path, err := collector.WriteSnapshot(dir, []collector.Record{rec}, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "openings_data_20250301_120000.json"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, failures, err := collector.ReadSnapshot(f, time.Now())
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, line.UCI, got.Line.UCI)
	assert.Equal(t, blitz1600, got.Scope)
	assert.Equal(t, "Sicilian Defense", got.Name)
	assert.Equal(t, 1000, got.ReportedTotal)
	assert.Equal(t, 1700, got.AverageRating)
	assert.True(t, at.Equal(got.CollectedAt))
}

func TestReadSnapshot_LegacyEntriesAndFailures(t *testing.T) {
	body := `[
	  {"moves_sequence":["d4","d5"],"eco_code":"D00","opening_name":"Queen's Pawn Game",
	   "white_wins":60,"black_wins":30,"draws":10,"total_games":100,
	   "collected_at":"2024-05-01T10:20:30.123456"},
	  {"moves_sequence":["e4","Ke7","Nf9"],"white_wins":1,"black_wins":1,"draws":1,"total_games":3},
	  {"moves_sequence":["c4"],"white_wins":1,"black_wins":1,"draws":1,"rating_range":"banana"}
	]`

	records, failures, err := collector.ReadSnapshot(strings.NewReader(body), time.Now())
	require.NoError(t, err)

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, models.Scope{RatingRange: "all", TimeControl: "all"}, rec.Scope)
	assert.Equal(t, "D00", rec.ECO)
	assert.Equal(t, 100, rec.ReportedTotal)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 20, 30, 123456000, time.UTC), rec.CollectedAt)

	require.Len(t, failures, 2)
	assert.Equal(t, "e4 Ke7 Nf9", failures[0].Line)
	assert.Equal(t, "c4", failures[1].Line)
}

func TestReadSnapshot_NotAnArray(t *testing.T) {
	_, _, err := collector.ReadSnapshot(strings.NewReader(`{"openings":[]}`), time.Now())
	assert.Error(t, err)
}
