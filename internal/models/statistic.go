package models

import "time"

// OpeningStatistic is the aggregate result of one opening within one scope.
// (OpeningID, RatingRange, TimeControl) is its natural key.
type OpeningStatistic struct {
	ID               int64     `json:"id"`
	OpeningID        int64     `json:"opening_id"`
	WhiteWins        int       `json:"white_wins"`
	BlackWins        int       `json:"black_wins"`
	Draws            int       `json:"draws"`
	TotalGames       int       `json:"total_games"`
	WinRateWhite     float64   `json:"win_rate_white"`
	WinRateBlack     float64   `json:"win_rate_black"`
	DrawRate         float64   `json:"draw_rate"`
	PerformanceScore float64   `json:"performance_score"`
	RatingRange      string    `json:"rating_range"`
	TimeControl      string    `json:"time_control"`
	AverageRating    *int      `json:"average_rating"`
	DataSource       string    `json:"data_source"`
	CollectedAt      time.Time `json:"collected_at"`
}

// Scope returns the (rating range, time control) pair of the statistic.
func (s OpeningStatistic) Scope() Scope {
	return Scope{RatingRange: s.RatingRange, TimeControl: s.TimeControl}
}

// StatKey identifies a collected statistic by line instead of opening id,
// which is what the collector knows before anything is stored.
type StatKey struct {
	Line        string
	RatingRange string
	TimeControl string
}

// StatisticsSummary is computed on demand, never stored.
type StatisticsSummary struct {
	TotalOpenings         int        `json:"total_openings"`
	TotalStatistics       int        `json:"total_statistics"`
	LastUpdated           *time.Time `json:"last_updated"`
	AvailableRatingRanges []string   `json:"available_rating_ranges"`
	AvailableTimeControls []string   `json:"available_time_controls"`
	LastRun               *UpdateRun `json:"last_run"`
}

// TopPerformer is one row of the top-performers ranking.
type TopPerformer struct {
	Opening     Opening          `json:"opening"`
	Statistics  OpeningStatistic `json:"statistics"`
	MetricValue float64          `json:"metric_value"`
}

// TopPerformerFilter holds the top-performers query parameters.
type TopPerformerFilter struct {
	Scope    Scope
	Metric   string
	MinGames int
	Limit    int
}
