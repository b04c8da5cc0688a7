package models

import "time"

// UpdateMode selects which targets a pipeline run collects.
type UpdateMode string

const (
	ModeFull        UpdateMode = "full"
	ModeIncremental UpdateMode = "incremental"
)

// ParseUpdateMode returns the mode for s, or false when s is unknown.
func ParseUpdateMode(s string) (UpdateMode, bool) {
	switch UpdateMode(s) {
	case ModeFull, ModeIncremental:
		return UpdateMode(s), true
	}
	return "", false
}

// Run triggers.
const (
	TriggerOnce     = "once"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerImport   = "import"
)

// Run statuses.
const (
	RunRunning = "running"
	RunSuccess = "success"
	RunPartial = "partial"
	RunFailed  = "failed"
)

// UpdateRun records one execution of the refresh pipeline.
type UpdateRun struct {
	ID                string         `json:"id"`
	Mode              UpdateMode     `json:"mode"`
	Trigger           string         `json:"trigger"`
	Status            string         `json:"status"`
	Targets           int            `json:"targets"`
	OpeningsProcessed int            `json:"openings_processed"`
	StatisticsUpdated int            `json:"statistics_updated"`
	RecordsSkipped    int            `json:"records_skipped"`
	APIRequests       int            `json:"api_requests"`
	Failures          []FetchFailure `json:"failures"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	StartedAt         time.Time      `json:"started_at"`
	CompletedAt       *time.Time     `json:"completed_at"`
	DurationSeconds   float64        `json:"duration_seconds"`
}

// FetchFailure describes one target the collector gave up on.
type FetchFailure struct {
	Line        string `json:"line"`
	RatingRange string `json:"rating_range"`
	TimeControl string `json:"time_control"`
	Error       string `json:"error"`
}
