package metrics

// Metrics defines the interface for collecting application metrics.
type Metrics interface {
	IncExplorerRequests(outcome string)
	IncExplorerRetries()
	ObserveUpdateRun(status string, duration float64)
	AddStatisticsStored(n int)
	AddRecordsSkipped(n int)
	SetLastSuccessfulUpdate(unixSeconds float64)
	IncNotificationsSent()
	IncNotificationsFailed()
	ObserveHTTPRequest(route string, status int, duration float64)
}

// Explorer request outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)
