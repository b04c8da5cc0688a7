package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
type Service struct {
	ExplorerRequests     *prometheus.CounterVec
	ExplorerRetries      prometheus.Counter
	UpdateRuns           *prometheus.CounterVec
	UpdateDuration       prometheus.Histogram
	StatisticsStored     prometheus.Counter
	RecordsSkipped       prometheus.Counter
	LastSuccessfulUpdate prometheus.Gauge
	NotificationsSent    prometheus.Counter
	NotificationsFailed  prometheus.Counter
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
}
