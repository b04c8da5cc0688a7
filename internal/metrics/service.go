package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		ExplorerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tierlist_explorer_requests_total",
			Help: "Opening explorer requests by outcome.",
		}, []string{"outcome"}),
		ExplorerRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tierlist_explorer_retries_total",
			Help: "Opening explorer requests retried after a transient failure.",
		}),
		UpdateRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tierlist_update_runs_total",
			Help: "Completed update runs by final status.",
		}, []string{"status"}),
		UpdateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tierlist_update_run_duration_seconds",
			Help:    "Duration of update runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		}),
		StatisticsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tierlist_statistics_stored_total",
			Help: "Opening statistics written by the processor.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tierlist_records_skipped_total",
			Help: "Collected records rejected by validation.",
		}),
		LastSuccessfulUpdate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tierlist_last_successful_update_timestamp_seconds",
			Help: "Unix time of the last update run that stored data.",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tierlist_slack_notifications_sent_total",
			Help: "Slack notifications successfully sent.",
		}),
		NotificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tierlist_slack_notifications_failed_total",
			Help: "Slack notifications that failed to send.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tierlist_http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		}, []string{"route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tierlist_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		s.ExplorerRequests,
		s.ExplorerRetries,
		s.UpdateRuns,
		s.UpdateDuration,
		s.StatisticsStored,
		s.RecordsSkipped,
		s.LastSuccessfulUpdate,
		s.NotificationsSent,
		s.NotificationsFailed,
		s.HTTPRequests,
		s.HTTPDuration,
	)

	return s
}

func (s *Service) IncExplorerRequests(outcome string) {
	s.ExplorerRequests.WithLabelValues(outcome).Inc()
}

func (s *Service) IncExplorerRetries() {
	s.ExplorerRetries.Inc()
}

func (s *Service) ObserveUpdateRun(status string, duration float64) {
	s.UpdateRuns.WithLabelValues(status).Inc()
	s.UpdateDuration.Observe(duration)
}

func (s *Service) AddStatisticsStored(n int) {
	s.StatisticsStored.Add(float64(n))
}

func (s *Service) AddRecordsSkipped(n int) {
	s.RecordsSkipped.Add(float64(n))
}

func (s *Service) SetLastSuccessfulUpdate(unixSeconds float64) {
	s.LastSuccessfulUpdate.Set(unixSeconds)
}

func (s *Service) IncNotificationsSent() {
	s.NotificationsSent.Inc()
}

func (s *Service) IncNotificationsFailed() {
	s.NotificationsFailed.Inc()
}

func (s *Service) ObserveHTTPRequest(route string, status int, duration float64) {
	s.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	s.HTTPDuration.WithLabelValues(route).Observe(duration)
}
