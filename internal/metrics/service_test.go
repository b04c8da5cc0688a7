package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_RecordsAndExposes(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(reg)

	s.IncExplorerRequests(OutcomeOK)
	s.IncExplorerRequests(OutcomeOK)
	s.IncExplorerRequests(OutcomeError)
	s.IncExplorerRetries()
	s.ObserveUpdateRun("success", 12.5)
	s.AddStatisticsStored(40)
	s.AddRecordsSkipped(2)
	s.SetLastSuccessfulUpdate(1700000000)
	s.ObserveHTTPRequest("/openings", 200, 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.ExplorerRequests.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.ExplorerRequests.WithLabelValues(OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.ExplorerRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.UpdateRuns.WithLabelValues("success")))
	assert.Equal(t, 40.0, testutil.ToFloat64(s.StatisticsStored))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.RecordsSkipped))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(s.LastSuccessfulUpdate))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.HTTPRequests.WithLabelValues("/openings", "200")))

	rec := httptest.NewRecorder()
	NewMetricsHandler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tierlist_statistics_stored_total 40")
}

func TestMock_CountsCalls(t *testing.T) {
	m := NewMock()
	m.IncExplorerRequests(OutcomeOK)
	m.IncExplorerRetries()
	m.ObserveUpdateRun("partial", 1)
	m.AddStatisticsStored(3)
	m.AddRecordsSkipped(1)
	m.IncNotificationsSent()
	m.IncNotificationsFailed()
	m.ObserveHTTPRequest("/tier-list", 200, 0)

	assert.Equal(t, 1, m.ExplorerRequests(OutcomeOK))
	assert.Equal(t, 1, m.ExplorerRetries())
	assert.Equal(t, 1, m.UpdateRuns("partial"))
	assert.Equal(t, 3, m.StatisticsStored())
	assert.Equal(t, 1, m.RecordsSkipped())
	assert.Equal(t, 1, m.NotificationsSent())
	assert.Equal(t, 1, m.NotificationsFailed())
	assert.Equal(t, 1, m.HTTPRequests("/tier-list"))
}
