package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                  sync.Mutex
	explorerRequests    map[string]int
	explorerRetries     int
	updateRuns          map[string]int
	statisticsStored    int
	recordsSkipped      int
	lastSuccess         float64
	notificationsSent   int
	notificationsFailed int
	httpRequests        map[string]int
}

var _ Metrics = (*Mock)(nil)

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		explorerRequests: make(map[string]int),
		updateRuns:       make(map[string]int),
		httpRequests:     make(map[string]int),
	}
}

func (m *Mock) IncExplorerRequests(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.explorerRequests[outcome]++
}

func (m *Mock) IncExplorerRetries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.explorerRetries++
}

func (m *Mock) ObserveUpdateRun(status string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateRuns[status]++
}

func (m *Mock) AddStatisticsStored(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statisticsStored += n
}

func (m *Mock) AddRecordsSkipped(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordsSkipped += n
}

func (m *Mock) SetLastSuccessfulUpdate(unixSeconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSuccess = unixSeconds
}

func (m *Mock) IncNotificationsSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationsSent++
}

func (m *Mock) IncNotificationsFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationsFailed++
}

func (m *Mock) ObserveHTTPRequest(route string, _ int, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.httpRequests[route]++
}

// ExplorerRequests returns how many requests ended with outcome.
func (m *Mock) ExplorerRequests(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.explorerRequests[outcome]
}

// ExplorerRetries returns the number of retries recorded.
func (m *Mock) ExplorerRetries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.explorerRetries
}

// UpdateRuns returns how many runs finished with status.
func (m *Mock) UpdateRuns(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateRuns[status]
}

// StatisticsStored returns the total passed to AddStatisticsStored.
func (m *Mock) StatisticsStored() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statisticsStored
}

// RecordsSkipped returns the total passed to AddRecordsSkipped.
func (m *Mock) RecordsSkipped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordsSkipped
}

// LastSuccessfulUpdate returns the last value set.
func (m *Mock) LastSuccessfulUpdate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSuccess
}

// NotificationsSent returns the number of IncNotificationsSent calls.
func (m *Mock) NotificationsSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notificationsSent
}

// NotificationsFailed returns the number of IncNotificationsFailed calls.
func (m *Mock) NotificationsFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notificationsFailed
}

// HTTPRequests returns how many requests were observed for route.
func (m *Mock) HTTPRequests(route string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.httpRequests[route]
}
