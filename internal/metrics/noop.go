package metrics

// Noop discards every observation.
type Noop struct{}

var _ Metrics = Noop{}

func (Noop) IncExplorerRequests(string)              {}
func (Noop) IncExplorerRetries()                     {}
func (Noop) ObserveUpdateRun(string, float64)        {}
func (Noop) AddStatisticsStored(int)                 {}
func (Noop) AddRecordsSkipped(int)                   {}
func (Noop) SetLastSuccessfulUpdate(float64)         {}
func (Noop) IncNotificationsSent()                   {}
func (Noop) IncNotificationsFailed()                 {}
func (Noop) ObserveHTTPRequest(string, int, float64) {}
