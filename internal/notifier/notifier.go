// Package notifier announces update-run outcomes.
package notifier

import (
	"context"
	"sync"

	"github.com/vytor/openingtiers/internal/models"
)

// Notifier is told about every finished update run.
type Notifier interface {
	NotifyRun(ctx context.Context, run models.UpdateRun) error
}

// Noop discards notifications.
type Noop struct{}

var _ Notifier = Noop{}

func (Noop) NotifyRun(context.Context, models.UpdateRun) error { return nil }

// Mock records notifications. It is safe for concurrent use.
type Mock struct {
	mu   sync.Mutex
	runs []models.UpdateRun
	Err  error
}

var _ Notifier = (*Mock)(nil)

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) NotifyRun(_ context.Context, run models.UpdateRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return m.Err
}

// Runs returns a copy of the recorded runs.
func (m *Mock) Runs() []models.UpdateRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.UpdateRun(nil), m.runs...)
}
