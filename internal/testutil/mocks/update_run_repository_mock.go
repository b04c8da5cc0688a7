package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/repository"
)

// MockUpdateRunRepository is a mock implementation of repository.UpdateRunRepository
type MockUpdateRunRepository struct {
	mock.Mock
}

var _ repository.UpdateRunRepository = (*MockUpdateRunRepository)(nil)

func (m *MockUpdateRunRepository) Create(ctx context.Context, run models.UpdateRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockUpdateRunRepository) Finish(ctx context.Context, run models.UpdateRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockUpdateRunRepository) Get(ctx context.Context, id string) (*models.UpdateRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UpdateRun), args.Error(1)
}

func (m *MockUpdateRunRepository) List(ctx context.Context, limit int) ([]models.UpdateRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UpdateRun), args.Error(1)
}

func (m *MockUpdateRunRepository) Latest(ctx context.Context) (*models.UpdateRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UpdateRun), args.Error(1)
}
