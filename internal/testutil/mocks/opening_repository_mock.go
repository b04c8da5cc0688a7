package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/repository"
)

// MockOpeningRepository is a mock implementation of repository.OpeningRepository
type MockOpeningRepository struct {
	mock.Mock
}

var _ repository.OpeningRepository = (*MockOpeningRepository)(nil)

func (m *MockOpeningRepository) Get(ctx context.Context, id int64) (*models.Opening, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Opening), args.Error(1)
}

func (m *MockOpeningRepository) List(ctx context.Context, filter models.OpeningFilter) ([]models.Opening, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Opening), args.Error(1)
}

func (m *MockOpeningRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
