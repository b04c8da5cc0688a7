package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/repository"
)

// MockStatisticRepository is a mock implementation of repository.StatisticRepository
type MockStatisticRepository struct {
	mock.Mock
}

var _ repository.StatisticRepository = (*MockStatisticRepository)(nil)

func (m *MockStatisticRepository) Upsert(ctx context.Context, opening models.Opening, stat models.OpeningStatistic) (*models.OpeningStatistic, error) {
	args := m.Called(ctx, opening, stat)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OpeningStatistic), args.Error(1)
}

func (m *MockStatisticRepository) ListForOpening(ctx context.Context, openingID int64, scope models.Scope) ([]models.OpeningStatistic, error) {
	args := m.Called(ctx, openingID, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OpeningStatistic), args.Error(1)
}

func (m *MockStatisticRepository) TopPerformers(ctx context.Context, filter models.TopPerformerFilter) ([]models.TopPerformer, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TopPerformer), args.Error(1)
}

func (m *MockStatisticRepository) Summary(ctx context.Context) (*models.StatisticsSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StatisticsSummary), args.Error(1)
}

func (m *MockStatisticRepository) Freshness(ctx context.Context) (map[models.StatKey]time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.StatKey]time.Time), args.Error(1)
}
