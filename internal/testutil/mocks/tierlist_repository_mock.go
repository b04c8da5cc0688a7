package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/repository"
)

// MockTierListRepository is a mock implementation of repository.TierListRepository
type MockTierListRepository struct {
	mock.Mock
}

var _ repository.TierListRepository = (*MockTierListRepository)(nil)

func (m *MockTierListRepository) List(ctx context.Context, scope models.TierScope, unassignedLimit int) ([]models.TierListItem, error) {
	args := m.Called(ctx, scope, unassignedLimit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TierListItem), args.Error(1)
}

func (m *MockTierListRepository) Apply(ctx context.Context, scope models.TierScope, updates []models.TierUpdate) error {
	args := m.Called(ctx, scope, updates)
	return args.Error(0)
}
