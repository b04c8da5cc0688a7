package services_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/repository"
	"github.com/vytor/openingtiers/internal/services"
	"github.com/vytor/openingtiers/internal/testutil/mocks"
)

var defaultTierScope = models.TierScope{
	Scope:  models.Scope{RatingRange: "all", TimeControl: "all"},
	UserID: "default",
}

func TestTierListService_GetDefaults(t *testing.T) {
	repo := new(mocks.MockTierListRepository)
	svc := services.NewTierListService(repo)
	repo.On("List", mock.Anything, defaultTierScope, 50).Return(nil, nil)

	items, err := svc.Get(context.Background(), services.TierListQuery{})
	require.NoError(t, err)
	assert.NotNil(t, items)
	repo.AssertExpectations(t)
}

func TestTierListService_UpdateCanonicalisesRanks(t *testing.T) {
	repo := new(mocks.MockTierListRepository)
	svc := services.NewTierListService(repo)

	sc := models.TierScope{
		Scope:  models.Scope{RatingRange: "1600-1800", TimeControl: "blitz"},
		UserID: "alice",
	}
	repo.On("Apply", mock.Anything, sc, []models.TierUpdate{
		{OpeningID: 1, TierRank: "S", TierPosition: 0},
		{OpeningID: 2, TierRank: "A", TierPosition: 0},
	}).Return(nil)

	n, err := svc.Update(context.Background(),
		services.TierListQuery{RatingRange: "1600-1800", TimeControl: "blitz", UserID: "alice"},
		[]models.TierUpdate{
			{OpeningID: 1, TierRank: "s", TierPosition: 0},
			{OpeningID: 2, TierRank: "A", TierPosition: 0},
		})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	repo.AssertExpectations(t)
}

func TestTierListService_UpdateValidation(t *testing.T) {
	tests := map[string][]models.TierUpdate{
		"bad rank":           {{OpeningID: 1, TierRank: "F"}},
		"negative position":  {{OpeningID: 1, TierRank: "S", TierPosition: -1}},
		"duplicate opening":  {{OpeningID: 1, TierRank: "S"}, {OpeningID: 1, TierRank: "A"}},
		"duplicate position": {{OpeningID: 1, TierRank: "S"}, {OpeningID: 2, TierRank: "S"}},
	}
	for name, updates := range tests {
		t.Run(name, func(t *testing.T) {
			repo := new(mocks.MockTierListRepository)
			svc := services.NewTierListService(repo)

			_, err := svc.Update(context.Background(), services.TierListQuery{}, updates)
			assert.Equal(t, http.StatusBadRequest, appErr(t, err).Status)
			repo.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestTierListService_UpdateMapsRepositoryErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("opening 9: %w", repository.ErrUnknownOpening), http.StatusNotFound},
		{fmt.Errorf("S/0: %w", repository.ErrPositionTaken), http.StatusConflict},
		{fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		repo := new(mocks.MockTierListRepository)
		svc := services.NewTierListService(repo)
		repo.On("Apply", mock.Anything, defaultTierScope, mock.Anything).Return(tt.err)

		_, err := svc.Update(context.Background(), services.TierListQuery{},
			[]models.TierUpdate{{OpeningID: 9, TierRank: "B", TierPosition: 0}})
		assert.Equal(t, tt.status, appErr(t, err).Status, tt.err.Error())
	}
}

func TestTierListService_EmptyBatchIsNoop(t *testing.T) {
	repo := new(mocks.MockTierListRepository)
	svc := services.NewTierListService(repo)

	n, err := svc.Update(context.Background(), services.TierListQuery{}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	repo.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything)
}
