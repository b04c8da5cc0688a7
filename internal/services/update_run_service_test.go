package services_test

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/services"
	"github.com/vytor/openingtiers/internal/testutil/mocks"
)

func TestUpdateRunService_ListDefaultsAndEmpty(t *testing.T) {
	runs := new(mocks.MockUpdateRunRepository)
	svc := services.NewUpdateRunService(runs)

	runs.On("List", mock.Anything, services.DefaultRunsLimit).Return(nil, nil)

	got, err := svc.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []models.UpdateRun{}, got)
	runs.AssertExpectations(t)
}

func TestUpdateRunService_ListRejectsBadLimit(t *testing.T) {
	svc := services.NewUpdateRunService(new(mocks.MockUpdateRunRepository))

	_, err := svc.List(context.Background(), intPtr(0))
	assert.Equal(t, http.StatusBadRequest, appErr(t, err).Status)
}

func TestUpdateRunService_GetNotFound(t *testing.T) {
	runs := new(mocks.MockUpdateRunRepository)
	svc := services.NewUpdateRunService(runs)

	runs.On("Get", mock.Anything, "missing").Return(nil, sql.ErrNoRows)

	_, err := svc.Get(context.Background(), "missing")
	e := appErr(t, err)
	assert.Equal(t, http.StatusNotFound, e.Status)
	assert.Equal(t, "Update run not found", e.Message)
}
