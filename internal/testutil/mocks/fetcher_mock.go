package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/openingtiers/internal/lichess"
)

// MockFetcher is a mock implementation of lichess.Fetcher
type MockFetcher struct {
	mock.Mock
}

var _ lichess.Fetcher = (*MockFetcher)(nil)

func (m *MockFetcher) Explore(ctx context.Context, req lichess.Request) (*lichess.Explorer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lichess.Explorer), args.Error(1)
}
