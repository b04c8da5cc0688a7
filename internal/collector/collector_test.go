package collector_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/openingtiers/internal/collector"
	"github.com/vytor/openingtiers/internal/lichess"
	"github.com/vytor/openingtiers/internal/metrics"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/testutil/mocks"
)

var blitz1600 = models.Scope{RatingRange: "1600-1800", TimeControl: "blitz"}

func fastOptions(m metrics.Metrics) collector.Options {
	return collector.Options{
		RequestsPerMinute: 600000,
		MaxRetries:        2,
		Workers:           3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		Metrics:           m,
	}
}

func playIs(first string) interface{} {
	return mock.MatchedBy(func(r lichess.Request) bool {
		return len(r.Play) > 0 && r.Play[0] == first
	})
}

func TestBuildTargets_IllegalLineBecomesFailures(t *testing.T) {
	scopes := []models.Scope{blitz1600, {RatingRange: "all", TimeControl: "all"}}
	targets, failures := collector.BuildTargets([]string{"e4 e5", "e4 Ke7 Ke8 Qh5 Qh4 Nf9"}, scopes)

	assert.Len(t, targets, 2)
	require.Len(t, failures, 2)
	assert.Equal(t, "e4 Ke7 Ke8 Qh5 Qh4 Nf9", failures[0].Line)
	assert.Equal(t, "1600-1800", failures[0].RatingRange)
	assert.Equal(t, "all", failures[1].RatingRange)
}

func TestBuildTargets_DefaultCatalogParses(t *testing.T) {
	targets, failures := collector.BuildTargets(collector.DefaultCatalog, []models.Scope{blitz1600})
	assert.Empty(t, failures)
	assert.Len(t, targets, len(collector.DefaultCatalog))
}

func TestCollect_OneFailingOpeningDoesNotStopOthers(t *testing.T) {
	f := new(mocks.MockFetcher)
	f.On("Explore", mock.Anything, playIs("g2g3")).
		Return(nil, &lichess.StatusError{StatusCode: 503})
	f.On("Explore", mock.Anything, mock.Anything).
		Return(&lichess.Explorer{White: 50, Draws: 10, Black: 40}, nil)

	targets, failures := collector.BuildTargets([]string{"e4", "d4", "c4", "Nf3", "g3"}, []models.Scope{blitz1600})
	require.Empty(t, failures)

	m := metrics.NewMock()
	res, err := collector.New(f, fastOptions(m)).Collect(context.Background(), targets)
	require.NoError(t, err)

	assert.Len(t, res.Records, 4)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "g3", res.Failures[0].Line)
	assert.Contains(t, res.Failures[0].Error, "503")
	// 4 successes plus 1 + 2 retries for the failing line.
	assert.Equal(t, 7, res.Requests)
	assert.Equal(t, 2, m.ExplorerRetries())
	assert.Equal(t, 4, m.ExplorerRequests(metrics.OutcomeOK))
}

func TestCollect_PermanentErrorIsNotRetried(t *testing.T) {
	f := new(mocks.MockFetcher)
	f.On("Explore", mock.Anything, mock.Anything).
		Return(nil, &lichess.StatusError{StatusCode: 404}).Once()

	targets, _ := collector.BuildTargets([]string{"e4"}, []models.Scope{blitz1600})
	res, err := collector.New(f, fastOptions(nil)).Collect(context.Background(), targets)
	require.NoError(t, err)

	assert.Empty(t, res.Records)
	assert.Len(t, res.Failures, 1)
	assert.Equal(t, 1, res.Requests)
	f.AssertNumberOfCalls(t, "Explore", 1)
}

func TestCollect_TransientErrorRecovers(t *testing.T) {
	f := new(mocks.MockFetcher)
	f.On("Explore", mock.Anything, mock.Anything).
		Return(nil, &lichess.StatusError{StatusCode: 429}).Once()
	f.On("Explore", mock.Anything, mock.Anything).
		Return(&lichess.Explorer{White: 3, Draws: 1, Black: 1, Opening: &lichess.Opening{ECO: "B20", Name: "Sicilian Defense"}}, nil)

	targets, _ := collector.BuildTargets([]string{"e4 c5"}, []models.Scope{blitz1600})
	res, err := collector.New(f, fastOptions(nil)).Collect(context.Background(), targets)
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, "B20", rec.ECO)
	assert.Equal(t, "Sicilian Defense", rec.Name)
	assert.Equal(t, 3, rec.WhiteWins)
	assert.Equal(t, blitz1600, rec.Scope)
	assert.Equal(t, 2, res.Requests)
}

func TestCollect_PassesScopeAsExplorerFilters(t *testing.T) {
	f := new(mocks.MockFetcher)
	f.On("Explore", mock.Anything, mock.MatchedBy(func(r lichess.Request) bool {
		return strings.Join(r.Play, ",") == "e2e4,e7e5" &&
			len(r.Ratings) == 1 && r.Ratings[0] == 1600 &&
			len(r.Speeds) == 1 && r.Speeds[0] == "blitz"
	})).Return(&lichess.Explorer{White: 1}, nil).Once()

	targets, _ := collector.BuildTargets([]string{"1. e4 e5"}, []models.Scope{blitz1600})
	_, err := collector.New(f, fastOptions(nil)).Collect(context.Background(), targets)
	require.NoError(t, err)
	f.AssertExpectations(t)
}

type countingFetcher struct {
	calls atomic.Int32
}

func (s *countingFetcher) Explore(ctx context.Context, _ lichess.Request) (*lichess.Explorer, error) {
	s.calls.Add(1)
	return &lichess.Explorer{White: 1}, nil
}

func TestCollect_RateLimitSuspendsCallers(t *testing.T) {
	f := &countingFetcher{}
	opts := fastOptions(nil)
	opts.RequestsPerMinute = 1200 // one token every 50ms
	targets, _ := collector.BuildTargets([]string{"e4", "d4", "c4"}, []models.Scope{blitz1600})

	start := time.Now()
	res, err := collector.New(f, opts).Collect(context.Background(), targets)
	require.NoError(t, err)

	assert.Len(t, res.Records, 3)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestCollect_CancelledContext(t *testing.T) {
	f := &countingFetcher{}
	opts := fastOptions(nil)
	opts.RequestsPerMinute = 1
	targets, _ := collector.BuildTargets([]string{"e4", "d4", "c4"}, []models.Scope{blitz1600})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := collector.New(f, opts).Collect(ctx, targets)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.LessOrEqual(t, f.calls.Load(), int32(1))
}

func TestCollect_HonoursRetryAfter(t *testing.T) {
	f := new(mocks.MockFetcher)
	f.On("Explore", mock.Anything, mock.Anything).
		Return(nil, &lichess.StatusError{StatusCode: 429, RetryAfter: 80 * time.Millisecond}).Once()
	f.On("Explore", mock.Anything, mock.Anything).
		Return(&lichess.Explorer{White: 3, Draws: 1, Black: 1}, nil)

	targets, _ := collector.BuildTargets([]string{"e4"}, []models.Scope{blitz1600})

	start := time.Now()
	res, err := collector.New(f, fastOptions(nil)).Collect(context.Background(), targets)
	require.NoError(t, err)

	assert.Len(t, res.Records, 1)
	assert.Equal(t, 2, res.Requests)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestCollect_RetryAfterStopsOnCancel(t *testing.T) {
	f := new(mocks.MockFetcher)
	f.On("Explore", mock.Anything, mock.Anything).
		Return(nil, &lichess.StatusError{StatusCode: 429, RetryAfter: time.Hour})

	targets, _ := collector.BuildTargets([]string{"e4"}, []models.Scope{blitz1600})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := collector.New(f, fastOptions(nil)).Collect(ctx, targets)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	f.AssertNumberOfCalls(t, "Explore", 1)
}
