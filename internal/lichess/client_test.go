package lichess_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/openingtiers/internal/lichess"
)

func TestExplore_SendsQueryAndDecodes(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"white": 600, "draws": 100, "black": 300,
			"moves": [
				{"uci": "b8c6", "san": "Nc6", "white": 300, "draws": 50, "black": 150, "averageRating": 1700},
				{"uci": "g8f6", "san": "Nf6", "white": 300, "draws": 50, "black": 150, "averageRating": 1900}
			],
			"opening": {"eco": "C40", "name": "King's Knight Opening"}
		}`)
	}))
	defer srv.Close()

	c := lichess.New(srv.URL+"/", "secret")
	res, err := c.Explore(context.Background(), lichess.Request{
		Play:    []string{"e2e4", "e7e5", "g1f3"},
		Ratings: []int{1600, 1800},
		Speeds:  []string{"blitz"},
	})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/lichess", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "e2e4,e7e5,g1f3", q.Get("play"))
	assert.Equal(t, "1600,1800", q.Get("ratings"))
	assert.Equal(t, "blitz", q.Get("speeds"))
	assert.Equal(t, "0", q.Get("topGames"))
	assert.Equal(t, "0", q.Get("recentGames"))
	assert.Equal(t, "Bearer secret", got.Header.Get("Authorization"))

	assert.Equal(t, 1000, res.Total())
	assert.Equal(t, 1800, res.AverageRating())
	require.NotNil(t, res.Opening)
	assert.Equal(t, "C40", res.Opening.ECO)
}

func TestExplore_AllScopeOmitsFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("ratings"))
		assert.Empty(t, r.URL.Query().Get("speeds"))
		assert.Empty(t, r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"white": 1, "draws": 0, "black": 0, "moves": []}`)
	}))
	defer srv.Close()

	res, err := lichess.New(srv.URL, "").Explore(context.Background(), lichess.Request{Play: []string{"e2e4"}})
	require.NoError(t, err)
	assert.Nil(t, res.Opening)
	assert.Equal(t, 0, res.AverageRating())
}

func TestExplore_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "slow down")
	}))
	defer srv.Close()

	_, err := lichess.New(srv.URL, "").Explore(context.Background(), lichess.Request{})
	require.Error(t, err)

	var serr *lichess.StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusTooManyRequests, serr.StatusCode)
	assert.Equal(t, "slow down", serr.Body)
	assert.Equal(t, time.Minute, serr.RetryAfter)
	assert.True(t, lichess.IsTransient(err))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", &lichess.StatusError{StatusCode: 429}, true},
		{"500", &lichess.StatusError{StatusCode: 500}, true},
		{"503 wrapped", fmt.Errorf("fetch: %w", &lichess.StatusError{StatusCode: 503}), true},
		{"404", &lichess.StatusError{StatusCode: 404}, false},
		{"400", &lichess.StatusError{StatusCode: 400}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
		{"plain", errors.New("decode"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lichess.IsTransient(tt.err))
		})
	}
}

func TestExplore_NetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := lichess.New(url, "").Explore(context.Background(), lichess.Request{})
	require.Error(t, err)
	assert.True(t, lichess.IsTransient(err))
}
