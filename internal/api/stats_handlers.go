package api

import (
	"net/http"

	"github.com/vytor/openingtiers/internal/services"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.StatisticsService.Summary(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTopPerformers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	minGames, err := queryInt(r, "min_games")
	if err != nil {
		handleError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(w, r, err)
		return
	}

	top, err := s.StatisticsService.TopPerformers(r.Context(), services.TopPerformersQuery{
		RatingRange: q.Get("rating_range"),
		TimeControl: q.Get("time_control"),
		Metric:      q.Get("metric"),
		MinGames:    minGames,
		Limit:       limit,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}
