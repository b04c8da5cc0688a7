package api

import (
	"net/http"

	"github.com/vytor/openingtiers/internal/services"
)

func (s *Server) handleListOpenings(w http.ResponseWriter, r *http.Request) {
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

	openings, err := s.OpeningService.List(r.Context(), services.OpeningQuery{
		RatingRange: q.Get("rating_range"),
		TimeControl: q.Get("time_control"),
		MinGames:    minGames,
		SortBy:      q.Get("sort_by"),
		Order:       q.Get("order"),
		Limit:       limit,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, openings)
}

func (s *Server) handleGetOpening(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	opening, err := s.OpeningService.Get(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opening)
}

func (s *Server) handleOpeningStatistics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	q := r.URL.Query()
	stats, err := s.OpeningService.Statistics(r.Context(), id, q.Get("rating_range"), q.Get("time_control"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
