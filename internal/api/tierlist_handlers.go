package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/vytor/openingtiers/internal/errors"
	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/services"
)

// maxTierBody bounds the tier-list write payload.
const maxTierBody = 1 << 20

type tierUpdateResponse struct {
	Message string `json:"message"`
	Updated int    `json:"updated"`
}

func tierQuery(r *http.Request) (services.TierListQuery, error) {
	q := r.URL.Query()
	limit, err := queryInt(r, "limit")
	if err != nil {
		return services.TierListQuery{}, err
	}
	return services.TierListQuery{
		RatingRange: q.Get("rating_range"),
		TimeControl: q.Get("time_control"),
		UserID:      q.Get("user_id"),
		Limit:       limit,
	}, nil
}

func (s *Server) handleGetTierList(w http.ResponseWriter, r *http.Request) {
	tq, err := tierQuery(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	items, err := s.TierListService.Get(r.Context(), tq)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleUpdateTierList accepts a JSON array of updates, or an object with an
// "updates" array.
func (s *Server) handleUpdateTierList(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	tq, err := tierQuery(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var raw json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTierBody)).Decode(&raw); err != nil {
		log.Warn("invalid tier list body: %v", err)
		handleError(w, r, errors.NewBadRequestError("Request body must be a JSON list of tier updates"))
		return
	}
	updates, err := decodeTierUpdates(raw)
	if err != nil {
		log.Warn("invalid tier list body: %v", err)
		handleError(w, r, errors.NewBadRequestError("Request body must be a JSON list of tier updates"))
		return
	}

	n, err := s.TierListService.Update(r.Context(), tq, updates)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tierUpdateResponse{Message: "Tier list updated successfully", Updated: n})
}

var errNoUpdates = stderrors.New(`expected a list or an object with an "updates" list`)

func decodeTierUpdates(raw json.RawMessage) ([]models.TierUpdate, error) {
	var updates []models.TierUpdate
	if err := json.Unmarshal(raw, &updates); err == nil {
		if updates == nil {
			return nil, errNoUpdates
		}
		return updates, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	body, ok := wrapped["updates"]
	if !ok {
		return nil, errNoUpdates
	}
	if err := json.Unmarshal(body, &updates); err != nil {
		return nil, err
	}
	if updates == nil {
		return nil, errNoUpdates
	}
	return updates, nil
}
