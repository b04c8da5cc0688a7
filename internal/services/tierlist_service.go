package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/vytor/openingtiers/internal/errors"
	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/repository"
	"github.com/vytor/openingtiers/internal/scope"
)

// TierListQuery identifies a tier list. Empty fields fall back to
// all/all/default.
type TierListQuery struct {
	RatingRange string
	TimeControl string
	UserID      string
	Limit       *int
}

// TierListService handles tier list business logic
type TierListService interface {
	Get(ctx context.Context, q TierListQuery) ([]models.TierListItem, error)
	// Update merges updates into the tier list and returns how many were
	// applied. Either all of them are applied or none.
	Update(ctx context.Context, q TierListQuery, updates []models.TierUpdate) (int, error)
}

type tierListService struct {
	tierRepo repository.TierListRepository
}

// NewTierListService creates a new TierListService
func NewTierListService(tierRepo repository.TierListRepository) TierListService {
	return &tierListService{tierRepo: tierRepo}
}

func (s *tierListService) Get(ctx context.Context, q TierListQuery) ([]models.TierListItem, error) {
	log := logger.FromContext(ctx)

	ts, err := q.tierScope()
	if err != nil {
		return nil, err
	}
	limit, err := limit(q.Limit, DefaultLimit, MaxLimit)
	if err != nil {
		return nil, err
	}
	log.Debug("getting tier list: scope=%s user=%s", ts.Scope, ts.UserID)

	items, err := s.tierRepo.List(ctx, ts, limit)
	if err != nil {
		log.Error("failed to list tier list: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if items == nil {
		items = []models.TierListItem{}
	}
	return items, nil
}

func (s *tierListService) Update(ctx context.Context, q TierListQuery, updates []models.TierUpdate) (int, error) {
	log := logger.FromContext(ctx)

	ts, err := q.tierScope()
	if err != nil {
		return 0, err
	}
	normalized, err := validateTierUpdates(updates)
	if err != nil {
		return 0, err
	}
	if len(normalized) == 0 {
		return 0, nil
	}
	log.Info("updating tier list: scope=%s user=%s updates=%d", ts.Scope, ts.UserID, len(normalized))

	if err := s.tierRepo.Apply(ctx, ts, normalized); err != nil {
		switch {
		case stderrors.Is(err, repository.ErrUnknownOpening):
			return 0, errors.NewNotFoundError("Opening")
		case stderrors.Is(err, repository.ErrPositionTaken):
			return 0, errors.NewConflictError("Tier position is already taken", err)
		}
		log.Error("failed to update tier list: %v", err)
		return 0, errors.NewInternalError(err)
	}
	return len(normalized), nil
}

func (q TierListQuery) tierScope() (models.TierScope, error) {
	rr, err := scope.NormalizeRatingRange(q.RatingRange)
	if err != nil {
		return models.TierScope{}, errors.NewValidationError("rating_range", err.Error())
	}
	tc, err := scope.NormalizeTimeControl(q.TimeControl)
	if err != nil {
		return models.TierScope{}, errors.NewValidationError("time_control", err.Error())
	}
	user := strings.TrimSpace(q.UserID)
	if user == "" {
		user = models.DefaultUserID
	}
	return models.TierScope{
		Scope:  models.Scope{RatingRange: rr, TimeControl: tc},
		UserID: user,
	}, nil
}

type tierSlot struct {
	rank     models.TierRank
	position int
}

// validateTierUpdates checks a batch and returns it with canonical ranks.
func validateTierUpdates(updates []models.TierUpdate) ([]models.TierUpdate, error) {
	out := make([]models.TierUpdate, 0, len(updates))
	openings := make(map[int64]bool, len(updates))
	slots := make(map[tierSlot]bool, len(updates))

	for i, u := range updates {
		rank, ok := models.ParseTierRank(u.TierRank)
		if !ok {
			return nil, errors.NewValidationError(fmt.Sprintf("updates[%d].tier_rank", i), "must be one of S, A, B, C, D")
		}
		if u.TierPosition < 0 {
			return nil, errors.NewValidationError(fmt.Sprintf("updates[%d].tier_position", i), "cannot be negative")
		}
		if u.OpeningID <= 0 {
			return nil, errors.NewValidationError(fmt.Sprintf("updates[%d].opening_id", i), "must be positive")
		}
		if openings[u.OpeningID] {
			return nil, errors.NewValidationError(fmt.Sprintf("updates[%d].opening_id", i),
				fmt.Sprintf("opening %d appears more than once", u.OpeningID))
		}
		slot := tierSlot{rank: rank, position: u.TierPosition}
		if slots[slot] {
			return nil, errors.NewValidationError(fmt.Sprintf("updates[%d].tier_position", i),
				fmt.Sprintf("position %s/%d appears more than once", rank, u.TierPosition))
		}
		openings[u.OpeningID] = true
		slots[slot] = true
		out = append(out, models.TierUpdate{OpeningID: u.OpeningID, TierRank: string(rank), TierPosition: u.TierPosition})
	}
	return out, nil
}
