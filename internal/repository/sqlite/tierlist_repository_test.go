package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/repository"
	"github.com/vytor/openingtiers/internal/repository/sqlite"
	"github.com/vytor/openingtiers/internal/testutil"
)

type TierListRepositorySuite struct {
	suite.Suite
	db    *sql.DB
	repo  repository.TierListRepository
	stats repository.StatisticRepository
	scope models.TierScope

	e4, d4, c4 int64
}

func (s *TierListRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewTierListRepository(s.db)
	s.stats = sqlite.NewStatisticRepository(s.db)
	s.scope = models.TierScope{
		Scope:  models.Scope{RatingRange: "all", TimeControl: "all"},
		UserID: models.DefaultUserID,
	}

	ctx := context.Background()
	now := time.Now().UTC()
	s.e4 = mustUpsert(ctx, s.stats, opening("e4", "e2e4"), stat("all", "all", 50, 40, 10, now)).OpeningID
	s.d4 = mustUpsert(ctx, s.stats, opening("d4", "d2d4"), stat("all", "all", 60, 30, 10, now)).OpeningID
	s.c4 = mustUpsert(ctx, s.stats, opening("c4", "c2c4"), stat("all", "blitz", 60, 30, 10, now)).OpeningID
}

func (s *TierListRepositorySuite) TestApplyThenList() {
	ctx := context.Background()

	err := s.repo.Apply(ctx, s.scope, []models.TierUpdate{{OpeningID: s.e4, TierRank: "S", TierPosition: 0}})
	s.Require().NoError(err)

	items, err := s.repo.List(ctx, s.scope, 50)
	s.Require().NoError(err)
	s.Require().Len(items, 2)

	s.Equal(s.e4, items[0].Opening.ID)
	s.Require().NotNil(items[0].TierRank)
	s.Equal(models.TierS, *items[0].TierRank)
	s.Equal(0, *items[0].TierPosition)
	s.Require().NotNil(items[0].Statistics)

	// Unassigned pool: d4 has a statistic in scope, c4 does not.
	s.Equal(s.d4, items[1].Opening.ID)
	s.Nil(items[1].TierRank)
	s.Nil(items[1].TierPosition)
}

func (s *TierListRepositorySuite) TestList_AssignedOrder() {
	ctx := context.Background()
	err := s.repo.Apply(ctx, s.scope, []models.TierUpdate{
		{OpeningID: s.c4, TierRank: "B", TierPosition: 0},
		{OpeningID: s.d4, TierRank: "S", TierPosition: 1},
		{OpeningID: s.e4, TierRank: "S", TierPosition: 0},
	})
	s.Require().NoError(err)

	items, err := s.repo.List(ctx, s.scope, 50)
	s.Require().NoError(err)
	s.Require().Len(items, 3)
	s.Equal([]int64{s.e4, s.d4, s.c4}, []int64{items[0].Opening.ID, items[1].Opening.ID, items[2].Opening.ID})
	// c4 stays listed though it has no statistic in this scope.
	s.Nil(items[2].Statistics)
}

func (s *TierListRepositorySuite) TestApply_MergeKeepsOtherOpenings() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Apply(ctx, s.scope, []models.TierUpdate{
		{OpeningID: s.e4, TierRank: "S", TierPosition: 0},
		{OpeningID: s.d4, TierRank: "A", TierPosition: 0},
	}))
	s.Require().NoError(s.repo.Apply(ctx, s.scope, []models.TierUpdate{
		{OpeningID: s.e4, TierRank: "C", TierPosition: 2},
	}))

	items, err := s.repo.List(ctx, s.scope, 50)
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal(s.d4, items[0].Opening.ID)
	s.Equal(models.TierA, *items[0].TierRank)
	s.Equal(s.e4, items[1].Opening.ID)
	s.Equal(models.TierC, *items[1].TierRank)
	s.Equal(2, *items[1].TierPosition)
}

func (s *TierListRepositorySuite) TestApply_SwapWithinBatch() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Apply(ctx, s.scope, []models.TierUpdate{
		{OpeningID: s.e4, TierRank: "S", TierPosition: 0},
		{OpeningID: s.d4, TierRank: "S", TierPosition: 1},
	}))
	s.Require().NoError(s.repo.Apply(ctx, s.scope, []models.TierUpdate{
		{OpeningID: s.e4, TierRank: "S", TierPosition: 1},
		{OpeningID: s.d4, TierRank: "S", TierPosition: 0},
	}))

	items, err := s.repo.List(ctx, s.scope, 0)
	s.Require().NoError(err)
	s.Equal(s.d4, items[0].Opening.ID)
	s.Equal(s.e4, items[1].Opening.ID)
}

func (s *TierListRepositorySuite) TestApply_ConflictAppliesNothing() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Apply(ctx, s.scope, []models.TierUpdate{
		{OpeningID: s.e4, TierRank: "S", TierPosition: 0},
	}))

	err := s.repo.Apply(ctx, s.scope, []models.TierUpdate{
		{OpeningID: s.c4, TierRank: "A", TierPosition: 0},
		{OpeningID: s.d4, TierRank: "S", TierPosition: 0},
	})
	s.ErrorIs(err, repository.ErrPositionTaken)

	items, err := s.repo.List(ctx, s.scope, 50)
	s.Require().NoError(err)
	for _, it := range items {
		if it.Opening.ID != s.e4 {
			s.Nil(it.TierRank, "opening %d should stay unassigned", it.Opening.ID)
		}
	}
}

func (s *TierListRepositorySuite) TestApply_UnknownOpening() {
	ctx := context.Background()
	err := s.repo.Apply(ctx, s.scope, []models.TierUpdate{
		{OpeningID: s.e4, TierRank: "S", TierPosition: 0},
		{OpeningID: 424242, TierRank: "A", TierPosition: 0},
	})
	s.ErrorIs(err, repository.ErrUnknownOpening)

	items, err := s.repo.List(ctx, s.scope, 50)
	s.Require().NoError(err)
	for _, it := range items {
		s.Nil(it.TierRank)
	}
}

func (s *TierListRepositorySuite) TestScopesAreIndependent() {
	ctx := context.Background()
	other := s.scope
	other.UserID = "alice"

	s.Require().NoError(s.repo.Apply(ctx, s.scope, []models.TierUpdate{{OpeningID: s.e4, TierRank: "S", TierPosition: 0}}))
	s.Require().NoError(s.repo.Apply(ctx, other, []models.TierUpdate{{OpeningID: s.d4, TierRank: "S", TierPosition: 0}}))

	items, err := s.repo.List(ctx, other, 50)
	s.Require().NoError(err)
	s.Equal(s.d4, items[0].Opening.ID)
	s.NotNil(items[0].TierRank)
	s.Equal(s.e4, items[1].Opening.ID)
	s.Nil(items[1].TierRank)
}

func TestTierListRepositorySuite(t *testing.T) {
	suite.Run(t, new(TierListRepositorySuite))
}
