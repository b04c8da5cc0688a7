package models

import (
	"strings"
	"time"
)

// TierRank is a user-assigned strength category.
type TierRank string

const (
	TierS TierRank = "S"
	TierA TierRank = "A"
	TierB TierRank = "B"
	TierC TierRank = "C"
	TierD TierRank = "D"
)

// TierRanks lists the ranks from strongest to weakest.
var TierRanks = []TierRank{TierS, TierA, TierB, TierC, TierD}

// ParseTierRank normalises s and reports whether it is a known rank.
func ParseTierRank(s string) (TierRank, bool) {
	r := TierRank(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Order() >= 0
}

// Order returns 0 for S through 4 for D, or -1 for an unknown rank.
func (r TierRank) Order() int {
	for i, rank := range TierRanks {
		if rank == r {
			return i
		}
	}
	return -1
}

// TierScope is the context a user's tier assignments live in.
type TierScope struct {
	Scope
	UserID string `json:"user_id"`
}

// DefaultUserID is used when the caller does not identify a user.
const DefaultUserID = "default"

// TierUpdate is one element of a tier-list write batch.
type TierUpdate struct {
	OpeningID    int64  `json:"opening_id"`
	TierRank     string `json:"tier_rank"`
	TierPosition int    `json:"tier_position"`
}

// TierListEntry is a stored assignment.
type TierListEntry struct {
	ID           int64     `json:"id"`
	OpeningID    int64     `json:"opening_id"`
	TierRank     TierRank  `json:"tier_rank"`
	TierPosition int       `json:"tier_position"`
	RatingRange  string    `json:"rating_range"`
	TimeControl  string    `json:"time_control"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TierListItem pairs an opening with its statistic for the scope and the
// user's assignment. Statistics is nil when an assigned opening no longer has
// a statistic in the scope; TierRank is nil when the opening is unassigned.
type TierListItem struct {
	Opening      Opening           `json:"opening"`
	Statistics   *OpeningStatistic `json:"statistics"`
	TierRank     *TierRank         `json:"tier_rank"`
	TierPosition *int              `json:"tier_position"`
}
