package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Opening is a collected opening line. MovesUCI is its natural key.
type Opening struct {
	ID             int64     `json:"id"`
	ECOCode        *string   `json:"eco_code"`
	Name           *string   `json:"name"`
	MovesSequence  []string  `json:"moves_sequence"`
	MovesUCI       []string  `json:"moves_uci"`
	FEN            string    `json:"fen"`
	PopularityRank *int      `json:"popularity_rank"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MovesString returns the SAN moves joined by spaces.
func (o Opening) MovesString() string {
	return strings.Join(o.MovesSequence, " ")
}

// MarshalJSON adds the derived moves_string field.
func (o Opening) MarshalJSON() ([]byte, error) {
	type plain Opening
	return json.Marshal(struct {
		plain
		MovesString string `json:"moves_string"`
	}{plain: plain(o), MovesString: o.MovesString()})
}

// OpeningFilter holds the query parameters accepted by the openings listing.
type OpeningFilter struct {
	Scope    Scope
	MinGames int
	SortBy   string
	Order    string
	Limit    int
}

// OpeningSortFields are the sort keys accepted by the openings listing.
var OpeningSortFields = []string{
	"performance_score",
	"total_games",
	"win_rate_white",
	"win_rate_black",
	"draw_rate",
	"average_rating",
	"collected_at",
	"popularity_rank",
	"name",
}

// StatMetrics are the numeric statistic fields openings can be ranked by.
var StatMetrics = []string{
	"performance_score",
	"total_games",
	"win_rate_white",
	"win_rate_black",
	"draw_rate",
	"average_rating",
}

func IsOpeningSortField(s string) bool {
	return contains(OpeningSortFields, s)
}

func IsStatMetric(s string) bool {
	return contains(StatMetrics, s)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
