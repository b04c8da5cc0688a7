package models

// Scope is the (rating range, time control) pair statistics are bucketed by.
// Values are canonical strings produced by the scope package.
type Scope struct {
	RatingRange string `json:"rating_range"`
	TimeControl string `json:"time_control"`
}

// All is the scope covering every rating and time control.
const All = "all"

// IsAll reports whether the scope has no rating or time control restriction.
func (s Scope) IsAll() bool {
	return s.RatingRange == All && s.TimeControl == All
}

func (s Scope) String() string {
	return s.RatingRange + "/" + s.TimeControl
}
