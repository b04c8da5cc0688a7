// Package scope maps raw rating-range and time-control filter strings onto the
// canonical buckets statistics are stored under, and back onto explorer
// query parameters.
package scope

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vytor/openingtiers/internal/models"
)

// RatingBounds are the lower bounds of the explorer's rating buckets.
var RatingBounds = []int{0, 1000, 1200, 1400, 1600, 1800, 2000, 2200, 2500}

const topBound = 2500

// speeds maps accepted spellings to the explorer's speed identifiers. The
// canonical stored value is the lowercase key of the first spelling.
var speeds = map[string]string{
	"ultrabullet":    "ultraBullet",
	"ultra-bullet":   "ultraBullet",
	"bullet":         "bullet",
	"blitz":          "blitz",
	"rapid":          "rapid",
	"classical":      "classical",
	"standard":       "classical",
	"correspondence": "correspondence",
	"daily":          "correspondence",
}

// Normalize canonicalises both dimensions of a scope.
func Normalize(ratingRange, timeControl string) (models.Scope, error) {
	rr, err := NormalizeRatingRange(ratingRange)
	if err != nil {
		return models.Scope{}, err
	}
	tc, err := NormalizeTimeControl(timeControl)
	if err != nil {
		return models.Scope{}, err
	}
	return models.Scope{RatingRange: rr, TimeControl: tc}, nil
}

// NormalizeRatingRange returns "all", "<lo>-<hi>" or "<lo>+" with lo and hi on
// bucket bounds.
func NormalizeRatingRange(raw string) (string, error) {
	s := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	switch s {
	case "", models.All, "any":
		return models.All, nil
	}

	if strings.HasSuffix(s, "+") {
		lo, err := parseRating(strings.TrimSuffix(s, "+"))
		if err != nil {
			return "", err
		}
		return format(floorBound(lo), -1), nil
	}

	if i := strings.Index(s[1:], "-"); i >= 0 {
		lo, err := parseRating(s[:i+1])
		if err != nil {
			return "", err
		}
		hi, err := parseRating(s[i+2:])
		if err != nil {
			return "", err
		}
		if hi <= lo {
			return "", fmt.Errorf("invalid rating range %q: upper bound must exceed lower bound", raw)
		}
		return format(floorBound(lo), ceilBound(hi)), nil
	}

	r, err := parseRating(s)
	if err != nil {
		return "", err
	}
	lo := floorBound(r)
	return format(lo, nextBound(lo)), nil
}

// NormalizeTimeControl returns "all" or a lowercase speed name.
func NormalizeTimeControl(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "", models.All, "any":
		return models.All, nil
	}
	speed, ok := speeds[s]
	if !ok {
		return "", fmt.Errorf("unknown time control %q", raw)
	}
	return strings.ToLower(speed), nil
}

// Ratings returns the explorer bucket lower bounds covered by a canonical
// rating range, or nil for "all".
func Ratings(ratingRange string) []int {
	if ratingRange == models.All || ratingRange == "" {
		return nil
	}
	var lo, hi int
	if strings.HasSuffix(ratingRange, "+") {
		lo, _ = strconv.Atoi(strings.TrimSuffix(ratingRange, "+"))
		hi = -1
	} else if i := strings.Index(ratingRange[1:], "-"); i >= 0 {
		lo, _ = strconv.Atoi(ratingRange[:i+1])
		hi, _ = strconv.Atoi(ratingRange[i+2:])
	}
	var out []int
	for _, b := range RatingBounds {
		if b >= lo && (hi < 0 || b < hi) {
			out = append(out, b)
		}
	}
	return out
}

// Speeds returns the explorer speed identifiers for a canonical time control,
// or nil for "all".
func Speeds(timeControl string) []string {
	if timeControl == models.All || timeControl == "" {
		return nil
	}
	if speed, ok := speeds[timeControl]; ok {
		return []string{speed}
	}
	return nil
}

// Expand normalises every combination of the configured rating ranges and
// time controls, dropping duplicates while keeping the first occurrence.
func Expand(ratingRanges, timeControls []string) ([]models.Scope, error) {
	seen := make(map[models.Scope]bool)
	var out []models.Scope
	for _, rr := range ratingRanges {
		for _, tc := range timeControls {
			sc, err := Normalize(rr, tc)
			if err != nil {
				return nil, err
			}
			if seen[sc] {
				continue
			}
			seen[sc] = true
			out = append(out, sc)
		}
	}
	return out, nil
}

func parseRating(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid rating %q", s)
	}
	return n, nil
}

func floorBound(r int) int {
	lo := RatingBounds[0]
	for _, b := range RatingBounds {
		if b <= r {
			lo = b
		}
	}
	return lo
}

// ceilBound returns the smallest bound >= r, or -1 when r is past the top
// bucket's lower bound (the range becomes open-ended).
func ceilBound(r int) int {
	for _, b := range RatingBounds {
		if b >= r {
			if b == topBound && r > topBound {
				return -1
			}
			return b
		}
	}
	return -1
}

func nextBound(lo int) int {
	for _, b := range RatingBounds {
		if b > lo {
			return b
		}
	}
	return -1
}

func format(lo, hi int) string {
	if hi < 0 {
		return strconv.Itoa(lo) + "+"
	}
	return strconv.Itoa(lo) + "-" + strconv.Itoa(hi)
}
