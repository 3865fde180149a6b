package session

import (
	"alcyxob/fitness-tracker/internal/domain"
	"strconv"
	"strings"
)

// BestSet picks the set with the highest weight, ties broken by more reps.
// history is ordered most recent first, so among equal sets the most recent wins.
// Sets with neither a numeric weight nor numeric reps are ignored.
func BestSet(history []domain.Set) (domain.Set, bool) {
	var (
		best            domain.Set
		bestW, bestReps float64
		found           bool
	)
	for _, set := range history {
		w, wOK := parseAmount(set.Weight)
		r, rOK := parseAmount(set.Reps)
		if !wOK && !rOK {
			continue
		}
		if !found || w > bestW || (w == bestW && r > bestReps) {
			best, bestW, bestReps, found = set, w, r, true
		}
	}
	return best, found
}

// parseAmount reads a user-entered number, accepting a decimal comma.
func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
