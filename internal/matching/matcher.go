package matching

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// MatchSponsorsToNeed scores every sponsor against need and returns the
// results ordered by score, highest first. Equal scores keep input order.
func MatchSponsorsToNeed(need Need, sponsors []Sponsor) []MatchResult {
	return match(need, sponsors, KindSponsor, func(s Sponsor) (ID, bool) { return s.ID, s.NumericID }, ScoreSponsorNeed)
}

// MatchVolunteersToNeed is MatchSponsorsToNeed for volunteers.
func MatchVolunteersToNeed(need Need, volunteers []Volunteer) []MatchResult {
	return match(need, volunteers, KindVolunteer, func(v Volunteer) (ID, bool) { return v.ID, v.NumericID }, ScoreVolunteerNeed)
}

func match[C any](need Need, candidates []C, kind Kind, id func(C) (ID, bool), score func(C, Need) (float64, []string)) []MatchResult {
	results := make([]MatchResult, 0, len(candidates))
	for _, c := range candidates {
		s, reasons := score(c, need)
		cid, numeric := id(c)
		results = append(results, MatchResult{
			Kind:        kind,
			CandidateID: cid,
			NumericID:   numeric,
			Score:       s,
			Reasons:     reasons,
		})
	}

	slices.SortStableFunc(results, func(a, b MatchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	return results
}

// ExplainMatch renders a result as a single display line.
func ExplainMatch(r MatchResult) string {
	kind := string(r.Kind)
	if kind == "" {
		kind = "candidate"
	}

	return fmt.Sprintf("%s %s scored %s: %s",
		kind,
		r.CandidateID,
		strconv.FormatFloat(r.Score, 'f', -1, 64),
		strings.Join(r.Reasons, ", "),
	)
}
