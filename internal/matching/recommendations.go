package matching

import "slices"

// Recommendations holds both ranked lists produced for one need.
type Recommendations struct {
	Need       Need          `json:"need"`
	Sponsors   []MatchResult `json:"sponsor_recommendations"`
	Volunteers []MatchResult `json:"volunteer_recommendations"`
}

// Recommend ranks sponsors and volunteers against need.
func Recommend(need Need, sponsors []Sponsor, volunteers []Volunteer) *Recommendations {
	return &Recommendations{
		Need:       need,
		Sponsors:   MatchSponsorsToNeed(need, sponsors),
		Volunteers: MatchVolunteersToNeed(need, volunteers),
	}
}

// Len returns the total number of results across both lists.
func (r *Recommendations) Len() int {
	return len(r.Sponsors) + len(r.Volunteers)
}

// Results returns the list for kind, or nil for an unknown kind.
func (r *Recommendations) Results(kind Kind) []MatchResult {
	switch kind {
	case KindSponsor:
		return r.Sponsors
	case KindVolunteer:
		return r.Volunteers
	default:
		return nil
	}
}

// Exclude removes results of the given kind whose id is listed and returns
// the removed ids. Relative order of the remaining results is kept.
func (r *Recommendations) Exclude(kind Kind, ids []ID) []ID {
	if len(ids) == 0 {
		return nil
	}

	return r.drop(kind, func(m MatchResult) bool { return slices.Contains(ids, m.CandidateID) })
}

// DropBelow removes results scoring under minimum from both lists and
// returns the removed ids.
func (r *Recommendations) DropBelow(minimum float64) []ID {
	below := func(m MatchResult) bool { return m.Score < minimum }

	removed := r.drop(KindSponsor, below)
	return append(removed, r.drop(KindVolunteer, below)...)
}

func (r *Recommendations) drop(kind Kind, match func(MatchResult) bool) []ID {
	var target *[]MatchResult
	switch kind {
	case KindSponsor:
		target = &r.Sponsors
	case KindVolunteer:
		target = &r.Volunteers
	default:
		return nil
	}

	var removed []ID
	kept := make([]MatchResult, 0, len(*target))
	for _, m := range *target {
		if match(m) {
			removed = append(removed, m.CandidateID)
			continue
		}
		kept = append(kept, m)
	}
	*target = kept

	return removed
}
