package matching

import "strconv"

const (
	ReasonSameLocation       = "Same location"
	ReasonCategoryMatch      = "Category match"
	ReasonSufficientCapacity = "Sufficient capacity"
	// ReasonVolunteerLocation is emitted when a volunteer shares the need's
	// location. The label does not describe the condition; clients already
	// depend on it, so it stays until the intended semantics are confirmed.
	ReasonVolunteerLocation = "Skill match"
	ReasonAvailable         = "Available"

	urgencyReasonPrefix = "Urgency level "
)

// rule adds points and a reason when applies reports true.
type rule[C any] struct {
	points  float64
	reason  string
	applies func(candidate C, need Need) bool
}

var sponsorRules = []rule[Sponsor]{
	{
		points:  3,
		reason:  ReasonSameLocation,
		applies: func(s Sponsor, n Need) bool { return s.Location == n.Location },
	},
	{
		points:  4,
		reason:  ReasonCategoryMatch,
		applies: func(s Sponsor, n Need) bool { return s.Prefers(n.Category) },
	},
	{
		points:  2,
		reason:  ReasonSufficientCapacity,
		applies: func(s Sponsor, n Need) bool { return s.Capacity >= n.Quantity },
	},
}

var volunteerRules = []rule[Volunteer]{
	{
		points:  3,
		reason:  ReasonVolunteerLocation,
		applies: func(v Volunteer, n Need) bool { return v.Location == n.Location },
	},
	{
		points:  2,
		reason:  ReasonAvailable,
		applies: func(v Volunteer, _ Need) bool { return v.Availability > 0 },
	},
}

// ScoreSponsorNeed scores a sponsor against a need.
func ScoreSponsorNeed(sponsor Sponsor, need Need) (float64, []string) {
	return evaluate(sponsorRules, sponsor, need)
}

// ScoreVolunteerNeed scores a volunteer against a need.
func ScoreVolunteerNeed(volunteer Volunteer, need Need) (float64, []string) {
	return evaluate(volunteerRules, volunteer, need)
}

// evaluate runs rules in order and finishes with the unconditional urgency
// contribution.
func evaluate[C any](rules []rule[C], candidate C, need Need) (float64, []string) {
	var score float64
	reasons := make([]string, 0, len(rules)+1)

	for _, r := range rules {
		if r.applies(candidate, need) {
			score += r.points
			reasons = append(reasons, r.reason)
		}
	}

	score += need.Urgency
	reasons = append(reasons, UrgencyReason(need.Urgency))

	return score, reasons
}

// UrgencyReason formats the urgency reason using the shortest decimal form
// of the level ("Urgency level 2", "Urgency level 1.5").
func UrgencyReason(urgency float64) string {
	return urgencyReasonPrefix + strconv.FormatFloat(urgency, 'f', -1, 64)
}
