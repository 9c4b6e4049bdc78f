package matching

import (
	"encoding/json"
	"slices"
)

// Kind names the type of candidate a result was produced for.
type Kind string

const (
	KindSponsor   Kind = "sponsor"
	KindVolunteer Kind = "volunteer"
)

// ID identifies a candidate. Source records may carry numeric or string ids,
// both are kept in their textual form.
type ID string

// Need is a request for aid. It is read-only for the duration of a match.
type Need struct {
	Location string  `json:"location" yaml:"location" mapstructure:"location" validate:"required"`
	Category string  `json:"category" yaml:"category" mapstructure:"category" validate:"required"`
	Quantity float64 `json:"quantity" yaml:"quantity" mapstructure:"quantity" validate:"gte=0"`
	// Urgency is added to every candidate's score; higher means more urgent.
	Urgency float64 `json:"urgency" yaml:"urgency" mapstructure:"urgency" validate:"gte=0"`
}

type Sponsor struct {
	ID                  ID       `json:"id" yaml:"id" mapstructure:"id" validate:"required"`
	Location            string   `json:"location" yaml:"location" mapstructure:"location" validate:"required"`
	PreferredCategories []string `json:"preferred_categories" yaml:"preferred_categories" mapstructure:"preferred_categories"`
	Capacity            float64  `json:"capacity" yaml:"capacity" mapstructure:"capacity" validate:"gte=0"`
	// NumericID is set when the id was given as a number.
	NumericID bool `json:"-" yaml:"-" mapstructure:"-"`
}

// Prefers reports whether category is one of the sponsor's preferred categories.
func (s Sponsor) Prefers(category string) bool {
	return slices.Contains(s.PreferredCategories, category)
}

type Volunteer struct {
	ID       ID     `json:"id" yaml:"id" mapstructure:"id" validate:"required"`
	Location string `json:"location" yaml:"location" mapstructure:"location" validate:"required"`
	// Availability above zero means the volunteer can take the need.
	Availability float64 `json:"availability" yaml:"availability" mapstructure:"availability"`
	NumericID    bool    `json:"-" yaml:"-" mapstructure:"-"`
}

// MatchResult is the outcome of scoring one candidate against a need.
// Reasons lists the fired rules in evaluation order, urgency always last.
type MatchResult struct {
	Kind        Kind
	CandidateID ID
	// NumericID renders the id as a JSON number, the way it was received.
	NumericID bool
	Score     float64
	Reasons   []string
}

// MarshalJSON renders the result with a kind-specific id key,
// e.g. {"sponsor_id": 1, "score": 11, "reasons": [...]}.
func (r MatchResult) MarshalJSON() ([]byte, error) {
	reasons := r.Reasons
	if reasons == nil {
		reasons = []string{}
	}

	var id any = r.CandidateID
	if r.NumericID {
		id = json.Number(r.CandidateID)
	}

	return json.Marshal(map[string]any{
		string(r.Kind) + "_id": id,
		"score":                r.Score,
		"reasons":              reasons,
	})
}
