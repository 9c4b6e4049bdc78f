package matching

import (
	"encoding/json"
	"slices"
	"testing"
)

func ids(results []MatchResult) []ID {
	out := make([]ID, 0, len(results))
	for _, r := range results {
		out = append(out, r.CandidateID)
	}
	return out
}

func TestMatchSponsorsToNeedOrdersByScore(t *testing.T) {
	t.Parallel()

	need := Need{Location: "X", Category: "food", Quantity: 5, Urgency: 2}
	sponsors := []Sponsor{
		{ID: "low", Location: "Y", Capacity: 0},
		{ID: "best", Location: "X", PreferredCategories: []string{"food"}, Capacity: 10},
		{ID: "mid", Location: "X", Capacity: 0},
	}

	results := MatchSponsorsToNeed(need, sponsors)

	if got, want := ids(results), []ID{"best", "mid", "low"}; !slices.Equal(got, want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
	for i := 0; i+1 < len(results); i++ {
		if results[i].Score < results[i+1].Score {
			t.Fatalf("results not sorted at %d: %v < %v", i, results[i].Score, results[i+1].Score)
		}
	}
	if results[0].Kind != KindSponsor {
		t.Fatalf("expected sponsor kind, got %q", results[0].Kind)
	}
	if results[0].Score != 11 {
		t.Fatalf("expected best score 11, got %v", results[0].Score)
	}
}

func TestMatchKeepsInputOrderForTies(t *testing.T) {
	t.Parallel()

	need := Need{Location: "X", Category: "food", Urgency: 1}
	volunteers := []Volunteer{
		{ID: "c", Location: "Y", Availability: 1},
		{ID: "a", Location: "Y", Availability: 1},
		{ID: "top", Location: "X", Availability: 1},
		{ID: "b", Location: "Y", Availability: 1},
	}

	results := MatchVolunteersToNeed(need, volunteers)

	if got, want := ids(results), []ID{"top", "c", "a", "b"}; !slices.Equal(got, want) {
		t.Fatalf("expected stable order %v, got %v", want, got)
	}
}

func TestMatchIsDeterministic(t *testing.T) {
	t.Parallel()

	need := Need{Location: "X", Category: "food", Quantity: 3, Urgency: 2}
	sponsors := []Sponsor{
		{ID: "1", Location: "X", Capacity: 1},
		{ID: "2", Location: "Y", PreferredCategories: []string{"food"}, Capacity: 3},
		{ID: "3", Location: "X", Capacity: 1},
		{ID: "4", Location: "Y", Capacity: 3},
	}

	first := MatchSponsorsToNeed(need, sponsors)
	for i := 0; i < 10; i++ {
		again := MatchSponsorsToNeed(need, sponsors)
		if !slices.Equal(ids(first), ids(again)) {
			t.Fatalf("run %d: order changed from %v to %v", i, ids(first), ids(again))
		}
	}

	if sponsors[0].ID != "1" || sponsors[3].ID != "4" {
		t.Fatalf("input slice must not be reordered")
	}
}

func TestMatchEmptyCandidates(t *testing.T) {
	t.Parallel()

	need := Need{Location: "X", Category: "food", Urgency: 1}

	sponsors := MatchSponsorsToNeed(need, nil)
	if sponsors == nil || len(sponsors) != 0 {
		t.Fatalf("expected empty non-nil sponsors result, got %#v", sponsors)
	}

	volunteers := MatchVolunteersToNeed(need, []Volunteer{})
	if volunteers == nil || len(volunteers) != 0 {
		t.Fatalf("expected empty non-nil volunteers result, got %#v", volunteers)
	}
}

// The need always comes first. Callers used to disagree on the argument
// order; this pins the signature so a swap fails to compile.
func TestMatchArgumentOrderNeedFirst(t *testing.T) {
	t.Parallel()

	var sponsorMatcher func(Need, []Sponsor) []MatchResult = MatchSponsorsToNeed
	var volunteerMatcher func(Need, []Volunteer) []MatchResult = MatchVolunteersToNeed

	need := Need{Location: "X", Category: "food", Quantity: 5, Urgency: 2}
	s := sponsorMatcher(need, []Sponsor{{ID: "1", Location: "X", PreferredCategories: []string{"food"}, Capacity: 10}})
	v := volunteerMatcher(need, []Volunteer{{ID: "7", Location: "Y"}})

	if len(s) != 1 || s[0].CandidateID != "1" || s[0].Score != 11 {
		t.Fatalf("unexpected sponsor result: %+v", s)
	}
	if len(v) != 1 || v[0].CandidateID != "7" || v[0].Score != 2 {
		t.Fatalf("unexpected volunteer result: %+v", v)
	}
}

func TestMatchResultJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(MatchResult{
		Kind:        KindVolunteer,
		CandidateID: "7",
		Score:       1,
		Reasons:     []string{"Urgency level 1"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded["volunteer_id"] != "7" {
		t.Fatalf("expected volunteer_id 7, got %v", decoded["volunteer_id"])
	}
	if decoded["score"] != float64(1) {
		t.Fatalf("expected score 1, got %v", decoded["score"])
	}
	if _, ok := decoded["sponsor_id"]; ok {
		t.Fatalf("did not expect sponsor_id in volunteer result")
	}

	empty, err := json.Marshal(MatchResult{Kind: KindSponsor, CandidateID: "1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := json.Unmarshal(empty, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reasons, ok := decoded["reasons"].([]any); !ok || len(reasons) != 0 {
		t.Fatalf("expected empty reasons array, got %v", decoded["reasons"])
	}
}

func TestExplainMatch(t *testing.T) {
	t.Parallel()

	got := ExplainMatch(MatchResult{
		Kind:        KindSponsor,
		CandidateID: "1",
		Score:       11,
		Reasons:     []string{"Same location", "Category match", "Sufficient capacity", "Urgency level 2"},
	})
	want := "sponsor 1 scored 11: Same location, Category match, Sufficient capacity, Urgency level 2"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	if got := ExplainMatch(MatchResult{CandidateID: "x", Score: 1.5, Reasons: []string{"Urgency level 1.5"}}); got != "candidate x scored 1.5: Urgency level 1.5" {
		t.Fatalf("unexpected explanation without kind: %q", got)
	}
}

func TestMatchResultJSONKeepsNumericID(t *testing.T) {
	t.Parallel()

	results := MatchSponsorsToNeed(
		Need{Location: "X", Category: "food", Quantity: 1, Urgency: 1},
		[]Sponsor{
			{ID: "1", NumericID: true, Location: "X"},
			{ID: "s-2", Location: "Y"},
		},
	)

	data, err := json.Marshal(results)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded[0]["sponsor_id"] != float64(1) {
		t.Fatalf("expected numeric sponsor_id 1, got %#v", decoded[0]["sponsor_id"])
	}
	if decoded[1]["sponsor_id"] != "s-2" {
		t.Fatalf("expected string sponsor_id s-2, got %#v", decoded[1]["sponsor_id"])
	}
}
