package records

import "github.com/spigell/karune-engine/internal/matching"

// Raw is one matching request as it arrives from a client or a file.
type Raw struct {
	Need       map[string]any   `json:"need" yaml:"need"`
	Sponsors   []map[string]any `json:"sponsors" yaml:"sponsors"`
	Volunteers []map[string]any `json:"volunteers" yaml:"volunteers"`
}

// Batch is a fully decoded and checked matching request.
type Batch struct {
	Need       matching.Need
	Sponsors   []matching.Sponsor
	Volunteers []matching.Volunteer
}

// Decode checks every record of the request. The first invalid record aborts
// decoding.
func (r Raw) Decode() (*Batch, error) {
	need, err := DecodeNeed(r.Need)
	if err != nil {
		return nil, err
	}

	sponsors, err := DecodeSponsors(r.Sponsors)
	if err != nil {
		return nil, err
	}

	volunteers, err := DecodeVolunteers(r.Volunteers)
	if err != nil {
		return nil, err
	}

	return &Batch{Need: need, Sponsors: sponsors, Volunteers: volunteers}, nil
}

// Recommend ranks the batch's candidates against its need.
func (b *Batch) Recommend() *matching.Recommendations {
	return matching.Recommend(b.Need, b.Sponsors, b.Volunteers)
}
