package filtering

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/karune-engine/internal/matching"
)

type minScoreFilter struct {
	minimum float64
}

// NewMinScore creates a filter that drops results scoring under filters.minimum-score.
func NewMinScore() Filter {
	return &minScoreFilter{}
}

func (f *minScoreFilter) Name() string { return "min_score" }

func (f *minScoreFilter) Disable(string) {}

func (f *minScoreFilter) IsEnabled() bool { return true }

func (f *minScoreFilter) Validate(cfg *Config) error {
	f.minimum = 0
	if cfg == nil {
		return nil
	}
	if math.IsNaN(cfg.MinimumScore) || cfg.MinimumScore < 0 {
		return fmt.Errorf("minimum score must be a non-negative number, got %v", cfg.MinimumScore)
	}
	f.minimum = cfg.MinimumScore
	return nil
}

func (f *minScoreFilter) Apply(_ context.Context, deps Deps, r *matching.Recommendations) (*matching.Recommendations, Step, error) {
	initial := r.Len()
	if f.minimum == 0 {
		return r, Step{Initial: initial, Dropped: 0, Left: r.Len()}, nil
	}

	removed := r.DropBelow(f.minimum)
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("dropping recommendations under minimum score",
			zap.Float64("minimum_score", f.minimum),
			zap.Strings("dropped_candidates", idStrings(removed)),
			zap.Int("recommendations_left", r.Len()),
		)
	}

	return r, Step{Initial: initial, Dropped: len(removed), Left: r.Len()}, nil
}

func (f *minScoreFilter) Status() Status {
	details := map[string]string{}
	if f.minimum > 0 {
		details["minimum_score"] = strconv.FormatFloat(f.minimum, 'f', -1, 64)
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

func idStrings(ids []matching.ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
