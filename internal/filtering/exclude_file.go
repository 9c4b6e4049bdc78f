package filtering

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/karune-engine/internal/matching"
)

// Excluded lists candidate ids that must never be recommended.
// The file may be written as JSON or YAML.
type Excluded struct {
	Sponsors   []matching.ID `yaml:"sponsors"`
	Volunteers []matching.ID `yaml:"volunteers"`
}

// LoadExcluded reads an exclude file. An empty file excludes nothing.
func LoadExcluded(path string) (*Excluded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var excluded Excluded
	if len(strings.TrimSpace(string(data))) == 0 {
		return &excluded, nil
	}

	if err := yaml.Unmarshal(data, &excluded); err != nil {
		return nil, fmt.Errorf("parsing exclude file %q: %w", path, err)
	}

	return &excluded, nil
}

type excludeFileFilter struct {
	path string
}

// NewExcludeFile creates a filter that removes candidates listed in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, r *matching.Recommendations) (*matching.Recommendations, Step, error) {
	initial := r.Len()
	if f.path == "" {
		return r, Step{Initial: initial, Dropped: 0, Left: r.Len()}, nil
	}

	excluded, err := LoadExcluded(f.path)
	if err != nil {
		return r, Step{}, fmt.Errorf("getting excluded candidates from file: %w", err)
	}

	removed := r.Exclude(matching.KindSponsor, excluded.Sponsors)
	removed = append(removed, r.Exclude(matching.KindVolunteer, excluded.Volunteers)...)
	if deps.Logger != nil && len(removed) > 0 {
		deps.Logger.Info("excluding candidates based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_candidates", idStrings(removed)),
			zap.Int("recommendations_left", r.Len()),
		)
	}

	return r, Step{Initial: initial, Dropped: len(removed), Left: r.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
