// Package dataset loads needs and candidates from files for batch and demo
// runs of the matcher.
package dataset

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spigell/karune-engine/internal/records"
)

//go:embed sample.yaml
var sample []byte

// Dataset is a set of needs plus the candidates to rank against each of them.
// JSON documents are accepted as well since they are valid YAML.
type Dataset struct {
	Needs      []map[string]any `yaml:"needs"`
	Sponsors   []map[string]any `yaml:"sponsors"`
	Volunteers []map[string]any `yaml:"volunteers"`
}

// Load reads a dataset file.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}

	ds, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing dataset %q: %w", path, err)
	}

	return ds, nil
}

// Sample returns the built-in demo dataset.
func Sample() *Dataset {
	ds, err := parse(sample)
	if err != nil {
		panic(fmt.Sprintf("embedded sample dataset is invalid: %v", err))
	}
	return ds
}

func parse(data []byte) (*Dataset, error) {
	var ds Dataset

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		return nil, err
	}

	return &ds, nil
}

// Request selects one need and pairs it with every candidate.
func (d *Dataset) Request(needIndex int) (records.Raw, error) {
	if needIndex < 0 || needIndex >= len(d.Needs) {
		return records.Raw{}, fmt.Errorf("need index %d out of range: dataset has %d needs", needIndex, len(d.Needs))
	}

	return records.Raw{
		Need:       d.Needs[needIndex],
		Sponsors:   d.Sponsors,
		Volunteers: d.Volunteers,
	}, nil
}

// Resolve decodes the selected need and all candidates.
func (d *Dataset) Resolve(needIndex int) (*records.Batch, error) {
	raw, err := d.Request(needIndex)
	if err != nil {
		return nil, err
	}

	return raw.Decode()
}
