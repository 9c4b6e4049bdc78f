// Package records turns loosely typed input (decoded JSON or YAML) into the
// typed structures the matcher works with. Nothing reaches the matcher
// without passing through here.
package records

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/spigell/karune-engine/internal/matching"
)

const (
	RecordNeed      = "need"
	RecordSponsor   = "sponsor"
	RecordVolunteer = "volunteer"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(tagName)
}

// DecodeNeed decodes and checks a need record.
func DecodeNeed(raw map[string]any) (matching.Need, error) {
	return decode[matching.Need](RecordNeed, -1, raw)
}

// DecodeSponsors decodes every sponsor record, stopping at the first invalid one.
func DecodeSponsors(raw []map[string]any) ([]matching.Sponsor, error) {
	sponsors, err := decodeAll[matching.Sponsor](RecordSponsor, raw)
	if err != nil {
		return nil, err
	}
	for i := range sponsors {
		sponsors[i].NumericID = numericID(raw[i]["id"])
	}

	if err := uniqueIDs(RecordSponsor, sponsors, func(s matching.Sponsor) matching.ID { return s.ID }); err != nil {
		return nil, err
	}

	return sponsors, nil
}

// DecodeVolunteers decodes every volunteer record, stopping at the first invalid one.
func DecodeVolunteers(raw []map[string]any) ([]matching.Volunteer, error) {
	volunteers, err := decodeAll[matching.Volunteer](RecordVolunteer, raw)
	if err != nil {
		return nil, err
	}
	for i := range volunteers {
		volunteers[i].NumericID = numericID(raw[i]["id"])
	}

	if err := uniqueIDs(RecordVolunteer, volunteers, func(v matching.Volunteer) matching.ID { return v.ID }); err != nil {
		return nil, err
	}

	return volunteers, nil
}

func decodeAll[T any](record string, raw []map[string]any) ([]T, error) {
	out := make([]T, 0, len(raw))
	for i, item := range raw {
		v, err := decode[T](record, i, item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decode[T any](record string, index int, raw map[string]any) (T, error) {
	var out T

	if raw == nil {
		return out, &ValidationError{
			Record: record,
			Index:  index,
			Fields: []FieldError{{Message: "record is missing"}},
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: idHook,
		MatchName:  func(mapKey, fieldName string) bool { return mapKey == fieldName },
		Result:     &out,
	})
	if err != nil {
		return out, fmt.Errorf("building %s decoder: %w", record, err)
	}

	verr := &ValidationError{Record: record, Index: index}
	fields := recordKeys(reflect.TypeOf(out))

	// mapstructure treats an explicit null as set; reject it here instead.
	// Keys that name no field are ignored, null or not.
	for _, name := range fields {
		if v, ok := raw[name]; ok && v == nil {
			verr.Fields = append(verr.Fields, FieldError{Field: name, Message: "must not be null"})
		}
	}

	if err := decoder.Decode(raw); err != nil {
		verr.Fields = append(verr.Fields, decodeFieldErrors(err)...)
	}

	// Checked against the map itself, since mapstructure stops reporting
	// unset fields once decoding fails.
	for _, name := range fields {
		if _, ok := raw[name]; !ok {
			verr.Fields = append(verr.Fields, FieldError{Field: name, Message: "required field missing"})
		}
	}

	// Constraint checks only make sense once the shape is right.
	if len(verr.Fields) == 0 {
		if err := validate.Struct(out); err != nil {
			verr.Fields = append(verr.Fields, constraintFieldErrors(err)...)
		}
	}

	if len(verr.Fields) > 0 {
		return out, verr
	}

	return out, nil
}

// recordKeys returns the sorted mapstructure keys of a record struct.
func recordKeys(t reflect.Type) []string {
	names := make([]string, 0, t.NumField())
	for i := range t.NumField() {
		if name := tagName(t.Field(i)); name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func tagName(f reflect.StructField) string {
	if !f.IsExported() {
		return ""
	}

	name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	default:
		return name
	}
}

var idType = reflect.TypeOf(matching.ID(""))

// idHook lets ids arrive as strings or whole numbers. Every other field is
// decoded strictly.
func idHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != idType {
		return data, nil
	}

	switch v := data.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("id must be a string or a whole number, got %v", v)
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return nil, fmt.Errorf("id must be a string or a whole number, got %T", data)
	}
}

// numericID reports whether an id arrived as a number rather than a string.
func numericID(v any) bool {
	switch v.(type) {
	case int, int64, uint64, float64:
		return true
	default:
		return false
	}
}

func uniqueIDs[T any](record string, items []T, id func(T) matching.ID) error {
	seen := make(map[matching.ID]int, len(items))
	for i, item := range items {
		key := id(item)
		if first, ok := seen[key]; ok {
			return &ValidationError{
				Record: record,
				Index:  i,
				Fields: []FieldError{{
					Field:   "id",
					Message: fmt.Sprintf("duplicate id %q, first seen at index %d", key, first),
				}},
			}
		}
		seen[key] = i
	}
	return nil
}
