package records

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// FieldError describes one problem with one field of a record.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (f FieldError) String() string {
	if f.Field == "" {
		return f.Message
	}
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

// ValidationError is returned when a record does not satisfy the input
// contract. Index is -1 for single records such as the need.
type ValidationError struct {
	Record string       `json:"record"`
	Index  int          `json:"index"`
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}

	location := e.Record
	if e.Index >= 0 {
		location = fmt.Sprintf("%s[%d]", e.Record, e.Index)
	}

	return fmt.Sprintf("invalid %s: %s", location, strings.Join(parts, "; "))
}

// AsValidationError unwraps err into a *ValidationError when it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

func decodeFieldErrors(err error) []FieldError {
	var merr *mapstructure.Error
	if !errors.As(err, &merr) {
		return []FieldError{{Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(merr.Errors))
	for _, msg := range merr.Errors {
		out = append(out, FieldError{Field: quotedField(msg), Message: msg})
	}
	return out
}

// quotedField extracts the first 'name' mapstructure puts in its messages.
func quotedField(msg string) string {
	start := strings.Index(msg, "'")
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], "'")
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

func constraintFieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("failed %q constraint", fe.Tag())
		switch fe.Tag() {
		case "required":
			msg = "must not be empty"
		case "gte":
			msg = fmt.Sprintf("must be greater than or equal to %s", fe.Param())
		}
		out = append(out, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}
