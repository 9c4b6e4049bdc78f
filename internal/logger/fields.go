package logger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/karune-engine/internal/matching"
)

const (
	// FieldNeedLocation is the structured log field key for the need's location.
	FieldNeedLocation = "need_location"
	// FieldNeedCategory is the structured log field key for the need's category.
	FieldNeedCategory = "need_category"
	FieldNeedQuantity = "need_quantity"
	FieldNeedUrgency  = "need_urgency"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// If the logger is nil or no fields are supplied, the input logger is returned
// unchanged, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// NeedFields describes a need for log entries.
func NeedFields(need matching.Need) []zap.Field {
	fields := StringFields(
		StringField{Key: FieldNeedLocation, Value: need.Location},
		StringField{Key: FieldNeedCategory, Value: need.Category},
	)

	return append(fields,
		zap.Float64(FieldNeedQuantity, need.Quantity),
		zap.Float64(FieldNeedUrgency, need.Urgency),
	)
}

// WithNeed attaches the need fields to the provided logger.
func WithNeed(logger *zap.Logger, need matching.Need) *zap.Logger {
	return WithFields(logger, NeedFields(need)...)
}

// ResultFields summarises a ranked result list: its size and the top entry.
func ResultFields(kind matching.Kind, results []matching.MatchResult) []zap.Field {
	fields := []zap.Field{
		zap.String("candidate_kind", string(kind)),
		zap.Int("count", len(results)),
	}

	if len(results) > 0 {
		fields = append(fields,
			zap.String("top_candidate", string(results[0].CandidateID)),
			zap.Float64("top_score", results[0].Score),
		)
	}

	return fields
}
