package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/karune-engine/internal/filtering"
	"github.com/spigell/karune-engine/internal/logger"
	"github.com/spigell/karune-engine/internal/matching"
	"github.com/spigell/karune-engine/internal/records"
)

const statusRunning = "AI Engine Running"

// matchRequest mirrors records.Raw but tells a missing list apart from an empty one.
type matchRequest struct {
	Need       map[string]any    `json:"need"`
	Sponsors   *[]map[string]any `json:"sponsors"`
	Volunteers *[]map[string]any `json:"volunteers"`
}

// recommendationsResponse echoes the need exactly as the caller sent it.
type recommendationsResponse struct {
	Need       map[string]any         `json:"need"`
	Sponsors   []matching.MatchResult `json:"sponsor_recommendations"`
	Volunteers []matching.MatchResult `json:"volunteer_recommendations"`
}

type errorResponse struct {
	Error  string               `json:"error"`
	Record string               `json:"record,omitempty"`
	Index  *int                 `json:"index,omitempty"`
	Fields []records.FieldError `json:"fields,omitempty"`
}

var (
	errMissingField = errors.New("field is required")
	errTrailingData = errors.New("unexpected data after the request object")
)

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": statusRunning})
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { s.metrics.duration.Observe(time.Since(start).Seconds()) }()

	req, err := decodeMatchRequest(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		s.metrics.requests.WithLabelValues(outcomeInvalid).Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("malformed request body: %v", err)})
		return
	}

	raw, err := req.raw()
	if err != nil {
		s.metrics.requests.WithLabelValues(outcomeInvalid).Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	batch, err := raw.Decode()
	if err != nil {
		s.metrics.requests.WithLabelValues(outcomeInvalid).Inc()
		writeJSON(w, http.StatusBadRequest, validationResponse(err))
		return
	}

	log := logger.WithNeed(s.logger, batch.Need)

	recs := batch.Recommend()
	s.metrics.scored(matching.KindSponsor, len(batch.Sponsors))
	s.metrics.scored(matching.KindVolunteer, len(batch.Volunteers))

	filtersCfg := s.cfg.Filters
	recs, err = filtering.Run(r.Context(), &filtersCfg, filtering.Deps{Logger: log}, filtering.Default(), recs)
	if err != nil {
		s.metrics.requests.WithLabelValues(outcomeError).Inc()
		log.Error("filtering recommendations", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "filtering recommendations failed"})
		return
	}

	log.Debug("matched sponsors", logger.ResultFields(matching.KindSponsor, recs.Sponsors)...)
	log.Debug("matched volunteers", logger.ResultFields(matching.KindVolunteer, recs.Volunteers)...)

	s.metrics.requests.WithLabelValues(outcomeOK).Inc()
	writeJSON(w, http.StatusOK, recommendationsResponse{
		Need:       req.Need,
		Sponsors:   recs.Sponsors,
		Volunteers: recs.Volunteers,
	})
}

// decodeMatchRequest reads exactly one JSON object from body.
func decodeMatchRequest(body io.Reader) (matchRequest, error) {
	var req matchRequest

	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		return req, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return req, errTrailingData
	}

	return req, nil
}

func (m matchRequest) raw() (records.Raw, error) {
	if m.Need == nil {
		return records.Raw{}, fmt.Errorf("need: %w", errMissingField)
	}
	if m.Sponsors == nil {
		return records.Raw{}, fmt.Errorf("sponsors: %w", errMissingField)
	}
	if m.Volunteers == nil {
		return records.Raw{}, fmt.Errorf("volunteers: %w", errMissingField)
	}

	return records.Raw{
		Need:       m.Need,
		Sponsors:   *m.Sponsors,
		Volunteers: *m.Volunteers,
	}, nil
}

func validationResponse(err error) errorResponse {
	verr, ok := records.AsValidationError(err)
	if !ok {
		return errorResponse{Error: err.Error()}
	}

	resp := errorResponse{
		Error:  verr.Error(),
		Record: verr.Record,
		Fields: verr.Fields,
	}
	if verr.Index >= 0 {
		idx := verr.Index
		resp.Index = &idx
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
