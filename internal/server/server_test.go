package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/karune-engine/internal/filtering"
)

const matchBody = `{
  "need": {"location": "X", "category": "food", "quantity": 5, "urgency": 2},
  "sponsors": [
    {"id": 2, "location": "Y", "preferred_categories": [], "capacity": 1},
    {"id": 1, "location": "X", "preferred_categories": ["food"], "capacity": 10}
  ],
  "volunteers": [
    {"id": 7, "location": "Y", "availability": 0},
    {"id": 8, "location": "X", "availability": 3}
  ]
}`

type recommendation struct {
	SponsorID   json.Number `json:"sponsor_id"`
	VolunteerID json.Number `json:"volunteer_id"`
	Score       float64     `json:"score"`
	Reasons     []string    `json:"reasons"`
}

type matchResponse struct {
	Need struct {
		Location string  `json:"location"`
		Category string  `json:"category"`
		Quantity float64 `json:"quantity"`
		Urgency  float64 `json:"urgency"`
	} `json:"need"`
	Sponsors   []recommendation `json:"sponsor_recommendations"`
	Volunteers []recommendation `json:"volunteer_recommendations"`
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/match", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoot(t *testing.T) {
	s := New(Config{}, zap.NewNop())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "AI Engine Running"}`, rec.Body.String())
}

func TestMatch(t *testing.T) {
	s := New(Config{}, zap.NewNop())

	rec := post(t, s.Handler(), matchBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp matchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "X", resp.Need.Location)
	assert.Equal(t, float64(2), resp.Need.Urgency)

	require.Len(t, resp.Sponsors, 2)
	assert.Equal(t, json.Number("1"), resp.Sponsors[0].SponsorID)
	assert.Equal(t, float64(11), resp.Sponsors[0].Score)
	assert.Equal(t, []string{"Same location", "Category match", "Sufficient capacity", "Urgency level 2"}, resp.Sponsors[0].Reasons)
	assert.Equal(t, json.Number("2"), resp.Sponsors[1].SponsorID)
	assert.Equal(t, []string{"Urgency level 2"}, resp.Sponsors[1].Reasons)

	require.Len(t, resp.Volunteers, 2)
	assert.Equal(t, json.Number("8"), resp.Volunteers[0].VolunteerID)
	assert.Equal(t, float64(7), resp.Volunteers[0].Score)
	assert.Equal(t, json.Number("7"), resp.Volunteers[1].VolunteerID)
	assert.Empty(t, resp.Volunteers[1].SponsorID)
}

func TestMatchEmptyCandidates(t *testing.T) {
	s := New(Config{}, zap.NewNop())

	rec := post(t, s.Handler(), `{"need": {"location": "X", "category": "food", "quantity": 1, "urgency": 1}, "sponsors": [], "volunteers": []}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.JSONEq(t, `[]`, string(raw["sponsor_recommendations"]))
	assert.JSONEq(t, `[]`, string(raw["volunteer_recommendations"]))
}

func TestMatchRejectsInvalidInput(t *testing.T) {
	s := New(Config{}, zap.NewNop())

	tests := []struct {
		name     string
		body     string
		contains string
		record   string
	}{
		{
			name:     "malformed json",
			body:     `{"need": `,
			contains: "malformed request body",
		},
		{
			name:     "missing need",
			body:     `{"sponsors": [], "volunteers": []}`,
			contains: "need: field is required",
		},
		{
			name:     "missing volunteers",
			body:     `{"need": {"location": "X", "category": "food", "quantity": 1, "urgency": 1}, "sponsors": []}`,
			contains: "volunteers: field is required",
		},
		{
			name:     "need missing urgency",
			body:     `{"need": {"location": "X", "category": "food", "quantity": 1}, "sponsors": [], "volunteers": []}`,
			contains: "urgency: required field missing",
			record:   "need",
		},
		{
			name:     "trailing data",
			body:     `{"need": {}, "sponsors": [], "volunteers": []} trailing-garbage`,
			contains: "unexpected data after the request object",
		},
		{
			name:     "need key in upper case",
			body:     `{"need": {"LOCATION": "X", "category": "food", "quantity": 1, "urgency": 1}, "sponsors": [], "volunteers": []}`,
			contains: "location: required field missing",
			record:   "need",
		},
		{
			name:     "sponsor capacity as string",
			body:     `{"need": {"location": "X", "category": "food", "quantity": 1, "urgency": 1}, "sponsors": [{"id": 1, "location": "X", "preferred_categories": [], "capacity": "10"}], "volunteers": []}`,
			contains: "invalid sponsor[0]",
			record:   "sponsor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, s.Handler(), tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, tt.contains)
			assert.Equal(t, tt.record, resp.Record)
		})
	}
}

func TestMatchAppliesFilters(t *testing.T) {
	exclude := filepath.Join(t.TempDir(), "exclude.yaml")
	require.NoError(t, os.WriteFile(exclude, []byte("volunteers: [8]\n"), 0o600))

	s := New(Config{Filters: filtering.Config{MinimumScore: 3, ExcludeFile: exclude}}, zap.NewNop())

	rec := post(t, s.Handler(), matchBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp matchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Sponsors, 1)
	assert.Equal(t, json.Number("1"), resp.Sponsors[0].SponsorID)
	assert.Empty(t, resp.Volunteers)
}

func TestMatchFilterFailure(t *testing.T) {
	s := New(Config{Filters: filtering.Config{ExcludeFile: filepath.Join(t.TempDir(), "missing.json")}}, zap.NewNop())

	rec := post(t, s.Handler(), matchBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetrics(t *testing.T) {
	s := New(Config{}, zap.NewNop())

	post(t, s.Handler(), matchBody)
	post(t, s.Handler(), `{"need": {}}`)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, `karune_match_requests_total{outcome="ok"} 1`)
	assert.Contains(t, text, `karune_match_requests_total{outcome="invalid"} 1`)
	assert.Contains(t, text, `karune_candidates_scored_total{kind="sponsor"} 2`)
	assert.Contains(t, text, `karune_candidates_scored_total{kind="volunteer"} 2`)
	assert.Contains(t, text, "karune_match_duration_seconds_count 2")
}

func TestRequestLogging(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	s := New(Config{}, zap.New(core))

	post(t, s.Handler(), matchBody)

	entries := observed.FilterMessage("http").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "/match", ctx["path"])
	assert.Equal(t, int64(http.StatusOK), ctx["status"])
	assert.NotEmpty(t, ctx["request_id"])
	_, err := uuid.Parse(ctx["request_id"].(string))
	assert.NoError(t, err)

	debug := observed.FilterMessage("http request").All()
	require.Len(t, debug, 1)
	assert.Contains(t, debug[0].ContextMap()["body_preview"], `"need"`)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := New(Config{Listen: "127.0.0.1:0"}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	cancel()
	require.NoError(t, <-done)
}

func TestRequestIDPropagation(t *testing.T) {
	s := New(Config{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "caller-42")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "caller-42", rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(rec.Header().Get("X-Request-Id"))
	assert.NoError(t, err)
}

func TestMatchEchoesNeedAndIDs(t *testing.T) {
	s := New(Config{}, zap.NewNop())

	rec := post(t, s.Handler(), `{
  "need": {"location": "X", "category": "food", "quantity": 5, "urgency": 2, "note": null, "ref": "n-1"},
  "sponsors": [{"id": "s-1", "location": "X", "preferred_categories": ["food"], "capacity": 10}],
  "volunteers": [{"id": 8, "location": "X", "availability": 3}]
}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var raw struct {
		Need       map[string]any   `json:"need"`
		Sponsors   []map[string]any `json:"sponsor_recommendations"`
		Volunteers []map[string]any `json:"volunteer_recommendations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))

	assert.Equal(t, "n-1", raw.Need["ref"])
	assert.Contains(t, raw.Need, "note")
	assert.Equal(t, "s-1", raw.Sponsors[0]["sponsor_id"])
	assert.Equal(t, float64(8), raw.Volunteers[0]["volunteer_id"])
}

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

func TestDebugLoggingKeepsBodyLimit(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	s := New(Config{MaxBodyBytes: 1024}, zap.New(core))

	body := &countingReader{r: io.MultiReader(
		strings.NewReader(`{"need": {"location": "`),
		strings.NewReader(strings.Repeat("x", 8<<20)),
	)}
	req := httptest.NewRequest(http.MethodPost, "/match", body)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Less(t, body.n.Load(), int64(64<<10))

	debug := observed.FilterMessage("http request").All()
	require.Len(t, debug, 1)
	preview := debug[0].ContextMap()["body_preview"].(string)
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.LessOrEqual(t, len(preview), maxLoggedBody+len("..."))
}

func TestPreview(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "shorter than limit",
			input:  `{"need": {}}`,
			limit:  64,
			expect: `{"need": {}}`,
		},
		{
			name:   "cut with ellipsis",
			input:  "hello world",
			limit:  5,
			expect: "hello...",
		},
		{
			name:   "surrounding whitespace",
			input:  "  spaced  ",
			limit:  5,
			expect: "space...",
		},
		{
			name:   "split rune dropped",
			input:  "ab\u00e9cd",
			limit:  3,
			expect: "ab...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expect, preview([]byte(tt.input), tt.limit))
		})
	}
}
