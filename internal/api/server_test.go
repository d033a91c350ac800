package api

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/registrylens/registry-risk/internal/engine"
	"github.com/registrylens/registry-risk/internal/models"
	"github.com/registrylens/registry-risk/internal/registry"
	"github.com/registrylens/registry-risk/internal/usage"
)

type fakeAnalyzer struct {
	report   *models.CompanyReport
	err      error
	messages []models.StreamMessage
	got      string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, companyNumber string) (*models.CompanyReport, error) {
	f.got = companyNumber
	return f.report, f.err
}

func (f *fakeAnalyzer) AnalyzeStream(_ context.Context, companyNumber string) <-chan models.StreamMessage {
	f.got = companyNumber
	out := make(chan models.StreamMessage, len(f.messages))
	for _, msg := range f.messages {
		out <- msg
	}
	close(out)
	return out
}

type fakeStatus struct {
	remaining int
	cacheSize int
}

func (f *fakeStatus) Remaining() int                { return f.remaining }
func (f *fakeStatus) CacheSize(context.Context) int { return f.cacheSize }

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestServer(analyzer *fakeAnalyzer) (*Server, *usage.MemoryTracker) {
	tracker := usage.NewMemoryTracker()
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))
	return NewServer(analyzer, &fakeStatus{remaining: 597, cacheSize: 12}, tracker, logger), tracker
}

func postAnalyze(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeRejectsInvalidNumber(t *testing.T) {
	s, _ := newTestServer(&fakeAnalyzer{})

	rec := postAnalyze(t, s, "/api/analyze", `{"company_number": "not-a-number"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAnalyzeRejectsBadBody(t *testing.T) {
	s, _ := newTestServer(&fakeAnalyzer{})

	rec := postAnalyze(t, s, "/api/analyze", `{broken`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAnalyzeUnknownCompany(t *testing.T) {
	s, _ := newTestServer(&fakeAnalyzer{err: engine.ErrCompanyNotFound})

	rec := postAnalyze(t, s, "/api/analyze", `{"company_number": "99999999"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAnalyzeUpstreamDown(t *testing.T) {
	s, _ := newTestServer(&fakeAnalyzer{err: registry.ErrUpstreamUnavailable})

	rec := postAnalyze(t, s, "/api/analyze", `{"company_number": "01234567"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestAnalyzeReturnsReport(t *testing.T) {
	analyzer := &fakeAnalyzer{report: &models.CompanyReport{
		Profile:  models.CompanyProfile{CompanyNumber: "01234567", CompanyName: "ACME LTD"},
		Metadata: models.ReportMetadata{ReportID: "r-1"},
	}}
	s, _ := newTestServer(analyzer)

	// Short input is normalised before it reaches the engine.
	rec := postAnalyze(t, s, "/api/analyze", `{"company_number": "1234567"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if analyzer.got != "01234567" {
		t.Fatalf("company number not normalised: %q", analyzer.got)
	}

	var report models.CompanyReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Metadata.ReportID != "r-1" || report.Profile.CompanyName != "ACME LTD" {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestAnalyzeStreamFramesMessages(t *testing.T) {
	analyzer := &fakeAnalyzer{messages: []models.StreamMessage{
		{Type: models.StreamTypeProfile, Data: map[string]any{"company_name": "ACME LTD"}},
		{Type: models.StreamTypeDimension, Data: map[string]any{"dimension": "filing_discipline"}},
		{Type: models.StreamTypeComplete},
	}}
	s, _ := newTestServer(analyzer)

	rec := postAnalyze(t, s, "/api/analyze/stream", `{"company_number": "01234567"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type: %s", ct)
	}
	if rec.Header().Get("X-Accel-Buffering") != "no" {
		t.Fatal("proxy buffering not disabled")
	}

	var types []string
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg models.StreamMessage
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
			t.Fatalf("decode frame %q: %v", line, err)
		}
		types = append(types, msg.Type)
	}

	want := []string{models.StreamTypeProfile, models.StreamTypeDimension, models.StreamTypeComplete}
	if len(types) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(types))
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("frame %d: got %s, want %s", i, types[i], want[i])
		}
	}
}

func TestAnalyzeStreamRejectsInvalidNumber(t *testing.T) {
	s, _ := newTestServer(&fakeAnalyzer{})

	rec := postAnalyze(t, s, "/api/analyze/stream", `{"company_number": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 before the stream opens, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(&fakeAnalyzer{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var health healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" || health.RateLimitRemaining != 597 || health.CacheSize != 12 {
		t.Fatalf("unexpected health payload: %+v", health)
	}
}

func TestUsageEndpoint(t *testing.T) {
	s, tracker := newTestServer(&fakeAnalyzer{})
	if _, err := tracker.Record(context.Background(), "01234567"); err != nil {
		t.Fatalf("seed usage: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/usage/01234567", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats usage.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.CompanyRuns != 1 || stats.GlobalRuns != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestUsageEndpointRejectsInvalidNumber(t *testing.T) {
	s, _ := newTestServer(&fakeAnalyzer{})

	req := httptest.NewRequest(http.MethodGet, "/api/usage/bogus!", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
