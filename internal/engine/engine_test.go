package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/registrylens/registry-risk/internal/models"
	"github.com/registrylens/registry-risk/internal/registry"
	"github.com/registrylens/registry-risk/internal/usage"
)

// profileOnlyClient serves the engine's profile read; the fake analyzers in
// these tests never touch the registry.
type profileOnlyClient struct {
	profile *registry.CompanyProfile
	err     error
}

func (c *profileOnlyClient) Company(context.Context, string) (*registry.CompanyProfile, error) {
	return c.profile, c.err
}
func (c *profileOnlyClient) Officers(context.Context, string) (*registry.OfficerList, error) {
	return nil, nil
}
func (c *profileOnlyClient) Appointments(context.Context, string) (*registry.AppointmentList, error) {
	return nil, nil
}
func (c *profileOnlyClient) Disqualifications(context.Context, string) (*registry.DisqualificationRecord, error) {
	return nil, nil
}
func (c *profileOnlyClient) Insolvency(context.Context, string) (*registry.InsolvencyRecord, error) {
	return nil, nil
}
func (c *profileOnlyClient) PSCs(context.Context, string) (*registry.PSCList, error) {
	return nil, nil
}
func (c *profileOnlyClient) PSCStatements(context.Context, string) (*registry.PSCStatementList, error) {
	return nil, nil
}
func (c *profileOnlyClient) FilingHistory(context.Context, string, string) (*registry.FilingHistory, error) {
	return nil, nil
}
func (c *profileOnlyClient) Charges(context.Context, string) (*registry.ChargeList, error) {
	return nil, nil
}
func (c *profileOnlyClient) RegisteredOffice(context.Context, string) (map[string]any, error) {
	return nil, nil
}

type fakeAnalyzer struct {
	dimension string
	run       func() models.DimensionResult
}

func (f *fakeAnalyzer) Dimension() string { return f.dimension }
func (f *fakeAnalyzer) Analyze(context.Context, string) models.DimensionResult {
	return f.run()
}

func newTestEngine(client *profileOnlyClient, units ...*fakeAnalyzer) *Engine {
	e := New(client, usage.NewMemoryTracker(), slog.New(slog.NewTextHandler(discardWriter{}, nil)))
	e.analyzers = e.analyzers[:0]
	for _, u := range units {
		e.analyzers = append(e.analyzers, u)
	}
	return e
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func cleanResult(dimension string) models.DimensionResult {
	return models.DimensionResult{
		Dimension: dimension,
		Rating:    models.RatingClean,
		Summary:   "ok",
		Evidence:  []models.Evidence{},
	}
}

func TestAnalyzeUnknownCompany(t *testing.T) {
	e := newTestEngine(&profileOnlyClient{profile: nil})

	_, err := e.Analyze(context.Background(), "99999999")
	if !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
}

func TestAnalyzePropagatesUpstreamFailure(t *testing.T) {
	e := newTestEngine(&profileOnlyClient{err: errors.New("upstream down")})

	_, err := e.Analyze(context.Background(), "01234567")
	if err == nil || errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestAnalyzeIsolatesPanickingAnalyzer(t *testing.T) {
	client := &profileOnlyClient{profile: &registry.CompanyProfile{CompanyName: "ACME LTD"}}
	e := newTestEngine(client,
		&fakeAnalyzer{dimension: "filing_discipline", run: func() models.DimensionResult {
			return cleanResult("filing_discipline")
		}},
		&fakeAnalyzer{dimension: "director_track_record", run: func() models.DimensionResult {
			panic("nil map write")
		}},
	)

	report, err := e.Analyze(context.Background(), "01234567")
	if err != nil {
		t.Fatalf("one failing analyzer must not fail the report: %v", err)
	}
	if len(report.Dimensions) != 2 {
		t.Fatalf("expected both dimensions present, got %d", len(report.Dimensions))
	}

	failed := report.Dimensions["director_track_record"]
	if failed.Rating != models.RatingInvestigate {
		t.Fatalf("failed analyzer should degrade to investigate: %+v", failed)
	}
	if failed.Error == "" || failed.Title != "Director Track Record" {
		t.Fatalf("placeholder missing error or title: %+v", failed)
	}

	if report.Dimensions["filing_discipline"].Rating != models.RatingClean {
		t.Fatalf("healthy analyzer result lost: %+v", report.Dimensions["filing_discipline"])
	}
	if report.Metadata.ReportID == "" {
		t.Fatal("report ID not assigned")
	}
}

func TestAnalyzeStreamOrdering(t *testing.T) {
	client := &profileOnlyClient{profile: &registry.CompanyProfile{CompanyName: "ACME LTD"}}
	slow := &fakeAnalyzer{dimension: "slow_dimension", run: func() models.DimensionResult {
		time.Sleep(20 * time.Millisecond)
		return cleanResult("slow_dimension")
	}}
	fast := &fakeAnalyzer{dimension: "fast_dimension", run: func() models.DimensionResult {
		return cleanResult("fast_dimension")
	}}
	e := newTestEngine(client, slow, fast)

	var messages []models.StreamMessage
	for msg := range e.AnalyzeStream(context.Background(), "01234567") {
		messages = append(messages, msg)
	}

	if len(messages) != 4 {
		t.Fatalf("expected profile + 2 dimensions + complete, got %d messages", len(messages))
	}
	if messages[0].Type != models.StreamTypeProfile {
		t.Fatalf("first message must be the profile, got %s", messages[0].Type)
	}
	if messages[len(messages)-1].Type != models.StreamTypeComplete {
		t.Fatalf("last message must be the complete sentinel, got %s", messages[len(messages)-1].Type)
	}

	// Dimensions arrive in completion order, not registration order.
	first := messages[1].Data.(models.DimensionResult)
	if first.Dimension != "fast_dimension" {
		t.Fatalf("expected the fast analyzer first, got %s", first.Dimension)
	}
}

func TestAnalyzeStreamUnknownCompany(t *testing.T) {
	e := newTestEngine(&profileOnlyClient{profile: nil})

	var messages []models.StreamMessage
	for msg := range e.AnalyzeStream(context.Background(), "99999999") {
		messages = append(messages, msg)
	}

	if len(messages) != 1 || messages[0].Type != models.StreamTypeError {
		t.Fatalf("expected a single error message, got %+v", messages)
	}
	if messages[0].Message != "Company not found" {
		t.Fatalf("unexpected message: %q", messages[0].Message)
	}
}

func TestAnalyzeStreamProfileCarriesUsage(t *testing.T) {
	client := &profileOnlyClient{profile: &registry.CompanyProfile{CompanyName: "ACME LTD"}}
	e := newTestEngine(client, &fakeAnalyzer{dimension: "d", run: func() models.DimensionResult {
		return cleanResult("d")
	}})

	var profile profilePayload
	for msg := range e.AnalyzeStream(context.Background(), "01234567") {
		if msg.Type == models.StreamTypeProfile {
			profile = msg.Data.(profilePayload)
		}
	}
	if profile.Usage.CompanyRuns != 1 || profile.Usage.GlobalRuns != 1 {
		t.Fatalf("usage counters not attached: %+v", profile.Usage)
	}
}
