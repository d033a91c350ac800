// Package engine orchestrates a full company analysis: one fresh profile
// read followed by a concurrent fan-out over all dimension analyzers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/registrylens/registry-risk/internal/analyzers"
	"github.com/registrylens/registry-risk/internal/metrics"
	"github.com/registrylens/registry-risk/internal/models"
	"github.com/registrylens/registry-risk/internal/registry"
	"github.com/registrylens/registry-risk/internal/usage"
)

// ErrCompanyNotFound signals that the registry has no record of the company.
var ErrCompanyNotFound = errors.New("engine: company not found")

// Engine runs all dimension analyzers for a company. One analyzer failing
// or panicking never takes down the others; its slot degrades to an
// investigate placeholder.
type Engine struct {
	client    analyzers.Client
	analyzers []analyzers.Analyzer
	tracker   usage.Tracker
	logger    *slog.Logger
	now       func() time.Time
}

// New builds an engine over the registry client with the full analyzer set.
func New(client analyzers.Client, tracker usage.Tracker, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if tracker == nil {
		tracker = usage.NewMemoryTracker()
	}
	return &Engine{
		client:    client,
		analyzers: analyzers.All(client),
		tracker:   tracker,
		logger:    logger,
		now:       time.Now,
	}
}

// profilePayload is the profile stream message body: the report profile
// plus usage counters for the requesting client.
type profilePayload struct {
	models.CompanyProfile
	Usage usage.Stats `json:"usage"`
}

// Analyze runs every analyzer and returns the assembled report.
func (e *Engine) Analyze(ctx context.Context, companyNumber string) (*models.CompanyReport, error) {
	start := e.now()

	regProfile, err := e.client.Company(ctx, companyNumber)
	if err != nil {
		metrics.ObserveAnalysis(e.now().Sub(start), metrics.OutcomeError)
		return nil, fmt.Errorf("fetch company profile: %w", err)
	}
	if regProfile == nil {
		metrics.ObserveAnalysis(e.now().Sub(start), metrics.OutcomeError)
		return nil, ErrCompanyNotFound
	}

	if _, err := e.tracker.Record(ctx, companyNumber); err != nil {
		e.logger.Warn("usage tracking failed", slog.Any("error", err))
	}

	dimensions := make(map[string]models.DimensionResult, len(e.analyzers))
	for result := range e.fanOut(ctx, companyNumber) {
		dimensions[result.Dimension] = result
		metrics.ObserveDimensionRating(result.Dimension, string(result.Rating))
	}

	elapsed := e.now().Sub(start)
	e.logger.Info("analysis complete",
		slog.String("company_number", companyNumber),
		slog.Duration("elapsed", elapsed))
	metrics.ObserveAnalysis(elapsed, metrics.OutcomeSuccess)

	return &models.CompanyReport{
		Profile:    reportProfile(companyNumber, regProfile),
		Dimensions: dimensions,
		Metadata: models.ReportMetadata{
			ReportID:       uuid.NewString(),
			AnalyzedAt:     start.UTC(),
			ElapsedSeconds: math.Round(elapsed.Seconds()*10) / 10,
		},
	}, nil
}

// AnalyzeStream runs the same analysis but emits results incrementally:
// the profile message first, one dimension message per analyzer in
// completion order, then the complete sentinel. The channel closes after
// the sentinel, or after an error message when the company is unknown.
func (e *Engine) AnalyzeStream(ctx context.Context, companyNumber string) <-chan models.StreamMessage {
	out := make(chan models.StreamMessage)

	go func() {
		defer close(out)
		start := e.now()

		regProfile, err := e.client.Company(ctx, companyNumber)
		if err != nil || regProfile == nil {
			message := "Company not found"
			if err != nil {
				message = "Registry unavailable, try again later"
				e.logger.Error("profile fetch failed", slog.Any("error", err))
			}
			metrics.ObserveAnalysis(e.now().Sub(start), metrics.OutcomeError)
			send(ctx, out, models.StreamMessage{Type: models.StreamTypeError, Message: message})
			return
		}

		stats, err := e.tracker.Record(ctx, companyNumber)
		if err != nil {
			e.logger.Warn("usage tracking failed", slog.Any("error", err))
		}

		if !send(ctx, out, models.StreamMessage{
			Type: models.StreamTypeProfile,
			Data: profilePayload{
				CompanyProfile: reportProfile(companyNumber, regProfile),
				Usage:          stats,
			},
		}) {
			return
		}

		for result := range e.fanOut(ctx, companyNumber) {
			metrics.ObserveDimensionRating(result.Dimension, string(result.Rating))
			if !send(ctx, out, models.StreamMessage{Type: models.StreamTypeDimension, Data: result}) {
				return
			}
		}

		metrics.ObserveAnalysis(e.now().Sub(start), metrics.OutcomeSuccess)
		send(ctx, out, models.StreamMessage{Type: models.StreamTypeComplete})
	}()

	return out
}

// fanOut runs every analyzer in its own goroutine and yields results in
// completion order.
func (e *Engine) fanOut(ctx context.Context, companyNumber string) <-chan models.DimensionResult {
	results := make(chan models.DimensionResult, len(e.analyzers))
	var wg sync.WaitGroup
	for _, analyzer := range e.analyzers {
		wg.Add(1)
		go func(a analyzers.Analyzer) {
			defer wg.Done()
			results <- e.runAnalyzer(ctx, a, companyNumber)
		}(analyzer)
	}
	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

// runAnalyzer isolates a single analyzer: a panic degrades to an
// investigate placeholder instead of failing the whole analysis.
func (e *Engine) runAnalyzer(ctx context.Context, a analyzers.Analyzer, companyNumber string) (result models.DimensionResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("analyzer failed",
				slog.String("dimension", a.Dimension()),
				slog.Any("panic", r))
			result = failedDimension(a.Dimension(), fmt.Sprint(r))
		}
	}()
	return a.Analyze(ctx, companyNumber)
}

func failedDimension(dimension, errMessage string) models.DimensionResult {
	return models.DimensionResult{
		Dimension: dimension,
		Title:     titleFor(dimension),
		Rating:    models.RatingInvestigate,
		Summary:   "Analysis failed - unable to complete this dimension",
		Evidence:  []models.Evidence{},
		Error:     errMessage,
	}
}

func titleFor(dimension string) string {
	words := strings.Split(dimension, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func reportProfile(companyNumber string, p *registry.CompanyProfile) models.CompanyProfile {
	name := p.CompanyName
	if name == "" {
		name = "Unknown"
	}
	return models.CompanyProfile{
		CompanyNumber:    companyNumber,
		CompanyName:      name,
		CompanyStatus:    p.CompanyStatus,
		Type:             p.Type,
		DateOfCreation:   p.DateOfCreation,
		RegisteredOffice: p.RegisteredOffice,
		SICCodes:         p.SICCodes,
	}
}

func send(ctx context.Context, out chan<- models.StreamMessage, msg models.StreamMessage) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- msg:
		return true
	}
}
