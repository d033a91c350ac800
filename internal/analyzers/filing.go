package analyzers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/registrylens/registry-risk/internal/heuristics"
	"github.com/registrylens/registry-risk/internal/models"
)

// FilingDisciplineAnalyzer measures how seriously a company treats its
// statutory obligations: overdue accounts, late filings against computed
// deadlines, amendments, reference date changes, and last-minute habits.
type FilingDisciplineAnalyzer struct {
	client Client
	now    func() time.Time
}

func (a *FilingDisciplineAnalyzer) Dimension() string { return "filing_discipline" }

func (a *FilingDisciplineAnalyzer) Analyze(ctx context.Context, companyNumber string) models.DimensionResult {
	result := models.DimensionResult{
		Dimension: a.Dimension(),
		Title:     "Filing Discipline",
		Question:  "Do they treat statutory obligations seriously?",
		Rating:    models.RatingClean,
		Evidence:  []models.Evidence{},
		Interpretation: models.Interpretation{
			WhyMatters: []string{
				"Late filings often correlate with weak finance function or cash constraints",
				"Amendments may indicate error-prone accounting processes",
			},
			InnocentExplanations: []string{
				"One-off adviser failure or staff turnover",
				"System migration causing timing issues",
			},
			WhatWeChecked: []string{
				"Filing history, deadline calculations, overdue flags",
			},
		},
	}

	// Overdue flags come from the always-fresh profile read.
	profile, err := a.client.Company(ctx, companyNumber)
	if err != nil || profile == nil {
		result.Summary = "Unable to retrieve company profile"
		result.Rating = models.RatingInvestigate
		return result
	}

	companyType := profile.Type
	if companyType == "" {
		companyType = "ltd"
	}
	accountsOverdue := profile.Accounts.Overdue
	confirmationOverdue := profile.ConfirmationStatement.Overdue

	if accountsOverdue {
		dueOn := profile.Accounts.NextAccounts.DueOn
		if dueOn == "" {
			dueOn = "unknown"
		}
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    models.SeverityHigh,
			Type:        "accounts_overdue",
			Description: fmt.Sprintf("Accounts currently OVERDUE (due: %s)", dueOn),
			Details:     map[string]any{"due_on": dueOn},
			Source:      "company profile",
		})
	}

	if confirmationOverdue {
		nextDue := profile.ConfirmationStatement.NextDue
		if nextDue == "" {
			nextDue = "unknown"
		}
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    models.SeverityHigh,
			Type:        "confirmation_overdue",
			Description: fmt.Sprintf("Confirmation statement currently OVERDUE (due: %s)", nextDue),
			Details:     map[string]any{"next_due": nextDue},
			Source:      "company profile",
		})
	}

	history, err := a.client.FilingHistory(ctx, companyNumber, "")
	if err != nil || history == nil {
		result.Summary = "Limited filing history available"
		if accountsOverdue || confirmationOverdue {
			result.Rating = models.RatingRedFlag
			result.Summary = "Currently overdue on statutory filings"
		}
		return result
	}

	var accountsFilings []int
	for i, f := range history.Items {
		if f.Category == "accounts" {
			accountsFilings = append(accountsFilings, i)
		}
	}

	lateCount := 0
	lastMinuteCount := 0
	amendmentCount := 0
	ardChanges := 0

	limit := len(accountsFilings)
	if limit > 10 {
		limit = 10
	}
	for _, idx := range accountsFilings[:limit] {
		filing := history.Items[idx]
		filingDate := filing.Date
		if filingDate == "" {
			filingDate = "?"
		}

		desc := strings.ToUpper(filing.Description + " " + filing.Type)
		if strings.Contains(desc, "AMENDED") || strings.Contains(desc, "REPLACEMENT") {
			amendmentCount++
			result.Evidence = append(result.Evidence, models.Evidence{
				Confidence:  models.ConfidenceVerified,
				Severity:    models.SeverityMedium,
				Type:        "amendment",
				Description: fmt.Sprintf("Amended/replacement accounts filed on %s", filingDate),
				Details:     map[string]any{"type": filing.Type, "date": filing.Date},
				Source:      "filing-history",
			})
		}

		if filing.Type == "AA" || strings.Contains(desc, "CHANGE OF ACCOUNTING REFERENCE") {
			ardChanges++
			result.Evidence = append(result.Evidence, models.Evidence{
				Confidence:  models.ConfidenceVerified,
				Severity:    models.SeverityLow,
				Type:        "ard_change",
				Description: fmt.Sprintf("Accounting reference date changed on %s", filingDate),
				Details:     map[string]any{"date": filing.Date},
				Source:      "filing-history",
			})
		}
	}

	// Timeliness of the last five accounts filings against the statutory
	// deadline derived from each period end.
	timelinessLimit := len(accountsFilings)
	if timelinessLimit > 5 {
		timelinessLimit = 5
	}
	for _, idx := range accountsFilings[:timelinessLimit] {
		filing := history.Items[idx]
		madeUp, okMadeUp := heuristics.ParseDate(filing.DescriptionValues.MadeUpDate)
		filedOn, okFiled := heuristics.ParseDate(filing.Date)
		if !okMadeUp || !okFiled {
			continue
		}

		deadline := heuristics.AccountsDeadline(madeUp, companyType)
		gap := heuristics.DaysBetween(filedOn, deadline)
		if gap < 0 {
			lateCount++
			result.Evidence = append(result.Evidence, models.Evidence{
				Confidence: models.ConfidenceVerified,
				Severity:   models.SeverityHigh,
				Type:       "late_filing",
				Description: fmt.Sprintf("Accounts for Y/E %s filed %d days late",
					filing.DescriptionValues.MadeUpDate, -gap),
				Details: map[string]any{
					"period_end": filing.DescriptionValues.MadeUpDate,
					"filed_on":   filing.Date,
					"deadline":   deadline.Format("2006-01-02"),
					"days_late":  -gap,
				},
				Source: "filing-history",
			})
		} else if gap < 14 {
			lastMinuteCount++
		}
	}

	if lastMinuteCount >= 3 {
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence: models.ConfidenceVerified,
			Severity:   models.SeverityMedium,
			Type:       "last_minute_pattern",
			Description: fmt.Sprintf("%d of last 5 accounts filed within final 14 days of deadline",
				lastMinuteCount),
			Details: map[string]any{"count": lastMinuteCount},
			Source:  "filing-history",
		})
	}

	Evaluate(&result, []Rule{
		{
			When:    accountsOverdue || confirmationOverdue,
			Rating:  models.RatingRedFlag,
			Logic:   "Accounts or confirmation statement currently overdue",
			Summary: "Currently overdue on statutory filings",
		},
		{
			When:    lateCount >= 2,
			Rating:  models.RatingRedFlag,
			Logic:   fmt.Sprintf("%d late filings in recent history", lateCount),
			Summary: fmt.Sprintf("%d accounts filed after deadline", lateCount),
		},
		{
			When:    lastMinuteCount >= 3,
			Rating:  models.RatingInvestigate,
			Logic:   fmt.Sprintf("Pattern of last-minute filings (%d of last 5)", lastMinuteCount),
			Summary: "Consistent pattern of last-minute accounts filings",
		},
		{
			When:    amendmentCount > 0,
			Rating:  models.RatingInvestigate,
			Logic:   fmt.Sprintf("%d amended/replacement accounts filed", amendmentCount),
			Summary: fmt.Sprintf("%d amended or replacement accounts on record", amendmentCount),
		},
		{
			When:    ardChanges >= 2,
			Rating:  models.RatingInvestigate,
			Logic:   fmt.Sprintf("Multiple accounting reference date changes (%d)", ardChanges),
			Summary: fmt.Sprintf("Accounting reference date changed %d times", ardChanges),
		},
	},
		"Consistent on-time filing with no amendments",
		"All filings on time with no amendments")

	if lateCount > 0 {
		result.WhatToAsk = append(result.WhatToAsk, "Why were accounts filed late? Was this a one-off or systemic?")
	}
	if amendmentCount > 0 {
		result.WhatToAsk = append(result.WhatToAsk, "What was corrected in the amended accounts?")
	}
	if ardChanges > 0 {
		result.WhatToAsk = append(result.WhatToAsk, "Why was the accounting reference date changed?")
	}
	if accountsOverdue {
		result.WhatToAsk = append(result.WhatToAsk, "When will the overdue accounts be filed?")
	}

	return result
}
