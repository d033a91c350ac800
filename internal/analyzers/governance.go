package analyzers

import (
	"context"
	"fmt"
	"time"

	"github.com/registrylens/registry-risk/internal/heuristics"
	"github.com/registrylens/registry-risk/internal/models"
	"github.com/registrylens/registry-risk/internal/registry"
)

// GovernanceAnalyzer examines leadership stability: turnover, sole-director
// risk, tenure, formation agent addresses, and director changes that land
// suspiciously close to accounts filings or control register changes.
type GovernanceAnalyzer struct {
	client Client
	now    func() time.Time
}

func (a *GovernanceAnalyzer) Dimension() string { return "governance_stability" }

func (a *GovernanceAnalyzer) Analyze(ctx context.Context, companyNumber string) models.DimensionResult {
	result := models.DimensionResult{
		Dimension: a.Dimension(),
		Title:     "Governance Stability",
		Question:  "Is leadership stable or is there concerning churn?",
		Rating:    models.RatingClean,
		Evidence:  []models.Evidence{},
		Interpretation: models.Interpretation{
			WhyMatters: []string{
				"High turnover can indicate instability or key person disputes",
				"Timing correlations with filings may suggest governance concerns",
			},
			InnocentExplanations: []string{
				"Growth-phase restructuring or internationalization",
				"Planned succession executed smoothly",
			},
			WhatWeChecked: []string{
				"Director tenure, resignation patterns, address changes",
			},
		},
	}

	officers, err := a.client.Officers(ctx, companyNumber)
	if err != nil || officers == nil {
		result.Summary = "Unable to retrieve officer data"
		result.Rating = models.RatingInvestigate
		return result
	}

	today := a.now()
	current := currentDirectors(officers)
	resigned := resignedDirectors(officers)

	currentCount := len(current)
	result.Evidence = append(result.Evidence, models.Evidence{
		Confidence:  models.ConfidenceVerified,
		Severity:    models.SeverityNone,
		Type:        "director_count",
		Description: fmt.Sprintf("%d active director(s)", currentCount),
		Details:     map[string]any{"count": currentCount},
		Source:      "officers",
	})

	soleDirector := currentCount == 1

	var tenures []float64
	var recentAppointments []registry.Officer
	var recentAppointmentDates []time.Time

	for _, d := range current {
		appointed, ok := heuristics.ParseDate(d.AppointedOn)
		if !ok {
			continue
		}
		tenureDays := heuristics.DaysBetween(appointed, today)
		tenures = append(tenures, float64(tenureDays)/365.25)

		if tenureDays > 0 && tenureDays < 90 {
			recentAppointments = append(recentAppointments, d)
			recentAppointmentDates = append(recentAppointmentDates, appointed)
			name := d.Name
			if name == "" {
				name = "?"
			}
			result.Evidence = append(result.Evidence, models.Evidence{
				Confidence: models.ConfidenceVerified,
				Severity:   models.SeverityMedium,
				Type:       "recent_appointment",
				Description: fmt.Sprintf("New director %s appointed %s (%d days ago)",
					name, d.AppointedOn, tenureDays),
				Details: map[string]any{
					"name":         d.Name,
					"appointed_on": d.AppointedOn,
					"days_ago":     tenureDays,
				},
				Source: "officers",
			})
		}
	}

	avgTenure := 0.0
	if len(tenures) > 0 {
		sum := 0.0
		for _, t := range tenures {
			sum += t
		}
		avgTenure = sum / float64(len(tenures))
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    models.SeverityNone,
			Type:        "average_tenure",
			Description: fmt.Sprintf("Average director tenure: %.1f years", avgTenure),
			Details:     map[string]any{"average_years": round1(avgTenure)},
			Source:      "officers",
		})
	}

	changesLast2y := 0
	shortTenures := 0
	var recentResignationDates []time.Time

	for _, d := range resigned {
		resignedOn, okResigned := heuristics.ParseDate(d.ResignedOn)
		appointedOn, okAppointed := heuristics.ParseDate(d.AppointedOn)

		if okResigned {
			daysAgo := heuristics.DaysBetween(resignedOn, today)
			if daysAgo < 730 {
				changesLast2y++
				recentResignationDates = append(recentResignationDates, resignedOn)
				name := d.Name
				if name == "" {
					name = "?"
				}
				result.Evidence = append(result.Evidence, models.Evidence{
					Confidence:  models.ConfidenceVerified,
					Severity:    models.SeverityLow,
					Type:        "resignation",
					Description: fmt.Sprintf("%s resigned %s", name, d.ResignedOn),
					Details: map[string]any{
						"name":         d.Name,
						"resigned_on":  d.ResignedOn,
						"appointed_on": d.AppointedOn,
					},
					Source: "officers",
				})
			}
		}

		if okAppointed && okResigned {
			tenure := heuristics.DaysBetween(appointedOn, resignedOn)
			if tenure > 0 && tenure < 548 {
				shortTenures++
			}
		}
	}

	changesLast2y += len(recentAppointments)

	if shortTenures >= 3 {
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    models.SeverityMedium,
			Type:        "short_tenure_pattern",
			Description: fmt.Sprintf("%d directors served less than 18 months in last 5 years", shortTenures),
			Details:     map[string]any{"count": shortTenures},
			Source:      "officers",
		})
	}

	// Timing correlations: director changes within 30 days of an accounts
	// filing or a control register change.
	history, _ := a.client.FilingHistory(ctx, companyNumber, "")
	var accountsFilingDates []time.Time
	if history != nil {
		for _, f := range history.Items {
			if f.Category == "accounts" {
				if filed, ok := heuristics.ParseDate(f.Date); ok {
					accountsFilingDates = append(accountsFilingDates, filed)
				}
			}
		}
	}

	pscList, _ := a.client.PSCs(ctx, companyNumber)
	var pscChangeDates []time.Time
	if pscList != nil {
		for _, p := range pscList.Items {
			if notified, ok := heuristics.ParseDate(p.NotifiedOn); ok {
				pscChangeDates = append(pscChangeDates, notified)
			}
			if ceasedOn, ok := heuristics.ParseDate(p.CeasedOn); ok {
				pscChangeDates = append(pscChangeDates, ceasedOn)
			}
		}
	}

	directorChangeDates := append(append([]time.Time{}, recentAppointmentDates...), recentResignationDates...)
	timingNearAccounts := false
	timingNearPSC := false

	accountsWindow := accountsFilingDates
	if len(accountsWindow) > 5 {
		accountsWindow = accountsWindow[:5]
	}
	for _, dDate := range directorChangeDates {
		for _, aDate := range accountsWindow {
			if abs(heuristics.DaysBetween(dDate, aDate)) <= 30 {
				timingNearAccounts = true
				break
			}
		}
		for _, pDate := range pscChangeDates {
			if abs(heuristics.DaysBetween(dDate, pDate)) <= 30 {
				timingNearPSC = true
				break
			}
		}
	}

	if timingNearAccounts {
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    models.SeverityMedium,
			Type:        "timing_near_accounts",
			Description: "Director change within 30 days of accounts filing",
			Details:     map[string]any{},
			Source:      "officers + filing-history",
		})
	}

	if timingNearPSC {
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    models.SeverityMedium,
			Type:        "timing_near_psc",
			Description: "Director change within 30 days of PSC change",
			Details:     map[string]any{},
			Source:      "officers + PSC",
		})
	}

	regOffice, _ := a.client.RegisteredOffice(ctx, companyNumber)
	formationAgent := false
	if regOffice != nil {
		formationAgent = heuristics.IsFormationAgentAddress(regOffice)
		if formationAgent {
			result.Evidence = append(result.Evidence, models.Evidence{
				Confidence:  models.ConfidenceVerified,
				Severity:    models.SeverityMedium,
				Type:        "formation_agent_address",
				Description: "Registered office is a known formation agent address",
				Details:     map[string]any{"address": regOffice},
				Source:      "registered-office-address",
			})
		}
	}

	addressFilings, _ := a.client.FilingHistory(ctx, companyNumber, "address")
	addressChanges := 0
	if addressFilings != nil {
		for _, f := range addressFilings.Items {
			if filed, ok := heuristics.ParseDate(f.Date); ok {
				if gap := heuristics.DaysBetween(filed, today); gap > 0 && gap < 1095 {
					addressChanges++
				}
			}
		}
	}

	if addressChanges >= 3 {
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    models.SeverityMedium,
			Type:        "address_churn",
			Description: fmt.Sprintf("Registered office changed %d times in last 3 years", addressChanges),
			Details:     map[string]any{"count": addressChanges},
			Source:      "filing-history",
		})
	}

	var recentAppointmentSummary string
	if len(recentAppointments) > 0 {
		appointedOn := recentAppointments[0].AppointedOn
		if appointedOn == "" {
			appointedOn = "?"
		}
		recentAppointmentSummary = "Recent board change: new director appointed " + appointedOn
	}

	Evaluate(&result, []Rule{
		{
			When:    changesLast2y >= 3,
			Rating:  models.RatingRedFlag,
			Logic:   fmt.Sprintf("%d director changes in last 2 years", changesLast2y),
			Summary: fmt.Sprintf("High director turnover: %d changes in 2 years", changesLast2y),
		},
		{
			When:    timingNearPSC && len(recentAppointments) > 0,
			Rating:  models.RatingInvestigate,
			Logic:   "Director change coincided with PSC change",
			Summary: "Director and ownership change at same time",
		},
		{
			When:    len(recentAppointments) > 0,
			Rating:  models.RatingInvestigate,
			Logic:   "Director appointed in last 3 months",
			Summary: recentAppointmentSummary,
		},
		{
			When:    soleDirector,
			Rating:  models.RatingInvestigate,
			Logic:   "Sole director - key person dependency",
			Summary: "Single director - key person risk",
		},
		{
			When:    len(tenures) > 0 && avgTenure < 2,
			Rating:  models.RatingInvestigate,
			Logic:   fmt.Sprintf("Average director tenure below 2 years (%.1fy)", avgTenure),
			Summary: fmt.Sprintf("Short average director tenure (%.1f years)", avgTenure),
		},
		{
			When:    formationAgent,
			Rating:  models.RatingInvestigate,
			Logic:   "Registered at formation agent address",
			Summary: "Registered office is a formation agent address",
		},
		{
			When:    addressChanges >= 3,
			Rating:  models.RatingInvestigate,
			Logic:   fmt.Sprintf("%d registered office changes in 3 years", addressChanges),
			Summary: fmt.Sprintf("Registered office changed %d times in 3 years", addressChanges),
		},
	},
		fmt.Sprintf("Stable board (%d directors, %.1fyr avg tenure)", currentCount, avgTenure),
		fmt.Sprintf("Stable board: %d directors, %.1f year average tenure", currentCount, avgTenure))

	for _, d := range recentAppointments {
		name := d.Name
		if name == "" {
			name = "?"
		}
		result.WhatToAsk = append(result.WhatToAsk, fmt.Sprintf("What prompted the appointment of %s?", name))
	}
	if changesLast2y > 1 {
		result.WhatToAsk = append(result.WhatToAsk, "Why has there been recent board turnover?")
	}
	if soleDirector {
		result.WhatToAsk = append(result.WhatToAsk, "What succession plan exists if the sole director is unavailable?")
	}
	if formationAgent {
		result.WhatToAsk = append(result.WhatToAsk,
			"Why is the registered office at a formation agent rather than the trading address?")
	}
	if timingNearPSC {
		result.WhatToAsk = append(result.WhatToAsk,
			"Why did the director and ownership changes happen at the same time?")
	}

	return result
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
