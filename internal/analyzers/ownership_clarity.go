package analyzers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/registrylens/registry-risk/internal/heuristics"
	"github.com/registrylens/registry-risk/internal/models"
	"github.com/registrylens/registry-risk/internal/ownership"
	"github.com/registrylens/registry-risk/internal/registry"
)

// OwnershipClarityAnalyzer answers whether it is clear who controls the
// company: traced ownership chains, foreign holders, trusts, control
// register gaps, churn, and the cloud of connected companies in orbit.
type OwnershipClarityAnalyzer struct {
	client Client
	now    func() time.Time
}

func (a *OwnershipClarityAnalyzer) Dimension() string { return "ownership_clarity" }

// problematicStatements are control register statements that admit the
// controller is unknown or unconfirmed.
var problematicStatements = map[string]bool{
	"psc-exists-but-not-identified":       true,
	"psc-details-not-confirmed":           true,
	"steps-to-find-psc-not-yet-completed": true,
}

type orbitCounts struct {
	total     int
	sampled   int
	active    int
	dormant   int
	dissolved int
}

func (a *OwnershipClarityAnalyzer) Analyze(ctx context.Context, companyNumber string) models.DimensionResult {
	result := models.DimensionResult{
		Dimension:  a.Dimension(),
		Title:      "Ownership Clarity",
		Question:   "Is it clear who controls this company and why?",
		Rating:     models.RatingClean,
		Evidence:   []models.Evidence{},
		Disclaimer: "Asset location (IP, property, contracts) cannot be determined from the public registry",
		Interpretation: models.Interpretation{
			WhyMatters: []string{
				"Complex structures may exist for tax or liability reasons worth understanding",
				"Foreign entities require additional verification steps",
			},
			InnocentExplanations: []string{
				"Legitimate holding structure for group operations",
				"Legacy cleanup in progress",
			},
			WhatWeChecked: []string{
				"PSC records, ownership chain tracing, corporate layers",
			},
		},
	}

	today := a.now()

	officers, _ := a.client.Officers(ctx, companyNumber)
	directors := currentDirectors(officers)

	pscList, _ := a.client.PSCs(ctx, companyNumber)
	active := activePSCs(pscList)
	ceased := ceasedPSCs(pscList)

	statements, _ := a.client.PSCStatements(ctx, companyNumber)

	hasProblematicStatement := false
	if statements != nil {
		for _, s := range statements.Items {
			if s.CeasedOn != "" || !problematicStatements[s.Statement] {
				continue
			}
			hasProblematicStatement = true
			result.Evidence = append(result.Evidence, models.Evidence{
				Confidence: models.ConfidenceVerified,
				Severity:   models.SeverityHigh,
				Type:       "psc_statement",
				Description: fmt.Sprintf("PSC statement filed: '%s'",
					strings.ReplaceAll(s.Statement, "-", " ")),
				Details: map[string]any{"statement": s.Statement},
				Source:  "PSC statements",
			})
		}
	}

	structure := ownership.NewTracer(a.client).Trace(ctx, companyNumber)
	summary := ownership.Summarize(structure)

	orbit := a.orbitEntities(ctx, companyNumber, directors)

	result.Evidence = append(result.Evidence, models.Evidence{
		Confidence: models.ConfidenceVerified,
		Severity:   models.SeverityNone,
		Type:       "orbit_summary",
		Description: fmt.Sprintf("Orbit includes %d connected companies (%d active, %d dormant, %d dissolved)",
			orbit.total, orbit.active, orbit.dormant, orbit.dissolved),
		Details: map[string]any{
			"total":     orbit.total,
			"sampled":   orbit.sampled,
			"active":    orbit.active,
			"dormant":   orbit.dormant,
			"dissolved": orbit.dissolved,
		},
		Source: "PSC + appointments",
	})

	clutterCount := orbit.dormant + orbit.dissolved
	if clutterCount >= 5 {
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence: models.ConfidenceVerified,
			Severity:   models.SeverityMedium,
			Type:       "orbit_clutter",
			Description: fmt.Sprintf("%d dormant/dissolved entities in orbit - may indicate complexity or legacy cleanup needed",
				clutterCount),
			Details: map[string]any{
				"dormant":   orbit.dormant,
				"dissolved": orbit.dissolved,
			},
			Source: "PSC + appointments",
		})
	}

	var individualNames []string
	for _, psc := range active {
		kind := psc.Kind
		name := psc.Name
		if name == "" {
			name = "Unknown"
		}
		natures := psc.NaturesOfControl
		display := natures
		if len(display) > 2 {
			display = display[:2]
		}
		controlParts := make([]string, len(display))
		for i, n := range display {
			controlParts[i] = strings.ReplaceAll(n, "-", " ")
		}
		controlDesc := strings.Join(controlParts, ", ")

		switch {
		case strings.Contains(kind, "individual"):
			individualNames = append(individualNames, name)
			nationality := psc.Nationality
			if nationality == "" {
				nationality = "Unknown nationality"
			}
			result.Evidence = append(result.Evidence, models.Evidence{
				Confidence:  models.ConfidenceVerified,
				Severity:    models.SeverityNone,
				Type:        "individual_psc",
				Description: fmt.Sprintf("%s (%s) - %s", name, nationality, controlDesc),
				Details: map[string]any{
					"name":        name,
					"nationality": psc.Nationality,
					"control":     natures,
				},
				Source: "PSC endpoint",
			})

		case strings.Contains(kind, "corporate"):
			ident := psc.Identification
			jurisdiction := strings.TrimSpace(ident.PlaceRegistered + " " + ident.CountryRegistered)
			reg := ident.RegistrationNumber
			severity := models.SeverityLow
			if jurisdiction != "" && !strings.Contains(strings.ToLower(jurisdiction), "england") {
				severity = models.SeverityMedium
			}
			displayJurisdiction := jurisdiction
			if displayJurisdiction == "" {
				displayJurisdiction = "UK"
			}
			desc := fmt.Sprintf("%s (%s", name, displayJurisdiction)
			if reg != "" {
				desc += ", " + reg
			}
			desc += ") - " + controlDesc
			link := ""
			if reg != "" && isNumeric(reg) {
				link = heuristics.CompanyURL(reg)
			}
			result.Evidence = append(result.Evidence, models.Evidence{
				Confidence:  models.ConfidenceVerified,
				Severity:    severity,
				Type:        "corporate_psc",
				Description: desc,
				Details: map[string]any{
					"name":                name,
					"registration_number": reg,
					"jurisdiction":        jurisdiction,
					"control":             natures,
				},
				Source: "PSC endpoint",
				Link:   link,
			})

		case strings.Contains(kind, "legal-person"):
			result.Evidence = append(result.Evidence, models.Evidence{
				Confidence:  models.ConfidenceVerified,
				Severity:    models.SeverityMedium,
				Type:        "trust_psc",
				Description: fmt.Sprintf("%s (trust/legal person) - %s", name, controlDesc),
				Details:     map[string]any{"name": name, "control": natures},
				Source:      "PSC endpoint",
			})
		}
	}

	if summary.CorporateLayers > 0 {
		severity := models.SeverityMedium
		if summary.CorporateLayers == 1 {
			severity = models.SeverityLow
		}
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    severity,
			Type:        "ownership_depth",
			Description: fmt.Sprintf("%d-layer ownership structure (including target)", summary.CorporateLayers+1),
			Details: map[string]any{
				"corporate_layers": summary.CorporateLayers,
				"foreign_count":    len(summary.ForeignEntities),
				"trust_count":      summary.Trusts,
			},
			Source: "recursive PSC tracing",
		})
	}

	recentCeased := 0
	for _, p := range ceased {
		if ceasedOn, ok := heuristics.ParseDate(p.CeasedOn); ok {
			if gap := heuristics.DaysBetween(ceasedOn, today); gap > 0 && gap < 730 {
				recentCeased++
			}
		}
	}
	if recentCeased >= 2 {
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    models.SeverityMedium,
			Type:        "psc_churn",
			Description: fmt.Sprintf("%d PSC changes in last 2 years", recentCeased),
			Details:     map[string]any{"count": recentCeased},
			Source:      "PSC endpoint",
		})
	}

	var foreignNames []string
	for _, fe := range summary.ForeignEntities {
		foreignNames = append(foreignNames, fe.Name)
	}
	foreignDisplay := foreignNames
	if len(foreignDisplay) > 2 {
		foreignDisplay = foreignDisplay[:2]
	}

	var foreignSummary string
	if len(foreignNames) > 0 {
		foreignSummary = "Foreign entity in ownership: " + foreignNames[0]
	}

	Evaluate(&result, []Rule{
		{
			When:    hasProblematicStatement,
			Rating:  models.RatingRedFlag,
			Logic:   "PSC statement indicates unidentified controller",
			Summary: "Company has unidentified person(s) with significant control",
		},
		{
			When:    clutterCount >= 5,
			Rating:  models.RatingInvestigate,
			Logic:   fmt.Sprintf("%d dormant/dissolved entities in orbit", clutterCount),
			Summary: fmt.Sprintf("%d dormant/dissolved entities connected to this company", clutterCount),
		},
		{
			When:    len(summary.ForeignEntities) > 0,
			Rating:  models.RatingInvestigate,
			Logic:   "Foreign entity in ownership chain: " + strings.Join(foreignDisplay, ", "),
			Summary: foreignSummary,
		},
		{
			When:    summary.Trusts > 0,
			Rating:  models.RatingInvestigate,
			Logic:   "Trust/legal person in ownership chain",
			Summary: "Trust or legal person in ownership structure",
		},
		{
			When:    summary.CorporateLayers >= 3,
			Rating:  models.RatingInvestigate,
			Logic:   fmt.Sprintf("%d+ corporate layers in ownership", summary.CorporateLayers),
			Summary: fmt.Sprintf("Complex %d-layer ownership structure", summary.CorporateLayers+1),
		},
		{
			When:    recentCeased >= 2,
			Rating:  models.RatingInvestigate,
			Logic:   fmt.Sprintf("%d PSC changes in last 2 years", recentCeased),
			Summary: fmt.Sprintf("Ownership changed %d times in 2 years", recentCeased),
		},
	}, "", "")

	// The clean branch has three sub-cases depending on what the register shows.
	if result.Rating == models.RatingClean {
		switch {
		case len(active) > 0 && len(individualNames) > 0:
			display := individualNames
			if len(display) > 2 {
				display = display[:2]
			}
			result.RatingLogic = "Direct individual UK ownership"
			result.Summary = "Clear ownership: " + strings.Join(display, ", ")
		case len(active) > 0:
			result.RatingLogic = "Ownership structure traceable"
			result.Summary = "Ownership structure is traceable"
		default:
			result.RatingLogic = "No PSC data available"
			result.Summary = "No PSC information on record"
		}
	}

	for _, fe := range summary.ForeignEntities {
		result.WhatToAsk = append(result.WhatToAsk,
			fmt.Sprintf("Who is the ultimate beneficial owner of %s?", fe.Name))
	}
	if summary.Trusts > 0 {
		result.WhatToAsk = append(result.WhatToAsk, "Can we see the trust deed?")
	}
	if summary.CorporateLayers > 0 {
		result.WhatToAsk = append(result.WhatToAsk,
			"Why is ownership structured through holding companies rather than directly?")
	}
	if recentCeased >= 2 {
		result.WhatToAsk = append(result.WhatToAsk, "What prompted the recent ownership changes?")
	}
	if clutterCount >= 5 {
		result.WhatToAsk = append(result.WhatToAsk,
			"Are there plans to clean up dormant/dissolved entities in the group?")
	}

	return result
}

// orbitEntities collects companies connected through corporate holders and
// the first few directors' other appointments, then samples their statuses.
// The director and sampling limits keep the request budget bounded.
func (a *OwnershipClarityAnalyzer) orbitEntities(ctx context.Context, companyNumber string, directors []registry.Officer) orbitCounts {
	orbitCompanies := map[string]bool{}

	pscList, _ := a.client.PSCs(ctx, companyNumber)
	if pscList != nil {
		for _, psc := range pscList.Items {
			if strings.Contains(psc.Kind, "corporate") && psc.Identification.RegistrationNumber != "" {
				orbitCompanies[psc.Identification.RegistrationNumber] = true
			}
		}
	}

	directorLimit := len(directors)
	if directorLimit > 3 {
		directorLimit = 3
	}
	for _, d := range directors[:directorLimit] {
		officerID := heuristics.ExtractOfficerID(d.Links)
		if officerID == "" {
			continue
		}
		appointments, _ := a.client.Appointments(ctx, officerID)
		if appointments == nil {
			continue
		}
		for _, appt := range appointments.Items {
			cn := appt.AppointedTo.CompanyNumber
			if cn != "" && cn != companyNumber {
				orbitCompanies[cn] = true
			}
		}
	}

	counts := orbitCounts{total: len(orbitCompanies)}
	sampled := 0
	for cn := range orbitCompanies {
		if sampled >= 20 {
			break
		}
		sampled++
		profile, _ := a.client.Company(ctx, cn)
		if profile == nil {
			continue
		}
		switch profile.CompanyStatus {
		case "dissolved":
			counts.dissolved++
		case "active":
			if profile.HasBeenLiquidated || strings.Contains(strings.ToLower(profile.Type), "dormant") {
				counts.dormant++
			} else {
				counts.active++
			}
		default:
			counts.active++
		}
	}
	counts.sampled = sampled
	return counts
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
