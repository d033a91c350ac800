package analyzers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/registrylens/registry-risk/internal/heuristics"
	"github.com/registrylens/registry-risk/internal/models"
	"github.com/registrylens/registry-risk/internal/registry"
)

// ReadinessAnalyzer estimates deal friction from the charges register:
// outstanding security, all-assets debentures, fresh borrowing, and the
// number of secured creditors whose consent a transfer would need.
type ReadinessAnalyzer struct {
	client Client
	now    func() time.Time
}

func (a *ReadinessAnalyzer) Dimension() string { return "transaction_readiness" }

func (a *ReadinessAnalyzer) Analyze(ctx context.Context, companyNumber string) models.DimensionResult {
	result := models.DimensionResult{
		Dimension: a.Dimension(),
		Title:     "Closing Friction",
		Question:  "How much friction should we expect in executing this deal?",
		Rating:    models.RatingClean,
		Evidence:  []models.Evidence{},
		Interpretation: models.Interpretation{
			WhyMatters: []string{
				"Outstanding charges require lender consent for asset transfers",
				"Multiple creditors may create subordination complexity",
			},
			InnocentExplanations: []string{
				"Routine refinancing or growth financing",
				"Standard banking relationship with no unusual terms",
			},
			WhatWeChecked: []string{
				"Charges register, floating charge coverage, creditor identification",
			},
		},
	}

	today := a.now()

	chargeList, _ := a.client.Charges(ctx, companyNumber)
	var charges []registry.Charge
	if chargeList != nil {
		charges = chargeList.Items
	}

	var outstanding []registry.Charge
	for _, c := range charges {
		if c.Status == "outstanding" {
			outstanding = append(outstanding, c)
		}
	}

	allAssetsDebenture := false
	for _, c := range outstanding {
		if !c.Particulars.FloatingChargeCoversAll {
			continue
		}
		allAssetsDebenture = true
		persons := entitledNames(c)
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence: models.ConfidenceVerified,
			Severity:   models.SeverityHigh,
			Type:       "all_assets_debenture",
			Description: fmt.Sprintf("Floating charge covers ALL assets - held by %s. Lender consent required for sale.",
				persons),
			Details: map[string]any{
				"charge_id":        c.ChargeNumber,
				"created_on":       c.CreatedOn,
				"persons_entitled": persons,
			},
			Source: "charges",
		})
	}

	for _, c := range outstanding {
		if c.Particulars.FloatingChargeCoversAll {
			continue
		}
		persons := entitledNames(c)
		createdOn := c.CreatedOn
		if createdOn == "" {
			createdOn = "?"
		}
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    models.SeverityMedium,
			Type:        "outstanding_charge",
			Description: fmt.Sprintf("Charge to %s (created %s) - OUTSTANDING", persons, createdOn),
			Details: map[string]any{
				"created_on":       c.CreatedOn,
				"persons_entitled": persons,
				"description":      c.Particulars.Description,
			},
			Source: "charges",
		})
	}

	var recentCharges []registry.Charge
	for _, c := range charges {
		created, ok := heuristics.ParseDate(c.CreatedOn)
		if !ok {
			continue
		}
		if gap := heuristics.DaysBetween(created, today); gap >= 0 && gap < 180 {
			recentCharges = append(recentCharges, c)
		}
	}
	for _, c := range recentCharges {
		persons := entitledNames(c)
		createdOn := c.CreatedOn
		if createdOn == "" {
			createdOn = "?"
		}
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    models.SeverityMedium,
			Type:        "recent_charge",
			Description: fmt.Sprintf("New charge registered %s to %s", createdOn, persons),
			Details: map[string]any{
				"created_on":       c.CreatedOn,
				"persons_entitled": persons,
			},
			Source: "charges",
		})
	}

	creditorSet := map[string]bool{}
	for _, c := range outstanding {
		for _, p := range c.PersonsEntitled {
			name := p.Name
			if name == "" {
				name = "Unknown"
			}
			creditorSet[name] = true
		}
	}
	creditors := make([]string, 0, len(creditorSet))
	for name := range creditorSet {
		creditors = append(creditors, name)
	}
	sort.Strings(creditors)

	if len(creditors) > 1 {
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    models.SeverityMedium,
			Type:        "multiple_creditors",
			Description: fmt.Sprintf("%d secured creditors: %s", len(creditors), strings.Join(creditors, ", ")),
			Details:     map[string]any{"creditors": creditors},
			Source:      "charges",
		})
	}

	if len(charges) == 0 {
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    models.SeverityNone,
			Type:        "no_charges",
			Description: "No charges registered against this company",
			Details:     map[string]any{},
			Source:      "charges",
		})
	}

	var flags []string
	if allAssetsDebenture {
		flags = append(flags, "All-assets debenture outstanding")
	}
	if len(recentCharges) > 0 {
		flags = append(flags, "Charge created in last 6 months")
	}
	if len(creditors) > 1 {
		flags = append(flags, fmt.Sprintf("Multiple secured creditors (%d)", len(creditors)))
	}

	if len(flags) > 0 {
		result.Rating = models.RatingInvestigate
		result.RatingLogic = strings.Join(flags, "; ")
		result.Summary = flags[0]
	} else if len(outstanding) > 0 {
		result.Rating = models.RatingClean
		result.RatingLogic = fmt.Sprintf("%d outstanding charge(s), no concerning patterns", len(outstanding))
		result.Summary = fmt.Sprintf("%d charge(s) on record, no red flags", len(outstanding))
	} else {
		result.Rating = models.RatingClean
		result.RatingLogic = "No charges, simple structure"
		result.Summary = "No charges registered - clean transaction path"
	}

	if allAssetsDebenture {
		result.WhatToAsk = append(result.WhatToAsk,
			"Has the lender been informed of the potential sale? What's their typical consent process?")
	}
	if len(recentCharges) > 0 {
		result.WhatToAsk = append(result.WhatToAsk,
			"Why was the recent charge taken out? What were the proceeds used for?")
	}
	if len(creditors) > 1 {
		result.WhatToAsk = append(result.WhatToAsk,
			"Is there an intercreditor agreement? Understand subordination terms.")
	}

	return result
}

func entitledNames(c registry.Charge) string {
	names := make([]string, 0, len(c.PersonsEntitled))
	for _, p := range c.PersonsEntitled {
		name := p.Name
		if name == "" {
			name = "Unknown"
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}
