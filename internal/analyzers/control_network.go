package analyzers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/registrylens/registry-risk/internal/heuristics"
	"github.com/registrylens/registry-risk/internal/models"
	"github.com/registrylens/registry-risk/internal/registry"
)

// ControlNetworkAnalyzer maps the decision-making network around a company:
// director overlaps at other companies, directors who also control a
// corporate control-holder, network size, control concentration, and
// recent additions to board or register.
type ControlNetworkAnalyzer struct {
	client Client
	now    func() time.Time
}

func (a *ControlNetworkAnalyzer) Dimension() string { return "control_network" }

func (a *ControlNetworkAnalyzer) Analyze(ctx context.Context, companyNumber string) models.DimensionResult {
	result := models.DimensionResult{
		Dimension: a.Dimension(),
		Title:     "Connected Parties",
		Question:  "What does the decision-making network look like?",
		Rating:    models.RatingClean,
		Evidence:  []models.Evidence{},
		Interpretation: models.Interpretation{
			WhyMatters: []string{
				"Concentrated decision-making can indicate related party risk",
				"Recent changes may signal ownership restructuring ahead of transactions",
			},
			InnocentExplanations: []string{
				"Efficient family business or founder-led structure",
				"Planned succession or legitimate group reorganization",
			},
			WhatWeChecked: []string{
				"Director overlaps, control registers, appointment timing",
			},
		},
	}

	today := a.now()

	officers, _ := a.client.Officers(ctx, companyNumber)
	pscList, _ := a.client.PSCs(ctx, companyNumber)

	directors := currentDirectors(officers)
	pscs := activePSCs(pscList)
	ceased := ceasedPSCs(pscList)

	if len(directors) == 0 && len(pscs) == 0 {
		result.Summary = "Insufficient data to assess control network"
		return result
	}

	signals := map[string]bool{}

	// Network size counts unique individuals across board and register.
	uniqueIndividuals := map[string]bool{}
	individualPSCCount := 0
	for _, d := range directors {
		uniqueIndividuals[strings.ToUpper(d.Name)] = true
	}
	for _, p := range pscs {
		if strings.Contains(p.Kind, "individual") {
			uniqueIndividuals[strings.ToUpper(p.Name)] = true
			individualPSCCount++
		}
	}
	networkSize := len(uniqueIndividuals)

	result.Evidence = append(result.Evidence, models.Evidence{
		Confidence:  models.ConfidenceVerified,
		Severity:    models.SeverityNone,
		Type:        "network_size",
		Description: fmt.Sprintf("Control network includes %d unique individual(s)", networkSize),
		Details: map[string]any{
			"director_count":       len(directors),
			"individual_psc_count": individualPSCCount,
			"unique_individuals":   networkSize,
		},
		Source: "officers + PSC endpoints",
	})

	if networkSize > 10 {
		signals["large_network"] = true
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    models.SeverityMedium,
			Type:        "large_network",
			Description: fmt.Sprintf("Large control network: %d individuals across directors and PSCs", networkSize),
			Details:     map[string]any{"network_size": networkSize},
			Source:      "officers + PSC endpoints",
		})
	}

	// Control concentration: share of significant control held by people who
	// also sit on the board, approximated from the banded control natures.
	directorNames := map[string]bool{}
	for _, d := range directors {
		directorNames[strings.ToUpper(d.Name)] = true
	}
	controlByDirectors := 0.0
	for _, p := range pscs {
		if !strings.Contains(p.Kind, "individual") || !directorNames[strings.ToUpper(p.Name)] {
			continue
		}
		for _, nature := range p.NaturesOfControl {
			switch {
			case strings.Contains(nature, "75-to-100"):
				controlByDirectors += 87.5
			case strings.Contains(nature, "50-to-75"):
				controlByDirectors += 62.5
			case strings.Contains(nature, "25-to-50"):
				controlByDirectors += 37.5
			}
		}
	}
	if controlByDirectors > 0 {
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    models.SeverityNone,
			Type:        "decision_concentration",
			Description: fmt.Sprintf("Directors hold ~%.0f%% of significant control", controlByDirectors),
			Details:     map[string]any{"control_by_directors_pct": round1(controlByDirectors)},
			Source:      "officers + PSC endpoints",
		})
	}

	var recentDirectors []registry.Officer
	for _, d := range directors {
		appointed, ok := heuristics.ParseDate(d.AppointedOn)
		if !ok {
			continue
		}
		gap := heuristics.DaysBetween(appointed, today)
		if gap >= 0 && gap < 90 {
			recentDirectors = append(recentDirectors, d)
			signals["recent_director"] = true
			result.Evidence = append(result.Evidence, models.Evidence{
				Confidence:  models.ConfidenceVerified,
				Severity:    models.SeverityMedium,
				Type:        "recent_director",
				Description: fmt.Sprintf("Director %s appointed %d days ago (%s)", d.Name, gap, d.AppointedOn),
				Details: map[string]any{
					"director_name": d.Name,
					"appointed_on":  d.AppointedOn,
					"days_ago":      gap,
				},
				Source: "officers endpoint",
			})
		}
	}

	var recentPSCs []registry.PSC
	for _, p := range pscs {
		notified, ok := heuristics.ParseDate(p.NotifiedOn)
		if !ok {
			continue
		}
		gap := heuristics.DaysBetween(notified, today)
		if gap >= 0 && gap < 90 {
			recentPSCs = append(recentPSCs, p)
			signals["recent_psc"] = true
			result.Evidence = append(result.Evidence, models.Evidence{
				Confidence:  models.ConfidenceVerified,
				Severity:    models.SeverityMedium,
				Type:        "recent_psc",
				Description: fmt.Sprintf("PSC %s notified %d days ago (%s)", p.Name, gap, p.NotifiedOn),
				Details: map[string]any{
					"psc_name":    p.Name,
					"notified_on": p.NotifiedOn,
					"days_ago":    gap,
				},
				Source: "PSC endpoint",
			})
		}
	}

	// Activity index: register changes within the last two years, counting
	// both cessations and fresh notifications.
	pscChanges2y := 0
	for _, p := range ceased {
		if d, ok := heuristics.ParseDate(p.CeasedOn); ok && heuristics.DaysBetween(d, today) < 730 {
			pscChanges2y++
		}
	}
	for _, p := range pscs {
		if d, ok := heuristics.ParseDate(p.NotifiedOn); ok && heuristics.DaysBetween(d, today) < 730 {
			pscChanges2y++
		}
	}
	if pscChanges2y > 0 {
		severity := models.SeverityLow
		if pscChanges2y >= 2 {
			severity = models.SeverityMedium
			signals["high_psc_activity"] = true
		}
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    severity,
			Type:        "psc_activity",
			Description: fmt.Sprintf("%d PSC change(s) in last 2 years", pscChanges2y),
			Details:     map[string]any{"psc_changes_2y": pscChanges2y},
			Source:      "PSC endpoint",
		})
	}

	// Director network overlap: pairs of current directors who co-serve at
	// two or more other companies.
	type directorCompanies struct {
		name      string
		companies map[string]bool
	}
	var memberships []directorCompanies
	for _, d := range directors {
		officerID := heuristics.ExtractOfficerID(d.Links)
		if officerID == "" {
			continue
		}
		appointments, _ := a.client.Appointments(ctx, officerID)
		if appointments == nil {
			continue
		}
		companies := map[string]bool{}
		for _, appt := range appointments.Items {
			cn := appt.AppointedTo.CompanyNumber
			if cn != "" && cn != companyNumber && appt.ResignedOn == "" {
				companies[cn] = true
			}
		}
		memberships = append(memberships, directorCompanies{name: d.Name, companies: companies})
	}

	var overlappingPairs [][2]string
	for i := 0; i < len(memberships); i++ {
		for j := i + 1; j < len(memberships); j++ {
			overlap := 0
			for cn := range memberships[i].companies {
				if memberships[j].companies[cn] {
					overlap++
				}
			}
			if overlap >= 2 {
				overlappingPairs = append(overlappingPairs, [2]string{memberships[i].name, memberships[j].name})
				signals["director_network_overlap"] = true
				result.Evidence = append(result.Evidence, models.Evidence{
					Confidence: models.ConfidenceVerified,
					Severity:   models.SeverityLow,
					Type:       "director_network_overlap",
					Description: fmt.Sprintf("%s and %s are both current directors of %d other companies",
						memberships[i].name, memberships[j].name, overlap),
					Details: map[string]any{
						"directors":            []string{memberships[i].name, memberships[j].name},
						"shared_company_count": overlap,
					},
					Source: "appointments endpoint",
				})
			}
		}
	}

	if len(overlappingPairs) >= 3 {
		signals["dense_network"] = true
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence: models.ConfidenceVerified,
			Severity:   models.SeverityMedium,
			Type:       "dense_director_network",
			Description: fmt.Sprintf("Dense director network: %d pairs of directors share multiple company appointments",
				len(overlappingPairs)),
			Details: map[string]any{"overlapping_pairs": len(overlappingPairs)},
			Source:  "appointments endpoint",
		})
	}

	// A director of the target who also directs its corporate control-holder
	// effectively controls both sides of the relationship.
	for _, p := range pscs {
		if !strings.Contains(p.Kind, "corporate") || p.Identification.RegistrationNumber == "" {
			continue
		}
		holderOfficers, _ := a.client.Officers(ctx, p.Identification.RegistrationNumber)
		if holderOfficers == nil {
			continue
		}
		holderNames := map[string]bool{}
		for _, o := range holderOfficers.Items {
			if o.ResignedOn == "" {
				holderNames[strings.ToUpper(o.Name)] = true
			}
		}
		for _, d := range directors {
			if holderNames[strings.ToUpper(d.Name)] {
				signals["director_controls_psc"] = true
				result.Evidence = append(result.Evidence, models.Evidence{
					Confidence: models.ConfidenceVerified,
					Severity:   models.SeverityLow,
					Type:       "director_controls_psc",
					Description: fmt.Sprintf("%s is director of both target company and its PSC (%s)",
						d.Name, p.Name),
					Details: map[string]any{
						"director":           d.Name,
						"psc_company":        p.Name,
						"psc_company_number": p.Identification.RegistrationNumber,
					},
					Source: "officers + PSC endpoints",
				})
			}
		}
	}

	if len(signals) == 0 {
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence:  models.ConfidenceVerified,
			Severity:    models.SeverityNone,
			Type:        "clean_network",
			Description: "No concerning control network patterns detected",
			Details:     map[string]any{},
			Source:      "officers + PSC endpoints",
		})
	}

	var recentPSCSummary string
	if len(recentPSCs) > 0 {
		recentPSCSummary = "Recent PSC change: " + recentPSCs[0].Name
	}

	Evaluate(&result, []Rule{
		{
			When:    len(recentDirectors) > 0 && len(recentPSCs) > 0,
			Rating:  models.RatingInvestigate,
			Logic:   "Director and PSC both changed in last 90 days",
			Summary: "Recent board and ownership changes (last 90 days)",
		},
		{
			When:    signals["dense_network"],
			Rating:  models.RatingInvestigate,
			Logic:   "Dense director network - multiple pairs share other company appointments",
			Summary: "Dense director network - directors share multiple other appointments",
		},
		{
			When:    len(recentPSCs) > 0,
			Rating:  models.RatingInvestigate,
			Logic:   "PSC change in last 90 days",
			Summary: recentPSCSummary,
		},
		{
			When:    signals["large_network"],
			Rating:  models.RatingInvestigate,
			Logic:   fmt.Sprintf("Large control network (%d individuals)", networkSize),
			Summary: fmt.Sprintf("Large control network: %d individuals", networkSize),
		},
		{
			When:    signals["high_psc_activity"],
			Rating:  models.RatingInvestigate,
			Logic:   fmt.Sprintf("%d PSC changes in last 2 years", pscChanges2y),
			Summary: fmt.Sprintf("High PSC activity: %d changes in 2 years", pscChanges2y),
		},
	},
		"No concerning control network patterns",
		fmt.Sprintf("Clean control network (%d directors, %d PSCs)", len(directors), len(pscs)))

	if len(recentDirectors) > 0 && len(recentPSCs) > 0 {
		result.WhatToAsk = append(result.WhatToAsk, "What prompted the recent changes to both board and ownership?")
	}
	if len(recentDirectors) > 0 {
		result.WhatToAsk = append(result.WhatToAsk,
			fmt.Sprintf("What is the background of %s?", recentDirectors[0].Name))
	}
	if len(recentPSCs) > 0 {
		result.WhatToAsk = append(result.WhatToAsk, "What prompted the recent ownership change?")
	}
	if len(overlappingPairs) > 0 {
		result.WhatToAsk = append(result.WhatToAsk,
			fmt.Sprintf("What is the history of the business relationship between %s and %s?",
				overlappingPairs[0][0], overlappingPairs[0][1]))
	}

	return result
}
