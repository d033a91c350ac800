package analyzers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/registrylens/registry-risk/internal/heuristics"
	"github.com/registrylens/registry-risk/internal/models"
)

// TrackRecordAnalyzer checks whether the current directors have been
// associated with companies that failed: insolvency associations,
// disqualifications, dissolution rates, churn, and inferred phoenix
// patterns where a dissolved company reappears as the target.
type TrackRecordAnalyzer struct {
	client Client
	now    func() time.Time
}

func (a *TrackRecordAnalyzer) Dimension() string { return "director_track_record" }

type dissolvedAppointment struct {
	companyNumber string
	companyName   string
}

type phoenixPattern struct {
	director         string
	dissolvedCompany string
	dissolvedNumber  string
	dissolvedDate    string
	gapDays          int
	sicMatch         bool
	nameSimilarity   float64
}

func (a *TrackRecordAnalyzer) Analyze(ctx context.Context, companyNumber string) models.DimensionResult {
	result := models.DimensionResult{
		Dimension: a.Dimension(),
		Title:     "Director Track Record",
		Question:  "Have these directors been associated with companies that failed?",
		Rating:    models.RatingClean,
		Evidence:  []models.Evidence{},
		Interpretation: models.Interpretation{
			WhyMatters: []string{
				"Past insolvencies may indicate governance issues or value extraction patterns",
				"Serial director metrics reveal professional track record across companies",
			},
			InnocentExplanations: []string{
				"External market factors or industry downturns beyond director control",
				"Unlucky timing or legitimate business pivots",
			},
			WhatWeChecked: []string{
				"Director appointments, insolvency records, disqualifications, dissolution rates",
			},
		},
	}

	today := a.now()

	// Target profile supplies the SIC codes and incorporation date needed
	// for phoenix detection.
	targetProfile, _ := a.client.Company(ctx, companyNumber)
	var targetSIC []string
	var targetName string
	var targetIncorporated time.Time
	var targetDated bool
	if targetProfile != nil {
		targetSIC = targetProfile.SICCodes
		targetName = targetProfile.CompanyName
		targetIncorporated, targetDated = heuristics.ParseDate(targetProfile.DateOfCreation)
	}

	officers, err := a.client.Officers(ctx, companyNumber)
	if err != nil || officers == nil {
		result.Summary = "Unable to retrieve officer data"
		result.Rating = models.RatingInvestigate
		return result
	}

	directors := currentDirectors(officers)
	if len(directors) == 0 {
		result.Summary = "No current directors found"
		result.Rating = models.RatingInvestigate
		return result
	}

	disqualifiedCount := 0
	var insolvencyAssociations [][2]string
	var preInsolvencyResignations []string
	var phoenixPatterns []phoenixPattern
	var highDissolutionDirectors []string
	var highChurnDirectors []string

	for _, director := range directors {
		name := director.Name
		if name == "" {
			name = "Unknown"
		}
		officerID := heuristics.ExtractOfficerID(director.Links)
		if officerID == "" {
			continue
		}

		directorHadIssue := false

		disq, _ := a.client.Disqualifications(ctx, officerID)
		if disq != nil && len(disq.Disqualifications) > 0 {
			disqualifiedCount++
			directorHadIssue = true
			for _, d := range disq.Disqualifications {
				until := d.DisqualifiedUntil
				if until == "" {
					until = "unknown"
				}
				result.Evidence = append(result.Evidence, models.Evidence{
					Confidence:  models.ConfidenceVerified,
					Severity:    models.SeverityHigh,
					Type:        "disqualification",
					Description: fmt.Sprintf("%s is disqualified until %s", name, until),
					Details: map[string]any{
						"director_name":      name,
						"reason":             d.Reason.DescriptionIdentifier,
						"disqualified_from":  d.DisqualifiedFrom,
						"disqualified_until": d.DisqualifiedUntil,
					},
					Source: "disqualified-officers",
				})
			}
		}

		appointmentList, _ := a.client.Appointments(ctx, officerID)
		if appointmentList == nil {
			continue
		}
		appointments := appointmentList.Items

		dissolved, total, dissolutionRate := heuristics.DissolutionRate(appointments)
		medianTenure, hasMedian := heuristics.MedianTenure(appointments, today)
		churnRate := heuristics.ChurnRate(appointments)
		activeCount := 0
		for _, appt := range appointments {
			if appt.ResignedOn == "" {
				activeCount++
			}
		}

		profileDetails := map[string]any{
			"director_name":       name,
			"total_appointments":  total,
			"active_appointments": activeCount,
			"dissolved_count":     dissolved,
			"dissolution_rate":    round1(dissolutionRate),
			"churn_rate":          round2(churnRate),
		}
		if hasMedian {
			profileDetails["median_tenure_years"] = round1(medianTenure)
		}
		result.Evidence = append(result.Evidence, models.Evidence{
			Confidence: models.ConfidenceVerified,
			Severity:   models.SeverityNone,
			Type:       "director_profile",
			Description: fmt.Sprintf("%s: %d lifetime appointments (%d active), %d dissolved (%.0f%%)",
				name, total, activeCount, dissolved, dissolutionRate),
			Details: profileDetails,
			Source:  "appointments",
		})

		if total >= 10 && dissolutionRate > 50 {
			highDissolutionDirectors = append(highDissolutionDirectors, name)
			directorHadIssue = true
			result.Evidence = append(result.Evidence, models.Evidence{
				Confidence:  models.ConfidenceVerified,
				Severity:    models.SeverityHigh,
				Type:        "high_dissolution_rate",
				Description: fmt.Sprintf("%s has %.0f%% dissolution rate across %d companies", name, dissolutionRate, total),
				Details: map[string]any{
					"director_name":       name,
					"dissolution_rate":    round1(dissolutionRate),
					"total_companies":     total,
					"dissolved_companies": dissolved,
				},
				Source: "appointments",
			})
		}

		if churnRate > 3 {
			highChurnDirectors = append(highChurnDirectors, name)
			directorHadIssue = true
			result.Evidence = append(result.Evidence, models.Evidence{
				Confidence:  models.ConfidenceVerified,
				Severity:    models.SeverityMedium,
				Type:        "high_churn",
				Description: fmt.Sprintf("%s has high appointment churn (%.1f new appointments/year)", name, churnRate),
				Details: map[string]any{
					"director_name": name,
					"churn_rate":    round2(churnRate),
				},
				Source: "appointments",
			})
		}

		var dissolvedCompanies []dissolvedAppointment
		for _, appt := range appointments {
			coStatus := appt.AppointedTo.CompanyStatus
			coNumber := appt.AppointedTo.CompanyNumber
			coName := appt.AppointedTo.CompanyName
			if coName == "" {
				coName = "Unknown"
			}

			if coStatus == "dissolved" && coNumber != companyNumber {
				dissolvedCompanies = append(dissolvedCompanies, dissolvedAppointment{
					companyNumber: coNumber,
					companyName:   coName,
				})
			}

			if !heuristics.InsolvencyStatuses[coStatus] || coNumber == companyNumber {
				continue
			}

			resignedOn, hasResigned := heuristics.ParseDate(appt.ResignedOn)

			assessment := "Director was present at failure"
			severity := models.SeverityHigh

			if hasResigned {
				insolvencyData, _ := a.client.Insolvency(ctx, coNumber)
				var insolvencyDate time.Time
				var hasInsolvencyDate bool
				if insolvencyData != nil && len(insolvencyData.Cases) > 0 {
					for _, caseDate := range insolvencyData.Cases[0].Dates {
						if caseDate.Type == "wound-up-on" || caseDate.Type == "instrumented-on" || caseDate.Type == "administration-started-on" {
							insolvencyDate, hasInsolvencyDate = heuristics.ParseDate(caseDate.Date)
							break
						}
					}
				}

				if hasInsolvencyDate {
					gap := heuristics.DaysBetween(resignedOn, insolvencyDate)
					switch {
					case gap > 0 && gap < 180:
						assessment = fmt.Sprintf("Resigned %d days before insolvency", gap)
						preInsolvencyResignations = append(preInsolvencyResignations, name)
					case gap <= 0:
						assessment = "Director was present at failure"
					default:
						assessment = fmt.Sprintf("Resigned %d days before insolvency", gap)
						severity = models.SeverityMedium
					}
				}
			}

			insolvencyAssociations = append(insolvencyAssociations, [2]string{name, coName})
			directorHadIssue = true

			appointedStr := appt.AppointedOn
			if appointedStr == "" {
				appointedStr = "?"
			}
			roleStr := "Director from " + appointedStr
			if hasResigned {
				roleStr += " to " + appt.ResignedOn
			}

			result.Evidence = append(result.Evidence, models.Evidence{
				Confidence: models.ConfidenceVerified,
				Severity:   severity,
				Type:       "insolvency_association",
				Description: fmt.Sprintf("%s - %s (%s) entered %s",
					name, coName, coNumber, strings.ReplaceAll(coStatus, "-", " ")),
				Details: map[string]any{
					"director_name":   name,
					"company_name":    coName,
					"company_number":  coNumber,
					"director_role":   roleStr,
					"insolvency_type": coStatus,
					"assessment":      assessment,
				},
				Source: "appointments + insolvency",
				Link:   heuristics.CompanyURL(coNumber),
			})
		}

		// Phoenix detection compares each dissolved company the director
		// left against the target's incorporation window, industry, and name.
		if targetDated {
			limit := len(dissolvedCompanies)
			if limit > 5 {
				limit = 5
			}
			for _, dc := range dissolvedCompanies[:limit] {
				dcProfile, _ := a.client.Company(ctx, dc.companyNumber)
				if dcProfile == nil {
					continue
				}

				dissolvedDate, ok := heuristics.ParseDate(dcProfile.DateOfCessation)
				if !ok {
					continue
				}

				gap := heuristics.DaysBetween(dissolvedDate, targetIncorporated)
				if gap < 0 || gap > 365 {
					continue
				}

				sicMatch := heuristics.SICOverlap(dcProfile.SICCodes, targetSIC)
				nameSimilarity := heuristics.NameSimilarity(dc.companyName, targetName)
				if !sicMatch && nameSimilarity <= 0.6 {
					continue
				}

				phoenixPatterns = append(phoenixPatterns, phoenixPattern{
					director:         name,
					dissolvedCompany: dc.companyName,
					dissolvedNumber:  dc.companyNumber,
					dissolvedDate:    dcProfile.DateOfCessation,
					gapDays:          gap,
					sicMatch:         sicMatch,
					nameSimilarity:   nameSimilarity,
				})
				directorHadIssue = true

				var indicators []string
				if sicMatch {
					indicators = append(indicators, "same industry (SIC)")
				}
				if nameSimilarity > 0.6 {
					indicators = append(indicators, fmt.Sprintf("similar name (%.0f%%)", nameSimilarity*100))
				}

				severity := models.SeverityMedium
				if len(phoenixPatterns) > 1 {
					severity = models.SeverityHigh
				}
				result.Evidence = append(result.Evidence, models.Evidence{
					Confidence: models.ConfidenceInferred,
					Severity:   severity,
					Type:       "phoenix_pattern",
					Description: fmt.Sprintf("Phoenix-likelihood: %s dissolved %s, %s incorporated %d days later (%s)",
						dc.companyName, dcProfile.DateOfCessation, targetName, gap, strings.Join(indicators, ", ")),
					Details: map[string]any{
						"director_name":       name,
						"dissolved_company":   dc.companyName,
						"dissolved_number":    dc.companyNumber,
						"dissolved_date":      dcProfile.DateOfCessation,
						"target_incorporated": targetProfile.DateOfCreation,
						"gap_days":            gap,
						"sic_match":           sicMatch,
						"name_similarity":     round2(nameSimilarity),
					},
					Disclaimer: "Cannot verify: asset/staff migration or creditor harm",
					Source:     "appointments + company profiles (inferred pattern)",
					Link:       heuristics.CompanyURL(dc.companyNumber),
				})
			}
		}

		if !directorHadIssue {
			result.Evidence = append(result.Evidence, models.Evidence{
				Confidence:  models.ConfidenceVerified,
				Severity:    models.SeverityNone,
				Type:        "clean_record",
				Description: fmt.Sprintf("%s - no insolvencies, disqualifications, or concerning patterns found", name),
				Details:     map[string]any{"director_name": name},
				Source:      "appointments + disqualified-officers",
			})
		}
	}

	totalInsolvencyHits := len(insolvencyAssociations)

	var firstInsolvencySummary string
	if totalInsolvencyHits > 0 {
		firstInsolvencySummary = fmt.Sprintf("%s associated with 1 previous insolvency (%s)",
			insolvencyAssociations[0][0], insolvencyAssociations[0][1])
	}
	var firstPhoenixSummary string
	if len(phoenixPatterns) > 0 {
		firstPhoenixSummary = fmt.Sprintf("Phoenix-like pattern: %s -> %s",
			phoenixPatterns[0].dissolvedCompany, targetName)
	}
	var firstDissolutionSummary, firstChurnSummary string
	if len(highDissolutionDirectors) > 0 {
		firstDissolutionSummary = "High dissolution rate for " + highDissolutionDirectors[0]
	}
	if len(highChurnDirectors) > 0 {
		firstChurnSummary = "High appointment churn for " + highChurnDirectors[0]
	}

	Evaluate(&result, []Rule{
		{
			When:    disqualifiedCount > 0,
			Rating:  models.RatingRedFlag,
			Logic:   fmt.Sprintf("%d director(s) formally disqualified", disqualifiedCount),
			Summary: fmt.Sprintf("%d director(s) disqualified from acting", disqualifiedCount),
		},
		{
			When:    len(highDissolutionDirectors) > 0,
			Rating:  models.RatingRedFlag,
			Logic:   "Director(s) with >50% dissolution rate: " + strings.Join(highDissolutionDirectors, ", "),
			Summary: firstDissolutionSummary,
		},
		{
			When:    totalInsolvencyHits >= 2,
			Rating:  models.RatingRedFlag,
			Logic:   fmt.Sprintf("Director(s) associated with %d insolvencies", totalInsolvencyHits),
			Summary: fmt.Sprintf("Directors linked to %d previous insolvencies", totalInsolvencyHits),
		},
		{
			When:    len(phoenixPatterns) >= 2,
			Rating:  models.RatingRedFlag,
			Logic:   fmt.Sprintf("Multiple phoenix-like patterns detected (%d)", len(phoenixPatterns)),
			Summary: "Multiple phoenix-like patterns detected (inferred)",
		},
		{
			When:    totalInsolvencyHits == 1,
			Rating:  models.RatingInvestigate,
			Logic:   "1 insolvency association found",
			Summary: firstInsolvencySummary,
		},
		{
			When:    len(phoenixPatterns) > 0,
			Rating:  models.RatingInvestigate,
			Logic:   "Phoenix-like pattern detected (inferred)",
			Summary: firstPhoenixSummary,
		},
		{
			When:    len(highChurnDirectors) > 0,
			Rating:  models.RatingInvestigate,
			Logic:   "High appointment churn: " + strings.Join(highChurnDirectors, ", "),
			Summary: firstChurnSummary,
		},
		{
			When:    len(preInsolvencyResignations) > 0,
			Rating:  models.RatingInvestigate,
			Logic:   "Director resigned within 6 months before insolvency at another company",
			Summary: "Director resigned shortly before another company entered insolvency",
		},
	},
		"No insolvency associations, disqualifications, or concerning patterns found",
		fmt.Sprintf("All %d directors checked - clean track record", len(directors)))

	for _, assoc := range insolvencyAssociations {
		result.WhatToAsk = append(result.WhatToAsk,
			fmt.Sprintf("Ask %s to explain their involvement in %s's insolvency", assoc[0], assoc[1]))
	}
	if totalInsolvencyHits > 0 {
		result.WhatToAsk = append(result.WhatToAsk,
			"Request the IP's report to check for findings of director misconduct",
			"Verify whether failures were due to external factors vs. management decisions")
	}
	for _, pp := range phoenixPatterns {
		result.WhatToAsk = append(result.WhatToAsk,
			fmt.Sprintf("Understand the relationship between %s and %s", pp.dissolvedCompany, targetName))
	}

	return result
}
