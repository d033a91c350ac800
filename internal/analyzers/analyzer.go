// Package analyzers holds the six behavioural dimension analyzers. Each one
// reads registry records through a shared client and produces a rated,
// evidence-backed dimension result.
package analyzers

import (
	"context"
	"math"
	"time"

	"github.com/registrylens/registry-risk/internal/models"
	"github.com/registrylens/registry-risk/internal/registry"
)

// Client is the registry surface the analyzers consume.
type Client interface {
	Company(ctx context.Context, companyNumber string) (*registry.CompanyProfile, error)
	Officers(ctx context.Context, companyNumber string) (*registry.OfficerList, error)
	Appointments(ctx context.Context, officerID string) (*registry.AppointmentList, error)
	Disqualifications(ctx context.Context, officerID string) (*registry.DisqualificationRecord, error)
	Insolvency(ctx context.Context, companyNumber string) (*registry.InsolvencyRecord, error)
	PSCs(ctx context.Context, companyNumber string) (*registry.PSCList, error)
	PSCStatements(ctx context.Context, companyNumber string) (*registry.PSCStatementList, error)
	FilingHistory(ctx context.Context, companyNumber, category string) (*registry.FilingHistory, error)
	Charges(ctx context.Context, companyNumber string) (*registry.ChargeList, error)
	RegisteredOffice(ctx context.Context, companyNumber string) (map[string]any, error)
}

// Analyzer rates one behavioural dimension of a company.
type Analyzer interface {
	// Dimension is the stable identifier used as the report map key.
	Dimension() string
	// Analyze builds the dimension result. Implementations degrade on
	// missing upstream data instead of returning errors; a hard failure is
	// reported through the result's rating and summary.
	Analyze(ctx context.Context, companyNumber string) models.DimensionResult
}

// All returns the full analyzer set in report order.
func All(client Client) []Analyzer {
	now := time.Now
	return []Analyzer{
		&TrackRecordAnalyzer{client: client, now: now},
		&ControlNetworkAnalyzer{client: client, now: now},
		&FilingDisciplineAnalyzer{client: client, now: now},
		&GovernanceAnalyzer{client: client, now: now},
		&OwnershipClarityAnalyzer{client: client, now: now},
		&ReadinessAnalyzer{client: client, now: now},
	}
}

func currentDirectors(list *registry.OfficerList) []registry.Officer {
	if list == nil {
		return nil
	}
	var directors []registry.Officer
	for _, o := range list.Items {
		if (o.OfficerRole == "director" || o.OfficerRole == "corporate-director") && o.ResignedOn == "" {
			directors = append(directors, o)
		}
	}
	return directors
}

func resignedDirectors(list *registry.OfficerList) []registry.Officer {
	if list == nil {
		return nil
	}
	var directors []registry.Officer
	for _, o := range list.Items {
		if (o.OfficerRole == "director" || o.OfficerRole == "corporate-director") && o.ResignedOn != "" {
			directors = append(directors, o)
		}
	}
	return directors
}

func activePSCs(list *registry.PSCList) []registry.PSC {
	if list == nil {
		return nil
	}
	var active []registry.PSC
	for _, p := range list.Items {
		if p.CeasedOn == "" {
			active = append(active, p)
		}
	}
	return active
}

func ceasedPSCs(list *registry.PSCList) []registry.PSC {
	if list == nil {
		return nil
	}
	var ceased []registry.PSC
	for _, p := range list.Items {
		if p.CeasedOn != "" {
			ceased = append(ceased, p)
		}
	}
	return ceased
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
