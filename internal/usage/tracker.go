// Package usage counts analysis runs globally and per company.
package usage

import (
	"context"
	"time"
)

// Stats reports run counts for one company alongside the global total.
type Stats struct {
	GlobalRuns  int64      `json:"global_runs"`
	CompanyRuns int64      `json:"company_runs"`
	FirstRun    *time.Time `json:"first_run"`
	LastRun     *time.Time `json:"last_run"`
}

// Tracker records analysis runs. Implementations must be safe for
// concurrent use.
type Tracker interface {
	// Record bumps the counters for a company and returns its updated stats.
	Record(ctx context.Context, companyNumber string) (Stats, error)
	// Stats reads counters without recording a run. Unknown companies
	// return zero counts, not an error.
	Stats(ctx context.Context, companyNumber string) (Stats, error)
	Close() error
}
