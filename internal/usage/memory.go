package usage

import (
	"context"
	"sync"
	"time"
)

type companyRuns struct {
	runs     int64
	firstRun time.Time
	lastRun  time.Time
}

// MemoryTracker keeps run counts in process memory. Counts reset on restart;
// use the Postgres tracker when persistence matters.
type MemoryTracker struct {
	mu        sync.Mutex
	global    int64
	companies map[string]*companyRuns
	now       func() time.Time
}

// NewMemoryTracker builds an empty in-memory tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		companies: make(map[string]*companyRuns),
		now:       time.Now,
	}
}

// Record bumps the global and per-company counters.
func (t *MemoryTracker) Record(_ context.Context, companyNumber string) (Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.global++
	entry, ok := t.companies[companyNumber]
	now := t.now().UTC()
	if !ok {
		entry = &companyRuns{firstRun: now}
		t.companies[companyNumber] = entry
	}
	entry.runs++
	entry.lastRun = now

	return t.statsLocked(companyNumber), nil
}

// Stats reads counters without recording a run.
func (t *MemoryTracker) Stats(_ context.Context, companyNumber string) (Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statsLocked(companyNumber), nil
}

func (t *MemoryTracker) statsLocked(companyNumber string) Stats {
	stats := Stats{GlobalRuns: t.global}
	if entry, ok := t.companies[companyNumber]; ok {
		stats.CompanyRuns = entry.runs
		first, last := entry.firstRun, entry.lastRun
		stats.FirstRun = &first
		stats.LastRun = &last
	}
	return stats
}

// Close is a no-op for the in-memory tracker.
func (t *MemoryTracker) Close() error { return nil }
