package usage

import (
	"context"
	"testing"
	"time"
)

func TestMemoryTrackerRecord(t *testing.T) {
	tracker := NewMemoryTracker()
	current := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return current }
	ctx := context.Background()

	stats, err := tracker.Record(ctx, "01234567")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if stats.GlobalRuns != 1 || stats.CompanyRuns != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.FirstRun == nil || !stats.FirstRun.Equal(current) {
		t.Fatalf("first run not stamped: %+v", stats.FirstRun)
	}

	current = current.Add(time.Hour)
	stats, err = tracker.Record(ctx, "01234567")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if stats.CompanyRuns != 2 {
		t.Fatalf("company runs should accumulate: %+v", stats)
	}
	if !stats.FirstRun.Before(*stats.LastRun) {
		t.Fatalf("first run must not move: first=%v last=%v", stats.FirstRun, stats.LastRun)
	}

	// A different company bumps global but starts its own counter.
	stats, err = tracker.Record(ctx, "07654321")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if stats.GlobalRuns != 3 || stats.CompanyRuns != 1 {
		t.Fatalf("unexpected counts for second company: %+v", stats)
	}
}

func TestMemoryTrackerStatsUnknownCompany(t *testing.T) {
	tracker := NewMemoryTracker()
	stats, err := tracker.Stats(context.Background(), "99999999")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.CompanyRuns != 0 || stats.FirstRun != nil || stats.LastRun != nil {
		t.Fatalf("unknown company should report zeroes: %+v", stats)
	}
}
