package registry

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestWindowLimiterAdmitsUpToCapacity(t *testing.T) {
	limiter := newWindowLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if got := limiter.Remaining(); got != 0 {
		t.Fatalf("expected full window, remaining=%d", got)
	}
}

func TestWindowLimiterBlocksUntilOldestExpires(t *testing.T) {
	limiter := newWindowLimiter(1, time.Hour)

	current := time.Unix(1_700_000_000, 0)
	var mu sync.Mutex
	limiter.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	// A full window must block a second caller until the context ends.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := limiter.Acquire(ctx); err == nil {
		t.Fatal("expected second acquire to block until cancellation")
	}

	mu.Lock()
	current = current.Add(2 * time.Hour)
	mu.Unlock()
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after window rolled: %v", err)
	}
}

func TestWindowLimiterConcurrentCallersNeverOverfill(t *testing.T) {
	limiter := newWindowLimiter(50, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	admitted := make(chan struct{}, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := limiter.Acquire(ctx); err == nil {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	count := 0
	for range admitted {
		count++
	}
	if count != 50 {
		t.Fatalf("expected exactly 50 admissions in the window, got %d", count)
	}
}
