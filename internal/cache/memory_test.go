package cache

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryProviderRoundTrip(t *testing.T) {
	provider := NewMemoryProvider()
	ctx := context.Background()

	payload := []byte(`{"company_name":"ACME LTD"}`)
	if err := provider.Set(ctx, "company/00000001", payload); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := provider.Get(ctx, "company/00000001", time.Hour)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: %s", got)
	}

	if _, err := provider.Get(ctx, "company/missing", time.Hour); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss for unknown key, got %v", err)
	}
}

func TestMemoryProviderExpiryEvicts(t *testing.T) {
	provider := NewMemoryProvider()
	ctx := context.Background()

	current := time.Unix(1_700_000_000, 0)
	provider.now = func() time.Time { return current }

	if err := provider.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}

	current = current.Add(25 * time.Hour)
	if _, err := provider.Get(ctx, "k", 24*time.Hour); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}

	// Expired read must also evict the entry.
	if n, _ := provider.Len(ctx); n != 0 {
		t.Fatalf("expected eviction, %d entries remain", n)
	}
}

func TestMemoryProviderPerReaderTTL(t *testing.T) {
	provider := NewMemoryProvider()
	ctx := context.Background()

	current := time.Unix(1_700_000_000, 0)
	provider.now = func() time.Time { return current }

	if err := provider.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	current = current.Add(10 * time.Minute)

	if _, err := provider.Get(ctx, "k", time.Hour); err != nil {
		t.Fatalf("long-TTL reader should hit: %v", err)
	}
	if _, err := provider.Get(ctx, "k", time.Minute); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("short-TTL reader should miss, got %v", err)
	}
}

func TestMemoryProviderDel(t *testing.T) {
	provider := NewMemoryProvider()
	ctx := context.Background()

	if err := provider.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := provider.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := provider.Get(ctx, "k", time.Hour); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}
