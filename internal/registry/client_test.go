package registry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/registrylens/registry-risk/internal/cache"
)

func newTestRegistryClient(provider cache.Provider, rt roundTripFunc) *Client {
	client := NewClient(Config{
		BaseURL: "https://registry.example.com",
		APIKey:  "test-key",
	}, provider, nil)
	client.httpClient = newTestClient(rt)
	client.sleep = func(context.Context, time.Duration) error { return nil }
	return client
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

func TestOfficersCachesResponse(t *testing.T) {
	hits := 0
	client := newTestRegistryClient(cache.NewMemoryProvider(), func(req *http.Request) (*http.Response, error) {
		hits++
		if req.URL.Path != "/company/01234567/officers" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got == "" {
			t.Fatal("missing authorization header")
		}
		return jsonResponse(http.StatusOK, `{"items":[{"name":"SMITH, Jane","officer_role":"director"}]}`), nil
	})

	ctx := context.Background()
	list, err := client.Officers(ctx, "01234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected one upstream request, got %d", hits)
	}
	if len(list.Items) != 1 || list.Items[0].Name != "SMITH, Jane" {
		t.Fatalf("unexpected response: %+v", list)
	}

	remaining := client.Remaining()
	cached, err := client.Officers(ctx, "01234567")
	if err != nil {
		t.Fatalf("unexpected cached error: %v", err)
	}
	if hits != 1 {
		t.Fatalf("cache miss triggered network call; hits=%d", hits)
	}
	if len(cached.Items) != 1 {
		t.Fatalf("unexpected cached payload: %+v", cached)
	}
	// Cache hits must not consume rate-limit budget.
	if client.Remaining() != remaining {
		t.Fatalf("cached read consumed a request slot")
	}
}

func TestCompanyNeverCached(t *testing.T) {
	hits := 0
	client := newTestRegistryClient(cache.NewMemoryProvider(), func(*http.Request) (*http.Response, error) {
		hits++
		return jsonResponse(http.StatusOK, `{"company_number":"01234567","company_name":"ACME LTD"}`), nil
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		profile, err := client.Company(ctx, "01234567")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if profile.CompanyName != "ACME LTD" {
			t.Fatalf("unexpected profile: %+v", profile)
		}
	}
	if hits != 2 {
		t.Fatalf("profile reads must bypass the cache; hits=%d", hits)
	}
}

func TestNotFoundReturnsNilPayload(t *testing.T) {
	client := newTestRegistryClient(cache.NewMemoryProvider(), func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"errors":[{"error":"company-profile-not-found"}]}`), nil
	})

	profile, err := client.Company(context.Background(), "99999999")
	if err != nil {
		t.Fatalf("not-found should not error: %v", err)
	}
	if profile != nil {
		t.Fatalf("expected nil profile, got %+v", profile)
	}
}

func TestServerErrorRetriesThenFails(t *testing.T) {
	hits := 0
	client := newTestRegistryClient(cache.NewMemoryProvider(), func(*http.Request) (*http.Response, error) {
		hits++
		return jsonResponse(http.StatusInternalServerError, `{}`), nil
	})

	_, err := client.Insolvency(context.Background(), "01234567")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if hits != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits)
	}
}

func TestServerErrorRecoversOnRetry(t *testing.T) {
	hits := 0
	client := newTestRegistryClient(cache.NewMemoryProvider(), func(*http.Request) (*http.Response, error) {
		hits++
		if hits == 1 {
			return jsonResponse(http.StatusBadGateway, `{}`), nil
		}
		return jsonResponse(http.StatusOK, `{"items":[]}`), nil
	})

	list, err := client.Charges(context.Background(), "01234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list == nil || hits != 2 {
		t.Fatalf("expected recovery on second attempt; hits=%d", hits)
	}
}

func TestOverloadBackoffRetries(t *testing.T) {
	hits := 0
	var waits []time.Duration
	client := newTestRegistryClient(cache.NewMemoryProvider(), func(*http.Request) (*http.Response, error) {
		hits++
		if hits < 3 {
			return jsonResponse(http.StatusTooManyRequests, `{}`), nil
		}
		return jsonResponse(http.StatusOK, `{"items":[]}`), nil
	})
	client.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	list, err := client.PSCs(context.Background(), "01234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list == nil {
		t.Fatal("expected payload after backoff")
	}
	if len(waits) != 2 || waits[0] != 10*time.Second || waits[1] != 30*time.Second {
		t.Fatalf("unexpected backoff schedule: %v", waits)
	}
}

func TestNetworkErrorWrapsUpstreamUnavailable(t *testing.T) {
	client := newTestRegistryClient(cache.NewMemoryProvider(), func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	_, err := client.FilingHistory(context.Background(), "01234567", "accounts")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}
