package registry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/registrylens/registry-risk/internal/cache"
	"github.com/registrylens/registry-risk/internal/metrics"
)

// ErrNotFound signals a definitive "resource does not exist" response.
// Typed endpoint methods translate it into a nil payload so callers can
// distinguish "no data" from "call failed".
var ErrNotFound = errors.New("registry: not found")

// ErrUpstreamUnavailable signals a network or server failure that survived
// all retries.
var ErrUpstreamUnavailable = errors.New("registry: upstream unavailable")

// Config carries the settings for the registry client.
type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxRequests int
	Window      time.Duration
	// DefaultTTL applies to every cacheable endpoint. Company profiles are
	// never cached because their overdue flags are time-sensitive.
	DefaultTTL time.Duration
}

// Client is the single chokepoint for upstream registry calls. It owns rate
// limiting, response caching, and retry/backoff; the cache and limiter are
// shared mutable state safe for all concurrently running analyzers.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	limiter    *windowLimiter
	cache      cache.Provider
	flight     singleflight.Group
	logger     *slog.Logger
	defaultTTL time.Duration

	overloadBackoff []time.Duration
	serverDelay     time.Duration
	sleep           func(context.Context, time.Duration) error
}

// NewClient constructs a registry client. A nil provider disables caching.
func NewClient(cfg Config, provider cache.Provider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	defaultTTL := cfg.DefaultTTL
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}

	authHeader := ""
	if cfg.APIKey != "" {
		authHeader = "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.APIKey+":"))
	}

	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		authHeader:      authHeader,
		httpClient:      &http.Client{Timeout: timeout},
		limiter:         newWindowLimiter(cfg.MaxRequests, cfg.Window),
		cache:           provider,
		logger:          logger,
		defaultTTL:      defaultTTL,
		overloadBackoff: []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second},
		serverDelay:     5 * time.Second,
		sleep:           sleepCtx,
	}
}

// Remaining reports the free request slots in the current rate-limit window.
func (c *Client) Remaining() int { return c.limiter.Remaining() }

// CacheSize reports the number of cached registry responses.
func (c *Client) CacheSize(ctx context.Context) int {
	n, err := c.cache.Len(ctx)
	if err != nil {
		return 0
	}
	return n
}

// Company returns a company profile, or nil when the company is unknown.
// Never cached: the overdue-filing flags must always be fresh.
func (c *Client) Company(ctx context.Context, companyNumber string) (*CompanyProfile, error) {
	var profile CompanyProfile
	ok, err := c.fetch(ctx, "company", "/company/"+companyNumber, nil, 0, &profile)
	if !ok || err != nil {
		return nil, err
	}
	return &profile, nil
}

// Officers returns all officers (directors, secretaries) of a company.
func (c *Client) Officers(ctx context.Context, companyNumber string) (*OfficerList, error) {
	params := url.Values{"items_per_page": {"100"}}
	var list OfficerList
	ok, err := c.fetch(ctx, "officers", "/company/"+companyNumber+"/officers", params, c.defaultTTL, &list)
	if !ok || err != nil {
		return nil, err
	}
	return &list, nil
}

// Appointments returns an officer's full appointment history.
func (c *Client) Appointments(ctx context.Context, officerID string) (*AppointmentList, error) {
	params := url.Values{"items_per_page": {"50"}}
	var list AppointmentList
	ok, err := c.fetch(ctx, "appointments", "/officers/"+officerID+"/appointments", params, c.defaultTTL, &list)
	if !ok || err != nil {
		return nil, err
	}
	return &list, nil
}

// Disqualifications returns an officer's disqualification record, or nil
// when the officer has none.
func (c *Client) Disqualifications(ctx context.Context, officerID string) (*DisqualificationRecord, error) {
	var record DisqualificationRecord
	ok, err := c.fetch(ctx, "disqualifications", "/disqualified-officers/natural/"+officerID, nil, c.defaultTTL, &record)
	if !ok || err != nil {
		return nil, err
	}
	return &record, nil
}

// Insolvency returns a company's insolvency case data, if any.
func (c *Client) Insolvency(ctx context.Context, companyNumber string) (*InsolvencyRecord, error) {
	var record InsolvencyRecord
	ok, err := c.fetch(ctx, "insolvency", "/company/"+companyNumber+"/insolvency", nil, c.defaultTTL, &record)
	if !ok || err != nil {
		return nil, err
	}
	return &record, nil
}

// PSCs returns a company's control-holder register.
func (c *Client) PSCs(ctx context.Context, companyNumber string) (*PSCList, error) {
	var list PSCList
	ok, err := c.fetch(ctx, "pscs", "/company/"+companyNumber+"/persons-with-significant-control", nil, c.defaultTTL, &list)
	if !ok || err != nil {
		return nil, err
	}
	return &list, nil
}

// PSCStatements returns control statements, which flag incomplete registers.
func (c *Client) PSCStatements(ctx context.Context, companyNumber string) (*PSCStatementList, error) {
	var list PSCStatementList
	ok, err := c.fetch(ctx, "psc_statements", "/company/"+companyNumber+"/persons-with-significant-control-statements", nil, c.defaultTTL, &list)
	if !ok || err != nil {
		return nil, err
	}
	return &list, nil
}

// FilingHistory returns filing history, optionally filtered by category.
func (c *Client) FilingHistory(ctx context.Context, companyNumber, category string) (*FilingHistory, error) {
	params := url.Values{"items_per_page": {"100"}}
	if category != "" {
		params.Set("category", category)
	}
	var history FilingHistory
	ok, err := c.fetch(ctx, "filing_history", "/company/"+companyNumber+"/filing-history", params, c.defaultTTL, &history)
	if !ok || err != nil {
		return nil, err
	}
	return &history, nil
}

// Charges returns all registered charges for a company.
func (c *Client) Charges(ctx context.Context, companyNumber string) (*ChargeList, error) {
	var list ChargeList
	ok, err := c.fetch(ctx, "charges", "/company/"+companyNumber+"/charges", nil, c.defaultTTL, &list)
	if !ok || err != nil {
		return nil, err
	}
	return &list, nil
}

// RegisteredOffice returns the current registered office address.
func (c *Client) RegisteredOffice(ctx context.Context, companyNumber string) (map[string]any, error) {
	var address map[string]any
	ok, err := c.fetch(ctx, "registered_office", "/company/"+companyNumber+"/registered-office-address", nil, c.defaultTTL, &address)
	if !ok || err != nil {
		return nil, err
	}
	return address, nil
}

// fetch runs one cached, rate-limited, retrying GET and decodes into out.
// Returns (false, nil) on a definitive not-found.
func (c *Client) fetch(ctx context.Context, resource, path string, params url.Values, ttl time.Duration, out any) (bool, error) {
	payload, err := c.get(ctx, resource, path, params, ttl)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("decode %s response: %w", resource, err)
	}
	return true, nil
}

func (c *Client) get(ctx context.Context, resource, path string, params url.Values, ttl time.Duration) ([]byte, error) {
	key := path
	if len(params) > 0 {
		key = path + "?" + params.Encode()
	}

	if ttl > 0 {
		if cached, err := c.cache.Get(ctx, key, ttl); err == nil {
			metrics.ObserveCacheLookup(true)
			return cached, nil
		}
		metrics.ObserveCacheLookup(false)
	}

	// Identical in-flight requests from concurrent analyzers collapse into
	// one upstream call.
	payload, err, _ := c.flight.Do(key, func() (any, error) {
		return c.doGet(ctx, resource, key, ttl)
	})
	if err != nil {
		return nil, err
	}
	return payload.([]byte), nil
}

func (c *Client) doGet(ctx context.Context, resource, key string, ttl time.Duration) ([]byte, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + key

	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		if c.authHeader != "" {
			req.Header.Set("Authorization", c.authHeader)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("registry request failed", slog.String("resource", resource), slog.Any("error", err))
			metrics.ObserveUpstreamRequest(resource, metrics.OutcomeError)
			if attempt < 2 {
				if serr := c.sleep(ctx, c.serverDelay); serr != nil {
					return nil, serr
				}
				continue
			}
			return nil, fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, resource, err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				return nil, fmt.Errorf("read %s response: %w", resource, readErr)
			}
			metrics.ObserveUpstreamRequest(resource, metrics.OutcomeSuccess)
			if ttl > 0 {
				if err := c.cache.Set(ctx, key, body); err != nil {
					c.logger.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
				}
			}
			return body, nil

		case resp.StatusCode == http.StatusNotFound:
			metrics.ObserveUpstreamRequest(resource, metrics.OutcomeNotFound)
			return nil, ErrNotFound

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := c.overloadBackoff[attempt]
			c.logger.Warn("registry rate limited",
				slog.String("resource", resource),
				slog.Duration("wait", wait),
				slog.Int("attempt", attempt+1))
			metrics.ObserveRateLimitWait()
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}

		default:
			c.logger.Error("registry error response",
				slog.String("resource", resource),
				slog.Int("status", resp.StatusCode))
			metrics.ObserveUpstreamRequest(resource, metrics.OutcomeError)
			if attempt < 2 {
				if err := c.sleep(ctx, c.serverDelay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("%w: %s returned status %d", ErrUpstreamUnavailable, resource, resp.StatusCode)
		}
	}

	return nil, fmt.Errorf("%w: %s retries exhausted", ErrUpstreamUnavailable, resource)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
