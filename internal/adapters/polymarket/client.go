package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"pythia/internal/metrics"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

const (
	defaultGammaURL = "https://gamma-api.polymarket.com"
	defaultDataURL  = "https://data-api.polymarket.com"
	defaultClobURL  = "https://clob.polymarket.com"

	defaultTimeout = 30 * time.Second
	defaultRPS     = 8

	apiGamma = "gamma"
	apiData  = "data"
	apiClob  = "clob"
)

// UpstreamError reports a non-2xx status or unparsable body from one of the
// Polymarket APIs. It unwraps to ErrExternal so callers can classify it
// without string matching.
type UpstreamError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("polymarket upstream error: HTTP %d for %s", e.StatusCode, e.URL)
}

func (e *UpstreamError) Unwrap() error {
	return errors.ErrExternal
}

// PayloadCache is a best-effort cache for list responses. Implementations
// must be safe for concurrent use; any failure surfaces as a miss.
type PayloadCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte)
}

// Config configures the Polymarket API client.
type Config struct {
	GammaURL string
	DataURL  string
	ClobURL  string

	// Timeout bounds one upstream request end to end.
	Timeout time.Duration

	// RateLimitRPS is the shared request budget across all three APIs.
	RateLimitRPS int

	// Cache, when set, short-circuits market and event list fetches.
	Cache PayloadCache

	HTTPClient *http.Client
}

// Client wraps the three Polymarket read-only APIs: gamma (catalog), data
// (positions/trades/holders) and clob (order books). All requests share one
// rate limiter and one timeout policy; all payload parsing is defensive
// since upstream schemas vary between endpoints and over time.
type Client struct {
	gammaURL   string
	dataURL    string
	clobURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      PayloadCache
	log        *logger.Logger
}

// NewClient creates a Polymarket API client.
func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.GammaURL == "" {
		cfg.GammaURL = defaultGammaURL
	}
	if cfg.DataURL == "" {
		cfg.DataURL = defaultDataURL
	}
	if cfg.ClobURL == "" {
		cfg.ClobURL = defaultClobURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = defaultRPS
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		gammaURL:   cfg.GammaURL,
		dataURL:    cfg.DataURL,
		clobURL:    cfg.ClobURL,
		httpClient: cfg.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		cache:      cfg.Cache,
		log:        log.With("component", "polymarket_client"),
	}
}

// getJSON performs one rate-limited GET against the given API base and
// decodes the body into target. Non-2xx statuses and unparsable bodies both
// return an *UpstreamError.
func (c *Client) getJSON(ctx context.Context, api, base, path string, params url.Values, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "polymarket rate limiter")
	}

	reqURL := base + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to create request for %s", reqURL)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordUpstreamRequest(api, time.Since(start), err)
	if err != nil {
		return errors.Wrapf(err, "upstream request failed: %s", reqURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "failed to read upstream response: %s", reqURL)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{URL: reqURL, StatusCode: resp.StatusCode, Body: excerpt(body)}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return &UpstreamError{URL: reqURL, StatusCode: resp.StatusCode, Body: "unparsable body: " + err.Error()}
	}
	return nil
}

// cachedList wraps a list fetch with the optional payload cache. The fetch
// result is stored JSON-encoded; cache failures fall through to the live
// call silently.
func cachedList[T any](ctx context.Context, c *Client, key string, fetch func() ([]T, error)) ([]T, error) {
	if c.cache != nil {
		if payload, ok := c.cache.Get(ctx, key); ok {
			var cached []T
			if err := json.Unmarshal(payload, &cached); err == nil {
				return cached, nil
			}
		}
	}

	result, err := fetch()
	if err != nil {
		return nil, err
	}

	if c.cache != nil && len(result) > 0 {
		if payload, err := json.Marshal(result); err == nil {
			c.cache.Set(ctx, key, payload)
		}
	}
	return result, nil
}

func excerpt(body []byte) string {
	const max = 300
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
