package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/rshade/freightfocus/internal/geo"
	"github.com/rshade/freightfocus/internal/logging"
)

const (
	// DefaultNominatimBaseURL is the public OpenStreetMap Nominatim endpoint.
	DefaultNominatimBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultPolitenessDelay spaces requests at most one per second, per
	// the Nominatim usage policy.
	DefaultPolitenessDelay = time.Second

	// DefaultRequestTimeout bounds a single search call.
	DefaultRequestTimeout = 10 * time.Second
)

// NominatimConfig configures a NominatimClient. Zero values fall back to
// the package defaults.
type NominatimConfig struct {
	BaseURL string

	// UserAgent identifies this tool to the provider. The public Nominatim
	// instance rejects requests without one.
	UserAgent string

	PolitenessDelay time.Duration

	Timeout time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// NominatimClient geocodes against a Nominatim-compatible search endpoint.
type NominatimClient struct {
	baseURL         string
	userAgent       string
	politenessDelay time.Duration
	httpClient      *http.Client

	mu          sync.Mutex
	nextAllowed time.Time
}

// NewNominatimClient builds a client for cfg.
func NewNominatimClient(cfg NominatimConfig) *NominatimClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultNominatimBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "freightfocus (+https://github.com/rshade/freightfocus)"
	}
	delay := cfg.PolitenessDelay
	if delay == 0 {
		delay = DefaultPolitenessDelay
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultRequestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &NominatimClient{
		baseURL:         strings.TrimRight(baseURL, "/"),
		userAgent:       userAgent,
		politenessDelay: delay,
		httpClient:      httpClient,
	}
}

// nominatimPlace mirrors the provider's search response. Coordinates come
// back as strings.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode performs one search, waiting out the politeness delay first.
func (c *NominatimClient) Geocode(ctx context.Context, query string) (*Result, error) {
	if err := c.waitTurn(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	logging.FromContext(ctx).Debug().
		Str("component", "geocode").
		Str("operation", "nominatim_search").
		Str("query", query).
		Msg("geocoding query")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(query), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %w", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", ErrUnavailable, err)
	}
	if len(places) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, query)
	}

	place := places[0]
	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude %q", ErrUnavailable, place.Lat)
	}
	lon, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude %q", ErrUnavailable, place.Lon)
	}

	point := geo.Point{Lat: lat, Lon: lon}
	if err := point.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return &Result{
		Point:       point,
		DisplayName: place.DisplayName,
		Provider:    "nominatim",
	}, nil
}

func (c *NominatimClient) searchURL(query string) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	return c.baseURL + "/search?" + params.Encode()
}

// waitTurn enforces the minimum spacing between requests. The reservation
// is taken under the lock so concurrent callers queue up one slot each,
// then the actual sleep happens outside it.
func (c *NominatimClient) waitTurn(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	wait := time.Duration(0)
	if now.Before(c.nextAllowed) {
		wait = c.nextAllowed.Sub(now)
	}
	c.nextAllowed = now.Add(wait + c.politenessDelay)
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
