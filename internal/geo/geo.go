// Package geo resolves network origins to an approximate location via
// an external IP-geolocation collaborator. Lookups are best-effort:
// every failure mode surfaces as an error the caller is expected to
// tolerate by leaving location fields unknown.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/linklite/linklite/internal/metrics"
)

// Location is a best-effort city/country pair for a network origin.
type Location struct {
	City    string
	Country string
}

// Locator resolves an IP address to a Location.
// Implementations should be safe for concurrent use.
type Locator interface {
	Locate(ctx context.Context, ip string) (Location, error)
}

// ErrUnresolvable marks origins that can never produce a location
// (private ranges, loopback, malformed addresses).
var ErrUnresolvable = errors.New("origin not resolvable to a location")

// HTTPLocator queries an ip-api style JSON endpoint:
// GET {endpoint}/{ip} -> {"status":"success","city":"..","country":".."}.
type HTTPLocator struct {
	endpoint string
	client   *http.Client
}

// NewHTTPLocator returns a Locator backed by the given endpoint. The
// timeout bounds each lookup end to end.
func NewHTTPLocator(endpoint string, timeout time.Duration) *HTTPLocator {
	return &HTTPLocator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type lookupResponse struct {
	Status  string `json:"status"`
	City    string `json:"city"`
	Country string `json:"country"`
}

func (l *HTTPLocator) Locate(ctx context.Context, ip string) (Location, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return Location{}, ErrUnresolvable
	}
	// Private and loopback origins would only waste a round trip.
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsUnspecified() || addr.IsLinkLocalUnicast() {
		return Location{}, ErrUnresolvable
	}

	reqURL := fmt.Sprintf("%s/%s", l.endpoint, url.PathEscape(addr.String()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Location{}, fmt.Errorf("geo: build request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		metrics.GeoLookupFailures.Inc()
		return Location{}, fmt.Errorf("geo: lookup %s: %w", addr, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		metrics.GeoLookupFailures.Inc()
		return Location{}, fmt.Errorf("geo: lookup %s: unexpected status %d", addr, resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.GeoLookupFailures.Inc()
		return Location{}, fmt.Errorf("geo: decode response: %w", err)
	}
	if body.Status != "success" {
		return Location{}, ErrUnresolvable
	}

	return Location{City: body.City, Country: body.Country}, nil
}

// CachedLocator wraps a Locator with a TTL cache keyed by IP, so that
// bursts of clicks from the same origin hit the collaborator once.
type CachedLocator struct {
	inner Locator
	cache *gocache.Cache
}

// NewCachedLocator wraps inner with a cache using the given TTL.
func NewCachedLocator(inner Locator, ttl time.Duration) *CachedLocator {
	return &CachedLocator{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedLocator) Locate(ctx context.Context, ip string) (Location, error) {
	if v, ok := c.cache.Get(ip); ok {
		return v.(Location), nil
	}

	loc, err := c.inner.Locate(ctx, ip)
	if err != nil {
		return Location{}, err
	}

	c.cache.SetDefault(ip, loc)
	return loc, nil
}

// NoopLocator always reports the origin as unresolvable. Used when
// geolocation is disabled and in tests.
type NoopLocator struct{}

func (NoopLocator) Locate(ctx context.Context, ip string) (Location, error) {
	return Location{}, ErrUnresolvable
}
