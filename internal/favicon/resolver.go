package favicon

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/guillaumegarcia13/umami-sessions-service/internal/metrics"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/registry"
)

// PlaceholderIcon is the local data URI returned for excluded websites
// and empty domains, avoiding any external lookup.
const PlaceholderIcon = "data:image/svg+xml;base64,PHN2ZyB4bWxucz0iaHR0cDovL3d3dy53My5vcmcvMjAwMC9zdmciIHdpZHRoPSIzMiIgaGVpZ2h0PSIzMiI+PGNpcmNsZSBjeD0iMTYiIGN5PSIxNiIgcj0iMTQiIGZpbGw9IiNjY2MiLz48L3N2Zz4="

// sweepProbability is the per-lookup chance of running an eager cache
// sweep, bounding memory without a background goroutine.
const sweepProbability = 0.01

// wellKnownPaths are the conventional icon locations probed directly on
// the target origin.
var wellKnownPaths = []string{"/favicon.ico", "/favicon.png", "/apple-touch-icon.png"}

// Prober checks whether a candidate icon URL is reachable.
type Prober interface {
	Exists(ctx context.Context, url string) bool
}

// HTTPProber probes candidate URLs with HEAD requests.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber creates an HTTPProber with the given per-probe timeout.
func NewHTTPProber(timeout time.Duration) *HTTPProber {
	return &HTTPProber{client: &http.Client{Timeout: timeout}}
}

// Exists reports whether a HEAD request to the URL answers 2xx.
func (p *HTTPProber) Exists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Resolver resolves favicon URLs for domains through a fixed strategy
// order: exclusion short-circuit, cache, whitelist fast path, well-known
// origin paths, then a guaranteed external fallback. Resolve never fails.
type Resolver struct {
	cache    Cache
	websites *registry.WebsiteRegistry
	prober   Prober
	metrics  *metrics.Metrics
	logger   *logrus.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

// NewResolver creates a Resolver.
func NewResolver(cache Cache, websites *registry.WebsiteRegistry, prober Prober, m *metrics.Metrics, logger *logrus.Logger) *Resolver {
	return &Resolver{
		cache:    cache,
		websites: websites,
		prober:   prober,
		metrics:  m,
		logger:   logger,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Resolve returns a favicon URL for the domain. The result is always
// non-empty: excluded or empty domains get the local placeholder, and
// the external favicon service serves as the final fallback when no
// probe succeeds.
func (r *Resolver) Resolve(ctx context.Context, domain string) string {
	if domain == "" {
		return PlaceholderIcon
	}
	if r.websites.IsExcluded(domain) {
		return PlaceholderIcon
	}

	if r.roll() < sweepProbability {
		r.cache.Sweep(ctx)
	}

	if url, ok := r.cache.Get(ctx, domain); ok {
		r.metrics.ObserveCacheHit()
		return url
	}
	r.metrics.ObserveCacheMiss()

	url := r.resolveUncached(ctx, domain)
	r.cache.Set(ctx, domain, url)
	return url
}

func (r *Resolver) resolveUncached(ctx context.Context, domain string) string {
	service := fmt.Sprintf("https://favicone.com/%s?s=32", domain)

	if r.websites.IsWhitelisted(domain) {
		if r.prober.Exists(ctx, service) {
			return service
		}
	}

	for _, path := range wellKnownPaths {
		candidate := fmt.Sprintf("https://%s%s", domain, path)
		if r.prober.Exists(ctx, candidate) {
			return candidate
		}
	}

	if r.prober.Exists(ctx, service) {
		return service
	}

	r.logger.WithField("domain", domain).Debug("Favicon probes exhausted, using fallback service")
	return fmt.Sprintf("https://www.google.com/s2/favicons?domain=%s&sz=32", domain)
}

func (r *Resolver) roll() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}
