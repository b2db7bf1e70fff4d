package favicon

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guillaumegarcia13/umami-sessions-service/internal/registry"
)

type fakeProber struct {
	reachable map[string]bool
	probed    []string
}

func (p *fakeProber) Exists(_ context.Context, url string) bool {
	p.probed = append(p.probed, url)
	return p.reachable[url]
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestResolver(prober *fakeProber, excluded, whitelist []string) *Resolver {
	websites := registry.NewWebsiteRegistry(excluded, whitelist)
	return NewResolver(NewMemoryCache(time.Hour), websites, prober, nil, testLogger())
}

func TestResolveExcludedDomainShortCircuits(t *testing.T) {
	prober := &fakeProber{}
	r := newTestResolver(prober, []string{"blocked.example"}, nil)

	url := r.Resolve(context.Background(), "blocked.example")

	assert.Equal(t, PlaceholderIcon, url)
	assert.Empty(t, prober.probed, "excluded domains never reach the network")
}

func TestResolveEmptyDomain(t *testing.T) {
	r := newTestResolver(&fakeProber{}, nil, nil)
	assert.Equal(t, PlaceholderIcon, r.Resolve(context.Background(), ""))
}

func TestResolveWellKnownPathOrder(t *testing.T) {
	prober := &fakeProber{reachable: map[string]bool{
		"https://site.example/favicon.png": true,
	}}
	r := newTestResolver(prober, nil, nil)

	url := r.Resolve(context.Background(), "site.example")

	assert.Equal(t, "https://site.example/favicon.png", url)
	require.GreaterOrEqual(t, len(prober.probed), 2)
	assert.Equal(t, "https://site.example/favicon.ico", prober.probed[0], "ico is probed first")
}

func TestResolveWhitelistFastPath(t *testing.T) {
	prober := &fakeProber{reachable: map[string]bool{
		"https://favicone.com/fast.example?s=32": true,
	}}
	r := newTestResolver(prober, nil, []string{"fast.example"})

	url := r.Resolve(context.Background(), "fast.example")

	assert.Equal(t, "https://favicone.com/fast.example?s=32", url)
	assert.Len(t, prober.probed, 1, "whitelist hit skips the well-known probes")
}

func TestResolveGuaranteedFallback(t *testing.T) {
	prober := &fakeProber{} // nothing reachable
	r := newTestResolver(prober, nil, nil)

	url := r.Resolve(context.Background(), "dead.example")

	assert.Equal(t, "https://www.google.com/s2/favicons?domain=dead.example&sz=32", url)
}

func TestResolveCachesResult(t *testing.T) {
	prober := &fakeProber{reachable: map[string]bool{
		"https://site.example/favicon.ico": true,
	}}
	r := newTestResolver(prober, nil, nil)

	first := r.Resolve(context.Background(), "site.example")
	probesAfterFirst := len(prober.probed)
	second := r.Resolve(context.Background(), "site.example")

	assert.Equal(t, first, second)
	assert.Equal(t, probesAfterFirst, len(prober.probed), "second lookup is served from cache")
}

func TestResolveCachesFallback(t *testing.T) {
	prober := &fakeProber{}
	r := newTestResolver(prober, nil, nil)

	r.Resolve(context.Background(), "dead.example")
	probesAfterFirst := len(prober.probed)
	r.Resolve(context.Background(), "dead.example")

	assert.Equal(t, probesAfterFirst, len(prober.probed), "even the fallback URL is cached")
}
