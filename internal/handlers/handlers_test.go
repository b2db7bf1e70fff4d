package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guillaumegarcia13/umami-sessions-service/internal/enrich"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/favicon"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/processor"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/query"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/registry"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/umami"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// staticFetcher answers every sessions query with the same page and every
// properties query with nothing.
type staticFetcher struct {
	sessions []umami.Session
}

func (f *staticFetcher) Sessions(_ context.Context, q umami.SessionQuery) (*umami.SessionsResult, error) {
	return &umami.SessionsResult{
		Kind: umami.KindPage,
		Page: &umami.SessionPage{
			Data:     f.sessions,
			Count:    len(f.sessions),
			Page:     q.Page,
			PageSize: q.PageSize,
		},
	}, nil
}

func (f *staticFetcher) SessionProperties(context.Context, string, string) ([]umami.SessionProperty, error) {
	return nil, nil
}

type allowAllProber struct{}

func (allowAllProber) Exists(_ context.Context, url string) bool {
	return strings.HasSuffix(url, "/favicon.ico")
}

func validSession(id string) umami.Session {
	return umami.Session{
		ID:        id,
		WebsiteID: "web-1",
		Browser:   "firefox",
		OS:        "Windows 10",
		Country:   "BE",
		FirstAt:   "2024-03-01T10:00:00Z",
		LastAt:    "2024-03-01T10:01:00Z",
		Visits:    1,
		Views:     3,
	}
}

func newTestRouter(t *testing.T, sessions []umami.Session) (*mux.Router, *registry.SessionRegistry) {
	t.Helper()

	log := testLogger()
	fetcher := &staticFetcher{sessions: sessions}
	proc := processor.New(nil, log)
	enricher := enrich.New(fetcher, log)
	orch := query.New(fetcher, proc, enricher, processor.DefaultOptions(),
		query.Scope{WebsiteID: "web-1", PageSize: 50}, log)

	sessionRegistry := registry.NewSessionRegistry(nil)
	websiteRegistry := registry.NewWebsiteRegistry([]string{"blocked.example"}, nil)
	cache := favicon.NewMemoryCache(time.Hour)
	resolver := favicon.NewResolver(cache, websiteRegistry, allowAllProber{}, nil, log)

	router := mux.NewRouter()
	New(orch, sessionRegistry, websiteRegistry, resolver, cache, prometheus.NewRegistry(), log).Register(router)
	return router, sessionRegistry
}

func doJSON(t *testing.T, router *mux.Router, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	decoded := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestGetSessions(t *testing.T) {
	router, _ := newTestRouter(t, []umami.Session{validSession("s-1"), validSession("s-2")})

	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/sessions?websiteId=web-1&startDate=2024-03-01&endDate=2024-03-31", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "loaded", body["state"])
	assert.Equal(t, float64(2), body["total"])
	assert.Len(t, body["sessions"], 2)
}

func TestGetSessionsHidesExcluded(t *testing.T) {
	router, sessionRegistry := newTestRouter(t, []umami.Session{validSession("s-1"), validSession("s-2")})
	sessionRegistry.Add(registry.Entry{SessionID: "s-1"})

	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/sessions?websiteId=web-1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	sessions, ok := body["sessions"].([]interface{})
	require.True(t, ok)
	require.Len(t, sessions, 1)
	first := sessions[0].(map[string]interface{})
	assert.Equal(t, "s-2", first["id"])
	// Excluded sessions are hidden at render time, not re-filtered.
	stats := body["processingStats"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["totalRecords"])
}

func TestGetSessionsRejectsBadPage(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec, _ := doJSON(t, router, http.MethodGet, "/api/v1/sessions?websiteId=web-1&page=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, router, http.MethodGet, "/api/v1/sessions?websiteId=web-1&pageSize=-5", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionExclusionCRUD(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/exclusions/sessions", `{"sessionId":"abc-123","name":"internal tester"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/exclusions/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
	entries, ok := body["sessions"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]interface{})
	assert.Equal(t, "abc-123", entry["sessionId"])
	assert.Equal(t, "internal tester", entry["name"])

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/v1/exclusions/sessions/abc-123", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/v1/exclusions/sessions/abc-123", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/exclusions/sessions", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebsiteExclusionCRUD(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/exclusions/websites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["domains"], "blocked.example")

	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/exclusions/websites", `{"domain":"new.example"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/v1/exclusions/websites/new.example", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/v1/exclusions/websites/never.example", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveFavicon(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/favicon?domain=site.example", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://site.example/favicon.ico", body["url"])

	rec, body = doJSON(t, router, http.MethodGet, "/api/v1/favicon?domain=blocked.example", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, favicon.PlaceholderIcon, body["url"])

	rec, _ = doJSON(t, router, http.MethodGet, "/api/v1/favicon", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFaviconStats(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	doJSON(t, router, http.MethodGet, "/api/v1/favicon?domain=site.example", "")
	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/favicon/stats", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["size"])
}

func TestHealth(t *testing.T) {
	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec, body := doJSON(t, router(t), http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", body["status"])
	}
}

func router(t *testing.T) *mux.Router {
	r, _ := newTestRouter(t, nil)
	return r
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
