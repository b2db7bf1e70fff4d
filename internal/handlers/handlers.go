// Package handlers exposes the service HTTP API: session retrieval,
// exclusion management, favicon resolution and health endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/guillaumegarcia13/umami-sessions-service/internal/constants"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/favicon"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/query"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/registry"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/umami"
)

// Handlers bundles the HTTP endpoints and their collaborators.
type Handlers struct {
	orchestrator *query.Orchestrator
	sessions     *registry.SessionRegistry
	websites     *registry.WebsiteRegistry
	resolver     *favicon.Resolver
	cache        favicon.Cache
	registry     *prometheus.Registry
	logger       *logrus.Logger
}

// New creates the handler set.
func New(orchestrator *query.Orchestrator, sessions *registry.SessionRegistry, websites *registry.WebsiteRegistry, resolver *favicon.Resolver, cache favicon.Cache, promRegistry *prometheus.Registry, logger *logrus.Logger) *Handlers {
	return &Handlers{
		orchestrator: orchestrator,
		sessions:     sessions,
		websites:     websites,
		resolver:     resolver,
		cache:        cache,
		registry:     promRegistry,
		logger:       logger,
	}
}

// Register attaches all routes to the router.
func (h *Handlers) Register(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/sessions", h.GetSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/more", h.LoadMoreSessions).Methods(http.MethodPost)
	api.HandleFunc("/sessions/error", h.ClearSessionsError).Methods(http.MethodDelete)

	api.HandleFunc("/exclusions/sessions", h.ListExcludedSessions).Methods(http.MethodGet)
	api.HandleFunc("/exclusions/sessions", h.ExcludeSession).Methods(http.MethodPost)
	api.HandleFunc("/exclusions/sessions/{id}", h.IncludeSession).Methods(http.MethodDelete)
	api.HandleFunc("/exclusions/websites", h.ListExcludedWebsites).Methods(http.MethodGet)
	api.HandleFunc("/exclusions/websites", h.ExcludeWebsite).Methods(http.MethodPost)
	api.HandleFunc("/exclusions/websites/{domain}", h.IncludeWebsite).Methods(http.MethodDelete)

	api.HandleFunc("/favicon", h.ResolveFavicon).Methods(http.MethodGet)
	api.HandleFunc("/favicon/stats", h.FaviconStats).Methods(http.MethodGet)

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/health/live", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
}

// GetSessions runs a fetch cycle for the requested scope and returns the
// accumulated snapshot. Sessions in the exclusion registry are hidden
// from the response but still counted by the processing statistics.
func (h *Handlers) GetSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	scope := query.Scope{
		WebsiteID: q.Get("websiteId"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	}
	if v := q.Get("pageSize"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			h.respondError(w, http.StatusBadRequest, "pageSize must be a positive integer")
			return
		}
		scope.PageSize = size
	}

	h.orchestrator.SetQuery(scope)

	var err error
	if v := q.Get("page"); v != "" {
		page, perr := strconv.Atoi(v)
		if perr != nil || page < 1 {
			h.respondError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		err = h.orchestrator.SetPage(r.Context(), page)
	} else {
		err = h.orchestrator.Refetch(r.Context())
	}
	if err != nil {
		h.respondFetchError(w, err)
		return
	}

	h.respondSnapshot(w)
}

// LoadMoreSessions appends the next page of the current scope.
func (h *Handlers) LoadMoreSessions(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.LoadMore(r.Context()); err != nil {
		h.respondFetchError(w, err)
		return
	}
	h.respondSnapshot(w)
}

// ClearSessionsError resets an errored query state.
func (h *Handlers) ClearSessionsError(w http.ResponseWriter, _ *http.Request) {
	h.orchestrator.ClearError()
	h.respondSnapshot(w)
}

func (h *Handlers) respondSnapshot(w http.ResponseWriter) {
	snap := h.orchestrator.Snapshot()
	snap.Sessions = h.sessions.FilterSessions(snap.Sessions)
	h.respondJSON(w, http.StatusOK, snap)
}

// ListExcludedSessions returns the session exclusion entries.
func (h *Handlers) ListExcludedSessions(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": h.sessions.List(),
		"count":    h.sessions.Count(),
	})
}

// ExcludeSession hides a session ID from rendered results.
func (h *Handlers) ExcludeSession(w http.ResponseWriter, r *http.Request) {
	var entry registry.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil || entry.SessionID == "" {
		h.respondError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	h.sessions.Add(entry)
	h.respondJSON(w, http.StatusCreated, entry)
}

// IncludeSession removes a session ID exclusion.
func (h *Handlers) IncludeSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.sessions.Contains(id) {
		h.respondError(w, http.StatusNotFound, "session is not excluded")
		return
	}
	h.sessions.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

// ListExcludedWebsites returns the domains barred from favicon
// resolution.
func (h *Handlers) ListExcludedWebsites(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"domains": h.websites.Excluded(),
	})
}

type websiteExclusionRequest struct {
	Domain string `json:"domain"`
}

// ExcludeWebsite bars a domain from favicon resolution.
func (h *Handlers) ExcludeWebsite(w http.ResponseWriter, r *http.Request) {
	var req websiteExclusionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Domain == "" {
		h.respondError(w, http.StatusBadRequest, "domain is required")
		return
	}
	h.websites.Exclude(req.Domain)
	h.respondJSON(w, http.StatusCreated, map[string]string{"domain": req.Domain})
}

// IncludeWebsite lifts a domain's favicon exclusion.
func (h *Handlers) IncludeWebsite(w http.ResponseWriter, r *http.Request) {
	domain := mux.Vars(r)["domain"]
	if !h.websites.IsExcluded(domain) {
		h.respondError(w, http.StatusNotFound, "website is not excluded")
		return
	}
	h.websites.Include(domain)
	w.WriteHeader(http.StatusNoContent)
}

// ResolveFavicon resolves a favicon URL for the given domain.
func (h *Handlers) ResolveFavicon(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	if domain == "" {
		h.respondError(w, http.StatusBadRequest, "domain is required")
		return
	}
	url := h.resolver.Resolve(r.Context(), domain)
	h.respondJSON(w, http.StatusOK, map[string]string{
		"domain": domain,
		"url":    url,
	})
}

// FaviconStats reports favicon cache occupancy and hit counters.
func (h *Handlers) FaviconStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.cache.Stats(r.Context()))
}

// Health reports process liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to encode response")
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// respondFetchError maps the error taxonomy onto HTTP statuses:
// validation errors are the caller's fault, upstream HTTP errors pass
// through as 502, everything else is 500.
func (h *Handlers) respondFetchError(w http.ResponseWriter, err error) {
	var verr *umami.ValidationError
	if errors.As(err, &verr) {
		h.respondError(w, http.StatusBadRequest, verr.Error())
		return
	}
	var herr *umami.HTTPError
	if errors.As(err, &herr) {
		h.respondError(w, http.StatusBadGateway, herr.Error())
		return
	}
	h.respondError(w, http.StatusInternalServerError, err.Error())
}
