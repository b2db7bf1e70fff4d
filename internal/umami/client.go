// Package umami provides the HTTP client for the umami analytics API.
// It handles request execution with timeout, retry with exponential
// backoff, structured error classification, and boundary decoding of the
// heterogeneous response shapes the API produces.
package umami

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/guillaumegarcia13/umami-sessions-service/internal/constants"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/metrics"
)

const (
	// DefaultTimeout is the per-request timeout applied when none is
	// configured.
	DefaultTimeout = 10 * time.Second
	// DefaultRetries is the number of retry attempts beyond the first try.
	DefaultRetries = 3
	// DefaultBackoffUnit scales the exponential backoff delay; retry n
	// waits 2^n units after the failed attempt n (counted from 0).
	DefaultBackoffUnit = time.Second
	// maxLoggedPayload caps diagnostic payload logging to keep log lines
	// bounded.
	maxLoggedPayload = 2048
)

// ClientConfig carries the construction-time settings for a Client.
type ClientConfig struct {
	// BaseURL is the API root (e.g. "http://localhost:3000/api").
	BaseURL string
	// APIKey is sent as the x-umami-api-key header when non-empty.
	APIKey string
	// WebsiteID is the default website used when a query omits one.
	WebsiteID string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// Retries is the number of retry attempts beyond the first try.
	Retries int
	// LogPayloads enables Debug-level logging of each response payload.
	LogPayloads bool
}

// Client executes requests against the umami analytics API. All methods
// are safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	websiteID   string
	retries     int
	logPayloads bool
	backoffUnit time.Duration
	logger      *logrus.Logger
	metrics     *metrics.Metrics
}

// NewClient creates a new umami API client.
//
// Parameters:
//   - cfg: construction-time settings (base URL, auth, timeout, retries)
//   - m: Prometheus collectors for request accounting; may be nil
//   - logger: structured logger for request/response diagnostics
func NewClient(cfg ClientConfig, m *metrics.Metrics, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = DefaultRetries
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		websiteID:   cfg.WebsiteID,
		retries:     retries,
		logPayloads: cfg.LogPayloads,
		backoffUnit: DefaultBackoffUnit,
		logger:      logger,
		metrics:     m,
	}
}

// SetBackoffUnit overrides the backoff time unit. Used by tests to keep
// retry timing fast; production code leaves the default of one second.
func (c *Client) SetBackoffUnit(unit time.Duration) {
	c.backoffUnit = unit
}

// BaseURL returns the configured base URL for this client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DefaultWebsiteID returns the configured default website ID, which may be
// empty.
func (c *Client) DefaultWebsiteID() string {
	return c.websiteID
}

// request executes an HTTP request with retry and exponential backoff.
// Retry triggers on connection-layer errors, timeouts, 5xx responses and
// 429; any other 4xx is terminal. On exhausting retries the last recorded
// error is surfaced.
func (c *Client) request(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	op := method + " " + path

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		data, err := c.do(ctx, method, path, bodyBytes)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if attempt >= c.retries || !IsRetryable(err) {
			break
		}

		delay := time.Duration(1<<uint(attempt)) * c.backoffUnit
		c.metrics.ObserveRetry(metricLabel(path))
		c.logger.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err,
		}).Warn("Retrying upstream request")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, NewRequestError(op, ctx.Err(), false)
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%s: %w", op, ErrUnknown)
	}
	return nil, lastErr
}

// do performs a single HTTP exchange and classifies its outcome.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	op := method + " " + path
	fullURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	if body != nil {
		req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}
	req.Header.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	if c.apiKey != "" {
		req.Header.Set(constants.HeaderUmamiAPIKey, c.apiKey)
	}

	c.logger.WithFields(logrus.Fields{
		"method": method,
		"url":    fullURL,
	}).Debug("Sending upstream request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(metricLabel(path), "error")
		timeout := isTimeoutError(err)
		c.logger.WithFields(logrus.Fields{
			"method":  method,
			"url":     fullURL,
			"timeout": timeout,
			"error":   err,
		}).Error("Upstream request failed")
		return nil, NewRequestError(op, err, timeout)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveRequest(metricLabel(path), "error")
		return nil, NewRequestError(op, err, false)
	}

	c.metrics.ObserveRequest(metricLabel(path), statusClass(resp.StatusCode))
	c.logger.WithFields(logrus.Fields{
		"method": method,
		"url":    fullURL,
		"status": resp.StatusCode,
	}).Debug("Received upstream response")

	if c.logPayloads {
		payload := data
		if len(payload) > maxLoggedPayload {
			payload = payload[:maxLoggedPayload]
		}
		c.logger.WithFields(logrus.Fields{
			"op":      op,
			"status":  resp.StatusCode,
			"bytes":   len(data),
			"payload": string(payload),
		}).Debug("Upstream response payload")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, NewHTTPError(resp.StatusCode, parseErrorMessage(data), string(data))
	}

	return data, nil
}

// parseErrorMessage extracts the error message from an upstream error body.
// Returns the empty string when the body carries none.
func parseErrorMessage(body []byte) string {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return ""
	}
	if errResp.Message != "" {
		return errResp.Message
	}
	return errResp.Error
}

// isTimeoutError reports whether a transport error was a timeout.
func isTimeoutError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err)
}

// metricLabel strips the query string from a request path so metric
// labels stay bounded.
func metricLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

// statusClass buckets a status code for metric labels.
func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Login authenticates against the upstream API and returns the issued
// token with the associated user.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	body := map[string]string{"username": username, "password": password}
	data, err := c.request(ctx, http.MethodPost, "/auth/login", body)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	var login LoginResponse
	if err := json.Unmarshal(data, &login); err != nil {
		return nil, &DecodeError{Endpoint: "/auth/login", Reason: err.Error()}
	}
	return &login, nil
}

// CurrentUser returns the user associated with the configured credentials.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	data, err := c.request(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}

	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, &DecodeError{Endpoint: "/auth/me", Reason: err.Error()}
	}
	return &user, nil
}

// Websites returns the monitored website registrations visible to the
// configured credentials.
func (c *Client) Websites(ctx context.Context) (*WebsitePage, error) {
	data, err := c.request(ctx, http.MethodGet, "/websites", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch websites: %w", err)
	}

	var page WebsitePage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, &DecodeError{Endpoint: "/websites", Reason: err.Error()}
	}
	return &page, nil
}

// WebsiteStats returns aggregate statistics for a website and date range.
func (c *Client) WebsiteStats(ctx context.Context, q StatsQuery) (*Stats, error) {
	websiteID, err := c.resolveWebsiteID(q.WebsiteID)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("startAt", q.StartAt)
	params.Set("endAt", q.EndAt)
	if q.Timezone != "" {
		params.Set("timezone", q.Timezone)
	}
	if q.Unit != "" {
		params.Set("unit", q.Unit)
	}

	endpoint := fmt.Sprintf("/websites/%s/stats?%s", websiteID, params.Encode())
	data, err := c.request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch website stats: %w", err)
	}

	stats, err := decodeStats(data)
	if err != nil {
		return nil, &DecodeError{Endpoint: endpoint, Reason: err.Error()}
	}
	return stats, nil
}

// RealtimeStats returns the realtime activity snapshot for a website.
func (c *Client) RealtimeStats(ctx context.Context, websiteID string) (*RealtimeStats, error) {
	id, err := c.resolveWebsiteID(websiteID)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/websites/%s/realtime", id)
	data, err := c.request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch realtime stats: %w", err)
	}

	var stats RealtimeStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, &DecodeError{Endpoint: endpoint, Reason: err.Error()}
	}
	return &stats, nil
}

// Events returns one page of tracked events for a website and date range.
func (c *Client) Events(ctx context.Context, q EventQuery) (*EventPage, error) {
	websiteID, err := c.resolveWebsiteID(q.WebsiteID)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("websiteId", websiteID)
	params.Set("startAt", q.StartAt)
	params.Set("endAt", q.EndAt)
	if q.EventName != "" {
		params.Set("eventName", q.EventName)
	}
	if q.Page > 0 {
		params.Set("page", fmt.Sprintf("%d", q.Page))
	}
	if q.PageSize > 0 {
		params.Set("pageSize", fmt.Sprintf("%d", q.PageSize))
	}

	endpoint := "/events?" + params.Encode()
	data, err := c.request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}

	var page EventPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, &DecodeError{Endpoint: endpoint, Reason: err.Error()}
	}
	return &page, nil
}

// Sessions fetches one page of sessions for a website and date range.
// The upstream endpoint is duck-typed and may answer with either a
// sessions page or a stats-shaped payload; the result carries an explicit
// tag so callers can branch without shape sniffing.
func (c *Client) Sessions(ctx context.Context, q SessionQuery) (*SessionsResult, error) {
	websiteID, err := c.resolveWebsiteID(q.WebsiteID)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("startAt", q.StartAt)
	params.Set("endAt", q.EndAt)
	if q.Page > 0 {
		params.Set("page", fmt.Sprintf("%d", q.Page))
	}
	if q.PageSize > 0 {
		params.Set("pageSize", fmt.Sprintf("%d", q.PageSize))
	}

	endpoint := fmt.Sprintf("/websites/%s/sessions?%s", websiteID, params.Encode())
	data, err := c.request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions: %w", err)
	}

	return DecodeSessionsPayload(endpoint, data)
}

// SessionProperties fetches the raw per-session property records for one
// session.
func (c *Client) SessionProperties(ctx context.Context, websiteID, sessionID string) ([]SessionProperty, error) {
	id, err := c.resolveWebsiteID(websiteID)
	if err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, NewValidationError("sessionId", "session ID is required")
	}

	endpoint := fmt.Sprintf("/websites/%s/sessions/%s/properties", id, sessionID)
	data, err := c.request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session properties: %w", err)
	}

	var props []SessionProperty
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, &DecodeError{Endpoint: endpoint, Reason: err.Error()}
	}
	return props, nil
}

// resolveWebsiteID applies the configured default website ID and validates
// that one is available before any network call is made.
func (c *Client) resolveWebsiteID(websiteID string) (string, error) {
	if websiteID != "" {
		return websiteID, nil
	}
	if c.websiteID != "" {
		return c.websiteID, nil
	}
	return "", NewValidationError("websiteId",
		"website ID is required; provide it as a parameter or configure a default")
}
