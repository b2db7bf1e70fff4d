package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/guillaumegarcia13/umami-sessions-service/internal/processor"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/umami"
)

// State is the lifecycle phase of the active query.
type State int

const (
	// Idle means no fetch has run for the current scope yet.
	Idle State = iota
	// Loading means a fetch-and-process cycle is in flight.
	Loading
	// Loaded means the last cycle completed and results are available.
	Loaded
	// Errored means the last cycle failed; the error is kept until
	// cleared or the next successful cycle.
	Errored
)

// String implements fmt.Stringer for log output.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Errored:
		return "errored"
	}
	return "unknown"
}

// SessionsFetcher retrieves one sessions page. *umami.Client satisfies
// this.
type SessionsFetcher interface {
	Sessions(ctx context.Context, q umami.SessionQuery) (*umami.SessionsResult, error)
}

// SessionEnricher merges custom properties into filtered sessions.
// *enrich.Enricher satisfies this.
type SessionEnricher interface {
	Enrich(ctx context.Context, websiteID string, sessions []umami.Session) []umami.Session
}

// Scope identifies one query: the website and the date window. Changing
// any part of it resets pagination and accumulated results.
type Scope struct {
	WebsiteID string
	StartDate string
	EndDate   string
	PageSize  int
}

// Snapshot is the read-only view of orchestrator state handed to the
// presentation layer.
type Snapshot struct {
	Sessions []umami.Session `json:"sessions"`
	State    string          `json:"state"`
	Loading  bool            `json:"loading"`
	Error    string          `json:"error,omitempty"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	HasMore  bool            `json:"hasMore"`
	Stats    processor.Stats `json:"processingStats"`
}

// Orchestrator owns date normalization and page state and drives the
// fetch -> filter -> enrich cycle, accumulating results across pages of
// one scope. Safe for concurrent use.
type Orchestrator struct {
	fetcher   SessionsFetcher
	processor *processor.Processor
	enricher  SessionEnricher
	opts      processor.Options
	logger    *logrus.Logger
	now       func() time.Time

	mu       sync.Mutex
	scope    Scope
	state    State
	lastErr  string
	page     int
	total    int
	sessions []umami.Session
	stats    processor.Stats
	cancel   context.CancelFunc
	// generation identifies the current fetch cycle; outcomes of
	// superseded cycles are discarded instead of mutating state.
	generation uint64
}

// New creates an Orchestrator for the given scope. The first fetch is
// triggered explicitly via Refetch.
func New(fetcher SessionsFetcher, proc *processor.Processor, enricher SessionEnricher, opts processor.Options, scope Scope, logger *logrus.Logger) *Orchestrator {
	if scope.PageSize <= 0 {
		scope.PageSize = 50
	}
	return &Orchestrator{
		fetcher:   fetcher,
		processor: proc,
		enricher:  enricher,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		scope:     scope,
		state:     Idle,
		page:      1,
	}
}

// SetQuery replaces the query scope. A scope change cancels any in-flight
// cycle, resets pagination to page 1 and discards accumulated sessions.
// An identical scope is a no-op.
func (o *Orchestrator) SetQuery(scope Scope) {
	if scope.PageSize <= 0 {
		scope.PageSize = 50
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if scope == o.scope {
		return
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.generation++
	o.scope = scope
	o.state = Idle
	o.lastErr = ""
	o.page = 1
	o.total = 0
	o.sessions = nil
	o.stats = processor.Stats{}
}

// Refetch discards accumulated results and fetches page 1 of the current
// scope.
func (o *Orchestrator) Refetch(ctx context.Context) error {
	o.mu.Lock()
	o.page = 1
	o.sessions = nil
	o.total = 0
	o.mu.Unlock()
	return o.fetch(ctx, false)
}

// LoadMore fetches the next page and appends it to the accumulated
// results. It is a no-op when the server has no further pages.
func (o *Orchestrator) LoadMore(ctx context.Context) error {
	o.mu.Lock()
	if o.state == Loading || !o.hasMoreLocked() {
		o.mu.Unlock()
		return nil
	}
	o.page++
	o.mu.Unlock()
	return o.fetch(ctx, true)
}

// SetPage jumps to an explicit page, replacing accumulated results with
// that page alone. Pages below 1 clamp to 1.
func (o *Orchestrator) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	o.mu.Lock()
	o.page = page
	o.sessions = nil
	o.mu.Unlock()
	return o.fetch(ctx, false)
}

// ClearError resets an errored orchestrator back to Idle (or Loaded when
// results from an earlier cycle are still held).
func (o *Orchestrator) ClearError() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != Errored {
		return
	}
	o.lastErr = ""
	if len(o.sessions) > 0 {
		o.state = Loaded
	} else {
		o.state = Idle
	}
}

// Close cancels any in-flight cycle.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// Snapshot returns a copy of the current state for rendering.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	sessions := make([]umami.Session, len(o.sessions))
	copy(sessions, o.sessions)

	return Snapshot{
		Sessions: sessions,
		State:    o.state.String(),
		Loading:  o.state == Loading,
		Error:    o.lastErr,
		Total:    o.total,
		Page:     o.page,
		HasMore:  o.hasMoreLocked(),
		Stats:    o.stats,
	}
}

// hasMoreLocked derives page availability from the server's total count.
// Callers must hold o.mu.
func (o *Orchestrator) hasMoreLocked() bool {
	return o.page*o.scope.PageSize < o.total
}

// fetch runs one fetch -> filter -> enrich cycle for the current page.
// Validation failures surface without entering the loading state; fetch
// and decode failures transition to Errored. The scope read, loading
// transition and cancel registration happen under one lock hold, so a
// concurrent SetQuery either lands before the cycle starts or bumps the
// generation and invalidates it.
func (o *Orchestrator) fetch(ctx context.Context, appendResults bool) error {
	o.mu.Lock()
	scope := o.scope
	page := o.page

	if scope.WebsiteID == "" {
		o.mu.Unlock()
		return &umami.ValidationError{Field: "websiteId", Message: "website ID is required"}
	}
	startAt, endAt, err := NormalizeRange(scope.StartDate, scope.EndDate, o.now())
	if err != nil {
		o.mu.Unlock()
		return &umami.ValidationError{Field: "dateRange", Message: err.Error()}
	}

	ctx, cancel := context.WithCancel(ctx)
	if o.cancel != nil {
		o.cancel()
	}
	o.cancel = cancel
	o.generation++
	gen := o.generation
	o.state = Loading
	o.lastErr = ""
	o.mu.Unlock()
	defer cancel()

	result, err := o.fetcher.Sessions(ctx, umami.SessionQuery{
		WebsiteID: scope.WebsiteID,
		StartAt:   fmt.Sprintf("%d", startAt),
		EndAt:     fmt.Sprintf("%d", endAt),
		Page:      page,
		PageSize:  scope.PageSize,
	})
	if err != nil {
		return o.fail(gen, err)
	}
	if result.Kind != umami.KindPage {
		return o.fail(gen, &umami.DecodeError{
			Endpoint: "sessions",
			Reason:   "expected a session page, got an aggregate stats payload",
		})
	}

	serverTotal := result.Page.Count
	processed := o.processor.Process(result.Page, o.opts)
	enriched := o.enricher.Enrich(ctx, scope.WebsiteID, processed.Page.Data)
	if err := ctx.Err(); err != nil {
		return o.fail(gen, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		// A scope change superseded this cycle; its results belong to the
		// old scope and are dropped.
		return nil
	}
	if appendResults {
		o.sessions = append(o.sessions, enriched...)
	} else {
		o.sessions = enriched
	}
	o.total = serverTotal
	o.stats = processed.Stats
	o.state = Loaded
	o.cancel = nil

	o.logger.WithFields(logrus.Fields{
		"website_id": scope.WebsiteID,
		"page":       page,
		"kept":       len(enriched),
		"total":      serverTotal,
		"has_more":   page*scope.PageSize < serverTotal,
	}).Debug("Session page loaded")

	return nil
}

// fail records a cycle failure. Superseded cycles leave the state of the
// newer scope untouched, and cancellation is a silent discard rather than
// an Errored transition.
func (o *Orchestrator) fail(gen uint64, err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		return err
	}
	o.cancel = nil
	if errors.Is(err, context.Canceled) {
		if len(o.sessions) > 0 {
			o.state = Loaded
		} else {
			o.state = Idle
		}
		return err
	}
	o.state = Errored
	o.lastErr = err.Error()
	o.logger.WithField("error", err.Error()).Error("Session fetch cycle failed")
	return err
}
