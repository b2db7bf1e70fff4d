// Package processor applies the session classifier across one page of
// session records, collecting processing statistics and returning the
// filtered page.
package processor

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/guillaumegarcia13/umami-sessions-service/internal/classifier"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/metrics"
	"github.com/guillaumegarcia13/umami-sessions-service/internal/umami"
)

const (
	// DefaultMinSessionDuration is the minimum session duration in
	// seconds; sessions at or below it are dropped.
	DefaultMinSessionDuration = 1
	// reasonPreviewLimit caps the dropped-record reason preview kept for
	// diagnostics.
	reasonPreviewLimit = 10
)

// Options is the configuration bundle for one processing pass. It is a
// pure input and is never mutated.
type Options struct {
	// MinSessionDuration is the duration threshold in seconds.
	MinSessionDuration float64
	// FilterBots drops sessions classified as bots.
	FilterBots bool
	// FilterCrawlers drops sessions classified as crawlers.
	FilterCrawlers bool
	// ValidateRequiredFields drops sessions failing integrity checks.
	ValidateRequiredFields bool
	// LogFilteredRecords logs the capped drop-reason preview.
	LogFilteredRecords bool
	// LogProcessingStats logs the per-pass summary line.
	LogProcessingStats bool
}

// DefaultOptions returns the standard processing configuration.
func DefaultOptions() Options {
	return Options{
		MinSessionDuration:     DefaultMinSessionDuration,
		FilterBots:             true,
		FilterCrawlers:         true,
		ValidateRequiredFields: true,
		LogFilteredRecords:     false,
		LogProcessingStats:     true,
	}
}

// Stats holds the derived counters of one processing pass. They are
// computed fresh per call and never persisted.
type Stats struct {
	TotalRecords        int     `json:"totalRecords"`
	FilteredRecords     int     `json:"filteredRecords"`
	ValidRecords        int     `json:"validRecords"`
	BotRecords          int     `json:"botRecords"`
	ShortSessionRecords int     `json:"shortSessionRecords"`
	InvalidRecords      int     `json:"invalidRecords"`
	ProcessingTimeMs    float64 `json:"processingTimeMs"`
}

// Summary returns a human-readable one-line summary of the pass, including
// the filter rate.
func (s Stats) Summary() string {
	filterRate := 0.0
	if s.TotalRecords > 0 {
		filterRate = float64(s.FilteredRecords) / float64(s.TotalRecords) * 100
	}
	return fmt.Sprintf("Processed %d records: %d valid, %d filtered (%.1f%% filter rate) in %.2fms",
		s.TotalRecords, s.ValidRecords, s.FilteredRecords, filterRate, s.ProcessingTimeMs)
}

// Result is the outcome of one processing pass: the filtered page, the
// statistics, and a capped preview of drop reasons for diagnostics. The
// reason preview never affects the returned data.
type Result struct {
	Page          *umami.SessionPage
	Stats         Stats
	DroppedReason []string
}

// Processor filters session pages. It holds only logging and metrics
// dependencies; the filtering itself is stateless.
type Processor struct {
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

// New creates a Processor.
//
// Parameters:
//   - m: Prometheus collectors for outcome accounting; may be nil
//   - logger: structured logger for processing diagnostics
func New(m *metrics.Metrics, logger *logrus.Logger) *Processor {
	return &Processor{logger: logger, metrics: m}
}

// Process iterates the page once, classifying each session and dropping
// it on the first matching condition: invalid fields, short duration,
// bot, crawler. The order makes stat categories mutually exclusive even
// when a record satisfies several conditions. The output page preserves
// the input's pagination metadata except Count, which is rewritten to the
// kept-record count.
func (p *Processor) Process(page *umami.SessionPage, opts Options) *Result {
	start := time.Now()

	stats := Stats{TotalRecords: len(page.Data)}
	kept := make([]umami.Session, 0, len(page.Data))
	var reasons []string

	for _, session := range page.Data {
		c := classifier.Classify(session)

		var reason string
		switch {
		case opts.ValidateRequiredFields && !c.IsValid:
			stats.InvalidRecords++
			reason = "invalid session data"
		case c.Duration <= opts.MinSessionDuration:
			stats.ShortSessionRecords++
			reason = fmt.Sprintf("session too short (%.2fs <= %.0fs)", c.Duration, opts.MinSessionDuration)
		case opts.FilterBots && c.IsBot:
			stats.BotRecords++
			reason = "bot session detected"
		case opts.FilterCrawlers && c.IsCrawler:
			// No dedicated counter; crawler drops count only toward
			// FilteredRecords.
			reason = "crawler session detected"
		default:
			stats.ValidRecords++
			kept = append(kept, session)
			continue
		}

		stats.FilteredRecords++
		if len(reasons) < reasonPreviewLimit {
			reasons = append(reasons, fmt.Sprintf("%s: %s", session.ID, reason))
		}
	}

	elapsed := time.Since(start)
	stats.ProcessingTimeMs = float64(elapsed.Microseconds()) / 1000

	p.metrics.ObserveOutcome("valid", stats.ValidRecords)
	p.metrics.ObserveOutcome("invalid", stats.InvalidRecords)
	p.metrics.ObserveOutcome("short", stats.ShortSessionRecords)
	p.metrics.ObserveOutcome("bot", stats.BotRecords)
	p.metrics.ObserveOutcome("crawler",
		stats.FilteredRecords-stats.InvalidRecords-stats.ShortSessionRecords-stats.BotRecords)
	p.metrics.ObserveProcessing(elapsed.Seconds())

	if opts.LogProcessingStats {
		p.logger.WithFields(logrus.Fields{
			"total":          stats.TotalRecords,
			"filtered":       stats.FilteredRecords,
			"valid":          stats.ValidRecords,
			"bots":           stats.BotRecords,
			"short_sessions": stats.ShortSessionRecords,
			"invalid":        stats.InvalidRecords,
			"duration_ms":    stats.ProcessingTimeMs,
		}).Info("Session page processed")
	}
	if opts.LogFilteredRecords && len(reasons) > 0 {
		p.logger.WithFields(logrus.Fields{
			"reasons": reasons,
			"dropped": stats.FilteredRecords,
		}).Debug("Filtered session preview")
	}

	filtered := &umami.SessionPage{
		Data:     kept,
		Count:    len(kept),
		Page:     page.Page,
		PageSize: page.PageSize,
	}

	return &Result{Page: filtered, Stats: stats, DroppedReason: reasons}
}
