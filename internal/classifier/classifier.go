// Package classifier provides pure, stateless classification of session
// records: duration computation, bot and crawler detection, and field
// integrity validation. Classification is deterministic, so filtering
// built on it is idempotent: reapplying the same filter to already
// filtered data changes nothing.
package classifier

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/guillaumegarcia13/umami-sessions-service/internal/umami"
)

const (
	// MaxVisits is the corruption guard on the visits counter.
	MaxVisits = 10000
	// MaxViews is the corruption guard on the views counter.
	MaxViews = 100000

	// burstDurationSeconds and burstViews describe the burst-view
	// heuristic: very short sessions with many views are bot behavior.
	burstDurationSeconds = 2
	burstViews           = 10
)

// botPatterns match user-agent derived browser/OS strings that indicate
// automated traffic: search-engine bots, social crawlers, monitoring
// probes, headless browsers and generic tool HTTP clients.
var botPatterns = compilePatterns([]string{
	// Search engine bots
	`googlebot`,
	`bingbot`,
	`slurp`, // Yahoo
	`duckduckbot`,
	`baiduspider`,
	`yandexbot`,
	`facebookexternalhit`,
	`twitterbot`,
	`linkedinbot`,
	`whatsapp`,
	`telegrambot`,

	// Generic bot patterns
	`bot`,
	`crawler`,
	`spider`,
	`scraper`,
	`scanner`,
	`monitor`,
	`checker`,
	`validator`,
	`test`,
	`headless`,
	`phantom`,
	`selenium`,
	`puppeteer`,
	`playwright`,

	// Monitoring and analytics probes
	`pingdom`,
	`uptimerobot`,
	`statuscake`,
	`newrelic`,
	`datadog`,
	`sentry`,

	// Social media crawlers
	`facebook`,
	`twitter`,
	`linkedin`,
	`pinterest`,
	`instagram`,
	`tiktok`,

	// Tool HTTP clients
	`curl`,
	`wget`,
	`python-requests`,
	`go-http-client`,
	`java`,
	`okhttp`,
	`apache-httpclient`,
})

// headlessPatterns match browser+OS combinations produced by automation
// tooling.
var headlessPatterns = compilePatterns([]string{
	`headless`,
	`phantom`,
	`selenium`,
	`puppeteer`,
	`playwright`,
})

// crawlerNames are known crawler identifiers matched as case-insensitive
// substrings.
var crawlerNames = []string{
	"googlebot",
	"bingbot",
	"slurp",
	"duckduckbot",
	"baiduspider",
	"yandexbot",
	"facebookexternalhit",
	"twitterbot",
	"linkedinbot",
	"whatsapp",
	"telegrambot",
	"pingdom",
	"uptimerobot",
	"statuscake",
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

// Classification is the combined evaluation of one session, computed once
// so the response processor avoids redundant work.
type Classification struct {
	// Duration is the session length in seconds, clamped to >= 0.
	Duration float64
	// IsBot reports bot-like traffic (signature or behavioral).
	IsBot bool
	// IsCrawler reports a known crawler identifier.
	IsCrawler bool
	// IsValid reports field integrity of the record.
	IsValid bool
}

// timestampLayouts are the calendar forms accepted for session bounds,
// tried in order. Epoch-millisecond numeric strings are handled separately.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a session timestamp, accepting ISO-8601 forms and
// epoch-millisecond numeric strings.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, &time.ParseError{Layout: timestampLayouts[0], Value: value, Message: ": empty timestamp"}
	}

	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}

	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Duration computes the session length in seconds as max(0, lastAt-firstAt).
// Unparseable bounds yield 0; a genuinely inverted range is also caught by
// the validity check.
func Duration(session umami.Session) float64 {
	firstAt, err := ParseTimestamp(session.FirstAt)
	if err != nil {
		return 0
	}
	lastAt, err := ParseTimestamp(session.LastAt)
	if err != nil {
		return 0
	}

	seconds := lastAt.Sub(firstAt).Seconds()
	if seconds < 0 {
		return 0
	}
	return seconds
}

// matchesAny reports whether the value matches any of the given patterns.
func matchesAny(patterns []*regexp.Regexp, value string) bool {
	if value == "" {
		return false
	}
	for _, p := range patterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}

// IsBotUserAgent reports whether a browser or OS string matches the bot
// signature set.
func IsBotUserAgent(value string) bool {
	return matchesAny(botPatterns, value)
}

// IsCrawlerUserAgent reports whether a browser or OS string contains a
// known crawler identifier.
func IsCrawlerUserAgent(value string) bool {
	if value == "" {
		return false
	}
	lower := strings.ToLower(value)
	for _, name := range crawlerNames {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

// IsBot reports whether a session is likely automated traffic, combining
// signature matching with behavioral heuristics.
func IsBot(session umami.Session) bool {
	if IsBotUserAgent(session.Browser) || IsBotUserAgent(session.OS) {
		return true
	}

	// Very short sessions with high view counts (typical bot behavior)
	if Duration(session) < burstDurationSeconds && session.Views > burstViews {
		return true
	}

	// Sessions with no resolvable country are usually bots
	if session.Country == "" || session.Country == "Unknown" {
		return true
	}

	browserOS := session.Browser + " " + session.OS
	return matchesAny(headlessPatterns, browserOS)
}

// IsCrawler reports whether a session's browser or OS identifies a known
// crawler.
func IsCrawler(session umami.Session) bool {
	return IsCrawlerUserAgent(session.Browser) || IsCrawlerUserAgent(session.OS)
}

// IsValid reports field integrity of a session record: required IDs
// present, both timestamps parseable, non-inverted time range, and
// counters within the non-negative corruption-guard bounds.
func IsValid(session umami.Session) bool {
	if session.ID == "" || session.WebsiteID == "" {
		return false
	}

	firstAt, err := ParseTimestamp(session.FirstAt)
	if err != nil {
		return false
	}
	lastAt, err := ParseTimestamp(session.LastAt)
	if err != nil {
		return false
	}

	if firstAt.After(lastAt) {
		return false
	}

	if session.Visits < 0 || session.Views < 0 {
		return false
	}

	// Suspiciously high values indicate data corruption
	if session.Visits > MaxVisits || session.Views > MaxViews {
		return false
	}

	return true
}

// Classify evaluates all classification dimensions for one session.
func Classify(session umami.Session) Classification {
	return Classification{
		Duration:  Duration(session),
		IsBot:     IsBot(session),
		IsCrawler: IsCrawler(session),
		IsValid:   IsValid(session),
	}
}
