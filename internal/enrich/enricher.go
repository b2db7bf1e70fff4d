// Package enrich attaches per-session custom properties to filtered
// session records by fanning out one properties request per session.
package enrich

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/guillaumegarcia13/umami-sessions-service/internal/umami"
)

// PropertiesFetcher retrieves the custom properties recorded for one
// session. *umami.Client satisfies this.
type PropertiesFetcher interface {
	SessionProperties(ctx context.Context, websiteID, sessionID string) ([]umami.SessionProperty, error)
}

// Enricher merges custom properties into session records. Failures are
// isolated per session: a session whose lookup fails is returned
// unchanged, and the batch never fails as a whole.
type Enricher struct {
	fetcher PropertiesFetcher
	logger  *logrus.Logger
}

// New creates an Enricher backed by the given fetcher.
func New(fetcher PropertiesFetcher, logger *logrus.Logger) *Enricher {
	return &Enricher{fetcher: fetcher, logger: logger}
}

// Enrich fetches properties for every session concurrently and returns a
// new slice in the same order and of the same length as the input. Each
// result slot is written only by its own goroutine, so no locking is
// needed around the slice.
func (e *Enricher) Enrich(ctx context.Context, websiteID string, sessions []umami.Session) []umami.Session {
	if len(sessions) == 0 {
		return []umami.Session{}
	}

	enriched := make([]umami.Session, len(sessions))
	var wg sync.WaitGroup

	for i, session := range sessions {
		wg.Add(1)
		go func(i int, session umami.Session) {
			defer wg.Done()

			props, err := e.fetcher.SessionProperties(ctx, websiteID, session.ID)
			if err != nil {
				e.logger.WithFields(logrus.Fields{
					"session_id": session.ID,
					"error":      err.Error(),
				}).Warn("Session property lookup failed")
				enriched[i] = session
				return
			}

			enriched[i] = mergeProperties(session, props)
		}(i, session)
	}

	wg.Wait()
	return enriched
}

// mergeProperties copies the session and folds each property into its
// Properties map keyed by DataKey. The value is taken from the first
// populated slot in order: string, number, date. String values "true"
// and "false" are coerced to booleans.
func mergeProperties(session umami.Session, props []umami.SessionProperty) umami.Session {
	if len(props) == 0 {
		return session
	}

	merged := make(map[string]interface{}, len(session.Properties)+len(props))
	for k, v := range session.Properties {
		merged[k] = v
	}

	for _, p := range props {
		switch {
		case p.StringValue != nil:
			switch *p.StringValue {
			case "true":
				merged[p.DataKey] = true
			case "false":
				merged[p.DataKey] = false
			default:
				merged[p.DataKey] = *p.StringValue
			}
		case p.NumberValue != nil:
			merged[p.DataKey] = *p.NumberValue
		case p.DateValue != nil:
			merged[p.DataKey] = *p.DateValue
		}
	}

	session.Properties = merged
	return session
}
