// Package registry holds the in-memory exclusion sets: sessions hidden
// from presentation and websites barred from favicon resolution. Both
// registries are safe for concurrent use.
package registry

import (
	"sync"

	"github.com/guillaumegarcia13/umami-sessions-service/internal/umami"
)

// Entry is one session exclusion with optional operator-facing metadata.
type Entry struct {
	SessionID   string `json:"sessionId"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// SessionRegistry tracks sessions excluded from presentation.
// Exclusion is applied at render time only: excluded sessions still flow
// through filtering, enrichment and statistics unchanged.
type SessionRegistry struct {
	mu       sync.RWMutex
	excluded map[string]Entry
}

// NewSessionRegistry creates a registry pre-populated with the given
// entries.
func NewSessionRegistry(seed []Entry) *SessionRegistry {
	r := &SessionRegistry{excluded: make(map[string]Entry, len(seed))}
	for _, e := range seed {
		if e.SessionID != "" {
			r.excluded[e.SessionID] = e
		}
	}
	return r
}

// Add marks a session as excluded. Adding an existing ID overwrites its
// metadata.
func (r *SessionRegistry) Add(entry Entry) {
	if entry.SessionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.excluded[entry.SessionID] = entry
}

// Remove clears a session ID's exclusion. Removing an absent ID is a
// no-op.
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.excluded, sessionID)
}

// Contains reports whether the session ID is excluded.
func (r *SessionRegistry) Contains(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.excluded[sessionID]
	return ok
}

// List returns the exclusion entries. Order is unspecified.
func (r *SessionRegistry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]Entry, 0, len(r.excluded))
	for _, e := range r.excluded {
		entries = append(entries, e)
	}
	return entries
}

// Count returns the number of excluded session IDs.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.excluded)
}

// Clear removes all exclusions.
func (r *SessionRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.excluded = make(map[string]Entry)
}

// FilterSessions returns the sessions not currently excluded, preserving
// input order. The input slice is not modified.
func (r *SessionRegistry) FilterSessions(sessions []umami.Session) []umami.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kept := make([]umami.Session, 0, len(sessions))
	for _, s := range sessions {
		if _, ok := r.excluded[s.ID]; !ok {
			kept = append(kept, s)
		}
	}
	return kept
}

// WebsiteRegistry tracks websites excluded from favicon resolution and,
// separately, websites whitelisted for the external favicon service.
type WebsiteRegistry struct {
	mu        sync.RWMutex
	excluded  map[string]struct{}
	whitelist map[string]struct{}
}

// NewWebsiteRegistry creates a registry from the excluded and
// whitelisted domain lists.
func NewWebsiteRegistry(excluded, whitelist []string) *WebsiteRegistry {
	r := &WebsiteRegistry{
		excluded:  make(map[string]struct{}, len(excluded)),
		whitelist: make(map[string]struct{}, len(whitelist)),
	}
	for _, d := range excluded {
		r.excluded[d] = struct{}{}
	}
	for _, d := range whitelist {
		r.whitelist[d] = struct{}{}
	}
	return r
}

// IsExcluded reports whether the domain is barred from favicon
// resolution.
func (r *WebsiteRegistry) IsExcluded(domain string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.excluded[domain]
	return ok
}

// IsWhitelisted reports whether the domain may use the external favicon
// service.
func (r *WebsiteRegistry) IsWhitelisted(domain string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.whitelist[domain]
	return ok
}

// Exclude adds a domain to the exclusion set.
func (r *WebsiteRegistry) Exclude(domain string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.excluded[domain] = struct{}{}
}

// Include removes a domain from the exclusion set.
func (r *WebsiteRegistry) Include(domain string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.excluded, domain)
}

// Excluded returns the excluded domains. Order is unspecified.
func (r *WebsiteRegistry) Excluded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	domains := make([]string, 0, len(r.excluded))
	for d := range r.excluded {
		domains = append(domains, d)
	}
	return domains
}
