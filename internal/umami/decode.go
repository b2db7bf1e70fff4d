package umami

import (
	"encoding/json"
	"fmt"
)

// ResultKind tags the decoded shape of a sessions endpoint payload.
type ResultKind int

const (
	// KindPage marks a paginated sessions payload.
	KindPage ResultKind = iota
	// KindStats marks a stats-shaped payload.
	KindStats
)

// SessionsResult is the tagged decoding of a sessions endpoint response.
// Exactly one of Page and Stats is non-nil, selected by Kind.
type SessionsResult struct {
	Kind  ResultKind
	Page  *SessionPage
	Stats *Stats
}

// DecodeSessionsPayload decodes a sessions endpoint body into a tagged
// result. The upstream server answers this endpoint with either a
// paginated sessions page or an aggregate stats object; anything else is
// a DecodeError.
func DecodeSessionsPayload(endpoint string, data []byte) (*SessionsResult, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &DecodeError{Endpoint: endpoint, Reason: fmt.Sprintf("not a JSON object: %v", err)}
	}

	if _, ok := probe["data"]; ok {
		var page SessionPage
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, &DecodeError{Endpoint: endpoint, Reason: fmt.Sprintf("malformed sessions page: %v", err)}
		}
		return &SessionsResult{Kind: KindPage, Page: &page}, nil
	}

	_, hasPageviews := probe["pageviews"]
	_, hasVisitors := probe["visitors"]
	if hasPageviews || hasVisitors {
		stats, err := decodeStats(data)
		if err != nil {
			return nil, &DecodeError{Endpoint: endpoint, Reason: fmt.Sprintf("malformed stats payload: %v", err)}
		}
		return &SessionsResult{Kind: KindStats, Stats: stats}, nil
	}

	return nil, &DecodeError{Endpoint: endpoint, Reason: "payload is neither a sessions page nor a stats object"}
}

// statsMetric accepts both the bare-number and the {value, prev} envelope
// forms the stats endpoints produce across API versions.
type statsMetric struct {
	Value float64
}

// UnmarshalJSON decodes either a JSON number or an object carrying a
// "value" field.
func (m *statsMetric) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		m.Value = n
		return nil
	}

	var envelope struct {
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	m.Value = envelope.Value
	return nil
}

// decodeStats flattens a stats payload into the Stats model regardless of
// which envelope form the server used.
func decodeStats(data []byte) (*Stats, error) {
	var raw struct {
		Pageviews  statsMetric `json:"pageviews"`
		Visitors   statsMetric `json:"visitors"`
		Visits     statsMetric `json:"visits"`
		Sessions   statsMetric `json:"sessions"`
		Bounces    statsMetric `json:"bounces"`
		BounceRate statsMetric `json:"bounceRate"`
		TotalTime  statsMetric `json:"totaltime"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	return &Stats{
		Pageviews:  raw.Pageviews.Value,
		Visitors:   raw.Visitors.Value,
		Visits:     raw.Visits.Value,
		Sessions:   raw.Sessions.Value,
		Bounces:    raw.Bounces.Value,
		BounceRate: raw.BounceRate.Value,
		TotalTime:  raw.TotalTime.Value,
	}, nil
}
