package umami

// Session represents one visitor's bounded activity window on a monitored
// website. Temporal bounds are transported as strings because the upstream
// API emits either ISO-8601 timestamps or epoch-millisecond numeric strings
// depending on the endpoint; parsing is deferred to the classifier.
type Session struct {
	// ID is the session identifier.
	ID string `json:"id"`
	// WebsiteID is the monitored website this session belongs to.
	WebsiteID string `json:"websiteId"`
	// Hostname is the visited hostname, when reported.
	Hostname string `json:"hostname,omitempty"`
	// Browser is the visitor's browser name.
	Browser string `json:"browser"`
	// OS is the visitor's operating system name.
	OS string `json:"os"`
	// Device is the device class (desktop, mobile, tablet).
	Device string `json:"device"`
	// Screen is the screen resolution string.
	Screen string `json:"screen"`
	// Language is the visitor's language tag.
	Language string `json:"language"`
	// Country is the visitor's country code or name.
	Country string `json:"country"`
	// Region is the sub-national region, when resolved.
	Region string `json:"region,omitempty"`
	// City is the visitor's city, when resolved.
	City string `json:"city,omitempty"`
	// FirstAt is the start of the activity window.
	FirstAt string `json:"firstAt"`
	// LastAt is the end of the activity window.
	LastAt string `json:"lastAt"`
	// Visits is the number of visits within the window.
	Visits int `json:"visits"`
	// Views is the number of page views within the window.
	Views int `json:"views"`
	// CreatedAt is the server-side record creation time.
	CreatedAt string `json:"createdAt,omitempty"`
	// Properties holds the flat key/value mapping produced by enrichment.
	// Absent until enrichment runs, and absent after enrichment if the
	// per-session property fetch failed.
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// SessionProperty is a raw per-session attribute record as returned by the
// session-properties endpoint. Exactly one of StringValue, NumberValue and
// DateValue is expected to be non-nil.
type SessionProperty struct {
	WebsiteID   string   `json:"websiteId"`
	SessionID   string   `json:"sessionId"`
	DataKey     string   `json:"dataKey"`
	DataType    int      `json:"dataType"`
	StringValue *string  `json:"stringValue"`
	NumberValue *float64 `json:"numberValue"`
	DateValue   *string  `json:"dateValue"`
	CreatedAt   string   `json:"createdAt,omitempty"`
}

// SessionPage is one page of session records with pagination metadata.
// Count reflects the number of records the server matched for the query
// scope; the response processor rewrites it to the kept-record count.
type SessionPage struct {
	Data     []Session `json:"data"`
	Count    int       `json:"count"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

// Website is a monitored website registration.
type Website struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Domain    string `json:"domain"`
	ShareID   string `json:"shareId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// WebsitePage is one page of website registrations.
type WebsitePage struct {
	Data     []Website `json:"data"`
	Count    int       `json:"count"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

// Event is a tracked custom event.
type Event struct {
	ID        string                 `json:"id"`
	WebsiteID string                 `json:"websiteId"`
	SessionID string                 `json:"sessionId"`
	EventName string                 `json:"eventName"`
	EventData map[string]interface{} `json:"eventData,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
	URL       string                 `json:"url,omitempty"`
	Referrer  string                 `json:"referrer,omitempty"`
}

// EventPage is one page of events.
type EventPage struct {
	Data     []Event `json:"data"`
	Count    int     `json:"count"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

// Stats is the aggregate statistics payload for a website and date range.
type Stats struct {
	Pageviews  float64 `json:"pageviews"`
	Visitors   float64 `json:"visitors"`
	Visits     float64 `json:"visits,omitempty"`
	Sessions   float64 `json:"sessions,omitempty"`
	Bounces    float64 `json:"bounces,omitempty"`
	BounceRate float64 `json:"bounceRate,omitempty"`
	TotalTime  float64 `json:"totaltime,omitempty"`
}

// RealtimeStats is the realtime activity snapshot for a website.
type RealtimeStats struct {
	ActiveVisitors int `json:"activeVisitors"`
	Pageviews      int `json:"pageviews,omitempty"`
}

// User is an umami dashboard user.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// LoginResponse is the successful authentication payload.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// SessionQuery describes one sessions page fetch. StartAt and EndAt are
// epoch-millisecond strings (already normalized by the orchestrator).
type SessionQuery struct {
	WebsiteID string
	StartAt   string
	EndAt     string
	Page      int
	PageSize  int
}

// EventQuery describes one events page fetch.
type EventQuery struct {
	WebsiteID string
	StartAt   string
	EndAt     string
	EventName string
	Page      int
	PageSize  int
}

// StatsQuery describes a stats fetch for a website and date range.
type StatsQuery struct {
	WebsiteID string
	StartAt   string
	EndAt     string
	Timezone  string
	Unit      string
}
