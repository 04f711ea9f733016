package core

// UnknownDuration is rendered when the backend has no engagement data yet.
// Dashboard clients match on this exact value.
const UnknownDuration = "—"

// NotSetSource is reported as the top traffic source when there are no sessions.
const NotSetSource = "(not set)"

// ResponsePayload is the body returned to dashboard clients. Field names are a
// compatibility contract: add fields, never rename or remove them.
type ResponsePayload struct {
	RangeLabel        string          `json:"rangeLabel"`
	Users             int             `json:"users"`
	NewUsers          int             `json:"newUsers"`
	AvgEngagementTime string          `json:"avgEngagementTime"`
	ContactSubmits    int             `json:"contactSubmits"`
	BookingClicks     int             `json:"bookingClicks"`
	TopTrafficSource  string          `json:"topTrafficSource"`
	TopSources        []TrafficSource `json:"topSources"`
	TopPages          []PageView      `json:"topPages"`
	Tenant            string          `json:"tenant"`
}

type TrafficSource struct {
	Source   string `json:"source"`
	Sessions int    `json:"sessions"`
}

type PageView struct {
	Path  string `json:"path"`
	Views int    `json:"views"`
}

type Kpis struct {
	ActiveUsers        int
	NewUsers           int
	AvgSessionDuration string
}
