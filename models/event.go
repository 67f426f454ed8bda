// api/internal/models/event.go
package models

import (
	"time"
)

// EventPayload is the shape the tracking snippet POSTs to /analytics.
// IsPWA is a pointer so that an explicit `false` can be told apart from a
// missing field.
type EventPayload struct {
	Timestamp      time.Time        `json:"timestamp"`
	Referrer       string           `json:"referrer,omitempty"`
	ScreenWidth    int64            `json:"screenWidth"`
	IsPWA          *bool            `json:"isPWA"`
	NavigationData map[string]int64 `json:"navigationData"`
	BrowserInfo    string           `json:"browserInfo"`
}

// AnalyticsEvent is the stored (and echoed back) form of an ingested event,
// enriched with the resolved country, the per-day anonymous visitor id and
// the parsed browser fields.
type AnalyticsEvent struct {
	EventID        string           `json:"eventId"`
	Timestamp      time.Time        `json:"timestamp"`
	Referrer       string           `json:"referrer,omitempty"`
	ScreenWidth    int64            `json:"screenWidth"`
	IsPWA          bool             `json:"isPWA"`
	NavigationData map[string]int64 `json:"navigationData"`
	Country        string           `json:"country"`
	AnonymousID    string           `json:"anonymousId"`
	BrowserInfo    string           `json:"browserInfo"`
	BrowserName    string           `json:"browserName,omitempty"`
	BrowserOS      string           `json:"browserOs,omitempty"`
}

// DailyUsers is one bucket of the unique-visitors-per-day report.
type DailyUsers struct {
	Date        string `json:"date"`
	UserVisited int64  `json:"userVisited"`
}

// UniqueVisitorStats is the full unique-visitor report.
type UniqueVisitorStats struct {
	Total  int64        `json:"totalUsers"`
	PerDay []DailyUsers `json:"usersPerDate"`
}

// PageInteraction is the cumulative interaction time recorded for one page.
type PageInteraction struct {
	Page            string `json:"page"`
	InteractionTime int64  `json:"interactionTime"`
}

// EventCountByTime is one bucket of the events-over-time report.
type EventCountByTime struct {
	Time  time.Time `json:"time"`
	Count uint64    `json:"count"`
}
