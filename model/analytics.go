package model

// AnalyticsSummary is the read-side view of the page-view aggregate
type AnalyticsSummary struct {
	TotalPageViews     int64     `json:"totalPageViews"`
	UniqueVisitors     int       `json:"uniqueVisitors"`     // Cardinality of the visitor set
	PageViewsLast7Days int64     `json:"pageViewsLast7Days"` // Today plus the 6 previous UTC days
	LastVisitAt        *string   `json:"lastVisitAt"`        // RFC3339, null when nothing was recorded
	TopPages           []TopPage `json:"topPages"`           // At most 5, most viewed first
}

// TopPage represents views for a single normalized path
type TopPage struct {
	Path         string  `json:"path"`
	Views        int64   `json:"views"`
	SharePercent float64 `json:"sharePercent"` // Share of total views, one decimal
}

// HitRequest is the beacon body sent by the page tracker
type HitRequest struct {
	Path string `json:"path"`
}

// AnalyticsUpdate is pushed to live admin clients after each recorded view
type AnalyticsUpdate struct {
	Type    string           `json:"type"`
	Summary AnalyticsSummary `json:"summary"`
}
