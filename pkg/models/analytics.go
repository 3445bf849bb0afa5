package models

import "time"

// AlertCounts aggregates alerts by lifecycle and severity.
type AlertCounts struct {
	Total      int                   `json:"total"`
	Active     int                   `json:"active"`
	Expired    int                   `json:"expired"`
	Archived   int                   `json:"archived"`
	BySeverity map[AlertSeverity]int `json:"by_severity"`
}

// StateCounts aggregates per-user notification states.
type StateCounts struct {
	Total   int `json:"total"`
	Read    int `json:"read"`
	Unread  int `json:"unread"`
	Snoozed int `json:"snoozed"`
}

// DeliveryCounts aggregates delivery attempts for one channel.
type DeliveryCounts struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// AnalyticsReport is a point-in-time aggregation over alerts, user states
// and recorded delivery attempts. Empty data produces zero counts, never
// an error.
type AnalyticsReport struct {
	GeneratedAt time.Time                      `json:"generated_at"`
	Alerts      AlertCounts                    `json:"alerts"`
	States      StateCounts                    `json:"states"`
	Deliveries  map[ChannelName]DeliveryCounts `json:"deliveries"`
}

// TickReport summarizes a single reminder pass.
type TickReport struct {
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	ScannedAlerts  int           `json:"scanned_alerts"`
	EvaluatedPairs int           `json:"evaluated_pairs"`
	Dispatched     int           `json:"dispatched"`
}
