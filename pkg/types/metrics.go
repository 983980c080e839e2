package types

import "time"

// Metrics are process-lifetime counters surfaced by both binaries for
// structured logging and the health reporter.
type Metrics struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsEnriched  int64 `json:"events_enriched"`
	ParseErrors     int64 `json:"parse_errors"`
	RulesMatched    int64 `json:"rules_matched"`
	AlertsGenerated int64 `json:"alerts_generated"`

	AlertsDeduped    int64 `json:"alerts_deduped"`
	AlertsThrottled  int64 `json:"alerts_throttled"`
	AlertsDelivered  int64 `json:"alerts_delivered"`
}

// HealthSnapshot is a point-in-time process health reading.
type HealthSnapshot struct {
	Timestamp     time.Time `json:"timestamp"`
	Goroutines    int       `json:"goroutines"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryMB      float64   `json:"memory_mb"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	QueueDepth    int64     `json:"queue_depth,omitempty"`
}
