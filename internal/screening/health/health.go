// Package health provides system health monitoring and status reporting.
package health

import "time"

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report contains the full system health report.
type Report struct {
	Status            SystemStatus `json:"status"`
	Running           bool         `json:"running"`
	FeedConnected     bool         `json:"feed_connected"`
	PendingCandidates int          `json:"pending_candidates"`
	BlacklistedOwners int          `json:"blacklisted_owners"`
	BlacklistedTokens int          `json:"blacklisted_tokens"`
	LastSweep         *time.Time   `json:"last_sweep,omitempty"`
	Problems          []string     `json:"problems,omitempty"`
}
