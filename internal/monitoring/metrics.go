// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - sessions:        Created and ended session counts
//   - messages:        Total message turns and degraded (apology) turns
//   - budget_refusals: Pre-flight admissions refused on an exhausted budget
//   - provider:        Generation calls and their failures
//
// For production, export these to Prometheus or similar.
package monitoring

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Collector collects operational metrics.
type Collector struct {
	startedAt time.Time

	sessionsCreated atomic.Int64
	sessionsEnded   atomic.Int64

	messages       atomic.Int64
	degradedTurns  atomic.Int64
	budgetRefusals atomic.Int64

	providerCalls    atomic.Int64
	providerFailures atomic.Int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{startedAt: time.Now()}
}

// RecordSessionCreated records a new session.
func (c *Collector) RecordSessionCreated() { c.sessionsCreated.Add(1) }

// RecordSessionEnded records an ended session.
func (c *Collector) RecordSessionEnded() { c.sessionsEnded.Add(1) }

// RecordMessage records a message turn; degraded marks apology replies.
func (c *Collector) RecordMessage(degraded bool) {
	c.messages.Add(1)
	if degraded {
		c.degradedTurns.Add(1)
	}
}

// RecordBudgetRefusal records a pre-flight admission refusal.
func (c *Collector) RecordBudgetRefusal() { c.budgetRefusals.Add(1) }

// RecordProviderCall records a generation call and whether it failed.
func (c *Collector) RecordProviderCall(failed bool) {
	c.providerCalls.Add(1)
	if failed {
		c.providerFailures.Add(1)
	}
}

// StartedAt returns when the collector was created.
func (c *Collector) StartedAt() time.Time { return c.startedAt }

// StatsResponse is the structured payload for the /stats endpoint.
type StatsResponse struct {
	Uptime        string       `json:"uptime"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartedAt     string       `json:"started_at"`
	Sessions      SessionStats `json:"sessions"`
	Messages      MessageStats `json:"messages"`
	Provider      CallStats    `json:"provider"`
}

// SessionStats holds session lifecycle counts.
type SessionStats struct {
	Created int64 `json:"created"`
	Ended   int64 `json:"ended"`
}

// MessageStats holds message turn counts.
type MessageStats struct {
	Total          int64 `json:"total"`
	Degraded       int64 `json:"degraded"`
	BudgetRefusals int64 `json:"budget_refusals"`
}

// CallStats holds generation call counts.
type CallStats struct {
	Calls    int64 `json:"calls"`
	Failures int64 `json:"failures"`
}

// FullStats returns all metrics in a structured format for the /stats endpoint.
func (c *Collector) FullStats() StatsResponse {
	uptime := time.Since(c.startedAt)
	return StatsResponse{
		Uptime:        formatDuration(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartedAt:     c.startedAt.Format(time.RFC3339),
		Sessions: SessionStats{
			Created: c.sessionsCreated.Load(),
			Ended:   c.sessionsEnded.Load(),
		},
		Messages: MessageStats{
			Total:          c.messages.Load(),
			Degraded:       c.degradedTurns.Load(),
			BudgetRefusals: c.budgetRefusals.Load(),
		},
		Provider: CallStats{
			Calls:    c.providerCalls.Load(),
			Failures: c.providerFailures.Load(),
		},
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
