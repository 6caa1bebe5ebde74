package health

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/honeywatch/internal/screening/metrics"
	"github.com/vietddude/honeywatch/internal/screening/scheduler"
)

// StatusSource exposes the scheduler state.
type StatusSource interface {
	GetStatus() scheduler.Status
}

// BlacklistSizer reports the blacklist size.
type BlacklistSizer interface {
	Size() (owners, tokens int)
}

// Monitor aggregates health status from the scheduler and the blacklist.
type Monitor struct {
	source    StatusSource
	blacklist BlacklistSizer
	// staleAfter is how old the last sweep may be before the report degrades.
	staleAfter time.Duration
	storeCheck func(ctx context.Context) error
	now        func() time.Time
}

// NewMonitor creates a new health monitor. Sweeps older than three tick
// intervals mark the system degraded.
func NewMonitor(source StatusSource, blacklist BlacklistSizer, tickInterval time.Duration) *Monitor {
	return &Monitor{
		source:     source,
		blacklist:  blacklist,
		staleAfter: 3 * tickInterval,
		now:        time.Now,
	}
}

// WithStoreCheck adds a backend check. A failing check marks the system
// critical.
func (m *Monitor) WithStoreCheck(check func(ctx context.Context) error) *Monitor {
	m.storeCheck = check
	return m
}

// CheckHealth builds a report from the current state.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	st := m.source.GetStatus()
	owners, tokens := m.blacklist.Size()

	report := Report{
		Status:            StatusHealthy,
		Running:           st.Running,
		FeedConnected:     st.FeedConnected,
		PendingCandidates: st.Pending,
		BlacklistedOwners: owners,
		BlacklistedTokens: tokens,
	}
	if !st.LastSweep.IsZero() {
		ts := st.LastSweep
		report.LastSweep = &ts
	}

	if !st.Running {
		report.Problems = append(report.Problems, "scheduler not running")
	}
	if !st.FeedConnected {
		report.Problems = append(report.Problems, "pair feed disconnected")
	}
	if m.storeCheck != nil {
		if err := m.storeCheck(ctx); err != nil {
			report.Problems = append(report.Problems, fmt.Sprintf("store unreachable: %v", err))
		}
	}
	if len(report.Problems) > 0 {
		report.Status = StatusCritical
		return report
	}

	if m.staleAfter > 0 && !st.LastSweep.IsZero() && m.now().Sub(st.LastSweep) > m.staleAfter {
		report.Problems = append(report.Problems, "sweep overdue")
		report.Status = StatusDegraded
	}
	return report
}

// UpdateGauges copies the sizes in the report into the exported gauges.
func (m *Monitor) UpdateGauges(ctx context.Context) {
	r := m.CheckHealth(ctx)
	metrics.CandidatesPending.Set(float64(r.PendingCandidates))
	metrics.BlacklistedTokens.Set(float64(r.BlacklistedTokens))
}
