package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/honeywatch/internal/screening/scheduler"
)

// =============================================================================
// Stubs
// =============================================================================

type stubSource struct {
	status scheduler.Status
}

func (s *stubSource) GetStatus() scheduler.Status { return s.status }

type stubBlacklist struct {
	owners, tokens int
}

func (s *stubBlacklist) Size() (int, int) { return s.owners, s.tokens }

func newTestMonitor(st scheduler.Status, now time.Time) *Monitor {
	m := NewMonitor(&stubSource{status: st}, &stubBlacklist{owners: 2, tokens: 3}, time.Minute)
	m.now = func() time.Time { return now }
	return m
}

// =============================================================================
// Tests
// =============================================================================

func TestMonitor_Healthy(t *testing.T) {
	now := time.Now()
	monitor := newTestMonitor(scheduler.Status{Running: true, FeedConnected: true, Pending: 4, LastSweep: now.Add(-30 * time.Second)}, now)

	report := monitor.CheckHealth(context.Background())
	if report.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s (%v)", report.Status, report.Problems)
	}
	if report.PendingCandidates != 4 || report.BlacklistedOwners != 2 || report.BlacklistedTokens != 3 {
		t.Errorf("unexpected counts: %+v", report)
	}
}

func TestMonitor_DegradedOnStaleSweep(t *testing.T) {
	now := time.Now()
	monitor := newTestMonitor(scheduler.Status{Running: true, FeedConnected: true, LastSweep: now.Add(-10 * time.Minute)}, now)

	report := monitor.CheckHealth(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", report.Status)
	}
}

func TestMonitor_CriticalWhenFeedDown(t *testing.T) {
	now := time.Now()
	monitor := newTestMonitor(scheduler.Status{Running: true, FeedConnected: false, LastSweep: now}, now)

	report := monitor.CheckHealth(context.Background())
	if report.Status != StatusCritical {
		t.Errorf("expected critical, got %s", report.Status)
	}
}

func TestMonitor_CriticalWhenStoreUnreachable(t *testing.T) {
	now := time.Now()
	monitor := newTestMonitor(scheduler.Status{Running: true, FeedConnected: true, LastSweep: now}, now).
		WithStoreCheck(func(context.Context) error { return errors.New("connection refused") })

	report := monitor.CheckHealth(context.Background())
	if report.Status != StatusCritical {
		t.Fatalf("expected critical, got %s", report.Status)
	}
	if len(report.Problems) != 1 || !strings.Contains(report.Problems[0], "connection refused") {
		t.Errorf("unexpected problems: %v", report.Problems)
	}
}

func TestServer_HealthStatusCodes(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		status scheduler.Status
		code   int
	}{
		{"healthy", scheduler.Status{Running: true, FeedConnected: true, LastSweep: now}, http.StatusOK},
		{"feed down", scheduler.Status{Running: true, LastSweep: now}, http.StatusServiceUnavailable},
		{"stopped", scheduler.Status{FeedConnected: true}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(newTestMonitor(tt.status, now), 0)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, rec.Code)
			}
		})
	}
}

func TestServer_Detailed(t *testing.T) {
	now := time.Now()
	srv := NewServer(newTestMonitor(scheduler.Status{Running: true, FeedConnected: true, Pending: 1, LastSweep: now}, now), 0)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))

	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.PendingCandidates != 1 || !report.FeedConnected {
		t.Errorf("unexpected report: %+v", report)
	}
}
