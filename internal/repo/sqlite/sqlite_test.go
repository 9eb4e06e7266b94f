package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/servicewatch/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "checks.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndHistory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	lat := 12.5
	code := 200
	in := &domain.CheckResult{
		ServiceName:    "web",
		ServiceType:    domain.TypeHTTP,
		Status:         domain.StatusUp,
		ResponseTimeMS: &lat,
		StatusCode:     &code,
		CheckedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := s.Append(ctx, in); err != nil {
		t.Fatalf("Append: %v", err)
	}

	downMsg := "unexpected status: 503 (want 200)"
	down := &domain.CheckResult{
		ServiceName: "web",
		ServiceType: domain.TypeHTTP,
		Status:      domain.StatusDown,
		Error:       downMsg,
		CheckedAt:   in.CheckedAt.Add(time.Second),
	}
	if err := s.Append(ctx, down); err != nil {
		t.Fatalf("Append down: %v", err)
	}

	hist, err := s.History(ctx, "web", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("want 2 rows, got %d", len(hist))
	}
	// most-recent-first
	if hist[0].Status != domain.StatusDown || hist[0].Error != downMsg {
		t.Fatalf("unexpected newest row: %+v", hist[0])
	}
	if hist[0].ResponseTimeMS != nil {
		t.Fatalf("down row latency must round-trip as nil, got %v", *hist[0].ResponseTimeMS)
	}
	got := hist[1]
	if !got.Up() || got.Error != "" {
		t.Fatalf("unexpected up row: %+v", got)
	}
	if got.ResponseTimeMS == nil || *got.ResponseTimeMS != lat {
		t.Fatalf("latency mismatch: %v", got.ResponseTimeMS)
	}
	if got.StatusCode == nil || *got.StatusCode != code {
		t.Fatalf("status code mismatch: %v", got.StatusCode)
	}
}

func TestUptimeStats_WindowedAggregate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	appendAt := func(at time.Time, up bool, lat float64) {
		st := domain.StatusDown
		msg := "timed out"
		if up {
			st = domain.StatusUp
			msg = ""
		}
		r := &domain.CheckResult{
			ServiceName: "api", ServiceType: domain.TypeAPI,
			Status: st, Error: msg, CheckedAt: at,
		}
		if up {
			r.ResponseTimeMS = &lat
		}
		if err := s.Append(ctx, r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	appendAt(now.Add(-time.Minute), true, 20)
	appendAt(now.Add(-2*time.Minute), true, 40)
	appendAt(now.Add(-3*time.Minute), false, 0)
	appendAt(now.Add(-30*time.Hour), false, 0) // outside the 24h window

	stats, err := s.UptimeStats(ctx, "api", 24*time.Hour)
	if err != nil {
		t.Fatalf("UptimeStats: %v", err)
	}
	if stats.TotalChecks != 3 || stats.SuccessCount != 2 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	want := 2.0 / 3.0 * 100
	if diff := stats.UptimePercent - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("want %.6f, got %.6f", want, stats.UptimePercent)
	}
	if stats.AvgLatencyMS != 30.0 {
		t.Fatalf("want avg latency 30.0 over non-null rows, got %f", stats.AvgLatencyMS)
	}
}

func TestUptimeStats_NoRows(t *testing.T) {
	s := newTestStore(t)
	stats, err := s.UptimeStats(context.Background(), "nothing", 24*time.Hour)
	if err != nil {
		t.Fatalf("UptimeStats: %v", err)
	}
	if stats.TotalChecks != 0 || stats.UptimePercent != 0.0 {
		t.Fatalf("want empty stats, got %+v", stats)
	}
}

func TestIncidents_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	if err := s.OpenIncident(ctx, "db", "DOWN", "connection failed", now); err != nil {
		t.Fatalf("OpenIncident: %v", err)
	}
	if err := s.OpenIncident(ctx, "db", "DOWN", "dup", now.Add(time.Minute)); err != nil {
		t.Fatalf("OpenIncident dup: %v", err)
	}

	inc, err := s.ActiveIncident(ctx, "db")
	if err != nil || inc == nil {
		t.Fatalf("want open incident, got inc=%v err=%v", inc, err)
	}
	if inc.Description != "connection failed" {
		t.Fatalf("duplicate open must be a no-op, got %+v", inc)
	}

	if err := s.ResolveIncident(ctx, "db", now.Add(5*time.Minute)); err != nil {
		t.Fatalf("ResolveIncident: %v", err)
	}
	inc, err = s.ActiveIncident(ctx, "db")
	if err != nil {
		t.Fatalf("ActiveIncident: %v", err)
	}
	if inc != nil {
		t.Fatalf("expected no open incident after resolve, got %+v", inc)
	}
}
