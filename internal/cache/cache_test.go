package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/hamed0406/servicewatch/internal/domain"
)

func res(name, msg string, up bool) domain.CheckResult {
	st := domain.StatusDown
	if up {
		st = domain.StatusUp
	}
	return domain.CheckResult{
		ServiceName: name,
		ServiceType: domain.TypeHTTP,
		Status:      st,
		Error:       msg,
		CheckedAt:   time.Now().UTC(),
	}
}

func TestCache_LatestEmpty(t *testing.T) {
	c := New(10)
	if _, ok := c.Latest("nope"); ok {
		t.Fatalf("expected no data for unknown service")
	}
	if got := c.Window("nope"); got != nil {
		t.Fatalf("expected nil window, got %v", got)
	}
	if got := c.Uptime("nope"); got != 0.0 {
		t.Fatalf("empty uptime must be 0.0, got %f", got)
	}
}

func TestCache_FIFOEvictionAt100(t *testing.T) {
	c := New(DefaultCapacity)
	for i := 0; i < 101; i++ {
		c.Record("svc", res("svc", fmt.Sprintf("n%d", i), false))
	}

	w := c.Window("svc")
	if len(w) != 100 {
		t.Fatalf("want exactly 100 buffered entries, got %d", len(w))
	}
	if w[0].Error != "n1" {
		t.Fatalf("oldest entry should have been evicted, front is %q", w[0].Error)
	}
	if w[len(w)-1].Error != "n100" {
		t.Fatalf("newest entry missing, back is %q", w[len(w)-1].Error)
	}

	last, ok := c.Latest("svc")
	if !ok || last.Error != "n100" {
		t.Fatalf("latest should be the 101st insert, got %+v", last)
	}
}

func TestCache_WindowIsASnapshot(t *testing.T) {
	c := New(5)
	c.Record("svc", res("svc", "a", true))
	w := c.Window("svc")

	c.Record("svc", res("svc", "b", true))
	if len(w) != 1 || w[0].Error != "a" {
		t.Fatalf("reader snapshot was mutated by a later write: %+v", w)
	}
}

func TestCache_UptimeApproximation(t *testing.T) {
	c := New(10)
	c.Record("svc", res("svc", "", true))
	c.Record("svc", res("svc", "", true))
	c.Record("svc", res("svc", "down", false))
	c.Record("svc", res("svc", "", true))

	if got := c.Uptime("svc"); got != 75.0 {
		t.Fatalf("want 75.0, got %f", got)
	}
}
