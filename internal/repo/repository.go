package repo

import (
	"context"
	"time"

	"github.com/hamed0406/servicewatch/internal/domain"
)

// Ports (interfaces) — swap in any DB adapter later.

// ResultStore is the durable, append-only record of every check.
type ResultStore interface {
	// Append persists one result. Every call is a new row.
	Append(ctx context.Context, r *domain.CheckResult) error
	// History returns the most recent limit results for a service,
	// most-recent-first.
	History(ctx context.Context, serviceName string, limit int) ([]domain.CheckResult, error)
	// UptimeStats aggregates results with timestamp >= now-window.
	// Uptime is 0.0 when no results fall in the window.
	UptimeStats(ctx context.Context, serviceName string, window time.Duration) (domain.UptimeStats, error)
}

// IncidentStore tracks contiguous outages. At most one unresolved
// incident exists per service.
type IncidentStore interface {
	// OpenIncident records the start of an outage. A no-op when an
	// unresolved incident already exists for the service.
	OpenIncident(ctx context.Context, serviceName, issueType, description string, start time.Time) error
	// ResolveIncident closes the unresolved incident, if any.
	ResolveIncident(ctx context.Context, serviceName string, end time.Time) error
	// ActiveIncident returns nil, nil when the service has no open incident.
	ActiveIncident(ctx context.Context, serviceName string) (*domain.Incident, error)
}
