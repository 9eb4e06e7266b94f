// Package memory is an in-process ResultStore used in tests and when
// no database is configured. Results do not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/servicewatch/internal/domain"
	"github.com/hamed0406/servicewatch/internal/repo"
)

var _ repo.ResultStore = (*Store)(nil)
var _ repo.IncidentStore = (*Store)(nil)

type Store struct {
	mu        sync.RWMutex
	results   map[string][]domain.CheckResult
	incidents []domain.Incident
	nextID    int64
}

func New() *Store {
	return &Store{
		results: make(map[string][]domain.CheckResult),
		nextID:  1,
	}
}

func (m *Store) Append(ctx context.Context, r *domain.CheckResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[r.ServiceName] = append(m.results[r.ServiceName], *r)
	return nil
}

func (m *Store) History(ctx context.Context, serviceName string, limit int) ([]domain.CheckResult, error) {
	if limit <= 0 {
		limit = 100
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.results[serviceName]
	if len(all) == 0 {
		return nil, nil
	}
	// Stored in capture order; return newest first.
	n := min(limit, len(all))
	out := make([]domain.CheckResult, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *Store) UptimeStats(ctx context.Context, serviceName string, window time.Duration) (domain.UptimeStats, error) {
	cutoff := time.Now().UTC().Add(-window)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats domain.UptimeStats
	var latencySum float64
	var latencyN int
	for _, r := range m.results[serviceName] {
		if r.CheckedAt.Before(cutoff) {
			continue
		}
		stats.TotalChecks++
		if r.Up() {
			stats.SuccessCount++
		}
		if r.ResponseTimeMS != nil {
			latencySum += *r.ResponseTimeMS
			latencyN++
		}
	}
	if latencyN > 0 {
		stats.AvgLatencyMS = latencySum / float64(latencyN)
	}
	if stats.TotalChecks > 0 {
		stats.UptimePercent = float64(stats.SuccessCount) / float64(stats.TotalChecks) * 100
	}
	return stats, nil
}

func (m *Store) OpenIncident(ctx context.Context, serviceName, issueType, description string, start time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, inc := range m.incidents {
		if inc.ServiceName == serviceName && !inc.Resolved {
			return nil
		}
	}
	m.incidents = append(m.incidents, domain.Incident{
		ID:          m.nextID,
		ServiceName: serviceName,
		IssueType:   issueType,
		Description: description,
		StartTime:   start.UTC(),
	})
	m.nextID++
	return nil
}

func (m *Store) ResolveIncident(ctx context.Context, serviceName string, end time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.incidents {
		if m.incidents[i].ServiceName == serviceName && !m.incidents[i].Resolved {
			e := end.UTC()
			m.incidents[i].EndTime = &e
			m.incidents[i].Resolved = true
		}
	}
	return nil
}

func (m *Store) ActiveIncident(ctx context.Context, serviceName string) (*domain.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.incidents) - 1; i >= 0; i-- {
		if m.incidents[i].ServiceName == serviceName && !m.incidents[i].Resolved {
			inc := m.incidents[i]
			return &inc, nil
		}
	}
	return nil, nil
}
