// Package postgres is the shared-database variant of the result store,
// selected with DATABASE_URL for deployments that already run postgres.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/servicewatch/internal/domain"
	"github.com/hamed0406/servicewatch/internal/repo"
)

var _ repo.ResultStore = (*Store)(nil)
var _ repo.IncidentStore = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	log.Info("postgres_ready")
	return s, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS service_checks (
		id BIGSERIAL PRIMARY KEY,
		service_name TEXT NOT NULL,
		service_type TEXT NOT NULL,
		status TEXT NOT NULL,
		response_time_ms DOUBLE PRECISION,
		status_code INTEGER,
		error_message TEXT,
		timestamp TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_service_checks_name_ts
		ON service_checks(service_name, timestamp);

	CREATE TABLE IF NOT EXISTS incidents (
		id BIGSERIAL PRIMARY KEY,
		service_name TEXT NOT NULL,
		issue_type TEXT NOT NULL,
		description TEXT,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ,
		resolved BOOLEAN DEFAULT FALSE
	);
	CREATE INDEX IF NOT EXISTS idx_incidents_open
		ON incidents(service_name) WHERE NOT resolved;
	`)
	return err
}

// ---- ResultStore ----

func (s *Store) Append(ctx context.Context, r *domain.CheckResult) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO service_checks
		  (service_name, service_type, status, response_time_ms, status_code, error_message, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ServiceName, string(r.ServiceType), string(r.Status),
		r.ResponseTimeMS, r.StatusCode, nullIfEmpty(r.Error), r.CheckedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert check: %w", err)
	}
	return nil
}

func (s *Store) History(ctx context.Context, serviceName string, limit int) ([]domain.CheckResult, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT service_name, service_type, status, response_time_ms, status_code, error_message, timestamp
		  FROM service_checks
		 WHERE service_name = $1
		 ORDER BY timestamp DESC, id DESC
		 LIMIT $2`, serviceName, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var out []domain.CheckResult
	for rows.Next() {
		var (
			r      domain.CheckResult
			styp   string
			status string
			errMsg *string
		)
		if err := rows.Scan(&r.ServiceName, &styp, &status, &r.ResponseTimeMS, &r.StatusCode, &errMsg, &r.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		r.ServiceType = domain.ServiceType(styp)
		r.Status = domain.Status(status)
		if errMsg != nil {
			r.Error = *errMsg
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UptimeStats(ctx context.Context, serviceName string, window time.Duration) (domain.UptimeStats, error) {
	cutoff := time.Now().UTC().Add(-window)

	var (
		total   int
		success sql.NullInt64
		avg     sql.NullFloat64
	)
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       SUM(CASE WHEN status = 'up' THEN 1 ELSE 0 END),
		       AVG(response_time_ms)
		  FROM service_checks
		 WHERE service_name = $1 AND timestamp >= $2`,
		serviceName, cutoff,
	).Scan(&total, &success, &avg)
	if err != nil {
		return domain.UptimeStats{}, fmt.Errorf("uptime stats: %w", err)
	}

	stats := domain.UptimeStats{
		TotalChecks:  total,
		SuccessCount: int(success.Int64),
		AvgLatencyMS: avg.Float64,
	}
	if total > 0 {
		stats.UptimePercent = float64(stats.SuccessCount) / float64(total) * 100
	}
	return stats, nil
}

// ---- IncidentStore ----

func (s *Store) OpenIncident(ctx context.Context, serviceName, issueType, description string, start time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO incidents (service_name, issue_type, description, start_time, resolved)
		SELECT $1, $2, $3, $4, FALSE
		 WHERE NOT EXISTS (
		       SELECT 1 FROM incidents WHERE service_name = $1 AND NOT resolved)`,
		serviceName, issueType, description, start.UTC(),
	)
	if err != nil {
		return fmt.Errorf("open incident: %w", err)
	}
	return nil
}

func (s *Store) ResolveIncident(ctx context.Context, serviceName string, end time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE incidents SET end_time = $1, resolved = TRUE
		 WHERE service_name = $2 AND NOT resolved`,
		end.UTC(), serviceName,
	)
	if err != nil {
		return fmt.Errorf("resolve incident: %w", err)
	}
	return nil
}

func (s *Store) ActiveIncident(ctx context.Context, serviceName string) (*domain.Incident, error) {
	var (
		inc  domain.Incident
		desc *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, service_name, issue_type, description, start_time, end_time, resolved
		  FROM incidents
		 WHERE service_name = $1 AND NOT resolved
		 ORDER BY start_time DESC LIMIT 1`, serviceName,
	).Scan(&inc.ID, &inc.ServiceName, &inc.IssueType, &desc, &inc.StartTime, &inc.EndTime, &inc.Resolved)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active incident: %w", err)
	}
	if desc != nil {
		inc.Description = *desc
	}
	return &inc, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
