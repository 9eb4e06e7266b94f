// Package sqlite is the default durable result store. Each operation
// runs against the shared *sql.DB pool; write serialization is left to
// SQLite's own locking (busy_timeout keeps concurrent writers polite).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hamed0406/servicewatch/internal/domain"
	"github.com/hamed0406/servicewatch/internal/repo"
)

var _ repo.ResultStore = (*Store)(nil)
var _ repo.IncidentStore = (*Store)(nil)

type Store struct {
	db *sql.DB
}

func New(path string, log *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	log.Info("sqlite_ready", zap.String("path", path))
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS service_checks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		service_name TEXT NOT NULL,
		service_type TEXT NOT NULL,
		status TEXT NOT NULL,
		response_time_ms REAL,
		status_code INTEGER,
		error_message TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_service_checks_name_ts
		ON service_checks(service_name, timestamp);

	CREATE TABLE IF NOT EXISTS incidents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		service_name TEXT NOT NULL,
		issue_type TEXT NOT NULL,
		description TEXT,
		start_time DATETIME NOT NULL,
		end_time DATETIME,
		resolved BOOLEAN DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_incidents_open
		ON incidents(service_name) WHERE resolved = 0;
	`
	_, err := db.Exec(schema)
	return err
}

// ---- ResultStore ----

func (s *Store) Append(ctx context.Context, r *domain.CheckResult) error {
	var code sql.NullInt64
	if r.StatusCode != nil {
		code = sql.NullInt64{Int64: int64(*r.StatusCode), Valid: true}
	}
	var latency sql.NullFloat64
	if r.ResponseTimeMS != nil {
		latency = sql.NullFloat64{Float64: *r.ResponseTimeMS, Valid: true}
	}
	var errMsg sql.NullString
	if r.Error != "" {
		errMsg = sql.NullString{String: r.Error, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_checks
		  (service_name, service_type, status, response_time_ms, status_code, error_message, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ServiceName, string(r.ServiceType), string(r.Status),
		latency, code, errMsg, r.CheckedAt.UTC(),
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT service_name, service_type, status, response_time_ms, status_code, error_message, timestamp
		  FROM service_checks
		 WHERE service_name = ?
		 ORDER BY timestamp DESC, id DESC
		 LIMIT ?`, serviceName, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var out []domain.CheckResult
	for rows.Next() {
		r, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
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
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       SUM(CASE WHEN status = 'up' THEN 1 ELSE 0 END),
		       AVG(response_time_ms)
		  FROM service_checks
		 WHERE service_name = ? AND timestamp >= ?`,
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

func scanCheck(rows *sql.Rows) (domain.CheckResult, error) {
	var (
		r       domain.CheckResult
		styp    string
		status  string
		latency sql.NullFloat64
		code    sql.NullInt64
		errMsg  sql.NullString
	)
	if err := rows.Scan(&r.ServiceName, &styp, &status, &latency, &code, &errMsg, &r.CheckedAt); err != nil {
		return domain.CheckResult{}, err
	}
	r.ServiceType = domain.ServiceType(styp)
	r.Status = domain.Status(status)
	if latency.Valid {
		v := latency.Float64
		r.ResponseTimeMS = &v
	}
	if code.Valid {
		v := int(code.Int64)
		r.StatusCode = &v
	}
	r.Error = errMsg.String
	return r, nil
}

// ---- IncidentStore ----

func (s *Store) OpenIncident(ctx context.Context, serviceName, issueType, description string, start time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incidents (service_name, issue_type, description, start_time, resolved)
		SELECT ?, ?, ?, ?, 0
		 WHERE NOT EXISTS (
		       SELECT 1 FROM incidents WHERE service_name = ? AND resolved = 0)`,
		serviceName, issueType, description, start.UTC(), serviceName,
	)
	if err != nil {
		return fmt.Errorf("open incident: %w", err)
	}
	return nil
}

func (s *Store) ResolveIncident(ctx context.Context, serviceName string, end time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE incidents SET end_time = ?, resolved = 1
		 WHERE service_name = ? AND resolved = 0`,
		end.UTC(), serviceName,
	)
	if err != nil {
		return fmt.Errorf("resolve incident: %w", err)
	}
	return nil
}

func (s *Store) ActiveIncident(ctx context.Context, serviceName string) (*domain.Incident, error) {
	var (
		inc domain.Incident
		end sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, service_name, issue_type, COALESCE(description, ''), start_time, end_time, resolved
		  FROM incidents
		 WHERE service_name = ? AND resolved = 0
		 ORDER BY start_time DESC LIMIT 1`, serviceName,
	).Scan(&inc.ID, &inc.ServiceName, &inc.IssueType, &inc.Description, &inc.StartTime, &end, &inc.Resolved)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active incident: %w", err)
	}
	if end.Valid {
		inc.EndTime = &end.Time
	}
	return &inc, nil
}
