package domain

import "time"

type ServiceType string

const (
	TypeHTTP ServiceType = "http"
	TypeTCP  ServiceType = "tcp"
	TypeDNS  ServiceType = "dns"
	TypeAPI  ServiceType = "api"
)

type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// ServiceDefinition describes one monitored service. The set of
// definitions is loaded once at startup and never mutated afterwards;
// reconfiguration requires a restart.
type ServiceDefinition struct {
	Name string      `json:"name" yaml:"name" validate:"required"`
	Type ServiceType `json:"type" yaml:"type" validate:"required,oneof=http tcp dns api"`

	// Target, one group per type: URL for http/api, Host+Port for tcp,
	// Domain for dns.
	URL    string `json:"url,omitempty" yaml:"url,omitempty" validate:"omitempty,url"`
	Host   string `json:"host,omitempty" yaml:"host,omitempty"`
	Port   int    `json:"port,omitempty" yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty" validate:"omitempty,fqdn"`

	ExpectedStatus int    `json:"expected_status,omitempty" yaml:"expected_status,omitempty"`
	ExpectedIP     string `json:"expected_ip,omitempty" yaml:"expected_ip,omitempty" validate:"omitempty,ip"`

	TimeoutSeconds  int  `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"omitempty,min=1"`
	IntervalSeconds int  `json:"check_interval,omitempty" yaml:"check_interval,omitempty"`
	AlertOnFailure  bool `json:"alert_on_failure,omitempty" yaml:"alert_on_failure,omitempty"`
}

func (d ServiceDefinition) Timeout() time.Duration {
	if d.TimeoutSeconds > 0 {
		return time.Duration(d.TimeoutSeconds) * time.Second
	}
	switch d.Type {
	case TypeTCP, TypeDNS:
		return 5 * time.Second
	default:
		return 10 * time.Second
	}
}

// CheckResult is the outcome of a single probe. Immutable once created.
//
// ResponseTimeMS is nil when the check never completed (timeout,
// refused connection). Error is empty iff Status is up.
type CheckResult struct {
	ServiceName    string      `json:"service_name"`
	ServiceType    ServiceType `json:"service_type"`
	Status         Status      `json:"status"`
	ResponseTimeMS *float64    `json:"response_time_ms"`
	StatusCode     *int        `json:"status_code,omitempty"`
	Error          string      `json:"error_message,omitempty"`
	CheckedAt      time.Time   `json:"timestamp"`
}

func (r CheckResult) Up() bool { return r.Status == StatusUp }

// UptimeStats is derived from stored results over a trailing window.
type UptimeStats struct {
	TotalChecks   int     `json:"total_checks"`
	SuccessCount  int     `json:"success_count"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
	UptimePercent float64 `json:"uptime_percent"`
}

// Alert is the payload handed to notifiers when an alert-eligible
// service goes down (and, optionally, when it recovers).
type Alert struct {
	ServiceName string    `json:"service_name"`
	Kind        string    `json:"kind"` // "DOWN" | "RECOVERED"
	Detail      string    `json:"detail,omitempty"`
	RaisedAt    time.Time `json:"raised_at"`
}

const (
	AlertDown      = "DOWN"
	AlertRecovered = "RECOVERED"
)

// Incident tracks one contiguous outage of a service.
type Incident struct {
	ID          int64      `json:"id"`
	ServiceName string     `json:"service_name"`
	IssueType   string     `json:"issue_type"`
	Description string     `json:"description,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Resolved    bool       `json:"resolved"`
}
