package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/servicewatch/internal/domain"
	"github.com/hamed0406/servicewatch/internal/metrics"
	"github.com/hamed0406/servicewatch/internal/notify"
	"github.com/hamed0406/servicewatch/internal/repo"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	// Cooldown suppresses repeat DOWN alerts while a known outage
	// persists. Zero re-alerts on every down→down result.
	Cooldown time.Duration
}

// Alerter inspects each joined result and raises an alert when an
// alert-eligible service transitions into a failing state. It owns the
// alert log; dispatch goes through the notifier. It also opens and
// resolves incidents on the same transitions.
type Alerter struct {
	log       *zap.Logger
	notifier  notify.Notifier
	incidents repo.IncidentStore
	cfg       AlerterConfig

	mu    sync.Mutex
	seen  map[string]serviceState
	fired []domain.Alert
}

type serviceState struct {
	up       bool
	lastSent time.Time
}

func NewAlerter(log *zap.Logger, notifier notify.Notifier, incidents repo.IncidentStore, cfg AlerterConfig) *Alerter {
	return &Alerter{
		log:       log,
		notifier:  notifier,
		incidents: incidents,
		cfg:       cfg,
		seen:      make(map[string]serviceState),
	}
}

// Evaluate is called once per result, after the cycle join. Repeated
// failures within one outage raise a single alert (plus cooldown-gated
// reminders), not one per result.
func (a *Alerter) Evaluate(def domain.ServiceDefinition, r domain.CheckResult) {
	a.mu.Lock()
	prev, known := a.seen[r.ServiceName]
	now := time.Now().UTC()

	if r.Up() {
		wasDown := known && !prev.up
		a.seen[r.ServiceName] = serviceState{up: true, lastSent: prev.lastSent}
		a.mu.Unlock()

		if wasDown {
			a.resolveIncident(r.ServiceName, now)
			if def.AlertOnFailure && a.cfg.AlertOnRecovery {
				a.raise(domain.Alert{
					ServiceName: r.ServiceName,
					Kind:        domain.AlertRecovered,
					RaisedAt:    now,
				}, r)
			}
		}
		return
	}

	transition := !known || prev.up
	cooled := prev.lastSent.IsZero() || now.Sub(prev.lastSent) >= a.cfg.Cooldown
	fire := def.AlertOnFailure && (transition || cooled)

	state := serviceState{up: false, lastSent: prev.lastSent}
	if fire {
		state.lastSent = now
	}
	a.seen[r.ServiceName] = state
	a.mu.Unlock()

	if transition {
		a.openIncident(r, now)
	}
	if fire {
		a.raise(domain.Alert{
			ServiceName: r.ServiceName,
			Kind:        domain.AlertDown,
			Detail:      r.Error,
			RaisedAt:    now,
		}, r)
	}
}

// Alerts returns a snapshot of the alert log, oldest first.
func (a *Alerter) Alerts() []domain.Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Alert, len(a.fired))
	copy(out, a.fired)
	return out
}

func (a *Alerter) raise(alert domain.Alert, r domain.CheckResult) {
	a.mu.Lock()
	a.fired = append(a.fired, alert)
	a.mu.Unlock()

	metrics.RecordAlert(alert.Kind)
	a.log.Warn("alert_raised",
		zap.String("service", alert.ServiceName),
		zap.String("kind", alert.Kind),
		zap.String("detail", alert.Detail),
	)

	if a.notifier == nil {
		return
	}
	title := fmt.Sprintf("Service %s: %s", alert.Kind, alert.ServiceName)
	latency := "n/a"
	if r.ResponseTimeMS != nil {
		latency = fmt.Sprintf("%.0f ms", *r.ResponseTimeMS)
	}
	text := fmt.Sprintf("Service: %s\nKind: %s\nDetail: %s\nLatency: %s\nChecked: %s",
		alert.ServiceName, alert.Kind, alert.Detail, latency, r.CheckedAt.Format(time.RFC3339))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.notifier.Send(ctx, title, text); err != nil {
		a.log.Warn("notify_error", zap.String("service", alert.ServiceName), zap.Error(err))
	}
}

func (a *Alerter) openIncident(r domain.CheckResult, now time.Time) {
	if a.incidents == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.incidents.OpenIncident(ctx, r.ServiceName, domain.AlertDown, r.Error, now); err != nil {
		a.log.Warn("incident_open_error", zap.String("service", r.ServiceName), zap.Error(err))
	}
}

func (a *Alerter) resolveIncident(serviceName string, now time.Time) {
	if a.incidents == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.incidents.ResolveIncident(ctx, serviceName, now); err != nil {
		a.log.Warn("incident_resolve_error", zap.String("service", serviceName), zap.Error(err))
	}
}
