package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/servicewatch/internal/domain"
	"github.com/hamed0406/servicewatch/internal/repo/memory"
)

type memNotifier struct {
	mu     sync.Mutex
	titles []string
}

func (m *memNotifier) Send(ctx context.Context, title, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.titles = append(m.titles, title)
	return nil
}

func (m *memNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.titles)
}

func downResult(name, msg string) domain.CheckResult {
	return domain.CheckResult{
		ServiceName: name, ServiceType: domain.TypeHTTP,
		Status: domain.StatusDown, Error: msg,
		CheckedAt: time.Now().UTC(),
	}
}

func upResult(name string) domain.CheckResult {
	lat := 5.0
	return domain.CheckResult{
		ServiceName: name, ServiceType: domain.TypeHTTP,
		Status: domain.StatusUp, ResponseTimeMS: &lat,
		CheckedAt: time.Now().UTC(),
	}
}

func alertingService(name string) domain.ServiceDefinition {
	d := httpService(name)
	d.AlertOnFailure = true
	return d
}

func TestAlerter_FirstDownRaisesExactlyOneAlert(t *testing.T) {
	nt := &memNotifier{}
	a := NewAlerter(zap.NewNop(), nt, nil, AlerterConfig{Cooldown: time.Hour})

	a.Evaluate(alertingService("web"), downResult("web", "connection failed"))

	alerts := a.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("want exactly one alert, got %d", len(alerts))
	}
	if alerts[0].Kind != domain.AlertDown || alerts[0].ServiceName != "web" {
		t.Fatalf("unexpected payload: %+v", alerts[0])
	}
	if alerts[0].Detail != "connection failed" {
		t.Fatalf("detail must carry the result's error, got %q", alerts[0].Detail)
	}
	if nt.count() != 1 {
		t.Fatalf("notifier should have been invoked once, got %d", nt.count())
	}
}

func TestAlerter_SustainedOutageDoesNotFlood(t *testing.T) {
	nt := &memNotifier{}
	a := NewAlerter(zap.NewNop(), nt, nil, AlerterConfig{Cooldown: time.Hour})

	svc := alertingService("web")
	for i := 0; i < 5; i++ {
		a.Evaluate(svc, downResult("web", "timed out"))
	}

	if got := len(a.Alerts()); got != 1 {
		t.Fatalf("sustained outage must collapse into one alert, got %d", got)
	}
}

func TestAlerter_NotEligibleServiceNeverAlerts(t *testing.T) {
	nt := &memNotifier{}
	a := NewAlerter(zap.NewNop(), nt, nil, AlerterConfig{})

	a.Evaluate(httpService("quiet"), downResult("quiet", "connection failed"))

	if len(a.Alerts()) != 0 || nt.count() != 0 {
		t.Fatalf("alert_on_failure=false must suppress alerts")
	}
}

func TestAlerter_RecoveryAlertAndNewOutage(t *testing.T) {
	nt := &memNotifier{}
	a := NewAlerter(zap.NewNop(), nt, nil, AlerterConfig{AlertOnRecovery: true, Cooldown: time.Hour})

	svc := alertingService("web")
	a.Evaluate(svc, downResult("web", "connection failed"))
	a.Evaluate(svc, upResult("web"))
	a.Evaluate(svc, downResult("web", "timed out"))

	alerts := a.Alerts()
	if len(alerts) != 3 {
		t.Fatalf("want down, recovered, down — got %d: %+v", len(alerts), alerts)
	}
	if alerts[0].Kind != domain.AlertDown || alerts[1].Kind != domain.AlertRecovered || alerts[2].Kind != domain.AlertDown {
		t.Fatalf("unexpected kinds: %+v", alerts)
	}
}

func TestAlerter_IncidentOpensAndResolvesOnTransitions(t *testing.T) {
	store := memory.New()
	a := NewAlerter(zap.NewNop(), nil, store, AlerterConfig{Cooldown: time.Hour})
	ctx := context.Background()

	svc := alertingService("db")
	a.Evaluate(svc, downResult("db", "connection failed"))
	a.Evaluate(svc, downResult("db", "connection failed"))

	inc, err := store.ActiveIncident(ctx, "db")
	if err != nil || inc == nil {
		t.Fatalf("want one open incident, got inc=%v err=%v", inc, err)
	}

	a.Evaluate(svc, upResult("db"))
	inc, err = store.ActiveIncident(ctx, "db")
	if err != nil {
		t.Fatalf("ActiveIncident: %v", err)
	}
	if inc != nil {
		t.Fatalf("recovery must resolve the incident, got %+v", inc)
	}
}
