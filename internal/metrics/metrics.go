// Package metrics exports engine counters for the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hamed0406/servicewatch/internal/domain"
)

var (
	checksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servicewatch_checks_total",
			Help: "Total number of completed checks",
		},
		[]string{"service", "status"},
	)

	checkLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "servicewatch_check_latency_seconds",
			Help:    "Check round-trip latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	serviceUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "servicewatch_service_up",
			Help: "1 when the last check of the service succeeded",
		},
		[]string{"service"},
	)

	cycleDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "servicewatch_cycle_duration_seconds",
			Help: "Wall time of the last completed check cycle",
		},
	)

	alertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "servicewatch_alerts_total",
			Help: "Alerts raised, by kind",
		},
		[]string{"kind"},
	)
)

func RecordCheck(r domain.CheckResult) {
	checksTotal.WithLabelValues(r.ServiceName, string(r.Status)).Inc()
	if r.ResponseTimeMS != nil {
		checkLatency.WithLabelValues(r.ServiceName).Observe(*r.ResponseTimeMS / 1000)
	}
	if r.Up() {
		serviceUp.WithLabelValues(r.ServiceName).Set(1)
	} else {
		serviceUp.WithLabelValues(r.ServiceName).Set(0)
	}
}

func RecordCycle(seconds float64) {
	cycleDuration.Set(seconds)
}

func RecordAlert(kind string) {
	alertsTotal.WithLabelValues(kind).Inc()
}
