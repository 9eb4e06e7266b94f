package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/servicewatch/internal/cache"
	"github.com/hamed0406/servicewatch/internal/domain"
	"github.com/hamed0406/servicewatch/internal/metrics"
	"github.com/hamed0406/servicewatch/internal/probe"
	"github.com/hamed0406/servicewatch/internal/repo"
)

// commitTimeout bounds how long a cycle's batch may spend being
// persisted, independent of engine shutdown.
const commitTimeout = 10 * time.Second

// Engine drives the check cadence: each cycle it fans one check per
// service out concurrently, joins them all, commits the full batch to
// the store and cache, evaluates alerts, then sleeps for the interval.
// The period between cycle starts is therefore interval plus the
// slowest check of the previous cycle; cycles never overlap.
type Engine struct {
	log      *zap.Logger
	services []domain.ServiceDefinition
	checker  probe.Checker
	store    repo.ResultStore
	cache    *cache.Cache
	alerter  *Alerter
	interval time.Duration

	publish func(batch []domain.CheckResult)
}

func NewEngine(
	log *zap.Logger,
	services []domain.ServiceDefinition,
	checker probe.Checker,
	store repo.ResultStore,
	c *cache.Cache,
	alerter *Alerter,
	interval time.Duration,
) *Engine {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Engine{
		log:      log,
		services: services,
		checker:  checker,
		store:    store,
		cache:    c,
		alerter:  alerter,
		interval: interval,
	}
}

// SetPublisher registers a hook called with each cycle's full batch
// after it has been committed. Must be set before Run.
func (e *Engine) SetPublisher(fn func(batch []domain.CheckResult)) {
	e.publish = fn
}

// Run executes cycles until ctx is cancelled. An in-flight cycle
// always completes its join and commit before the loop exits.
func (e *Engine) Run(ctx context.Context) {
	if len(e.services) == 0 {
		e.log.Warn("no_services_configured")
	}
	e.log.Info("engine_started",
		zap.Int("services", len(e.services)),
		zap.Duration("interval", e.interval),
	)

	for {
		if ctx.Err() != nil {
			e.log.Info("engine_stopped")
			return
		}
		e.runCycle(ctx)

		select {
		case <-ctx.Done():
			e.log.Info("engine_stopped")
			return
		case <-time.After(e.interval):
		}
	}
}

func (e *Engine) runCycle(ctx context.Context) {
	if len(e.services) == 0 {
		return
	}
	start := time.Now()

	// Cancellation takes effect at the cycle boundary only: a check
	// already in flight completes normally or times out on its own
	// per-type deadline, never as a spurious down result.
	checkCtx := context.WithoutCancel(ctx)

	results := make([]domain.CheckResult, len(e.services))
	var wg sync.WaitGroup
	for i := range e.services {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.checker.Check(checkCtx, e.services[i])
		}(i)
	}
	wg.Wait() // full join: no result crosses a cycle boundary

	e.commit(results)
	if e.alerter != nil {
		for i := range e.services {
			e.alerter.Evaluate(e.services[i], results[i])
		}
	}
	if e.publish != nil {
		e.publish(results)
	}

	elapsed := time.Since(start)
	metrics.RecordCycle(elapsed.Seconds())

	downCount := 0
	for _, r := range results {
		if !r.Up() {
			downCount++
		}
	}
	e.log.Info("cycle_done",
		zap.Int("checked", len(results)),
		zap.Int("down", downCount),
		zap.Duration("elapsed", elapsed),
	)
}

// commit writes the joined batch to the store and the cache. Store
// failures are logged and skipped: the cache still gets the result so
// the live view stays accurate while durability is impaired.
func (e *Engine) commit(results []domain.CheckResult) {
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	for i := range results {
		r := results[i]
		if err := e.store.Append(ctx, &r); err != nil {
			e.log.Warn("append_error",
				zap.String("service", r.ServiceName),
				zap.Error(err),
			)
		}
		e.cache.Record(r.ServiceName, r)
		metrics.RecordCheck(r)
	}
}
