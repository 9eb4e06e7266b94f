package probe

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/hamed0406/servicewatch/internal/domain"
)

// ResolverPool serializes DNS lookups through a fixed set of workers so
// the blocking resolver call can never stall the scheduling of sibling
// checks in a cycle.
type ResolverPool struct {
	jobs   chan lookupJob
	lookup func(ctx context.Context, domain string) ([]string, error)
}

type lookupJob struct {
	ctx    context.Context
	domain string
	reply  chan lookupReply
}

type lookupReply struct {
	addrs []string
	err   error
}

func NewResolverPool(workers int) *ResolverPool {
	if workers < 1 {
		workers = 1
	}
	p := &ResolverPool{
		jobs: make(chan lookupJob),
		lookup: func(ctx context.Context, domain string) ([]string, error) {
			return net.DefaultResolver.LookupHost(ctx, domain)
		},
	}
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *ResolverPool) worker() {
	for job := range p.jobs {
		addrs, err := p.lookup(job.ctx, job.domain)
		// reply is buffered; a caller that gave up never blocks us.
		job.reply <- lookupReply{addrs: addrs, err: err}
	}
}

// Lookup resolves domain through the pool, honoring ctx while queued.
func (p *ResolverPool) Lookup(ctx context.Context, domain string) ([]string, error) {
	job := lookupJob{ctx: ctx, domain: domain, reply: make(chan lookupReply, 1)}
	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-job.reply:
		return r.addrs, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the workers. Lookup must not be called afterwards.
func (p *ResolverPool) Close() { close(p.jobs) }

// checkDNS resolves the definition's domain and, when an expected IP is
// configured, requires it among the returned addresses.
func (d *Dispatcher) checkDNS(ctx context.Context, def domain.ServiceDefinition) domain.CheckResult {
	at := time.Now().UTC()
	start := time.Now()

	ips, err := d.resolver.Lookup(ctx, def.Domain)
	if err != nil {
		return down(def, at, classify(err))
	}
	latency := latencySince(start)

	if def.ExpectedIP != "" && !slices.Contains(ips, def.ExpectedIP) {
		r := down(def, at, fmt.Sprintf("IP mismatch: expected %s, got [%s]",
			def.ExpectedIP, strings.Join(ips, ", ")))
		r.ResponseTimeMS = &latency
		return r
	}
	return up(def, at, latency)
}
