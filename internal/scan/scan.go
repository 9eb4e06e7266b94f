// Package scan is the ad-hoc port probe of the broader diagnostics
// tool. It mirrors the engine's bounded fan-out discipline but runs on
// demand, not on the monitoring cadence.
package scan

import (
	"context"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"
)

const maxWorkers = 10

// DefaultPorts are scanned when a request names none.
var DefaultPorts = []int{21, 22, 25, 80, 443, 3306, 3389, 5432, 8080}

type PortResult struct {
	Port      int      `json:"port"`
	Open      bool     `json:"open"`
	LatencyMS *float64 `json:"latency_ms,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type Report struct {
	Host    string       `json:"host"`
	Results []PortResult `json:"results"`
}

type Scanner struct {
	Timeout time.Duration
}

func NewScanner(timeout time.Duration) *Scanner {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Scanner{Timeout: timeout}
}

// Scan probes the given ports with at most maxWorkers concurrent
// dials. Results come back sorted by port.
func (s *Scanner) Scan(ctx context.Context, host string, ports []int) Report {
	if len(ports) == 0 {
		ports = DefaultPorts
	}

	results := make([]PortResult, len(ports))
	sem := make(chan struct{}, min(maxWorkers, len(ports)))
	var wg sync.WaitGroup

	for i, port := range ports {
		sem <- struct{}{}
		wg.Add(1)
		go func(i, port int) {
			defer func() { <-sem }()
			defer wg.Done()
			results[i] = s.probe(ctx, host, port)
		}(i, port)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Port < results[j].Port })
	return Report{Host: host, Results: results}
}

func (s *Scanner) probe(ctx context.Context, host string, port int) PortResult {
	dctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	start := time.Now()
	var dialer net.Dialer
	conn, err := dialer.DialContext(dctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return PortResult{Port: port, Error: err.Error()}
	}
	latency := float64(time.Since(start)) / float64(time.Millisecond)
	_ = conn.Close()
	return PortResult{Port: port, Open: true, LatencyMS: &latency}
}
