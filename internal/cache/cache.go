// Package cache holds the most recent check results per service for
// sub-millisecond access by the live view. It is a cache, not the
// source of truth; the result store remains authoritative.
package cache

import (
	"sync"

	"github.com/hamed0406/servicewatch/internal/domain"
)

const DefaultCapacity = 100

// Cache is written by the scheduler at cycle-join boundaries and read
// by the status view at any time. Readers always get copies, never the
// live buffer.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	buf      map[string][]domain.CheckResult
}

func New(capacity int) *Cache {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		buf:      make(map[string][]domain.CheckResult),
	}
}

// Record appends a result to the service's buffer, evicting the oldest
// entry once the buffer is full.
func (c *Cache) Record(name string, r domain.CheckResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.buf[name]
	if len(b) < c.capacity {
		c.buf[name] = append(b, r)
		return
	}
	copy(b, b[1:])
	b[len(b)-1] = r
	c.buf[name] = b
}

// Latest returns the most recent result for name, or false when no
// check has completed yet.
func (c *Cache) Latest(name string) (domain.CheckResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b := c.buf[name]
	if len(b) == 0 {
		return domain.CheckResult{}, false
	}
	return b[len(b)-1], true
}

// Window returns a snapshot of the full buffered sequence for name,
// oldest first.
func (c *Cache) Window(name string) []domain.CheckResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b := c.buf[name]
	if len(b) == 0 {
		return nil
	}
	out := make([]domain.CheckResult, len(b))
	copy(out, b)
	return out
}

// Uptime is the cheap in-memory availability approximation over the
// buffered window, used when the durable store is unavailable.
func (c *Cache) Uptime(name string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b := c.buf[name]
	if len(b) == 0 {
		return 0.0
	}
	ok := 0
	for _, r := range b {
		if r.Up() {
			ok++
		}
	}
	return float64(ok) / float64(len(b)) * 100
}
