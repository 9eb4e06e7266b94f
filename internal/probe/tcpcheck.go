package probe

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/hamed0406/servicewatch/internal/domain"
)

// checkTCP attempts a plain connection to host:port. No data is
// exchanged; latency is connection-establishment time.
func (d *Dispatcher) checkTCP(ctx context.Context, def domain.ServiceDefinition) domain.CheckResult {
	at := time.Now().UTC()
	start := time.Now()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(def.Host, strconv.Itoa(def.Port)))
	if err != nil {
		return down(def, at, classify(err))
	}
	latency := latencySince(start)
	_ = conn.Close()

	return up(def, at, latency)
}
