package probe

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/hamed0406/servicewatch/internal/domain"
)

// Dispatcher fans a service definition out to the protocol-appropriate
// check. One Dispatcher is shared by all in-flight checks; the HTTP
// client reuses connections across cycles.
type Dispatcher struct {
	client   *http.Client
	resolver *ResolverPool
}

var _ Checker = (*Dispatcher)(nil)

func NewDispatcher(resolver *ResolverPool) *Dispatcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConnsPerHost: 4,
		// The original diagnostics client skipped verification for broader
		// reach; we keep verification on so SSL failures surface as a
		// distinct down class.
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}
	return &Dispatcher{
		// Per-check deadlines come from the request context, not a
		// client-wide timeout.
		client:   &http.Client{Transport: transport},
		resolver: resolver,
	}
}

// Check executes the probe for def and always returns within the
// definition's timeout plus scheduling slack.
func (d *Dispatcher) Check(ctx context.Context, def domain.ServiceDefinition) domain.CheckResult {
	cctx, cancel := context.WithTimeout(ctx, def.Timeout())
	defer cancel()

	switch def.Type {
	case domain.TypeHTTP:
		return d.checkHTTP(cctx, def, false)
	case domain.TypeAPI:
		return d.checkHTTP(cctx, def, true)
	case domain.TypeTCP:
		return d.checkTCP(cctx, def)
	case domain.TypeDNS:
		return d.checkDNS(cctx, def)
	default:
		return down(def, time.Now().UTC(), "unknown service type: "+string(def.Type))
	}
}
