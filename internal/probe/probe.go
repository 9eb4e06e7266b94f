package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/hamed0406/servicewatch/internal/domain"
)

// Checker runs a single probe against one service definition. It never
// returns an error: every failure mode becomes a down result with a
// populated error message, and the call is bounded by the definition's
// timeout.
type Checker interface {
	Check(ctx context.Context, def domain.ServiceDefinition) domain.CheckResult
}

func down(def domain.ServiceDefinition, at time.Time, msg string) domain.CheckResult {
	return domain.CheckResult{
		ServiceName: def.Name,
		ServiceType: def.Type,
		Status:      domain.StatusDown,
		Error:       msg,
		CheckedAt:   at,
	}
}

func up(def domain.ServiceDefinition, at time.Time, latencyMS float64) domain.CheckResult {
	return domain.CheckResult{
		ServiceName:    def.Name,
		ServiceType:    def.Type,
		Status:         domain.StatusUp,
		ResponseTimeMS: &latencyMS,
		CheckedAt:      at,
	}
}

// classify maps transport errors onto the stable failure classes the
// rest of the system (alerts, dashboards) keys on.
func classify(err error) string {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return "timed out"
	}

	var (
		certErr    *tls.CertificateVerificationError
		hostErr    x509.HostnameError
		authErr    x509.UnknownAuthorityError
		invalidErr x509.CertificateInvalidError
	)
	if errors.As(err, &certErr) || errors.As(err, &hostErr) ||
		errors.As(err, &authErr) || errors.As(err, &invalidErr) {
		return "SSL error"
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return "connection failed"
	}
	return err.Error()
}

func latencySince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
