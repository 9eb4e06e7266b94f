package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/servicewatch/internal/domain"
)

func testDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	pool := NewResolverPool(2)
	t.Cleanup(pool.Close)
	return NewDispatcher(pool)
}

func httpDef(url string) domain.ServiceDefinition {
	return domain.ServiceDefinition{
		Name:           "web",
		Type:           domain.TypeHTTP,
		URL:            url,
		ExpectedStatus: 200,
		TimeoutSeconds: 2,
	}
}

func TestHTTPCheck_ExpectedStatusIsUp(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	}))
	defer s.Close()

	out := testDispatcher(t).Check(context.Background(), httpDef(s.URL))
	if !out.Up() {
		t.Fatalf("want up, got %+v", out)
	}
	if out.Error != "" {
		t.Fatalf("up result must carry no error, got %q", out.Error)
	}
	if out.StatusCode == nil || *out.StatusCode != 200 {
		t.Fatalf("want status code 200, got %v", out.StatusCode)
	}
	if out.ResponseTimeMS == nil || *out.ResponseTimeMS < 0 {
		t.Fatalf("want non-negative latency, got %v", out.ResponseTimeMS)
	}
}

func TestHTTPCheck_WrongStatusReportsActualCode(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", 503)
	}))
	defer s.Close()

	out := testDispatcher(t).Check(context.Background(), httpDef(s.URL))
	if out.Up() {
		t.Fatalf("want down, got %+v", out)
	}
	if !strings.Contains(out.Error, "503") {
		t.Fatalf("error should name the actual code, got %q", out.Error)
	}
	if out.StatusCode == nil || *out.StatusCode != 503 {
		t.Fatalf("want status code 503, got %v", out.StatusCode)
	}
}

func TestHTTPCheck_TimeoutIsDownWithNilLatency(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	def := httpDef(s.URL)
	def.TimeoutSeconds = 0 // fall back to type default
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out := testDispatcher(t).Check(ctx, def)
	if out.Up() {
		t.Fatalf("want timeout failure, got %+v", out)
	}
	if out.Error != "timed out" {
		t.Fatalf("want %q, got %q", "timed out", out.Error)
	}
	if out.ResponseTimeMS != nil {
		t.Fatalf("check never completed, latency must be nil, got %v", *out.ResponseTimeMS)
	}
}

func TestHTTPCheck_ConnectionRefused(t *testing.T) {
	// Grab a free port, then close it so nothing listens there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	_ = l.Close()

	out := testDispatcher(t).Check(context.Background(), httpDef("http://"+addr))
	if out.Up() {
		t.Fatalf("want down, got %+v", out)
	}
	if out.Error != "connection failed" {
		t.Fatalf("want %q, got %q", "connection failed", out.Error)
	}
}

func TestAPICheck_JSONBodyIsUp(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer s.Close()

	def := httpDef(s.URL)
	def.Type = domain.TypeAPI
	out := testDispatcher(t).Check(context.Background(), def)
	if !out.Up() {
		t.Fatalf("want up, got %+v", out)
	}
}

func TestAPICheck_NonJSONBodyIsDistinctFailure(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer s.Close()

	def := httpDef(s.URL)
	def.Type = domain.TypeAPI
	out := testDispatcher(t).Check(context.Background(), def)
	if out.Up() {
		t.Fatalf("want down, got %+v", out)
	}
	if out.Error != "invalid response body" {
		t.Fatalf("want %q, got %q", "invalid response body", out.Error)
	}
	if out.StatusCode == nil || *out.StatusCode != 200 {
		t.Fatalf("decode failure still reports the HTTP code, got %v", out.StatusCode)
	}
}

func TestTCPCheck_OpenAndClosedPort(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	host, port, _ := net.SplitHostPort(l.Addr().String())

	def := domain.ServiceDefinition{
		Name: "db", Type: domain.TypeTCP,
		Host: host, TimeoutSeconds: 2,
	}
	def.Port, _ = strconv.Atoi(port)

	out := testDispatcher(t).Check(context.Background(), def)
	if !out.Up() {
		t.Fatalf("open port should be up, got %+v", out)
	}
	if out.ResponseTimeMS == nil || *out.ResponseTimeMS < 0 {
		t.Fatalf("want connect latency, got %v", out.ResponseTimeMS)
	}

	// Now point at the same port after closing the listener.
	_ = l.Close()
	out = testDispatcher(t).Check(context.Background(), def)
	if out.Up() {
		t.Fatalf("closed port should be down, got %+v", out)
	}
	if out.Error == "" {
		t.Fatalf("down result must carry an error message")
	}
	if out.ResponseTimeMS != nil {
		t.Fatalf("failed connect must report nil latency, got %v", *out.ResponseTimeMS)
	}
}

func TestDNSCheck_ExpectedIPMismatchNamesBoth(t *testing.T) {
	pool := NewResolverPool(1)
	defer pool.Close()
	pool.lookup = func(ctx context.Context, d string) ([]string, error) {
		return []string{"5.6.7.8"}, nil
	}
	disp := NewDispatcher(pool)

	def := domain.ServiceDefinition{
		Name: "ns", Type: domain.TypeDNS,
		Domain: "example.com", ExpectedIP: "1.2.3.4", TimeoutSeconds: 2,
	}
	out := disp.Check(context.Background(), def)
	if out.Up() {
		t.Fatalf("want down on mismatch, got %+v", out)
	}
	if !strings.Contains(out.Error, "1.2.3.4") || !strings.Contains(out.Error, "5.6.7.8") {
		t.Fatalf("error must name expected and actual IPs, got %q", out.Error)
	}
}

func TestDNSCheck_ExpectedIPPresentIsUp(t *testing.T) {
	pool := NewResolverPool(1)
	defer pool.Close()
	pool.lookup = func(ctx context.Context, d string) ([]string, error) {
		return []string{"5.6.7.8", "1.2.3.4"}, nil
	}
	disp := NewDispatcher(pool)

	def := domain.ServiceDefinition{
		Name: "ns", Type: domain.TypeDNS,
		Domain: "example.com", ExpectedIP: "1.2.3.4", TimeoutSeconds: 2,
	}
	out := disp.Check(context.Background(), def)
	if !out.Up() {
		t.Fatalf("want up, got %+v", out)
	}
}

func TestResolverPool_SlowLookupDoesNotBlockCaller(t *testing.T) {
	pool := NewResolverPool(1)
	defer pool.Close()
	pool.lookup = func(ctx context.Context, d string) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := pool.Lookup(ctx, "stuck.example")
	if err == nil {
		t.Fatalf("want context error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("caller was not released by ctx cancellation")
	}
}
