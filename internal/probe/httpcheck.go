package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hamed0406/servicewatch/internal/domain"
)

// apiBodyLimit caps how much of a response we read when validating an
// API body. A status payload larger than this is not a health endpoint.
const apiBodyLimit = 1 << 20

// checkHTTP probes an HTTP or API endpoint. The service is up when the
// response code matches ExpectedStatus; for API checks the body must
// additionally decode as JSON.
func (d *Dispatcher) checkHTTP(ctx context.Context, def domain.ServiceDefinition, wantJSON bool) domain.CheckResult {
	at := time.Now().UTC()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, def.URL, nil)
	if err != nil {
		return down(def, at, err.Error())
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return down(def, at, classify(err))
	}
	defer resp.Body.Close()

	var body []byte
	if wantJSON {
		body, err = io.ReadAll(io.LimitReader(resp.Body, apiBodyLimit))
	} else {
		_, err = io.Copy(io.Discard, io.LimitReader(resp.Body, apiBodyLimit))
	}
	if err != nil {
		return down(def, at, classify(err))
	}
	latency := latencySince(start)

	code := resp.StatusCode
	if code != def.ExpectedStatus {
		r := down(def, at, fmt.Sprintf("unexpected status: %d (want %d)", code, def.ExpectedStatus))
		r.StatusCode = &code
		r.ResponseTimeMS = &latency
		return r
	}

	if wantJSON {
		var decoded any
		if err := json.Unmarshal(body, &decoded); err != nil {
			r := down(def, at, "invalid response body")
			r.StatusCode = &code
			r.ResponseTimeMS = &latency
			return r
		}
	}

	r := up(def, at, latency)
	r.StatusCode = &code
	return r
}
