package loadtest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	hhttp "github.com/rakta/hookload/internal/http"
	"github.com/rakta/hookload/internal/payload"
)

// bodySnippetLen is how much of an error response body is kept.
const bodySnippetLen = 100

// RunIDHeader carries the run identifier on every webhook call so backend
// logs can be correlated with a load test.
const RunIDHeader = "X-Load-Run-ID"

// Dispatcher sends single webhook calls and classifies the result.
type Dispatcher struct {
	client *hhttp.Client
	runID  string
}

// NewDispatcher creates a dispatcher using a shared pooled client.
func NewDispatcher(client *hhttp.Client, runID string) *Dispatcher {
	return &Dispatcher{client: client, runID: runID}
}

// Dispatch posts p to the endpoint for its format and returns exactly one
// outcome. Only HTTP 200 counts as success; errors never escape.
func (d *Dispatcher) Dispatch(ctx context.Context, token string, requestID int, p payload.Payload) Outcome {
	out := Outcome{RequestID: requestID, Format: p.Format()}

	req := hhttp.NewRequest(http.MethodPost, p.Format().Path()).
		WithHeader("Content-Type", "application/json").
		WithBearer(token).
		WithBody(p)
	if d.runID != "" {
		req.WithHeader(RunIDHeader, d.runID)
	}

	start := time.Now()
	resp, err := d.client.Do(ctx, req)
	out.Elapsed = time.Since(start)

	if err != nil {
		out.Reason = err.Error()
		return out
	}

	out.Responded = true
	out.StatusCode = resp.StatusCode
	out.ConnReused = resp.ConnReused

	if resp.StatusCode == http.StatusOK {
		out.Success = true
		return out
	}

	out.Reason = fmt.Sprintf("%d - %s", resp.StatusCode, resp.Snippet(bodySnippetLen))
	return out
}
