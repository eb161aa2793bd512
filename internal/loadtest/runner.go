// Package loadtest drives a webhook volume test: one login, then a batch of
// concurrently dispatched webhook calls whose outcomes are aggregated into
// a summary and a verdict.
package loadtest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	hhttp "github.com/rakta/hookload/internal/http"
	"github.com/rakta/hookload/internal/payload"
)

// DefaultProgressEvery is how often progress is reported, in queued tasks.
const DefaultProgressEvery = 1000

// Options configures a Runner.
type Options struct {
	Credentials hhttp.Credentials

	// Requests is the number of webhook calls to send.
	Requests int

	// Concurrency caps the number of calls in flight.
	Concurrency int

	// ProgressEvery controls how often OnQueued fires. Zero uses
	// DefaultProgressEvery; a negative value disables progress.
	ProgressEvery int

	// Rate paces call starts in requests per second. Zero means unpaced.
	Rate float64

	// RunID is sent on every webhook call. Empty generates a new one.
	RunID string
}

// Observer receives run progress. Methods are called from the goroutine
// that called Run.
type Observer interface {
	OnAuthenticated(runID string)
	OnQueued(queued, total int)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) OnAuthenticated(string) {}
func (NopObserver) OnQueued(int, int)      {}

// Result is the outcome of a completed run.
type Result struct {
	RunID        string        `json:"runId"`
	Stats        Snapshot      `json:"stats"`
	SuccessRate  float64       `json:"successRate"`
	AvgLatencyMs float64       `json:"avgLatencyMs"`
	Duration     time.Duration `json:"duration"`
	Throughput   float64       `json:"throughput"`
	Verdict      Verdict       `json:"verdict"`
	PeakInFlight int           `json:"peakInFlight"`
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
}

// Runner orchestrates a single load test.
type Runner struct {
	opts      Options
	client    *hhttp.Client
	generator *payload.Generator
	observer  Observer
	stats     *Stats
	limiter   *Limiter
	pacer     *Pacer
}

// NewRunner creates a runner. A nil observer is replaced by NopObserver.
func NewRunner(opts Options, client *hhttp.Client, gen *payload.Generator, obs Observer) *Runner {
	if obs == nil {
		obs = NopObserver{}
	}
	if opts.ProgressEvery == 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Runner{
		opts:      opts,
		client:    client,
		generator: gen,
		observer:  obs,
		stats:     NewStats(),
		limiter:   NewLimiter(opts.Concurrency),
		pacer:     NewPacer(opts.Rate),
	}
}

// RunID returns the identifier attached to this run's webhook calls.
func (r *Runner) RunID() string {
	return r.opts.RunID
}

// Stats returns the live accumulator.
func (r *Runner) Stats() *Stats {
	return r.stats
}

// Run logs in, dispatches every request and waits for all of them to
// finish. A login failure aborts the run before any webhook call is made
// and is returned as the *http.AuthError from the login call.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	token, err := r.client.Login(ctx, r.opts.Credentials)
	if err != nil {
		return nil, err
	}
	r.observer.OnAuthenticated(r.opts.RunID)

	// Duration and throughput cover the batch only, not the login.
	start := time.Now()

	dispatcher := NewDispatcher(r.client, r.opts.RunID)
	total := r.opts.Requests

	var wg sync.WaitGroup
	for i := 1; i <= total; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r.stats.Record(r.execute(ctx, dispatcher, token, id))
		}(i)

		if r.opts.ProgressEvery > 0 && i%r.opts.ProgressEvery == 0 {
			r.observer.OnQueued(i, total)
		}
	}
	wg.Wait()

	end := time.Now()
	return r.result(start, end), nil
}

// execute runs one task and always yields exactly one outcome.
func (r *Runner) execute(ctx context.Context, d *Dispatcher, token string, id int) Outcome {
	format := r.generator.PickFormat()

	if err := r.pacer.Wait(ctx); err != nil {
		return Outcome{RequestID: id, Format: format, Reason: err.Error()}
	}
	if err := r.limiter.Acquire(ctx); err != nil {
		return Outcome{RequestID: id, Format: format, Reason: err.Error()}
	}
	defer r.limiter.Release()

	return d.Dispatch(ctx, token, id, r.generator.Generate(format))
}

func (r *Runner) result(start, end time.Time) *Result {
	snap := r.stats.Snapshot()
	duration := end.Sub(start)

	var throughput float64
	if secs := duration.Seconds(); secs > 0 {
		throughput = float64(snap.TotalSent) / secs
	}

	rate := snap.SuccessRate()
	return &Result{
		RunID:        r.opts.RunID,
		Stats:        snap,
		SuccessRate:  rate,
		AvgLatencyMs: snap.AvgLatencyMs(),
		Duration:     duration,
		Throughput:   throughput,
		Verdict:      VerdictFor(rate),
		PeakInFlight: r.limiter.Peak(),
		Start:        start,
		End:          end,
	}
}
