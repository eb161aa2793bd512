package loadtest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hhttp "github.com/rakta/hookload/internal/http"
	"github.com/rakta/hookload/internal/mockserver"
	"github.com/rakta/hookload/internal/payload"
)

var testCreds = hhttp.Credentials{Email: "test@rakta.app", Password: "password123"}

type recordingObserver struct {
	mu     sync.Mutex
	runID  string
	queued []int
}

func (o *recordingObserver) OnAuthenticated(runID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runID = runID
}

func (o *recordingObserver) OnQueued(queued, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queued = append(o.queued, queued)
}

func startMock(t *testing.T, opts mockserver.Options) (*mockserver.Server, *hhttp.Client) {
	t.Helper()
	if opts.Email == "" {
		opts.Email = testCreds.Email
		opts.Password = testCreds.Password
	}
	s := mockserver.New(opts)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	client := hhttp.NewClient(
		hhttp.WithBaseURL(ts.URL),
		hhttp.WithTimeout(10*time.Second),
		hhttp.WithPoolSize(60),
	)
	t.Cleanup(client.CloseIdleConnections)
	return s, client
}

func TestRunAllSucceed(t *testing.T) {
	server, client := startMock(t, mockserver.Options{Validate: true})
	obs := &recordingObserver{}

	runner := NewRunner(Options{
		Credentials:   testCreds,
		Requests:      1000,
		Concurrency:   50,
		ProgressEvery: 250,
	}, client, payload.NewGenerator(42, time.Now), obs)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	s := result.Stats
	assert.Equal(t, int64(1000), s.TotalSent)
	assert.Equal(t, int64(1000), s.SuccessCount)
	assert.Zero(t, s.FailureCount)
	assert.Empty(t, s.Errors)
	assert.Equal(t, s.TotalSent, s.GarminSent+s.AppleSent)
	assert.Equal(t, 100.0, result.SuccessRate)
	assert.Equal(t, VerdictPass, result.Verdict)
	assert.LessOrEqual(t, result.PeakInFlight, 50)
	assert.Positive(t, result.Throughput)
	assert.False(t, result.End.Before(result.Start))

	// Connections are reused rather than opened per request.
	assert.Positive(t, s.ConnectionsOpened)
	assert.Less(t, s.ConnectionsOpened, s.TotalSent)

	c := server.Counters()
	assert.Equal(t, int64(1), c.Logins)
	assert.Equal(t, int64(1000), c.Webhooks)
	assert.Zero(t, c.Rejected)

	assert.Equal(t, runner.RunID(), obs.runID)
	assert.Equal(t, []int{250, 500, 750, 1000}, obs.queued)
}

func TestRunCountsFailures(t *testing.T) {
	_, client := startMock(t, mockserver.Options{FailEvery: 4})

	runner := NewRunner(Options{
		Credentials: testCreds,
		Requests:    200,
		Concurrency: 20,
	}, client, payload.NewGenerator(1, time.Now), nil)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	s := result.Stats
	assert.Equal(t, int64(200), s.TotalSent)
	assert.Equal(t, int64(50), s.FailureCount)
	assert.Equal(t, int64(150), s.SuccessCount)
	assert.Equal(t, s.TotalSent, s.SuccessCount+s.FailureCount)
	assert.Len(t, s.Errors, MaxErrorSamples)
	for _, e := range s.Errors {
		assert.Contains(t, e, "500 - ")
	}
	assert.Equal(t, 75.0, result.SuccessRate)
	assert.Equal(t, VerdictFail, result.Verdict)
}

func TestRunLoginFailure(t *testing.T) {
	server, client := startMock(t, mockserver.Options{})

	runner := NewRunner(Options{
		Credentials: hhttp.Credentials{Email: testCreds.Email, Password: "wrong"},
		Requests:    100,
		Concurrency: 10,
	}, client, payload.NewGenerator(1, time.Now), nil)

	result, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)

	var authErr *hhttp.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, hhttp.AuthStatus, authErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)

	assert.Zero(t, runner.Stats().Snapshot().TotalSent)
	assert.Zero(t, server.Counters().Webhooks)
}

func TestRunRespectsConcurrency(t *testing.T) {
	server, client := startMock(t, mockserver.Options{Latency: 5 * time.Millisecond})

	runner := NewRunner(Options{
		Credentials: testCreds,
		Requests:    200,
		Concurrency: 10,
	}, client, payload.NewGenerator(3, time.Now), nil)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(200), result.Stats.SuccessCount)
	assert.LessOrEqual(t, server.Counters().MaxInFlight, int64(10))
	assert.LessOrEqual(t, result.PeakInFlight, 10)
	assert.Positive(t, result.AvgLatencyMs)
}

func TestRunZeroRequests(t *testing.T) {
	server, client := startMock(t, mockserver.Options{})

	runner := NewRunner(Options{
		Credentials: testCreds,
		Concurrency: 5,
	}, client, payload.NewGenerator(1, time.Now), nil)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, result.Stats.TotalSent)
	assert.Zero(t, result.SuccessRate)
	assert.Zero(t, result.AvgLatencyMs)
	assert.Equal(t, VerdictFail, result.Verdict)
	assert.Equal(t, int64(1), server.Counters().Logins)
}

func TestRunCancelledStillYieldsOutcomes(t *testing.T) {
	_, client := startMock(t, mockserver.Options{})

	runner := NewRunner(Options{
		Credentials: testCreds,
		Requests:    50,
		Concurrency: 5,
		Rate:        1,
	}, client, payload.NewGenerator(1, time.Now), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	result, err := runner.Run(ctx)
	require.NoError(t, err)

	s := result.Stats
	assert.Equal(t, int64(50), s.TotalSent)
	assert.Equal(t, s.TotalSent, s.SuccessCount+s.FailureCount)
	assert.Positive(t, s.FailureCount)
}

func TestDispatcherHeaders(t *testing.T) {
	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		assert.Equal(t, "/api/webhooks/apple", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	d := NewDispatcher(hhttp.NewClient(hhttp.WithBaseURL(ts.URL)), "run-1")
	out := d.Dispatch(context.Background(), "tok", 7, payload.NewGenerator(1, time.Now).Apple())

	assert.True(t, out.Success)
	assert.True(t, out.Responded)
	assert.Equal(t, 7, out.RequestID)
	assert.Equal(t, payload.FormatApple, out.Format)
	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "run-1", got.Get(RunIDHeader))
}

func TestDispatcherOutcomes(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name    string
		status  int
		body    []byte
		success bool
		reason  string
	}{
		{name: "ok", status: http.StatusOK, success: true},
		{name: "created is not success", status: http.StatusCreated, body: []byte("made"), reason: "201 - made"},
		{name: "server error", status: http.StatusInternalServerError, body: []byte(`{"error":"boom"}`), reason: `500 - {"error":"boom"}`},
		{name: "body truncated", status: http.StatusBadGateway, body: long, reason: "502 - " + string(long[:100])},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write(tt.body)
			}))
			defer ts.Close()

			d := NewDispatcher(hhttp.NewClient(hhttp.WithBaseURL(ts.URL)), "")
			out := d.Dispatch(context.Background(), "tok", 1, payload.NewGenerator(1, time.Now).Garmin())

			assert.Equal(t, tt.success, out.Success)
			assert.Equal(t, tt.status, out.StatusCode)
			assert.Equal(t, tt.reason, out.Reason)
			assert.True(t, out.Elapsed > 0)
		})
	}
}

func TestDispatcherTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	client := hhttp.NewClient(hhttp.WithBaseURL(ts.URL), hhttp.WithTimeout(20*time.Millisecond))
	out := NewDispatcher(client, "").Dispatch(context.Background(), "tok", 3, payload.NewGenerator(1, time.Now).Garmin())

	assert.False(t, out.Success)
	assert.False(t, out.Responded)
	assert.Zero(t, out.StatusCode)
	assert.NotEmpty(t, out.Reason)
}

func TestVerdictFor(t *testing.T) {
	tests := []struct {
		rate float64
		want Verdict
	}{
		{100, VerdictPass},
		{99.0, VerdictPass},
		{98.99, VerdictWarn},
		{95.0, VerdictWarn},
		{94.99, VerdictFail},
		{0, VerdictFail},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VerdictFor(tt.rate), "rate %v", tt.rate)
	}
}

func TestVerdictFromCounts(t *testing.T) {
	s := Snapshot{TotalSent: 10000, SuccessCount: 9900}
	assert.Equal(t, VerdictPass, VerdictFor(s.SuccessRate()))

	s = Snapshot{TotalSent: 10000, SuccessCount: 9899}
	assert.Equal(t, VerdictWarn, VerdictFor(s.SuccessRate()))

	s = Snapshot{TotalSent: 10000, SuccessCount: 9499}
	assert.Equal(t, VerdictFail, VerdictFor(s.SuccessRate()))
}
