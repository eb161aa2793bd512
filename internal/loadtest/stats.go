package loadtest

import (
	"fmt"
	"sync"
	"time"

	"github.com/rakta/hookload/internal/payload"
)

// MaxErrorSamples bounds the error log kept by Stats.
const MaxErrorSamples = 10

// Outcome is the result of one dispatched request.
type Outcome struct {
	RequestID  int            `json:"requestId"`
	Format     payload.Format `json:"-"`
	Elapsed    time.Duration  `json:"elapsed"`
	StatusCode int            `json:"statusCode,omitempty"`
	Success    bool           `json:"success"`

	// Reason describes a failure: "<status> - <body prefix>" for HTTP
	// errors, the error text for transport errors.
	Reason string `json:"reason,omitempty"`

	// ConnReused is false when the request had to open a new connection.
	ConnReused bool `json:"connReused"`

	// Responded is false when no HTTP response was received.
	Responded bool `json:"responded"`
}

// Stats accumulates outcomes from concurrent dispatch tasks.
//
// # Thread Safety
//
// All fields are guarded by a single mutex; Record may be called from any
// number of goroutines.
type Stats struct {
	mu sync.Mutex

	totalSent         int64
	successCount      int64
	failureCount      int64
	totalLatency      time.Duration
	connectionsOpened int64
	sentByFormat      map[payload.Format]int64
	errors            []string
}

// NewStats creates an empty accumulator.
func NewStats() *Stats {
	return &Stats{
		sentByFormat: make(map[payload.Format]int64),
		errors:       make([]string, 0, MaxErrorSamples),
	}
}

// Record adds one outcome. Every call increments the sent counter exactly
// once. Failures beyond the first MaxErrorSamples are counted but not
// logged.
func (s *Stats) Record(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalSent++
	s.sentByFormat[o.Format]++
	if o.Responded && !o.ConnReused {
		s.connectionsOpened++
	}

	if o.Success {
		s.successCount++
		s.totalLatency += o.Elapsed
		return
	}

	s.failureCount++
	if len(s.errors) < MaxErrorSamples {
		s.errors = append(s.errors, fmt.Sprintf("request %d: %s", o.RequestID, o.Reason))
	}
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := make([]string, len(s.errors))
	copy(errs, s.errors)

	return Snapshot{
		TotalSent:         s.totalSent,
		SuccessCount:      s.successCount,
		FailureCount:      s.failureCount,
		TotalLatency:      s.totalLatency,
		ConnectionsOpened: s.connectionsOpened,
		GarminSent:        s.sentByFormat[payload.FormatGarmin],
		AppleSent:         s.sentByFormat[payload.FormatApple],
		Errors:            errs,
	}
}

// Snapshot is an immutable view of Stats.
type Snapshot struct {
	TotalSent         int64         `json:"totalSent"`
	SuccessCount      int64         `json:"successCount"`
	FailureCount      int64         `json:"failureCount"`
	TotalLatency      time.Duration `json:"totalLatency"`
	ConnectionsOpened int64         `json:"connectionsOpened"`
	GarminSent        int64         `json:"garminSent"`
	AppleSent         int64         `json:"appleSent"`
	Errors            []string      `json:"errors"`
}

// SuccessRate returns the percentage of successful requests, 0 when nothing
// was sent.
func (s Snapshot) SuccessRate() float64 {
	if s.TotalSent == 0 {
		return 0
	}
	return float64(s.SuccessCount) * 100 / float64(s.TotalSent)
}

// AvgLatencyMs returns the mean latency of successful requests in
// milliseconds, 0 when none succeeded.
func (s Snapshot) AvgLatencyMs() float64 {
	if s.SuccessCount == 0 {
		return 0
	}
	return float64(s.TotalLatency) / float64(time.Millisecond) / float64(s.SuccessCount)
}
