package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rakta/hookload/internal/loadtest"
)

// ReportFormat represents the available report formats
type ReportFormat string

const (
	// FormatJSON outputs in JSON format
	FormatJSON ReportFormat = "json"
	// FormatYAML outputs in YAML format
	FormatYAML ReportFormat = "yaml"
)

// FormatForPath picks a report format from a file extension. Anything that
// is not .yaml or .yml is written as JSON.
func FormatForPath(path string) ReportFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Report is the machine-readable summary of a run.
type Report struct {
	RunID             string    `json:"runId" yaml:"runId"`
	Target            string    `json:"target" yaml:"target"`
	Requests          int       `json:"requests" yaml:"requests"`
	Concurrency       int       `json:"concurrency" yaml:"concurrency"`
	TotalSent         int64     `json:"totalSent" yaml:"totalSent"`
	SuccessCount      int64     `json:"successCount" yaml:"successCount"`
	FailureCount      int64     `json:"failureCount" yaml:"failureCount"`
	GarminSent        int64     `json:"garminSent" yaml:"garminSent"`
	AppleSent         int64     `json:"appleSent" yaml:"appleSent"`
	SuccessRate       float64   `json:"successRate" yaml:"successRate"`
	AvgLatencyMs      float64   `json:"avgLatencyMs" yaml:"avgLatencyMs"`
	DurationSeconds   float64   `json:"durationSeconds" yaml:"durationSeconds"`
	Throughput        float64   `json:"throughput" yaml:"throughput"`
	ConnectionsOpened int64     `json:"connectionsOpened" yaml:"connectionsOpened"`
	PeakInFlight      int       `json:"peakInFlight" yaml:"peakInFlight"`
	Verdict           string    `json:"verdict" yaml:"verdict"`
	Errors            []string  `json:"errors" yaml:"errors"`
	Start             time.Time `json:"start" yaml:"start"`
	End               time.Time `json:"end" yaml:"end"`
}

// NewReport builds a report from a finished run.
func NewReport(target string, requests, concurrency int, r *loadtest.Result) *Report {
	s := r.Stats
	errs := s.Errors
	if errs == nil {
		errs = []string{}
	}
	return &Report{
		RunID:             r.RunID,
		Target:            target,
		Requests:          requests,
		Concurrency:       concurrency,
		TotalSent:         s.TotalSent,
		SuccessCount:      s.SuccessCount,
		FailureCount:      s.FailureCount,
		GarminSent:        s.GarminSent,
		AppleSent:         s.AppleSent,
		SuccessRate:       r.SuccessRate,
		AvgLatencyMs:      r.AvgLatencyMs,
		DurationSeconds:   r.Duration.Seconds(),
		Throughput:        r.Throughput,
		ConnectionsOpened: s.ConnectionsOpened,
		PeakInFlight:      r.PeakInFlight,
		Verdict:           string(r.Verdict),
		Errors:            errs,
		Start:             r.Start,
		End:               r.End,
	}
}

// Encode writes the report to w in the given format.
func (r *Report) Encode(w io.Writer, format ReportFormat) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding YAML report: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding JSON report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

// WriteFile writes the report to path, choosing the format by extension.
func (r *Report) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}

	if err := r.Encode(f, FormatForPath(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
