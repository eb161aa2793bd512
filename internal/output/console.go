// Package output renders load test progress and results for humans and
// writes machine-readable run reports.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/rakta/hookload/internal/loadtest"
)

const ruleWidth = 60

// ConsoleOptions controls what the console prints.
type ConsoleOptions struct {
	NoColor bool

	// Verbose adds diagnostic lines such as the run ID and pool size.
	Verbose bool

	// Quiet suppresses everything except errors, the summary and the
	// verdict.
	Quiet bool
}

// Console prints a run to a writer. It implements loadtest.Observer.
type Console struct {
	w      io.Writer
	scheme *ColorScheme
	opts   ConsoleOptions
}

var _ loadtest.Observer = (*Console)(nil)

// NewConsole creates a console writing to w.
func NewConsole(w io.Writer, opts ConsoleOptions) *Console {
	return &Console{
		w:      w,
		scheme: ColorSchemeFor(w, opts.NoColor),
		opts:   opts,
	}
}

// Scheme returns the color scheme in use.
func (c *Console) Scheme() *ColorScheme {
	return c.scheme
}

// Header prints the run banner.
func (c *Console) Header(target string, requests, concurrency int) {
	if c.opts.Quiet {
		return
	}
	c.rule()
	c.println(c.scheme.Title.Sprint("DEVICE WEBHOOK LOAD TEST"))
	c.rule()
	c.field("Target:", target)
	c.field("Total Requests:", humanize.Comma(int64(requests)))
	c.field("Concurrency:", fmt.Sprint(concurrency))
	c.rule()
}

// Verbosef prints a diagnostic line when verbose output is enabled.
func (c *Console) Verbosef(format string, args ...interface{}) {
	if !c.opts.Verbose || c.opts.Quiet {
		return
	}
	c.println(c.scheme.Muted.Sprintf("   "+format, args...))
}

// Authenticating announces the login call.
func (c *Console) Authenticating() {
	if c.opts.Quiet {
		return
	}
	c.println("")
	c.println(c.scheme.InfoIcon() + " Authenticating...")
}

// AuthFailed reports a login failure. It is printed even in quiet mode.
func (c *Console) AuthFailed(err error) {
	c.println(fmt.Sprintf("%s Login failed: %v", c.scheme.ErrorIcon(), err))
	c.println(c.scheme.ErrorIcon() + " Cannot proceed without authentication.")
}

// Registered reports a successful registration.
func (c *Console) Registered(email string) {
	c.println(fmt.Sprintf("%s Registered %s. Token received.", c.scheme.SuccessIcon(), email))
}

// OnAuthenticated implements loadtest.Observer.
func (c *Console) OnAuthenticated(runID string) {
	if c.opts.Quiet {
		return
	}
	c.println(c.scheme.SuccessIcon() + " Login successful. Token received.")
	c.Verbosef("run id: %s", runID)
	c.println("")
	c.println(c.scheme.Highlight.Sprint("Starting load test..."))
}

// OnQueued implements loadtest.Observer.
func (c *Console) OnQueued(queued, total int) {
	if c.opts.Quiet {
		return
	}
	c.println(c.scheme.Progress.Sprintf("   Queued: %s/%s",
		humanize.Comma(int64(queued)), humanize.Comma(int64(total))))
}

// Summary prints the results block, the error samples and the verdict.
func (c *Console) Summary(r *loadtest.Result) {
	s := r.Stats

	c.println("")
	c.rule()
	c.println(c.scheme.Title.Sprint("LOAD TEST RESULTS"))
	c.rule()
	c.field("Total Requests Sent:", humanize.Comma(s.TotalSent))
	c.field("Successful (200 OK):", humanize.Comma(s.SuccessCount))
	c.field("Failed:", humanize.Comma(s.FailureCount))
	c.field("Success Rate:", fmt.Sprintf("%.2f%%", r.SuccessRate))
	c.field("Avg Response Time:", fmt.Sprintf("%.2f ms", r.AvgLatencyMs))
	c.field("Total Test Duration:", fmt.Sprintf("%.2f seconds", r.Duration.Seconds()))
	c.field("Throughput:", fmt.Sprintf("%.2f req/sec", r.Throughput))
	if c.opts.Verbose {
		c.field("Garmin / Apple:", fmt.Sprintf("%s / %s", humanize.Comma(s.GarminSent), humanize.Comma(s.AppleSent)))
	}
	c.field("Connections Opened:", humanize.Comma(s.ConnectionsOpened))
	c.field("Peak In-Flight:", fmt.Sprint(r.PeakInFlight))
	c.rule()

	if len(s.Errors) > 0 {
		c.println("")
		c.println(fmt.Sprintf("%s  Sample Errors (first %d):", c.scheme.WarningIcon(), loadtest.MaxErrorSamples))
		for _, e := range s.Errors {
			c.println(c.scheme.Error.Sprint("   - " + e))
		}
	}

	c.println("")
	c.rule()
	c.Verdict(r.Verdict)
	c.rule()
}

// Verdict prints the verdict line.
func (c *Console) Verdict(v loadtest.Verdict) {
	var (
		icon  string
		color = c.scheme.Fail
	)
	switch v {
	case loadtest.VerdictPass:
		icon, color = c.scheme.SuccessIcon(), c.scheme.Pass
	case loadtest.VerdictWarn:
		icon, color = c.scheme.WarningIcon(), c.scheme.Warn
	default:
		icon = c.scheme.ErrorIcon()
	}
	c.println(fmt.Sprintf("%s %s %s", icon, color.Sprint(string(v)+":"), v.Message()))
}

// ReportWritten notes where the report went.
func (c *Console) ReportWritten(path string) {
	if c.opts.Quiet {
		return
	}
	c.println(fmt.Sprintf("%s Report written to %s", c.scheme.InfoIcon(), path))
}

func (c *Console) field(label, value string) {
	c.println(c.scheme.Label.Sprintf("%-23s ", label) + c.scheme.Value.Sprint(value))
}

func (c *Console) rule() {
	c.println(c.scheme.Muted.Sprint(strings.Repeat("=", ruleWidth)))
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.w, s)
}
