package loadtest

// Verdict is the overall judgement of a run.
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictWarn Verdict = "WARN"
	VerdictFail Verdict = "FAIL"
)

// Success-rate thresholds, in percent.
const (
	PassThreshold = 99.0
	WarnThreshold = 95.0
)

// VerdictFor maps a success rate in percent to a verdict.
func VerdictFor(successRate float64) Verdict {
	switch {
	case successRate >= PassThreshold:
		return VerdictPass
	case successRate >= WarnThreshold:
		return VerdictWarn
	default:
		return VerdictFail
	}
}

// Message returns the human-readable explanation of the verdict.
func (v Verdict) Message() string {
	switch v {
	case VerdictPass:
		return "Backend handled volume test successfully!"
	case VerdictWarn:
		return "Mostly successful, but some failures occurred."
	default:
		return "Significant failures detected. Review backend logs."
	}
}
