// Package payload generates synthetic device webhook bodies.
//
// Two wire formats are supported, mirroring the two ingestion endpoints of
// the backend:
//
//   - GarminDaily: a Garmin Health API style daily + sleep summary
//   - AppleHealthExport: a Health Auto Export style nested metrics list
//
// Every payload is generated fresh for a single request and never mutated
// afterwards.
package payload

import "fmt"

// Format identifies the wire format of a payload.
type Format int

const (
	// FormatGarmin is the device daily summary format.
	FormatGarmin Format = iota
	// FormatApple is the consumer health export format.
	FormatApple
)

// Formats lists every supported format in a stable order.
func Formats() []Format {
	return []Format{FormatGarmin, FormatApple}
}

func (f Format) String() string {
	switch f {
	case FormatGarmin:
		return "garmin"
	case FormatApple:
		return "apple"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Path returns the webhook endpoint path that accepts this format.
func (f Format) Path() string {
	return "/api/webhooks/" + f.String()
}

// Payload is a generated webhook body. The concrete type is either
// *GarminDaily or *AppleHealthExport.
type Payload interface {
	Format() Format
}

// GarminDaily is the body posted to the Garmin webhook.
type GarminDaily struct {
	Dailies []GarminDailySummary `json:"dailies"`
	Sleeps  []GarminSleepSummary `json:"sleeps"`
}

// Format implements Payload.
func (*GarminDaily) Format() Format { return FormatGarmin }

// GarminDailySummary carries activity and heart-rate values for one day.
type GarminDailySummary struct {
	SummaryID                  string `json:"summaryId"`
	CalendarDate               string `json:"calendarDate"`
	Steps                      int    `json:"steps"`
	RestingHeartRate           int    `json:"restingHeartRateInBeatsPerMinute"`
	AverageHeartRate           int    `json:"averageHeartRateInBeatsPerMinute"`
	MaxHeartRate               int    `json:"maxHeartRateInBeatsPerMinute"`
	TimeOffsetSleepRespiration int    `json:"timeOffsetSleepRespiration"`
}

// GarminSleepSummary carries sleep-stage durations in seconds.
type GarminSleepSummary struct {
	SummaryID    string `json:"summaryId"`
	CalendarDate string `json:"calendarDate"`
	DeepSeconds  int    `json:"deepSleepSeconds"`
	LightSeconds int    `json:"lightSleepSeconds"`
	RemSeconds   int    `json:"remSleepSeconds"`
	AwakeSeconds int    `json:"awakeSleepSeconds"`
}

// AppleHealthExport is the body posted to the Apple webhook.
type AppleHealthExport struct {
	Data AppleData `json:"data"`
}

// Format implements Payload.
func (*AppleHealthExport) Format() Format { return FormatApple }

// AppleData wraps the exported metric list.
type AppleData struct {
	Metrics []AppleMetric `json:"metrics"`
}

// AppleMetric is one named metric series.
type AppleMetric struct {
	Name  string        `json:"name"`
	Units string        `json:"units"`
	Data  []AppleSample `json:"data"`
}

// AppleSample is a single timestamped value.
type AppleSample struct {
	Date   string  `json:"date"`
	Qty    float64 `json:"qty"`
	Source string  `json:"source"`
}

// Metric names used in the Apple export.
const (
	MetricSleepAnalysis    = "sleep_analysis"
	MetricRestingHeartRate = "resting_heart_rate"
)

// Metric returns the first metric with the given name.
func (a *AppleHealthExport) Metric(name string) (AppleMetric, bool) {
	for _, m := range a.Data.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return AppleMetric{}, false
}
