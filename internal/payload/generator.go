package payload

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// DateLayout is the calendar date format used in every payload.
const DateLayout = "2006-01-02"

// Value ranges for generated metrics. The heart-rate deltas are strictly
// positive so that resting < average < max holds for every Garmin payload.
const (
	historyYears = 5

	minRestingHR = 50
	maxRestingHR = 100

	minAvgDelta = 10
	maxAvgDelta = 30
	minMaxDelta = 50
	maxMaxDelta = 100

	minSteps = 2000
	maxSteps = 15000

	minDeepSleep  = 1800
	maxDeepSleep  = 7200
	minLightSleep = 10800
	maxLightSleep = 21600
	minRemSleep   = 3600
	maxRemSleep   = 7200
	minAwake      = 0
	maxAwake      = 1800

	minSleepHours = 4.0
	maxSleepHours = 10.0

	sleepRespirationOffset = 3600

	sleepSampleTime = "07:00:00"
	heartSampleTime = "08:00:00"
	appleSource     = "Apple Watch"
)

// Generator produces randomized payloads from a seeded source.
//
// A Generator is safe for concurrent use. Two generators built with the same
// seed and clock yield the same sequence of payloads when called in the
// same order.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator creates a generator. A nil clock defaults to time.Now.
func NewGenerator(seed uint64, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: now,
	}
}

// Next picks a format uniformly and generates a payload for it.
func (g *Generator) Next() Payload {
	return g.Generate(g.PickFormat())
}

// PickFormat returns Garmin or Apple with equal probability.
func (g *Generator) PickFormat() Format {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rng.IntN(2) == 0 {
		return FormatGarmin
	}
	return FormatApple
}

// Generate builds a payload of the given format.
func (g *Generator) Generate(f Format) Payload {
	switch f {
	case FormatApple:
		return g.Apple()
	default:
		return g.Garmin()
	}
}

// RandomDate returns a calendar date drawn uniformly from the last five
// years, today included.
func (g *Generator) RandomDate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.randomDate()
}

// Garmin builds a device daily summary payload.
func (g *Generator) Garmin() *GarminDaily {
	g.mu.Lock()
	defer g.mu.Unlock()

	date := g.randomDate()
	resting := g.between(minRestingHR, maxRestingHR)

	daily := GarminDailySummary{
		SummaryID:                  fmt.Sprintf("sum_%06d", g.between(100000, 999999)),
		CalendarDate:               date,
		Steps:                      g.between(minSteps, maxSteps),
		RestingHeartRate:           resting,
		AverageHeartRate:           resting + g.between(minAvgDelta, maxAvgDelta),
		MaxHeartRate:               resting + g.between(minMaxDelta, maxMaxDelta),
		TimeOffsetSleepRespiration: sleepRespirationOffset,
	}

	sleep := GarminSleepSummary{
		SummaryID:    fmt.Sprintf("sleep_%06d", g.between(100000, 999999)),
		CalendarDate: date,
		DeepSeconds:  g.between(minDeepSleep, maxDeepSleep),
		LightSeconds: g.between(minLightSleep, maxLightSleep),
		RemSeconds:   g.between(minRemSleep, maxRemSleep),
		AwakeSeconds: g.between(minAwake, maxAwake),
	}

	return &GarminDaily{
		Dailies: []GarminDailySummary{daily},
		Sleeps:  []GarminSleepSummary{sleep},
	}
}

// Apple builds a consumer health export payload with one sleep sample and
// one resting heart-rate sample.
func (g *Generator) Apple() *AppleHealthExport {
	g.mu.Lock()
	defer g.mu.Unlock()

	date := g.randomDate()
	resting := g.between(minRestingHR, maxRestingHR)
	sleepHours := minSleepHours + g.rng.Float64()*(maxSleepHours-minSleepHours)
	sleepHours = math.Round(sleepHours*100) / 100

	return &AppleHealthExport{
		Data: AppleData{
			Metrics: []AppleMetric{
				{
					Name:  MetricSleepAnalysis,
					Units: "hr",
					Data: []AppleSample{{
						Date:   date + " " + sleepSampleTime,
						Qty:    sleepHours,
						Source: appleSource,
					}},
				},
				{
					Name:  MetricRestingHeartRate,
					Units: "bpm",
					Data: []AppleSample{{
						Date:   date + " " + heartSampleTime,
						Qty:    float64(resting),
						Source: appleSource,
					}},
				},
			},
		},
	}
}

// randomDate must be called with g.mu held.
func (g *Generator) randomDate() string {
	now := g.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	earliest := today.AddDate(-historyYears, 0, 0)
	span := int(today.Sub(earliest).Hours() / 24)
	return today.AddDate(0, 0, -g.rng.IntN(span+1)).Format(DateLayout)
}

// between returns an integer in [lo, hi]. Must be called with g.mu held.
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}
