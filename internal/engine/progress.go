package engine

import (
	"time"

	"github.com/claude/paceboard/internal/timeframe"
)

// Metric identifies one goal dimension.
type Metric string

const (
	MetricDistance  Metric = "distance"
	MetricCount     Metric = "count"
	MetricElevation Metric = "elevation"
	MetricTime      Metric = "time"
)

// Goal holds optional per-metric targets in raw units (meters, seconds,
// activity count). A nil target excludes that metric from progress output.
type Goal struct {
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
	Count          *int     `json:"count,omitempty"`
	ElevationM     *float64 `json:"elevation_m,omitempty"`
	TimeSec        *int64   `json:"time_sec,omitempty"`
}

// IsZero reports whether no metric has a target.
func (g Goal) IsZero() bool {
	return g.DistanceMeters == nil && g.Count == nil && g.ElevationM == nil && g.TimeSec == nil
}

// ProgressMetric is the pacing verdict for one metric. All values are in the
// metric's display unit (km, hours, m, activities), not raw units.
type ProgressMetric struct {
	Current         float64 `json:"current"`
	Goal            float64 `json:"goal"`
	Remainder       float64 `json:"remainder"`
	DailyPaceNeeded float64 `json:"daily_pace_needed"`
	Percentage      float64 `json:"percentage"`
	Unit            string  `json:"unit"`
	DaysRemaining   int     `json:"days_remaining"`
	ExpectedToDate  float64 `json:"expected_to_date"`
	BehindPlan      float64 `json:"behind_plan"`
}

// metricSpec drives one calculation path for all four metrics: how to pull
// the current value out of Totals, how to pull the target out of Goal, and
// the raw-to-display-unit divisor.
type metricSpec struct {
	unit    string
	divisor float64
	current func(Totals) float64
	target  func(Goal) (float64, bool)
}

var metricTable = map[Metric]metricSpec{
	MetricDistance: {
		unit:    "km",
		divisor: 1000,
		current: func(t Totals) float64 { return t.DistanceMeters },
		target: func(g Goal) (float64, bool) {
			if g.DistanceMeters == nil {
				return 0, false
			}
			return *g.DistanceMeters, true
		},
	},
	MetricCount: {
		unit:    "activities",
		divisor: 1,
		current: func(t Totals) float64 { return float64(t.Count) },
		target: func(g Goal) (float64, bool) {
			if g.Count == nil {
				return 0, false
			}
			return float64(*g.Count), true
		},
	},
	MetricElevation: {
		unit:    "m",
		divisor: 1,
		current: func(t Totals) float64 { return t.ElevationGainM },
		target: func(g Goal) (float64, bool) {
			if g.ElevationM == nil {
				return 0, false
			}
			return *g.ElevationM, true
		},
	},
	MetricTime: {
		unit:    "hours",
		divisor: 3600,
		current: func(t Totals) float64 { return float64(t.MovingTimeSec) },
		target: func(g Goal) (float64, bool) {
			if g.TimeSec == nil {
				return 0, false
			}
			return float64(*g.TimeSec), true
		},
	},
}

// Progress computes a pacing verdict per goal metric. Pacing is linear: the
// target is assumed to accrue evenly across the frame's calendar days.
// Degenerate inputs never error — a non-positive target yields 0%, an
// exceeded target yields zero remainder and zero required pace.
func Progress(totals Totals, goal Goal, frame timeframe.Frame, now time.Time) map[Metric]ProgressMetric {
	out := make(map[Metric]ProgressMetric)
	if goal.IsZero() {
		return out
	}

	days := frame.DayCounts(now)

	for metric, spec := range metricTable {
		rawTarget, ok := spec.target(goal)
		if !ok {
			continue
		}

		current := spec.current(totals) / spec.divisor
		target := rawTarget / spec.divisor

		percentage := 0.0
		if target > 0 {
			percentage = current / target * 100
			if percentage > 100 {
				percentage = 100
			}
		}

		remainder := target - current
		if remainder < 0 {
			remainder = 0
		}

		expected := 0.0
		if days.Total > 0 {
			expected = target / float64(days.Total) * float64(days.Elapsed)
		}

		var pace float64
		switch {
		case current >= target:
			pace = 0
		case days.Remaining <= 0:
			// Period is over (or ends today): the whole remainder is due now.
			pace = remainder
		default:
			pace = remainder / float64(days.Remaining)
		}

		out[metric] = ProgressMetric{
			Current:         current,
			Goal:            target,
			Remainder:       remainder,
			DailyPaceNeeded: pace,
			Percentage:      percentage,
			Unit:            spec.unit,
			DaysRemaining:   days.Remaining,
			ExpectedToDate:  expected,
			BehindPlan:      current - expected,
		}
	}
	return out
}
