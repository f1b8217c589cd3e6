package engine

import (
	"math"
	"testing"
	"time"

	"github.com/claude/paceboard/internal/timeframe"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }
func i64ptr(v int64) *int64   { return &v }

func approx(got, want, eps float64) bool {
	return math.Abs(got-want) <= eps
}

// TestProgressWeekMidway is the canonical pacing scenario: a 50 km weekly
// goal, 20 km done by Wednesday.
func TestProgressWeekMidway(t *testing.T) {
	now := time.Date(2026, time.March, 4, 14, 30, 0, 0, time.UTC) // Wednesday
	totals := Totals{DistanceMeters: 20000, Count: 3}
	goal := Goal{DistanceMeters: fptr(50000)}

	got := Progress(totals, goal, timeframe.Frame{Period: timeframe.PeriodWeek}, now)

	pm, ok := got[MetricDistance]
	if !ok {
		t.Fatal("distance metric missing from progress output")
	}
	if pm.Unit != "km" {
		t.Errorf("unit = %q, want km", pm.Unit)
	}
	if pm.Current != 20 {
		t.Errorf("current = %v, want 20", pm.Current)
	}
	if pm.Goal != 50 {
		t.Errorf("goal = %v, want 50", pm.Goal)
	}
	if pm.Percentage != 40 {
		t.Errorf("percentage = %v, want 40", pm.Percentage)
	}
	if pm.Remainder != 30 {
		t.Errorf("remainder = %v, want 30", pm.Remainder)
	}
	if !approx(pm.ExpectedToDate, 50.0/7*3, 1e-9) {
		t.Errorf("expected to date = %v, want ~21.43", pm.ExpectedToDate)
	}
	if !approx(pm.BehindPlan, 20-50.0/7*3, 1e-9) {
		t.Errorf("behind plan = %v, want ~-1.43", pm.BehindPlan)
	}
	if pm.DaysRemaining != 4 {
		t.Errorf("days remaining = %d, want 4", pm.DaysRemaining)
	}
	if pm.DailyPaceNeeded != 7.5 {
		t.Errorf("daily pace = %v, want 7.5", pm.DailyPaceNeeded)
	}
	if len(got) != 1 {
		t.Errorf("metrics emitted = %d, want only distance", len(got))
	}
}

// TestProgressGoalExceeded covers the all-time count goal that is already
// beaten: capped percentage, zero remainder, zero required pace.
func TestProgressGoalExceeded(t *testing.T) {
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	totals := Totals{Count: 12}
	goal := Goal{Count: iptr(10)}

	got := Progress(totals, goal, timeframe.Frame{Period: timeframe.PeriodAllTime}, now)

	pm := got[MetricCount]
	if pm.Percentage != 100 {
		t.Errorf("percentage = %v, want capped 100", pm.Percentage)
	}
	if pm.Remainder != 0 {
		t.Errorf("remainder = %v, want 0", pm.Remainder)
	}
	if pm.DailyPaceNeeded != 0 {
		t.Errorf("daily pace = %v, want 0 once the goal is met", pm.DailyPaceNeeded)
	}
	if pm.Unit != "activities" {
		t.Errorf("unit = %q, want activities", pm.Unit)
	}
	if pm.BehindPlan <= 0 {
		t.Errorf("behind plan = %v, want positive (ahead)", pm.BehindPlan)
	}
}

func TestProgressTimeMetricInHours(t *testing.T) {
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	totals := Totals{MovingTimeSec: 5400} // 1.5h
	goal := Goal{TimeSec: i64ptr(36000)}  // 10h

	pm := Progress(totals, goal, timeframe.Frame{Period: timeframe.PeriodWeek}, now)[MetricTime]
	if pm.Current != 1.5 {
		t.Errorf("current = %v, want 1.5 hours", pm.Current)
	}
	if pm.Goal != 10 {
		t.Errorf("goal = %v, want 10 hours", pm.Goal)
	}
	if pm.Percentage != 15 {
		t.Errorf("percentage = %v, want 15", pm.Percentage)
	}
}

func TestProgressElevationUnchangedUnits(t *testing.T) {
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	totals := Totals{ElevationGainM: 800}
	goal := Goal{ElevationM: fptr(2000)}

	pm := Progress(totals, goal, timeframe.Frame{Period: timeframe.PeriodMonth}, now)[MetricElevation]
	if pm.Current != 800 || pm.Goal != 2000 {
		t.Errorf("elevation current/goal = %v/%v, want 800/2000", pm.Current, pm.Goal)
	}
	if pm.Unit != "m" {
		t.Errorf("unit = %q, want m", pm.Unit)
	}
}

func TestProgressEmptyGoal(t *testing.T) {
	now := time.Now()
	got := Progress(Totals{Count: 5}, Goal{}, timeframe.Frame{Period: timeframe.PeriodWeek}, now)
	if len(got) != 0 {
		t.Errorf("metrics emitted = %d, want 0 for an empty goal", len(got))
	}
}

func TestProgressDegenerateGoalValues(t *testing.T) {
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	frame := timeframe.Frame{Period: timeframe.PeriodWeek}

	tests := []struct {
		name   string
		target float64
	}{
		{"zero goal", 0},
		{"negative goal", -5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := Progress(Totals{DistanceMeters: 1000}, Goal{DistanceMeters: fptr(tt.target)}, frame, now)[MetricDistance]
			if pm.Percentage != 0 {
				t.Errorf("percentage = %v, want 0 floor", pm.Percentage)
			}
			if pm.Remainder < 0 {
				t.Errorf("remainder = %v, want >= 0", pm.Remainder)
			}
		})
	}
}

func TestProgressLastDayDuesRemainder(t *testing.T) {
	// Sunday evening of the goal week: no full days left, the remainder is
	// due immediately rather than divided by zero.
	now := time.Date(2026, time.March, 8, 20, 0, 0, 0, time.UTC)
	totals := Totals{DistanceMeters: 40000}
	goal := Goal{DistanceMeters: fptr(50000)}

	pm := Progress(totals, goal, timeframe.Frame{Period: timeframe.PeriodWeek}, now)[MetricDistance]
	if pm.DaysRemaining != 0 {
		t.Fatalf("days remaining = %d, want 0 on the last day", pm.DaysRemaining)
	}
	if pm.DailyPaceNeeded != 10 {
		t.Errorf("daily pace = %v, want the full 10 km remainder", pm.DailyPaceNeeded)
	}
}

func TestProgressPercentageBounds(t *testing.T) {
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	frame := timeframe.Frame{Period: timeframe.PeriodWeek}

	tests := []struct {
		name    string
		current float64
		target  float64
	}{
		{"zero current", 0, 10000},
		{"under", 4000, 10000},
		{"exact", 10000, 10000},
		{"over", 25000, 10000},
		{"zero target", 5000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := Progress(Totals{DistanceMeters: tt.current}, Goal{DistanceMeters: fptr(tt.target)}, frame, now)[MetricDistance]
			if pm.Percentage < 0 || pm.Percentage > 100 {
				t.Errorf("percentage = %v, want within [0, 100]", pm.Percentage)
			}
			if pm.Remainder < 0 {
				t.Errorf("remainder = %v, want >= 0", pm.Remainder)
			}
			if pm.DailyPaceNeeded < 0 {
				t.Errorf("daily pace = %v, want >= 0", pm.DailyPaceNeeded)
			}
		})
	}
}

func TestProgressMultipleMetrics(t *testing.T) {
	now := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	totals := Totals{Count: 2, DistanceMeters: 20000, MovingTimeSec: 7200, ElevationGainM: 300}
	goal := Goal{
		DistanceMeters: fptr(50000),
		Count:          iptr(5),
		ElevationM:     fptr(1000),
		TimeSec:        i64ptr(18000),
	}

	got := Progress(totals, goal, timeframe.Frame{Period: timeframe.PeriodWeek}, now)
	if len(got) != 4 {
		t.Fatalf("metrics emitted = %d, want 4", len(got))
	}
	for metric, pm := range got {
		if pm.Unit == "" {
			t.Errorf("%s: empty unit", metric)
		}
		if pm.DaysRemaining != 4 {
			t.Errorf("%s: days remaining = %d, want the shared frame's 4", metric, pm.DaysRemaining)
		}
	}
}
