package timeframe

import (
	"testing"
	"time"
)

// Wednesday 2026-03-04 14:30 UTC — a mid-week, mid-month reference instant.
var wednesday = time.Date(2026, time.March, 4, 14, 30, 0, 0, time.UTC)

func TestResolveDay(t *testing.T) {
	start, end := (Frame{Period: PeriodDay}).Resolve(wednesday)

	wantStart := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, time.March, 4, 23, 59, 59, 999000000, time.UTC)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}
	if !end.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", end, wantEnd)
	}
}

func TestResolveWeek(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
	}{
		{
			name:      "wednesday resolves to preceding monday",
			now:       wednesday,
			wantStart: time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "monday resolves to itself",
			now:       time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC),
			wantStart: time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "sunday is the last day of the week, not the first",
			now:       time.Date(2026, time.March, 8, 22, 0, 0, 0, time.UTC),
			wantStart: time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := (Frame{Period: PeriodWeek}).Resolve(tt.now)
			if !start.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", start, tt.wantStart)
			}
			wantEnd := time.Date(2026, time.March, 8, 23, 59, 59, 999000000, time.UTC)
			if !end.Equal(wantEnd) {
				t.Errorf("end = %v, want %v", end, wantEnd)
			}
		})
	}
}

func TestResolveMonth(t *testing.T) {
	// February in a leap year.
	now := time.Date(2028, time.February, 10, 12, 0, 0, 0, time.UTC)
	start, end := (Frame{Period: PeriodMonth}).Resolve(now)

	if !start.Equal(time.Date(2028, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v, want Feb 1", start)
	}
	if end.Day() != 29 || end.Hour() != 23 {
		t.Errorf("end = %v, want Feb 29 23:59:59.999", end)
	}
}

func TestResolveYear(t *testing.T) {
	start, end := (Frame{Period: PeriodYear}).Resolve(wednesday)
	if !start.Equal(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v, want Jan 1", start)
	}
	if end.Month() != time.December || end.Day() != 31 {
		t.Errorf("end = %v, want Dec 31", end)
	}
}

func TestResolveAllTimeIsPinned(t *testing.T) {
	s1, e1 := (Frame{Period: PeriodAllTime}).Resolve(wednesday)
	s2, e2 := (Frame{Period: PeriodAllTime}).Resolve(wednesday.AddDate(3, 0, 0))
	if !s1.Equal(s2) || !e1.Equal(e2) {
		t.Error("all-time bounds must not depend on now")
	}
	if !s1.Before(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("all-time start = %v, want distant past", s1)
	}
	if !e1.After(time.Date(2090, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("all-time end = %v, want far future", e1)
	}
}

func TestResolveCustomVerbatim(t *testing.T) {
	s := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	e := time.Date(2026, time.June, 10, 23, 59, 59, 0, time.UTC)
	start, end := Custom(s, e).Resolve(wednesday)
	if !start.Equal(s) || !end.Equal(e) {
		t.Errorf("custom bounds altered: got [%v, %v]", start, end)
	}
}

func TestDayCountsWeekMidway(t *testing.T) {
	// The canonical pacing scenario: Wednesday, three days in, four to go.
	d := (Frame{Period: PeriodWeek}).DayCounts(wednesday)
	if d.Total != 7 {
		t.Errorf("total = %d, want 7", d.Total)
	}
	if d.Elapsed != 3 {
		t.Errorf("elapsed = %d, want 3", d.Elapsed)
	}
	if d.Remaining != 4 {
		t.Errorf("remaining = %d, want 4", d.Remaining)
	}
}

func TestDayCountsDay(t *testing.T) {
	d := (Frame{Period: PeriodDay}).DayCounts(wednesday)
	if d.Total != 1 || d.Elapsed != 1 || d.Remaining != 0 {
		t.Errorf("day counts = %+v, want {1 0 1} layout", d)
	}
}

func TestDayCountsFutureCustomRange(t *testing.T) {
	f := Custom(
		time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.July, 31, 23, 59, 59, 0, time.UTC),
	)
	d := f.DayCounts(wednesday)
	if d.Elapsed != 0 {
		t.Errorf("elapsed = %d, want 0 for a future range", d.Elapsed)
	}
	if d.Total != 31 {
		t.Errorf("total = %d, want 31", d.Total)
	}
	if d.Remaining < d.Total {
		t.Errorf("remaining = %d, want >= total %d before the range starts", d.Remaining, d.Total)
	}
}

func TestDayCountsExpiredCustomRange(t *testing.T) {
	f := Custom(
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.January, 31, 23, 59, 59, 0, time.UTC),
	)
	d := f.DayCounts(wednesday)
	if d.Remaining != 0 {
		t.Errorf("remaining = %d, want 0 for an expired range", d.Remaining)
	}
	if d.Elapsed != d.Total {
		t.Errorf("elapsed = %d, want capped at total %d", d.Elapsed, d.Total)
	}
}

func TestDayCountsInvariants(t *testing.T) {
	frames := []Frame{
		{Period: PeriodDay},
		{Period: PeriodWeek},
		{Period: PeriodMonth},
		{Period: PeriodYear},
		{Period: PeriodAllTime},
		Custom(wednesday.AddDate(0, 0, -10), wednesday.AddDate(0, 0, 10)),
	}
	for _, f := range frames {
		d := f.DayCounts(wednesday)
		if d.Elapsed > d.Total {
			t.Errorf("%s: elapsed %d > total %d", f.Period, d.Elapsed, d.Total)
		}
		if d.Elapsed < 0 || d.Remaining < 0 || d.Total < 0 {
			t.Errorf("%s: negative day count %+v", f.Period, d)
		}
	}
}

func TestDayCountsCrossMidnightShiftsDayFrame(t *testing.T) {
	beforeMidnight := time.Date(2026, time.March, 4, 23, 59, 0, 0, time.UTC)
	afterMidnight := time.Date(2026, time.March, 5, 0, 1, 0, 0, time.UTC)

	s1, _ := (Frame{Period: PeriodDay}).Resolve(beforeMidnight)
	s2, _ := (Frame{Period: PeriodDay}).Resolve(afterMidnight)
	if s1.Equal(s2) {
		t.Error("day frame must shift once midnight is crossed")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"day", PeriodDay, false},
		{"week", PeriodWeek, false},
		{"month", PeriodMonth, false},
		{"year", PeriodYear, false},
		{"all_time", PeriodAllTime, false},
		{"custom", "", true},
		{"fortnight", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		f, err := Parse(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Parse(%q): want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.in, err)
			continue
		}
		if f.Period != tt.want {
			t.Errorf("Parse(%q) = %s, want %s", tt.in, f.Period, tt.want)
		}
	}
}
