// Package timeframe resolves symbolic reporting periods (day, week, month,
// year, all-time, custom range) into concrete calendar bounds and day counts.
package timeframe

import (
	"fmt"
	"time"
)

// Period identifies a symbolic reporting window.
type Period string

const (
	PeriodDay     Period = "day"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodYear    Period = "year"
	PeriodAllTime Period = "all_time"
	PeriodCustom  Period = "custom"
)

// All-time bounds. The provider launched in 2009, so nothing predates the
// lower sentinel; the upper one just keeps day-count arithmetic finite.
var (
	allTimeStart = time.Date(2009, time.January, 1, 0, 0, 0, 0, time.UTC)
	allTimeEnd   = time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Millisecond)
)

// Frame is a time frame selection. Start and End are only meaningful for
// PeriodCustom, where both bounds are inclusive.
type Frame struct {
	Period Period    `json:"period"`
	Start  time.Time `json:"start,omitzero"`
	End    time.Time `json:"end,omitzero"`
}

// Custom builds a custom-range frame. Callers are responsible for passing
// start <= end; the resolver does not reorder a backwards range.
func Custom(start, end time.Time) Frame {
	return Frame{Period: PeriodCustom, Start: start, End: end}
}

// Parse converts a period name into a Frame. Custom frames cannot be built
// from a bare name; use Custom instead.
func Parse(s string) (Frame, error) {
	switch Period(s) {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodAllTime:
		return Frame{Period: Period(s)}, nil
	case PeriodCustom:
		return Frame{}, fmt.Errorf("custom period requires explicit start and end dates")
	default:
		return Frame{}, fmt.Errorf("unknown period %q", s)
	}
}

// Resolve maps a frame and an evaluation instant to the concrete inclusive
// [start, end] interval. Non-custom frames are derived from now's calendar
// day in now's location, so crossing midnight between two calls legitimately
// shifts the interval.
func (f Frame) Resolve(now time.Time) (start, end time.Time) {
	switch f.Period {
	case PeriodDay:
		start = midnight(now)
		end = endOfDay(now)
	case PeriodWeek:
		// Weeks run Monday through Sunday. Go numbers Sunday as 0, so it
		// needs to land six days after Monday, not one day before.
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		start = midnight(now).AddDate(0, 0, -daysSinceMonday)
		end = endOfDay(start.AddDate(0, 0, 6))
	case PeriodMonth:
		y, m, _ := now.Date()
		start = time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
		end = endOfDay(start.AddDate(0, 1, -1))
	case PeriodYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		end = endOfDay(time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, now.Location()))
	case PeriodAllTime:
		start = allTimeStart
		end = allTimeEnd
	case PeriodCustom:
		start = f.Start
		end = f.End
	}
	return start, end
}

// Days holds the calendar-day breakdown of a frame relative to "now".
// Elapsed counts the current day; Remaining counts only full days after it.
type Days struct {
	Elapsed   int `json:"elapsed"`
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
}

// DayCounts derives elapsed/remaining/total calendar days for a frame.
// Both interval boundary days count toward Total. A now before the interval
// floors Elapsed at 0; a now past the interval caps Elapsed at Total and
// floors Remaining at 0.
func (f Frame) DayCounts(now time.Time) Days {
	start, end := f.Resolve(now)

	total := daysBetween(start, end) + 1
	if total < 0 {
		total = 0
	}

	elapsed := daysBetween(start, now) + 1
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > total {
		elapsed = total
	}

	remaining := daysBetween(now, end)
	if remaining < 0 {
		remaining = 0
	}

	return Days{Elapsed: elapsed, Remaining: remaining, Total: total}
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// daysBetween counts whole calendar days from a's date to b's date,
// ignoring time of day. Negative when b's date precedes a's. Dates are
// compared in UTC so DST transitions cannot produce fractional days.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua) / (24 * time.Hour))
}
