// Package engine holds the aggregation core: filtering activity pools into
// totals, merging per-account pools, and computing goal progress. Every
// function here is pure — no I/O, no shared state, safe for concurrent use.
package engine

import (
	"sort"
	"time"
)

// Sport is the normalized activity category. Values follow the provider's
// sport_type vocabulary.
type Sport string

const (
	SportRun     Sport = "Run"
	SportRide    Sport = "Ride"
	SportSwim    Sport = "Swim"
	SportHike    Sport = "Hike"
	SportWalk    Sport = "Walk"
	SportRow     Sport = "Rowing"
	SportSki     Sport = "NordicSki"
	SportWorkout Sport = "Workout"
	SportOther   Sport = "Other"
)

// AllSports lists every normalized category. Callers whose filter semantics
// treat an empty selection as "everything" expand it to this set before
// aggregating, since Aggregate itself treats an empty set as matching
// nothing.
var AllSports = []Sport{
	SportRun, SportRide, SportSwim, SportHike, SportWalk,
	SportRow, SportSki, SportWorkout, SportOther,
}

// Activity is one completed activity as fetched from the provider.
// Immutable once built; the engine only ever reads it.
type Activity struct {
	ID             string    `json:"id"`
	SourceID       string    `json:"source_id"`
	Name           string    `json:"name"`
	Sport          Sport     `json:"sport"`
	DistanceMeters float64   `json:"distance_meters"`
	MovingTimeSec  int64     `json:"moving_time_sec"`
	ElapsedTimeSec int64     `json:"elapsed_time_sec"`
	ElevationGainM float64   `json:"elevation_gain_m"`
	StartedAt      time.Time `json:"started_at"`
}

// Totals is the summed aggregate of a filtered activity pool.
type Totals struct {
	Count          int     `json:"count"`
	DistanceMeters float64 `json:"distance_meters"`
	MovingTimeSec  int64   `json:"moving_time_sec"`
	ElapsedTimeSec int64   `json:"elapsed_time_sec"`
	ElevationGainM float64 `json:"elevation_gain_m"`
}

// Aggregate filters pool to activities whose start falls inside the
// inclusive [start, end] interval and whose sport is in sports, then sums
// them. An empty sport set, like an empty pool, yields zero totals.
func Aggregate(pool []Activity, start, end time.Time, sports []Sport) Totals {
	accepted := make(map[Sport]bool, len(sports))
	for _, s := range sports {
		accepted[s] = true
	}

	var t Totals
	for _, a := range pool {
		if !matches(a, start, end, accepted) {
			continue
		}
		t.Count++
		t.DistanceMeters += a.DistanceMeters
		t.MovingTimeSec += a.MovingTimeSec
		t.ElapsedTimeSec += a.ElapsedTimeSec
		t.ElevationGainM += a.ElevationGainM
	}
	return t
}

// Recent returns up to n matching activities, newest first. The input pool
// is left untouched.
func Recent(pool []Activity, start, end time.Time, sports []Sport, n int) []Activity {
	accepted := make(map[Sport]bool, len(sports))
	for _, s := range sports {
		accepted[s] = true
	}

	matched := make([]Activity, 0, len(pool))
	for _, a := range pool {
		if matches(a, start, end, accepted) {
			matched = append(matched, a)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})
	if n >= 0 && len(matched) > n {
		matched = matched[:n]
	}
	return matched
}

func matches(a Activity, start, end time.Time, accepted map[Sport]bool) bool {
	if !accepted[a.Sport] {
		return false
	}
	return !a.StartedAt.Before(start) && !a.StartedAt.After(end)
}
