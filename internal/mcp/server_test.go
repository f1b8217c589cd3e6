package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/claude/paceboard/internal/engine"
	"github.com/claude/paceboard/internal/timeframe"
)

// TestUserIDFromContextDefault verifies the default user ID (1) when no value
// is set in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	ctx := context.Background()
	if id := UserIDFromContext(ctx); id != 1 {
		t.Errorf("UserIDFromContext(empty) = %d, want 1", id)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	if id := UserIDFromContext(ctx); id != 42 {
		t.Errorf("UserIDFromContext = %d, want 42", id)
	}
}

// TestFrameFromArgs verifies period parsing, the week default, and the
// custom-range checks.
func TestFrameFromArgs(t *testing.T) {
	frame, err := frameFromArgs("", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Period != timeframe.PeriodWeek {
		t.Errorf("default period = %q, want week", frame.Period)
	}

	frame, err = frameFromArgs("month", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Period != timeframe.PeriodMonth {
		t.Errorf("period = %q, want month", frame.Period)
	}

	frame, err = frameFromArgs("", "2026-03-01", "2026-03-09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Period != timeframe.PeriodCustom {
		t.Errorf("period = %q, want custom", frame.Period)
	}
	if frame.Start.Day() != 1 || frame.End.Day() != 9 {
		t.Errorf("range = %v..%v, want Mar 1..Mar 9", frame.Start, frame.End)
	}

	if _, err := frameFromArgs("", "2026-03-01", ""); err == nil {
		t.Error("expected error for start without end")
	}
	if _, err := frameFromArgs("", "2026-03-09", "2026-03-01"); err == nil {
		t.Error("expected error for backwards range")
	}
	if _, err := frameFromArgs("fortnight", "", ""); err == nil {
		t.Error("expected error for unknown period")
	}
}

// TestParseFlexTime verifies both accepted date formats.
func TestParseFlexTime(t *testing.T) {
	got, err := parseFlexTime("2026-03-04T10:30:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Hour() != 10 || got.Minute() != 30 {
		t.Errorf("time = %v, want 10:30", got)
	}

	got, err = parseFlexTime("2026-03-04")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v, want 2026-03-04 midnight UTC", got)
	}

	if _, err := parseFlexTime("not-a-date"); err == nil {
		t.Error("expected error for invalid date")
	}
}

// TestSportsFromArg verifies the comma-separated sport filter parsing and
// the empty-means-everything expansion.
func TestSportsFromArg(t *testing.T) {
	if got := sportsFromArg(""); len(got) != len(engine.AllSports) {
		t.Errorf("sportsFromArg(\"\") = %v, want all sports", got)
	}
	got := sportsFromArg("Run, Ride,Swim")
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[1] != engine.SportRide {
		t.Errorf("sports[1] = %q, want Ride", got[1])
	}
}
