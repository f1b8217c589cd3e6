package engine

import (
	"errors"
	"testing"
)

func TestCombinePartialFailureIsolation(t *testing.T) {
	sources := []Source{
		{ID: "alice", Activities: []Activity{{ID: "a1"}, {ID: "a2"}}},
		{ID: "bob", Err: errors.New("token expired")},
		{ID: "carol", Activities: []Activity{{ID: "c1"}}},
	}

	pool, failures := Combine(sources)

	if len(pool) != 3 {
		t.Errorf("pool size = %d, want 3", len(pool))
	}
	if len(failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(failures))
	}
	if failures[0].ID != "bob" {
		t.Errorf("failed source = %q, want bob", failures[0].ID)
	}
	if failures[0].Error != "token expired" {
		t.Errorf("failure message = %q", failures[0].Error)
	}
}

func TestCombineAllFailed(t *testing.T) {
	sources := []Source{
		{ID: "a", Err: errors.New("rate limited")},
		{ID: "b", Err: errors.New("network")},
	}
	pool, failures := Combine(sources)
	if len(pool) != 0 {
		t.Errorf("pool size = %d, want 0", len(pool))
	}
	if len(failures) != 2 {
		t.Errorf("failures = %d, want 2", len(failures))
	}
}

func TestCombineNoSources(t *testing.T) {
	pool, failures := Combine(nil)
	if len(pool) != 0 || len(failures) != 0 {
		t.Errorf("got pool=%d failures=%d, want empty", len(pool), len(failures))
	}
}

func TestCombineDoesNotDeduplicate(t *testing.T) {
	// Sources are disjoint accounts; identical records across them are kept.
	sources := []Source{
		{ID: "a", Activities: []Activity{{ID: "x"}}},
		{ID: "b", Activities: []Activity{{ID: "x"}}},
	}
	pool, _ := Combine(sources)
	if len(pool) != 2 {
		t.Errorf("pool size = %d, want 2", len(pool))
	}
}
