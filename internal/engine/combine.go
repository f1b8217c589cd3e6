package engine

// Source is one independently fetched activity pool — one connected account,
// profile, or group member. A fetch that failed carries Err and an empty
// pool.
type Source struct {
	ID         string
	Activities []Activity
	Err        error
}

// SourceFailure records a source that could not be fetched, in a form safe
// to hand to the presentation layer.
type SourceFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Combine merges the successful sources into one pool and collects the
// failed ones. A single dead account never blanks the rest of a shared
// dashboard: its failure is reported alongside the combined data instead.
// Pools are concatenated as-is — sources are disjoint accounts, so no
// dedup happens here.
func Combine(sources []Source) ([]Activity, []SourceFailure) {
	var pool []Activity
	var failures []SourceFailure
	for _, s := range sources {
		if s.Err != nil {
			failures = append(failures, SourceFailure{ID: s.ID, Error: s.Err.Error()})
			continue
		}
		pool = append(pool, s.Activities...)
	}
	return pool, failures
}
