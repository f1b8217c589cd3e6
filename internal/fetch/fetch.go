// Package fetch runs per-connection activity fetches in parallel and hands
// the settled results to the engine's combiner. One slow or broken account
// never blocks the others; the whole set shares a single deadline.
package fetch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/paceboard/internal/engine"
)

// DefaultTimeout bounds the whole parallel fetch set when the config does
// not say otherwise.
const DefaultTimeout = 15 * time.Second

// Target identifies one connected account to fetch, with the credentials
// the pool function needs.
type Target struct {
	ID           string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
}

// PoolFunc fetches the activity pool for one target inside [start, end].
// Implementations must honor ctx cancellation.
type PoolFunc func(ctx context.Context, target Target, start, end time.Time) ([]engine.Activity, error)

// Fetcher fans a PoolFunc out over a set of targets.
type Fetcher struct {
	pool    PoolFunc
	timeout time.Duration
	log     *slog.Logger
}

// New creates a Fetcher. A non-positive timeout falls back to DefaultTimeout.
func New(pool PoolFunc, timeout time.Duration, log *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{pool: pool, timeout: timeout, log: log}
}

// FetchAll fetches every target concurrently under one shared deadline and
// returns one settled source per target, in input order. Failures are
// captured in the source's Err, never returned — partial data is the normal
// operating condition for shared dashboards.
func (f *Fetcher) FetchAll(ctx context.Context, targets []Target, start, end time.Time) []engine.Source {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	sources := make([]engine.Source, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool, err := f.pool(ctx, target, start, end)
			if err != nil {
				f.log.Warn("source fetch failed", "source", target.ID, "error", err)
				sources[i] = engine.Source{ID: target.ID, Err: err}
				return
			}
			sources[i] = engine.Source{ID: target.ID, Activities: pool}
		}()
	}
	wg.Wait()
	return sources
}
