package strava

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/claude/paceboard/internal/engine"
	"github.com/claude/paceboard/internal/fetch"
)

// tokenSlack refreshes access tokens slightly before their stated expiry so
// a request never races the provider's clock.
const tokenSlack = 2 * time.Minute

// TokenUpdater persists a refreshed token pair for a connection.
type TokenUpdater interface {
	UpdateConnectionTokens(ctx context.Context, id uuid.UUID, accessToken, refreshToken string, expiry time.Time) error
}

// NewPoolFunc builds the per-connection fetch used by the parallel fetcher:
// refresh the access token when stale, persist the new pair, list the
// window's activities, and fall back to the local cache when the provider
// cannot be reached. cache may be nil.
func NewPoolFunc(c *Client, tokens TokenUpdater, cache *Cache, log *slog.Logger) fetch.PoolFunc {
	return func(ctx context.Context, target fetch.Target, start, end time.Time) ([]engine.Activity, error) {
		accessToken := target.AccessToken
		if accessToken == "" || !target.TokenExpiry.After(time.Now().Add(tokenSlack)) {
			tok, err := c.RefreshAccessToken(ctx, target.RefreshToken)
			if err != nil {
				return cacheFallback(cache, target.ID, start, end, log, fmt.Errorf("refreshing access token: %w", err))
			}
			accessToken = tok.AccessToken

			refreshToken := tok.RefreshToken
			if refreshToken == "" {
				refreshToken = target.RefreshToken
			}
			if id, perr := uuid.Parse(target.ID); perr == nil {
				if uerr := tokens.UpdateConnectionTokens(ctx, id, tok.AccessToken, refreshToken, tok.Expiry); uerr != nil {
					log.Warn("persisting refreshed tokens failed", "connection", target.ID, "error", uerr)
				}
			}
		}

		acts, err := c.ListActivities(ctx, accessToken, start, end)
		if err != nil {
			return cacheFallback(cache, target.ID, start, end, log, err)
		}

		for i := range acts {
			acts[i].SourceID = target.ID
		}
		if cache != nil {
			if cerr := cache.Store(target.ID, acts); cerr != nil {
				log.Warn("caching activities failed", "connection", target.ID, "error", cerr)
			}
		}
		return acts, nil
	}
}

// cacheFallback serves a connection's cached pool when the live fetch
// failed. An empty or missing cache propagates the original error.
func cacheFallback(cache *Cache, connectionID string, start, end time.Time, log *slog.Logger, fetchErr error) ([]engine.Activity, error) {
	if cache == nil {
		return nil, fetchErr
	}
	acts, err := cache.Activities(connectionID, start, end)
	if err != nil || len(acts) == 0 {
		return nil, fetchErr
	}
	log.Warn("serving cached activities", "connection", connectionID, "fetch_error", fetchErr, "cached", len(acts))
	return acts, nil
}
