// Package strava fetches athlete activities from the provider API and
// normalizes them into engine records.
package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/claude/paceboard/internal/engine"
)

const (
	// DefaultBaseURL is the provider's REST API root.
	DefaultBaseURL = "https://www.strava.com/api/v3"

	tokenURL = "https://www.strava.com/oauth/token"
	authURL  = "https://www.strava.com/oauth/authorize"

	// perPage is the provider's maximum activities-per-page.
	perPage = 200
)

var (
	// ErrTokenExpired indicates the access token was rejected. The caller
	// should refresh and retry, or mark the connection as broken.
	ErrTokenExpired = errors.New("strava: access token expired or revoked")
	// ErrRateLimited indicates the provider's rate limit was hit.
	ErrRateLimited = errors.New("strava: rate limited")
)

// Client talks to the provider API on behalf of connected accounts.
type Client struct {
	baseURL    string
	conf       *oauth2.Config
	httpClient *http.Client
}

// NewClient creates a provider client for the given application credentials.
func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL},
			Scopes:       []string{"activity:read_all"},
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetBaseURL points the client at a different API root (tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// RefreshAccessToken exchanges a stored refresh token for a fresh access
// token via the standard refresh-token grant.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ts := c.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	return tok, nil
}

// apiActivity is the provider's wire shape for a summary activity. Only the
// fields the engine consumes are decoded.
type apiActivity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	SportType          string    `json:"sport_type"`
	Distance           float64   `json:"distance"`
	MovingTime         int64     `json:"moving_time"`
	ElapsedTime        int64     `json:"elapsed_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	StartDate          time.Time `json:"start_date"`
}

// ListActivities pulls all activities started inside [after, before] for the
// athlete the access token belongs to, paging until exhausted. Results are
// normalized to engine records with UTC timestamps.
func (c *Client) ListActivities(ctx context.Context, accessToken string, after, before time.Time) ([]engine.Activity, error) {
	var out []engine.Activity
	for page := 1; ; page++ {
		batch, err := c.listPage(ctx, accessToken, after, before, page)
		if err != nil {
			return nil, err
		}
		for _, a := range batch {
			out = append(out, normalize(a))
		}
		if len(batch) < perPage {
			return out, nil
		}
	}
}

func (c *Client) listPage(ctx context.Context, accessToken string, after, before time.Time, page int) ([]apiActivity, error) {
	q := url.Values{}
	q.Set("after", strconv.FormatInt(after.Unix(), 10))
	q.Set("before", strconv.FormatInt(before.Unix(), 10))
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	reqURL := c.baseURL + "/athlete/activities?" + q.Encode()

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			}
		}

		batch, retryable, err := c.doListPage(ctx, reqURL, accessToken)
		if err == nil {
			return batch, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after 3 attempts: %w", lastErr)
}

func (c *Client) doListPage(ctx context.Context, reqURL, accessToken string) (batch []apiActivity, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("fetching activities: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, false, ErrTokenExpired
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, false, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("activities request failed (status %d)", resp.StatusCode)
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("activities request failed (status %d): %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, false, fmt.Errorf("decoding activities: %w", err)
	}
	return batch, false, nil
}

// sportMap translates the provider's sport_type vocabulary into the closed
// engine set. Variants of the same discipline collapse (virtual and e-bike
// rides count as rides).
var sportMap = map[string]engine.Sport{
	"Run":              engine.SportRun,
	"TrailRun":         engine.SportRun,
	"VirtualRun":       engine.SportRun,
	"Ride":             engine.SportRide,
	"VirtualRide":      engine.SportRide,
	"EBikeRide":        engine.SportRide,
	"GravelRide":       engine.SportRide,
	"MountainBikeRide": engine.SportRide,
	"Swim":             engine.SportSwim,
	"Hike":             engine.SportHike,
	"Walk":             engine.SportWalk,
	"Rowing":           engine.SportRow,
	"VirtualRow":       engine.SportRow,
	"NordicSki":        engine.SportSki,
	"BackcountrySki":   engine.SportSki,
	"Workout":          engine.SportWorkout,
	"WeightTraining":   engine.SportWorkout,
	"Crossfit":         engine.SportWorkout,
}

func normalize(a apiActivity) engine.Activity {
	sport, ok := sportMap[a.SportType]
	if !ok {
		sport = engine.SportOther
	}
	return engine.Activity{
		ID:             strconv.FormatInt(a.ID, 10),
		Name:           a.Name,
		Sport:          sport,
		DistanceMeters: a.Distance,
		MovingTimeSec:  a.MovingTime,
		ElapsedTimeSec: a.ElapsedTime,
		ElevationGainM: a.TotalElevationGain,
		StartedAt:      a.StartDate.UTC(),
	}
}
