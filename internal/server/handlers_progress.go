package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claude/paceboard/internal/engine"
	"github.com/claude/paceboard/internal/fetch"
	"github.com/claude/paceboard/internal/storage"
	"github.com/claude/paceboard/internal/timeframe"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// cardProgress is the response body for a single card's evaluation.
type cardProgress struct {
	CardID   uuid.UUID                               `json:"card_id"`
	Title    string                                  `json:"title"`
	Period   string                                  `json:"period"`
	Window   window                                  `json:"window"`
	Days     timeframe.Days                          `json:"days"`
	Totals   engine.Totals                           `json:"totals"`
	Progress map[engine.Metric]engine.ProgressMetric `json:"progress"`
}

type window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (s *Server) handleCardProgress(w http.ResponseWriter, r *http.Request) {
	card, ok := s.cardForViewer(w, r)
	if !ok {
		return
	}
	frame, err := card.Frame()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	now := time.Now()
	start, end := frame.Resolve(now)

	connections, err := s.db.ListConnectionsForDashboard(r.Context(), card.DashboardID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	sources := s.fetcher.FetchAll(r.Context(), targets(connections), start, end)
	pool, failures := engine.Combine(sources)
	if failures == nil {
		failures = []engine.SourceFailure{}
	}

	totals := engine.Aggregate(pool, start, end, card.SportSet())
	writeJSON(w, http.StatusOK, map[string]any{
		"card": cardProgress{
			CardID:   card.ID,
			Title:    card.Title,
			Period:   card.Period,
			Window:   window{Start: start, End: end},
			Days:     frame.DayCounts(now),
			Totals:   totals,
			Progress: engine.Progress(totals, card.Goal(), frame, now),
		},
		"source_failures": failures,
	})
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	dashboard, ok := s.dashboardForViewer(w, r)
	if !ok {
		return
	}
	cards, err := s.db.ListCards(r.Context(), dashboard.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	now := time.Now()
	type resolved struct {
		card  storage.Card
		frame timeframe.Frame
		start time.Time
		end   time.Time
	}
	var (
		frames    []resolved
		spanStart time.Time
		spanEnd   time.Time
	)
	for _, card := range cards {
		frame, err := card.Frame()
		if err != nil {
			// A stored card can only get here through a schema migration
			// gone wrong; skip it rather than failing the whole summary.
			s.log.Warn("skipping card with invalid frame", "card", card.ID, "error", err)
			continue
		}
		start, end := frame.Resolve(now)
		if spanStart.IsZero() || start.Before(spanStart) {
			spanStart = start
		}
		if end.After(spanEnd) {
			spanEnd = end
		}
		frames = append(frames, resolved{card: card, frame: frame, start: start, end: end})
	}

	out := []cardProgress{}
	failures := []engine.SourceFailure{}

	if len(frames) > 0 {
		connections, err := s.db.ListConnectionsForDashboard(r.Context(), dashboard.ID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		// One fetch spanning every card's window, then per-card filtering.
		sources := s.fetcher.FetchAll(r.Context(), targets(connections), spanStart, spanEnd)
		pool, fails := engine.Combine(sources)
		if fails != nil {
			failures = fails
		}

		for _, rc := range frames {
			totals := engine.Aggregate(pool, rc.start, rc.end, rc.card.SportSet())
			out = append(out, cardProgress{
				CardID:   rc.card.ID,
				Title:    rc.card.Title,
				Period:   rc.card.Period,
				Window:   window{Start: rc.start, End: rc.end},
				Days:     rc.frame.DayCounts(now),
				Totals:   totals,
				Progress: engine.Progress(totals, rc.card.Goal(), rc.frame, now),
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dashboard":       dashboard,
		"cards":           out,
		"source_failures": failures,
	})
}

func (s *Server) handleRecentActivities(w http.ResponseWriter, r *http.Request) {
	dashboardID, err := uuid.Parse(r.URL.Query().Get("dashboard"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "dashboard parameter required"})
		return
	}
	dashboard, ok := s.viewableDashboard(r.Context(), dashboardID, userIDFromContext(r))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "dashboard not found"})
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = string(timeframe.PeriodWeek)
	}
	frame, err := timeframe.Parse(period)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sports := engine.AllSports
	if raw := r.URL.Query().Get("sports"); raw != "" {
		sports = nil
		for _, s := range strings.Split(raw, ",") {
			sports = append(sports, engine.Sport(strings.TrimSpace(s)))
		}
	}

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = min(n, maxRecentLimit)
	}

	now := time.Now()
	start, end := frame.Resolve(now)

	connections, err := s.db.ListConnectionsForDashboard(r.Context(), dashboard.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	sources := s.fetcher.FetchAll(r.Context(), targets(connections), start, end)
	pool, failures := engine.Combine(sources)
	if failures == nil {
		failures = []engine.SourceFailure{}
	}

	recent := engine.Recent(pool, start, end, sports, limit)
	if recent == nil {
		recent = []engine.Activity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"activities":      recent,
		"window":          window{Start: start, End: end},
		"source_failures": failures,
	})
}

// targets converts stored connections into fetch targets.
func targets(connections []storage.Connection) []fetch.Target {
	out := make([]fetch.Target, len(connections))
	for i, c := range connections {
		t := fetch.Target{
			ID:           c.ID.String(),
			AccessToken:  c.AccessToken,
			RefreshToken: c.RefreshToken,
		}
		if c.TokenExpiry != nil {
			t.TokenExpiry = *c.TokenExpiry
		}
		out[i] = t
	}
	return out
}
