package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/paceboard/internal/engine"
	"github.com/claude/paceboard/internal/fetch"
	"github.com/claude/paceboard/internal/timeframe"
)

// frameFromArgs builds a time frame from tool arguments. Explicit start/end
// dates take precedence and form a custom frame; otherwise the period name
// is parsed, defaulting to the current week.
func frameFromArgs(period, startStr, endStr string) (timeframe.Frame, error) {
	if startStr != "" || endStr != "" {
		if startStr == "" || endStr == "" {
			return timeframe.Frame{}, fmt.Errorf("custom range requires both start and end")
		}
		start, err := parseFlexTime(startStr)
		if err != nil {
			return timeframe.Frame{}, fmt.Errorf("invalid start: %w", err)
		}
		end, err := parseFlexTime(endStr)
		if err != nil {
			return timeframe.Frame{}, fmt.Errorf("invalid end: %w", err)
		}
		if end.Before(start) {
			return timeframe.Frame{}, fmt.Errorf("end precedes start")
		}
		return timeframe.Custom(start, end), nil
	}
	if period == "" {
		period = string(timeframe.PeriodWeek)
	}
	return timeframe.Parse(period)
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// sportsFromArg parses the comma-separated sport filter. An empty filter
// accepts every category.
func sportsFromArg(raw string) []engine.Sport {
	if raw == "" {
		return engine.AllSports
	}
	var out []engine.Sport
	for _, s := range strings.Split(raw, ",") {
		out = append(out, engine.Sport(strings.TrimSpace(s)))
	}
	return out
}

// goalFromArgs builds a sparse goal from the numeric tool arguments.
func goalFromArgs(req mcp.CallToolRequest) engine.Goal {
	var g engine.Goal
	if v := req.GetFloat("goal_distance_km", 0); v > 0 {
		m := v * 1000
		g.DistanceMeters = &m
	}
	if v := req.GetInt("goal_count", 0); v > 0 {
		g.Count = &v
	}
	if v := req.GetFloat("goal_elevation_m", 0); v > 0 {
		g.ElevationM = &v
	}
	if v := req.GetFloat("goal_time_hours", 0); v > 0 {
		sec := int64(v * 3600)
		g.TimeSec = &sec
	}
	return g
}

// --- Tool definitions ---

var toolGetGoalProgress = mcp.NewTool("get_goal_progress",
	mcp.WithDescription("Evaluate goal progress over a time frame. Pass card_id to evaluate a saved card, or dashboard_id plus an explicit frame and goal targets. Returns per-metric current value, remainder, required daily pace, and percentage."),
	mcp.WithString("card_id", mcp.Description("Card UUID. When set, the card's stored frame, sports, and goals are used.")),
	mcp.WithString("dashboard_id", mcp.Description("Dashboard UUID. Required when card_id is not set; selects whose connections to aggregate.")),
	mcp.WithString("period", mcp.Description("Time frame name. Defaults to 'week'."), mcp.Enum("day", "week", "month", "year", "all_time")),
	mcp.WithString("start", mcp.Description("Custom range start (ISO 8601 or YYYY-MM-DD). Overrides period; requires end.")),
	mcp.WithString("end", mcp.Description("Custom range end (ISO 8601 or YYYY-MM-DD).")),
	mcp.WithString("sports", mcp.Description("Comma-separated sport filter (e.g. 'Run,Ride'). Empty accepts all sports.")),
	mcp.WithNumber("goal_distance_km", mcp.Description("Distance target in kilometers")),
	mcp.WithNumber("goal_count", mcp.Description("Activity count target")),
	mcp.WithNumber("goal_elevation_m", mcp.Description("Elevation gain target in meters")),
	mcp.WithNumber("goal_time_hours", mcp.Description("Moving time target in hours")),
)

var toolGetActivityTotals = mcp.NewTool("get_activity_totals",
	mcp.WithDescription("Aggregate activity totals (count, distance, moving time, elevation gain) over a time frame across a dashboard's connected accounts."),
	mcp.WithString("dashboard_id", mcp.Required(), mcp.Description("Dashboard UUID")),
	mcp.WithString("period", mcp.Description("Time frame name. Defaults to 'week'."), mcp.Enum("day", "week", "month", "year", "all_time")),
	mcp.WithString("start", mcp.Description("Custom range start. Overrides period; requires end.")),
	mcp.WithString("end", mcp.Description("Custom range end.")),
	mcp.WithString("sports", mcp.Description("Comma-separated sport filter. Empty accepts all sports.")),
)

var toolComparePeriods = mcp.NewTool("compare_periods",
	mcp.WithDescription("Compare activity totals between two explicit date ranges (e.g. this week vs last week)."),
	mcp.WithString("dashboard_id", mcp.Required(), mcp.Description("Dashboard UUID")),
	mcp.WithString("period_a_start", mcp.Required(), mcp.Description("Period A start date")),
	mcp.WithString("period_a_end", mcp.Required(), mcp.Description("Period A end date")),
	mcp.WithString("period_b_start", mcp.Required(), mcp.Description("Period B start date")),
	mcp.WithString("period_b_end", mcp.Required(), mcp.Description("Period B end date")),
	mcp.WithString("sports", mcp.Description("Comma-separated sport filter. Empty accepts all sports.")),
)

var toolListDashboards = mcp.NewTool("list_dashboards",
	mcp.WithDescription("List the user's dashboards, including shared group dashboards."),
)

// --- Tool handlers ---

// evaluation is one resolved window's aggregate across a dashboard's
// connections.
type evaluation struct {
	start    time.Time
	end      time.Time
	totals   engine.Totals
	failures []engine.SourceFailure
}

func (h *handlers) evaluate(ctx context.Context, dashboardID uuid.UUID, frame timeframe.Frame, sports []engine.Sport, now time.Time) (evaluation, error) {
	start, end := frame.Resolve(now)

	connections, err := h.db.ListConnectionsForDashboard(ctx, dashboardID)
	if err != nil {
		return evaluation{}, fmt.Errorf("listing connections: %w", err)
	}
	targets := make([]fetch.Target, len(connections))
	for i, c := range connections {
		targets[i] = fetch.Target{
			ID:           c.ID.String(),
			AccessToken:  c.AccessToken,
			RefreshToken: c.RefreshToken,
		}
		if c.TokenExpiry != nil {
			targets[i].TokenExpiry = *c.TokenExpiry
		}
	}

	sources := h.fetcher.FetchAll(ctx, targets, start, end)
	pool, failures := engine.Combine(sources)
	if failures == nil {
		failures = []engine.SourceFailure{}
	}
	return evaluation{
		start:    start,
		end:      end,
		totals:   engine.Aggregate(pool, start, end, sports),
		failures: failures,
	}, nil
}

// viewableDashboard loads a dashboard if the user owns it or belongs to its
// group.
func (h *handlers) viewableDashboard(ctx context.Context, id uuid.UUID, userID int) (bool, error) {
	dashboard, err := h.db.GetDashboard(ctx, id)
	if err != nil {
		return false, err
	}
	if dashboard.OwnerID == userID {
		return true, nil
	}
	if dashboard.GroupID != nil {
		member, err := h.db.IsGroupMember(ctx, *dashboard.GroupID, userID)
		if err == nil && member {
			return true, nil
		}
	}
	return false, nil
}

func (h *handlers) getGoalProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)
	now := time.Now()

	var (
		dashboardID uuid.UUID
		frame       timeframe.Frame
		goal        engine.Goal
		sports      []engine.Sport
	)

	if cardIDStr := req.GetString("card_id", ""); cardIDStr != "" {
		cardID, err := uuid.Parse(cardIDStr)
		if err != nil {
			return mcp.NewToolResultError("invalid card_id"), nil
		}
		card, err := h.db.GetCard(ctx, cardID)
		if err != nil {
			return mcp.NewToolResultError("card not found"), nil
		}
		frame, err = card.Frame()
		if err != nil {
			return mcp.NewToolResultError("card has no valid time frame: " + err.Error()), nil
		}
		dashboardID = card.DashboardID
		goal = card.Goal()
		sports = card.SportSet()
	} else {
		dashStr, err := req.RequireString("dashboard_id")
		if err != nil {
			return mcp.NewToolResultError("dashboard_id is required when card_id is not set"), nil
		}
		dashboardID, err = uuid.Parse(dashStr)
		if err != nil {
			return mcp.NewToolResultError("invalid dashboard_id"), nil
		}
		frame, err = frameFromArgs(req.GetString("period", ""), req.GetString("start", ""), req.GetString("end", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		goal = goalFromArgs(req)
		if goal.IsZero() {
			return mcp.NewToolResultError("at least one goal parameter is required"), nil
		}
		sports = sportsFromArg(req.GetString("sports", ""))
	}

	ok, err := h.viewableDashboard(ctx, dashboardID, uid)
	if err != nil || !ok {
		return mcp.NewToolResultError("dashboard not found"), nil
	}

	ev, err := h.evaluate(ctx, dashboardID, frame, sports, now)
	if err != nil {
		h.log.Error("mcp get_goal_progress", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"window":          map[string]time.Time{"start": ev.start, "end": ev.end},
		"days":            frame.DayCounts(now),
		"totals":          ev.totals,
		"progress":        engine.Progress(ev.totals, goal, frame, now),
		"source_failures": ev.failures,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getActivityTotals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)

	dashStr, err := req.RequireString("dashboard_id")
	if err != nil {
		return mcp.NewToolResultError("dashboard_id parameter is required"), nil
	}
	dashboardID, err := uuid.Parse(dashStr)
	if err != nil {
		return mcp.NewToolResultError("invalid dashboard_id"), nil
	}
	frame, err := frameFromArgs(req.GetString("period", ""), req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ok, err := h.viewableDashboard(ctx, dashboardID, uid)
	if err != nil || !ok {
		return mcp.NewToolResultError("dashboard not found"), nil
	}

	ev, err := h.evaluate(ctx, dashboardID, frame, sportsFromArg(req.GetString("sports", "")), time.Now())
	if err != nil {
		h.log.Error("mcp get_activity_totals", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"window":          map[string]time.Time{"start": ev.start, "end": ev.end},
		"totals":          ev.totals,
		"source_failures": ev.failures,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) comparePeriods(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)

	dashStr, err := req.RequireString("dashboard_id")
	if err != nil {
		return mcp.NewToolResultError("dashboard_id parameter is required"), nil
	}
	dashboardID, err := uuid.Parse(dashStr)
	if err != nil {
		return mcp.NewToolResultError("invalid dashboard_id"), nil
	}

	frameA, err := frameFromArgs("", req.GetString("period_a_start", ""), req.GetString("period_a_end", ""))
	if err != nil {
		return mcp.NewToolResultError("period A: " + err.Error()), nil
	}
	frameB, err := frameFromArgs("", req.GetString("period_b_start", ""), req.GetString("period_b_end", ""))
	if err != nil {
		return mcp.NewToolResultError("period B: " + err.Error()), nil
	}

	ok, err := h.viewableDashboard(ctx, dashboardID, uid)
	if err != nil || !ok {
		return mcp.NewToolResultError("dashboard not found"), nil
	}

	now := time.Now()
	sports := sportsFromArg(req.GetString("sports", ""))

	evA, err := h.evaluate(ctx, dashboardID, frameA, sports, now)
	if err != nil {
		h.log.Error("mcp compare_periods A", "error", err)
		return mcp.NewToolResultError("query failed for period A: " + err.Error()), nil
	}
	evB, err := h.evaluate(ctx, dashboardID, frameB, sports, now)
	if err != nil {
		h.log.Error("mcp compare_periods B", "error", err)
		return mcp.NewToolResultError("query failed for period B: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"period_a": map[string]any{
			"window": map[string]time.Time{"start": evA.start, "end": evA.end},
			"totals": evA.totals,
		},
		"period_b": map[string]any{
			"window": map[string]time.Time{"start": evB.start, "end": evB.end},
			"totals": evB.totals,
		},
		"delta": map[string]any{
			"count":            evA.totals.Count - evB.totals.Count,
			"distance_meters":  evA.totals.DistanceMeters - evB.totals.DistanceMeters,
			"moving_time_sec":  evA.totals.MovingTimeSec - evB.totals.MovingTimeSec,
			"elevation_gain_m": evA.totals.ElevationGainM - evB.totals.ElevationGainM,
		},
		"source_failures": append(evA.failures, evB.failures...),
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listDashboards(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dashboards, err := h.db.ListDashboards(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp list_dashboards", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(dashboards)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// --- Resource handlers ---

func (h *handlers) dashboardSummary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)

	dashboards, err := h.db.ListDashboards(ctx, uid)
	if err != nil {
		return nil, err
	}

	type entry struct {
		Dashboard any `json:"dashboard"`
		Cards     any `json:"cards"`
	}
	entries := make([]entry, 0, len(dashboards))
	for _, d := range dashboards {
		cards, err := h.db.ListCards(ctx, d.ID)
		if err != nil {
			h.log.Warn("dashboard_summary: card query failed", "dashboard", d.ID, "error", err)
			continue
		}
		entries = append(entries, entry{Dashboard: d, Cards: cards})
	}

	data, err := json.Marshal(map[string]any{"dashboards": entries})
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
