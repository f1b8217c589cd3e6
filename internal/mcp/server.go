// Package mcp exposes goal progress and activity totals to MCP clients so
// conversational tools can answer "am I on track" questions directly.
package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/paceboard/internal/fetch"
	"github.com/claude/paceboard/internal/storage"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(db *storage.DB, fetcher *fetch.Fetcher, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("Paceboard", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Paceboard activity dashboard server. Query goal progress, activity totals over calendar or custom time frames, and period comparisons. All data is scoped to the authenticated user."),
	)

	h := &handlers{db: db, fetcher: fetcher, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetGoalProgress, Handler: h.getGoalProgress},
		server.ServerTool{Tool: toolGetActivityTotals, Handler: h.getActivityTotals},
		server.ServerTool{Tool: toolComparePeriods, Handler: h.comparePeriods},
		server.ServerTool{Tool: toolListDashboards, Handler: h.listDashboards},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resDashboardSummary, Handler: h.dashboardSummary},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	db      *storage.DB
	fetcher *fetch.Fetcher
	log     *slog.Logger
}

// --- Resource definitions ---

var resDashboardSummary = mcp.NewResource(
	"paceboard://dashboard_summary",
	"Dashboard Summary",
	mcp.WithResourceDescription("The user's dashboards with their cards, configured time frames, and goal targets"),
	mcp.WithMIMEType("application/json"),
)
