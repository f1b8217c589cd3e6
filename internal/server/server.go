package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"tailscale.com/client/local"

	"github.com/claude/paceboard/internal/fetch"
	"github.com/claude/paceboard/internal/mcp"
	"github.com/claude/paceboard/internal/storage"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       *storage.DB
	fetcher  *fetch.Fetcher
	log      *slog.Logger
	apiKey   string
	router   chi.Router
	identity func(http.Handler) http.Handler
}

// New creates a new Server with all routes configured. Identity defaults to
// the local-development middleware; SetTailscale switches it to WhoIs.
func New(db *storage.DB, fetcher *fetch.Fetcher, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:       db,
		fetcher:  fetcher,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
		identity: DevIdentity,
	}
	s.routes()
	return s
}

// SetMCP mounts the MCP streamable HTTP handler at /mcp, forwarding the
// identity resolved by this server's middleware.
func (s *Server) SetMCP(h http.Handler) {
	s.router.Mount("/mcp", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := mcp.WithUserID(r.Context(), userIDFromContext(r))
		h.ServeHTTP(w, r.WithContext(ctx))
	}))
}

// SetTailscale switches identity resolution to tailnet WhoIs lookups.
func (s *Server) SetTailscale(lc *local.Client) {
	s.identity = TailscaleIdentity(lc, s.db, s.log)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.identity(s.router).ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", s.handleMe)

		// Read endpoints (no auth — tsnet handles access)
		r.Get("/dashboards", s.handleListDashboards)
		r.Get("/dashboards/{id}", s.handleGetDashboard)
		r.Get("/dashboards/{id}/summary", s.handleDashboardSummary)
		r.Get("/cards/{id}", s.handleGetCard)
		r.Get("/cards/{id}/progress", s.handleCardProgress)
		r.Get("/activities/recent", s.handleRecentActivities)
		r.Get("/connections", s.handleListConnections)
		r.Get("/groups/{id}", s.handleGetGroup)

		// Mutating endpoints (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/dashboards", s.handleCreateDashboard)
			r.Put("/dashboards/{id}", s.handleRenameDashboard)
			r.Delete("/dashboards/{id}", s.handleDeleteDashboard)
			r.Post("/dashboards/{id}/cards", s.handleCreateCard)
			r.Put("/cards/{id}", s.handleUpdateCard)
			r.Delete("/cards/{id}", s.handleDeleteCard)
			r.Post("/groups", s.handleCreateGroup)
			r.Post("/groups/{id}/invites", s.handleCreateInvite)
			r.Post("/invites/redeem", s.handleRedeemInvite)
			r.Post("/connections", s.handleCreateConnection)
			r.Delete("/connections/{id}", s.handleDeleteConnection)
		})
	})
}
