package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/claude/paceboard/internal/storage"
	"github.com/claude/paceboard/internal/timeframe"
)

const defaultInviteTTL = 72 * time.Hour

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	info := userInfoFromContext(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      userIDFromContext(r),
		"login":        info.Login,
		"display_name": info.DisplayName,
	})
}

func (s *Server) handleListDashboards(w http.ResponseWriter, r *http.Request) {
	dashboards, err := s.db.ListDashboards(r.Context(), userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if dashboards == nil {
		dashboards = []storage.Dashboard{}
	}
	writeJSON(w, http.StatusOK, dashboards)
}

func (s *Server) handleCreateDashboard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string     `json:"name"`
		GroupID *uuid.UUID `json:"group_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	userID := userIDFromContext(r)
	if req.GroupID != nil {
		member, err := s.db.IsGroupMember(r.Context(), *req.GroupID, userID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if !member {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "not a group member"})
			return
		}
	}

	id, err := s.db.CreateDashboard(r.Context(), storage.Dashboard{
		OwnerID: userID,
		Name:    req.Name,
		GroupID: req.GroupID,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, ok := s.dashboardForViewer(w, r)
	if !ok {
		return
	}

	cards, err := s.db.ListCards(r.Context(), dashboard.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if cards == nil {
		cards = []storage.Card{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"dashboard": dashboard,
		"cards":     cards,
	})
}

func (s *Server) handleRenameDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dashboard ID"})
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}
	if err := s.db.RenameDashboard(r.Context(), id, userIDFromContext(r), req.Name); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "dashboard not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

func (s *Server) handleDeleteDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dashboard ID"})
		return
	}
	if err := s.db.DeleteDashboard(r.Context(), id, userIDFromContext(r)); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "dashboard not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// cardPayload is the create/update request body for a card.
type cardPayload struct {
	Title       string     `json:"title"`
	Period      string     `json:"period"`
	CustomStart *time.Time `json:"custom_start"`
	CustomEnd   *time.Time `json:"custom_end"`
	Sports      []string   `json:"sports"`
	GoalDistM   *float64   `json:"goal_distance_m"`
	GoalCount   *int       `json:"goal_count"`
	GoalElevM   *float64   `json:"goal_elevation_m"`
	GoalTimeSec *int64     `json:"goal_time_sec"`
	Position    int        `json:"position"`
}

func (p cardPayload) validate() error {
	if p.Title == "" {
		return errors.New("title required")
	}
	if timeframe.Period(p.Period) == timeframe.PeriodCustom {
		if p.CustomStart == nil || p.CustomEnd == nil {
			return errors.New("custom period requires custom_start and custom_end")
		}
		if p.CustomEnd.Before(*p.CustomStart) {
			return errors.New("custom_end must not precede custom_start")
		}
		return nil
	}
	_, err := timeframe.Parse(p.Period)
	return err
}

func (p cardPayload) card() storage.Card {
	sports := p.Sports
	if sports == nil {
		sports = []string{}
	}
	return storage.Card{
		Title:       p.Title,
		Period:      p.Period,
		CustomStart: p.CustomStart,
		CustomEnd:   p.CustomEnd,
		Sports:      sports,
		GoalDistM:   p.GoalDistM,
		GoalCount:   p.GoalCount,
		GoalElevM:   p.GoalElevM,
		GoalTimeSec: p.GoalTimeSec,
		Position:    p.Position,
	}
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	dashboard, ok := s.dashboardForViewer(w, r)
	if !ok {
		return
	}

	var payload cardPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := payload.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	card := payload.card()
	card.DashboardID = dashboard.ID
	id, err := s.db.InsertCard(r.Context(), card)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	card, ok := s.cardForViewer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	existing, ok := s.cardForViewer(w, r)
	if !ok {
		return
	}

	var payload cardPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := payload.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	card := payload.card()
	card.ID = existing.ID
	card.DashboardID = existing.DashboardID
	if err := s.db.UpdateCard(r.Context(), card); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	card, ok := s.cardForViewer(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteCard(r.Context(), card.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}
	id, err := s.db.CreateGroup(r.Context(), req.Name, userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid group ID"})
		return
	}
	member, err := s.db.IsGroupMember(r.Context(), id, userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !member {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not a group member"})
		return
	}

	group, err := s.db.GetGroup(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "group not found"})
		return
	}
	members, err := s.db.ListGroupMembers(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"group":   group,
		"members": members,
	})
}

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid group ID"})
		return
	}
	userID := userIDFromContext(r)
	member, err := s.db.IsGroupMember(r.Context(), id, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !member {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not a group member"})
		return
	}

	ttl := defaultInviteTTL
	var req struct {
		TTLHours int `json:"ttl_hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.TTLHours > 0 {
		ttl = time.Duration(req.TTLHours) * time.Hour
	}

	invite, err := s.db.CreateInvite(r.Context(), id, userID, ttl)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, invite)
}

func (s *Server) handleRedeemInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code required"})
		return
	}
	groupID, err := s.db.RedeemInvite(r.Context(), req.Code, userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "invite not valid"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group_id": groupID})
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	connections, err := s.db.ListConnectionsByUser(r.Context(), userIDFromContext(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if connections == nil {
		connections = []storage.Connection{}
	}
	writeJSON(w, http.StatusOK, connections)
}

func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider     string `json:"provider"`
		AthleteID    string `json:"athlete_id"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.AthleteID == "" || req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "athlete_id and refresh_token required"})
		return
	}
	if req.Provider == "" {
		req.Provider = "strava"
	}

	id, err := s.db.InsertConnection(r.Context(), storage.Connection{
		UserID:       userIDFromContext(r),
		Provider:     req.Provider,
		AthleteID:    req.AthleteID,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid connection ID"})
		return
	}
	if err := s.db.DeleteConnection(r.Context(), id, userIDFromContext(r)); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "connection not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// dashboardForViewer loads the {id} dashboard and checks the caller may see
// it: the owner always, group members when the dashboard is shared. Writes
// the error response itself when the answer is no.
func (s *Server) dashboardForViewer(w http.ResponseWriter, r *http.Request) (*storage.Dashboard, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dashboard ID"})
		return nil, false
	}
	dashboard, ok := s.viewableDashboard(r.Context(), id, userIDFromContext(r))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "dashboard not found"})
		return nil, false
	}
	return dashboard, true
}

// viewableDashboard loads a dashboard and answers whether userID may see
// it: the owner always, group members when the dashboard is shared.
func (s *Server) viewableDashboard(ctx context.Context, id uuid.UUID, userID int) (*storage.Dashboard, bool) {
	dashboard, err := s.db.GetDashboard(ctx, id)
	if err != nil {
		return nil, false
	}
	if dashboard.OwnerID == userID {
		return dashboard, true
	}
	if dashboard.GroupID != nil {
		member, err := s.db.IsGroupMember(ctx, *dashboard.GroupID, userID)
		if err == nil && member {
			return dashboard, true
		}
	}
	return nil, false
}

// cardForViewer loads the {id} card and applies the dashboard visibility
// rules to it.
func (s *Server) cardForViewer(w http.ResponseWriter, r *http.Request) (*storage.Card, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid card ID"})
		return nil, false
	}
	card, err := s.db.GetCard(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "card not found"})
		return nil, false
	}
	if _, ok := s.viewableDashboard(r.Context(), card.DashboardID, userIDFromContext(r)); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "card not found"})
		return nil, false
	}
	return card, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
