package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/telivi-ai/knowledge-assistant/internal/middleware"
	"github.com/telivi-ai/knowledge-assistant/internal/model"
	"github.com/telivi-ai/knowledge-assistant/internal/service"
	"github.com/telivi-ai/knowledge-assistant/pkg/logger"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// ActivitySource reads back recent events for the activity feed.
type ActivitySource interface {
	RecentEvents(ctx context.Context, userID string, limit int) ([]model.ChatEvent, error)
}

// ActivityResponse is the response of the activity feed.
type ActivityResponse struct {
	Enabled bool              `json:"enabled"`
	Events  []model.ChatEvent `json:"events"`
}

// AdminHandler handles the admin dashboard endpoints.
type AdminHandler struct {
	directory *service.Directory
	analytics *service.Analytics
	activity  ActivitySource
	logger    *logger.Logger
}

// NewAdminHandler creates a new admin handler. activity may be nil when
// the event log is disabled.
func NewAdminHandler(dir *service.Directory, an *service.Analytics, activity ActivitySource, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		directory: dir,
		analytics: an,
		activity:  activity,
		logger:    log,
	}
}

// recordID reads and validates the {id} URL parameter.
func recordID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateRecordID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

// ListUsers handles GET /api/v1/admin/users?q=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.directory.Users(r.URL.Query().Get("q")))
}

// GetUser handles GET /api/v1/admin/users/{id}
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	u, err := h.directory.User(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// CreateUser handles POST /api/v1/admin/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.UserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.directory.CreateUser(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// UpdateUser handles PUT /api/v1/admin/users/{id}
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	var req model.UserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.directory.UpdateUser(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ToggleUser handles POST /api/v1/admin/users/{id}/toggle
func (h *AdminHandler) ToggleUser(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	u, err := h.directory.ToggleUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// DeleteUser handles DELETE /api/v1/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	if err := h.directory.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTeams handles GET /api/v1/admin/teams?q=
func (h *AdminHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.directory.Teams(r.URL.Query().Get("q")))
}

// GetTeam handles GET /api/v1/admin/teams/{id}
func (h *AdminHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	t, err := h.directory.Team(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateTeam handles POST /api/v1/admin/teams
func (h *AdminHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req model.TeamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.directory.CreateTeam(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// UpdateTeam handles PUT /api/v1/admin/teams/{id}
func (h *AdminHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	var req model.TeamRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.directory.UpdateTeam(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTeam handles DELETE /api/v1/admin/teams/{id}
func (h *AdminHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	if err := h.directory.DeleteTeam(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListConnections handles GET /api/v1/admin/connections
func (h *AdminHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.directory.Connections())
}

// ConnectionTypes handles GET /api/v1/admin/connection-types
func (h *AdminHandler) ConnectionTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, service.ConnectionTypes())
}

// GetConnection handles GET /api/v1/admin/connections/{id}
func (h *AdminHandler) GetConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	c, err := h.directory.Connection(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// AddConnection handles POST /api/v1/admin/connections
func (h *AdminHandler) AddConnection(w http.ResponseWriter, r *http.Request) {
	var req model.ConnectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.directory.AddConnection(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ToggleConnection handles POST /api/v1/admin/connections/{id}/toggle
func (h *AdminHandler) ToggleConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	c, err := h.directory.ToggleConnection(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// SyncConnection handles POST /api/v1/admin/connections/{id}/sync
func (h *AdminHandler) SyncConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	c, err := h.directory.SyncConnection(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, c)
}

// RemoveConnection handles DELETE /api/v1/admin/connections/{id}
func (h *AdminHandler) RemoveConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	if err := h.directory.RemoveConnection(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Analytics handles GET /api/v1/admin/analytics?range=
func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.analytics.Summary(model.TimeRange(r.URL.Query().Get("range"))))
}

// Activity handles GET /api/v1/admin/activity?limit=&user=
func (h *AdminHandler) Activity(w http.ResponseWriter, r *http.Request) {
	if h.activity == nil {
		writeJSON(w, http.StatusOK, &ActivityResponse{Events: []model.ChatEvent{}})
		return
	}

	limit := defaultActivityLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxActivityLimit {
			limit = parsed
		}
	}

	events, err := h.activity.RecentEvents(r.Context(), r.URL.Query().Get("user"), limit)
	if err != nil {
		ctx := r.Context()
		h.logger.WithContext(middleware.GetCorrelationID(ctx), middleware.GetUserID(ctx)).
			Error("failed to read activity", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to read activity")
		return
	}
	writeJSON(w, http.StatusOK, &ActivityResponse{Enabled: true, Events: events})
}
