package handler

import (
	"net/http"

	"github.com/telivi-ai/knowledge-assistant/internal/middleware"
	"github.com/telivi-ai/knowledge-assistant/internal/model"
	"github.com/telivi-ai/knowledge-assistant/internal/service"
)

// WorkspaceHandler serves workspace state, view toggles and settings.
type WorkspaceHandler struct {
	workspaces *service.Workspaces
}

// NewWorkspaceHandler creates a new workspace handler.
func NewWorkspaceHandler(ws *service.Workspaces) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: ws}
}

// State handles GET /api/v1/state
func (h *WorkspaceHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.workspaces.Get(middleware.GetUserID(r.Context())).State())
}

// View handles GET /api/v1/view
func (h *WorkspaceHandler) View(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.workspaces.Get(middleware.GetUserID(r.Context())).View())
}

// UpdateView handles PUT /api/v1/view
func (h *WorkspaceHandler) UpdateView(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateViewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.workspaces.Get(middleware.GetUserID(r.Context())).UpdateView(&req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Settings handles GET /api/v1/settings
func (h *WorkspaceHandler) Settings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.workspaces.Get(middleware.GetUserID(r.Context())).Settings())
}

// UpdateSettings handles PUT /api/v1/settings
func (h *WorkspaceHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req model.Settings
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidatePrompt(req.AssistantPrompt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	settings, err := h.workspaces.Get(middleware.GetUserID(r.Context())).UpdateSettings(req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
