package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/telivi-ai/knowledge-assistant/internal/middleware"
	"github.com/telivi-ai/knowledge-assistant/internal/model"
	"github.com/telivi-ai/knowledge-assistant/internal/service"
	"github.com/telivi-ai/knowledge-assistant/pkg/logger"
)

// SessionHandler handles the chat session endpoints.
type SessionHandler struct {
	workspaces *service.Workspaces
	logger     *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(ws *service.Workspaces, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		workspaces: ws,
		logger:     log,
	}
}

// List handles GET /api/v1/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ws := h.workspaces.Get(middleware.GetUserID(r.Context()))

	writeJSON(w, http.StatusOK, &model.ListSessionsResponse{
		Sessions: ws.Sessions(),
		ActiveID: ws.State().ActiveID,
	})
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, ok := h.workspaces.Get(middleware.GetUserID(r.Context())).Session(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// Active handles GET /api/v1/sessions/active
func (h *SessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.workspaces.Get(middleware.GetUserID(r.Context())).Active()
	if !ok {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// SetActive handles PUT /api/v1/sessions/active
func (h *SessionHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req model.SetActiveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateSessionID(req.ID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ws := h.workspaces.Get(middleware.GetUserID(r.Context()))
	if !ws.SelectSession(r.Context(), req.ID) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	h.logger.Debug("active session changed",
		zap.String("user_id", ws.UserID()),
		zap.String("session_id", req.ID),
	)

	sess, _ := ws.Session(req.ID)
	writeJSON(w, http.StatusOK, sess)
}

// NewChat handles POST /api/v1/sessions/new
func (h *SessionHandler) NewChat(w http.ResponseWriter, r *http.Request) {
	ws := h.workspaces.Get(middleware.GetUserID(r.Context()))
	ws.StartNewChat(r.Context())

	writeJSON(w, http.StatusOK, ws.State())
}
