package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/telivi-ai/knowledge-assistant/internal/middleware"
	"github.com/telivi-ai/knowledge-assistant/internal/model"
	"github.com/telivi-ai/knowledge-assistant/internal/service"
	"github.com/telivi-ai/knowledge-assistant/pkg/logger"
)

// Reasons reported when a message is not accepted.
const (
	ReasonEmptyInput   = "empty_input"
	ReasonReplyPending = "reply_pending"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	workspaces *service.Workspaces
	logger     *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(ws *service.Workspaces, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		workspaces: ws,
		logger:     log,
	}
}

// Send handles POST /api/v1/messages. The message goes to the active
// session, or to a new one when none is active. The reply follows on the
// event stream.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ws := h.workspaces.Get(middleware.GetUserID(ctx))
	sub, err := ws.Send(ctx, req.Content)
	switch {
	case errors.Is(err, service.ErrEmptyInput):
		writeJSON(w, http.StatusOK, &model.SendMessageResponse{Reason: ReasonEmptyInput})
		return
	case errors.Is(err, service.ErrReplyPending):
		writeJSON(w, http.StatusOK, &model.SendMessageResponse{Reason: ReasonReplyPending})
		return
	case err != nil:
		h.logger.WithContext(middleware.GetCorrelationID(ctx), ws.UserID()).
			Error("failed to send message", zap.Error(err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, &model.SendMessageResponse{
		Accepted: true,
		Session:  sub.Session.ID,
		Message:  &sub.Message,
	})
}
