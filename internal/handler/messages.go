package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sostenible-social/marketplace-chat/internal/middleware"
	"github.com/sostenible-social/marketplace-chat/internal/model"
	"github.com/sostenible-social/marketplace-chat/internal/service"
	"github.com/sostenible-social/marketplace-chat/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	service *service.MessageService
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service: svc,
		logger:  log,
	}
}

// List handles GET /api/v1/conversations/:id/messages. Returns the full
// durable history in order; a fresh call always recomputes it.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msgs, err := h.service.List(ctx, conversationID, callerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.ListMessagesResponse{
		Messages: msgs,
		Total:    len(msgs),
	})
}

// Send handles POST /api/v1/conversations/:id/messages. The REST counterpart
// of the socket send path; useful for clients retrying after a storage error.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.service.Append(ctx, conversationID, callerID, req.Content)
	if err != nil {
		h.logger.Error("failed to append message")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}
