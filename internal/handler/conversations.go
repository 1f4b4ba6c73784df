// Package handler provides HTTP handlers for the API.
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

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

// Resolve handles POST /api/v1/conversations. Returns 200 with the existing
// conversation or 201 when this request created it.
func (h *ConversationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := middleware.GetUserID(ctx)

	var req model.ResolveConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateUserID(req.OtherUserID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateItemID(req.ItemID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, created, err := h.service.Resolve(ctx, callerID, req.OtherUserID, req.ItemID)
	if err != nil {
		h.logger.Error("failed to resolve conversation")
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, conv)
}

// List handles GET /api/v1/conversations.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := middleware.GetUserID(ctx)

	convs, err := h.service.List(ctx, callerID)
	if err != nil {
		h.logger.Error("failed to list conversations")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.ListConversationsResponse{
		Conversations: convs,
		Total:         len(convs),
	})
}

// Get handles GET /api/v1/conversations/:id
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.Get(ctx, callerID, conversationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}
