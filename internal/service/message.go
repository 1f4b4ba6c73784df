package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sostenible-social/marketplace-chat/internal/model"
	"github.com/sostenible-social/marketplace-chat/internal/store"
	"github.com/sostenible-social/marketplace-chat/pkg/logger"
	"github.com/sostenible-social/marketplace-chat/pkg/metrics"
)

// Broadcaster fans a persisted message out to the conversation's live
// subscribers. Implemented by realtime.Hub; fan-out is best effort and its
// result never affects the append.
type Broadcaster interface {
	Publish(conversationID string, msg *model.Message) int
}

// MessageService is the single write and read path for message history.
// Durability happens-before delivery: the broadcaster only ever sees
// messages the store has already persisted. Publish order across concurrent
// senders is not serialized against store order; history reads are.
type MessageService struct {
	store         store.Store
	conversations *ConversationService
	broadcaster   Broadcaster
	logger        *logger.Logger
	storeTimeout  time.Duration
}

// NewMessageService creates a message service. broadcaster may be nil, in
// which case appends persist without realtime fan-out.
func NewMessageService(st store.Store, convs *ConversationService, b Broadcaster, log *logger.Logger, storeTimeout time.Duration) *MessageService {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &MessageService{
		store:         st,
		conversations: convs,
		broadcaster:   b,
		logger:        log,
		storeTimeout:  storeTimeout,
	}
}

// Append validates, persists, and fans out one message. The sender must be a
// verified participant of the conversation; the identity comes from the
// credential layer, never from a client-supplied field.
func (s *MessageService) Append(ctx context.Context, conversationID, senderID, content string) (*model.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: content cannot be empty", model.ErrInvalidRequest)
	}

	conv, err := s.conversations.lookup(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, model.ErrForbidden
	}

	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	stored, err := s.store.AppendMessage(storeCtx, msg)
	if err != nil {
		return nil, err
	}
	metrics.MessagesAppended.Inc()

	if s.broadcaster != nil {
		delivered := s.broadcaster.Publish(conversationID, stored)
		s.logger.Debug("message fanned out",
			zap.String("message_id", stored.ID),
			zap.String("conversation_id", conversationID),
			zap.Int("delivered", delivered),
		)
	}
	return stored, nil
}

// List returns the conversation's full durable history in (created_at, seq)
// order. Requires requesterID to be a participant.
func (s *MessageService) List(ctx context.Context, conversationID, requesterID string) ([]model.Message, error) {
	conv, err := s.conversations.lookup(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(requesterID) {
		return nil, model.ErrForbidden
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	return s.store.ListMessages(storeCtx, conversationID)
}
