// Package service provides business logic for the marketplace chat core.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sostenible-social/marketplace-chat/internal/cache"
	"github.com/sostenible-social/marketplace-chat/internal/model"
	"github.com/sostenible-social/marketplace-chat/internal/store"
	"github.com/sostenible-social/marketplace-chat/pkg/logger"
	"github.com/sostenible-social/marketplace-chat/pkg/metrics"
)

const (
	defaultStoreTimeout  = 5 * time.Second
	conversationCacheTTL = time.Hour
)

// ConversationService resolves and reads conversations. The server is the
// sole authority for conversation identity: any key a client derives locally
// is a request parameter, never an id.
type ConversationService struct {
	store        store.Store
	cache        cache.Cache
	logger       *logger.Logger
	storeTimeout time.Duration
}

// NewConversationService creates a conversation service. cache may be nil.
func NewConversationService(st store.Store, c cache.Cache, log *logger.Logger, storeTimeout time.Duration) *ConversationService {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &ConversationService{
		store:        st,
		cache:        c,
		logger:       log,
		storeTimeout: storeTimeout,
	}
}

// Resolve finds or creates the single conversation for the unordered pair
// {callerID, otherID} and itemID. Idempotent and order-independent: concurrent
// and repeated calls all land on the same record, with the persistence layer's
// uniqueness constraint deciding creation races. The returned bool is true
// when this call created the conversation.
func (s *ConversationService) Resolve(ctx context.Context, callerID, otherID, itemID string) (*model.Conversation, bool, error) {
	if callerID == "" || otherID == "" {
		return nil, false, fmt.Errorf("%w: both participants are required", model.ErrInvalidRequest)
	}
	if callerID == otherID {
		return nil, false, fmt.Errorf("%w: cannot start a conversation with yourself", model.ErrInvalidRequest)
	}
	if itemID == "" {
		return nil, false, fmt.Errorf("%w: item_id is required", model.ErrInvalidRequest)
	}

	lo, hi := model.CanonicalPair(callerID, otherID)
	candidate := &model.Conversation{
		ID:            uuid.Must(uuid.NewV7()).String(),
		ItemID:        itemID,
		ParticipantLo: lo,
		ParticipantHi: hi,
		CreatedAt:     time.Now().UTC(),
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	conv, created, err := s.store.GetOrCreateConversation(storeCtx, candidate)
	if err != nil {
		return nil, false, err
	}

	metrics.RecordResolution(created)
	if created {
		s.logger.Info("conversation created",
			zap.String("conversation_id", conv.ID),
			zap.String("item_id", conv.ItemID),
		)
	}
	return conv, created, nil
}

// Get returns the conversation if requesterID participates in it.
func (s *ConversationService) Get(ctx context.Context, requesterID, conversationID string) (*model.Conversation, error) {
	conv, err := s.lookup(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(requesterID) {
		return nil, model.ErrForbidden
	}
	return conv, nil
}

// List returns every conversation the user participates in, newest first.
func (s *ConversationService) List(ctx context.Context, userID string) ([]model.Conversation, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.store.ListConversationsByParticipant(storeCtx, userID)
}

// lookup fetches a conversation by id, reading through the cache when one is
// configured. Conversations are immutable, so cached copies never go stale.
func (s *ConversationService) lookup(ctx context.Context, conversationID string) (*model.Conversation, error) {
	key := "conv:" + conversationID

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var conv model.Conversation
			if err := json.Unmarshal([]byte(raw), &conv); err == nil {
				return &conv, nil
			}
		}
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	conv, err := s.store.GetConversation(storeCtx, conversationID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(conv); err == nil {
			if err := s.cache.Set(ctx, key, string(raw), conversationCacheTTL); err != nil {
				s.logger.Warn("conversation cache set failed", zap.Error(err))
			}
		}
	}
	return conv, nil
}
