package store

import (
	"context"
	"sort"
	"sync"

	"github.com/sostenible-social/marketplace-chat/internal/model"
)

// MemoryStore is a mutex-guarded in-process Store. It backs local development
// when no database is configured and the service/handler tests. The map keyed
// by the canonical (pair, item) triple plays the role of the unique index.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]*model.Conversation
	byKey    map[string]*model.Conversation
	messages map[string][]model.Message
	seq      uint64
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]*model.Conversation),
		byKey:    make(map[string]*model.Conversation),
		messages: make(map[string][]model.Message),
	}
}

func conversationKey(lo, hi, itemID string) string {
	return lo + "\x00" + hi + "\x00" + itemID
}

func (s *MemoryStore) GetOrCreateConversation(ctx context.Context, conv *model.Conversation) (*model.Conversation, bool, error) {
	key := conversationKey(conv.ParticipantLo, conv.ParticipantHi, conv.ItemID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byKey[key]; ok {
		out := *existing
		return &out, false, nil
	}

	stored := *conv
	s.byKey[key] = &stored
	s.byID[stored.ID] = &stored
	out := stored
	return &out, true, nil
}

func (s *MemoryStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.byID[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *conv
	return &out, nil
}

func (s *MemoryStore) ListConversationsByParticipant(ctx context.Context, userID string) ([]model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var convs []model.Conversation
	for _, conv := range s.byID {
		if conv.HasParticipant(userID) {
			convs = append(convs, *conv)
		}
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].CreatedAt.After(convs[j].CreatedAt)
	})
	return convs, nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[msg.ConversationID]; !ok {
		return nil, model.ErrNotFound
	}

	s.seq++
	stored := *msg
	stored.Seq = s.seq
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], stored)
	out := stored
	return &out, nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]model.Message, len(s.messages[conversationID]))
	copy(msgs, s.messages[conversationID])
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].Seq < msgs[j].Seq
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() {}
