// Package store provides durable persistence for conversations and messages.
package store

import (
	"context"

	"github.com/sostenible-social/marketplace-chat/internal/model"
)

// Store is the persistence boundary for the chat core. Implementations must
// enforce the (participant_lo, participant_hi, item_id) uniqueness constraint
// atomically: under concurrent GetOrCreateConversation calls for the same key
// exactly one row may be created, and every caller gets that row back.
//
// The store performs no authorization; participant checks live in the service
// layer, which loads the conversation first.
type Store interface {
	// GetOrCreateConversation finds the conversation matching conv's
	// canonical pair and item id, creating it if absent. conv.ID and
	// conv.CreatedAt are used only when this call wins the creation race.
	// The returned bool is true when a new row was created.
	GetOrCreateConversation(ctx context.Context, conv *model.Conversation) (*model.Conversation, bool, error)

	// GetConversation returns the conversation or model.ErrNotFound.
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)

	// ListConversationsByParticipant returns every conversation the user
	// participates in, newest first.
	ListConversationsByParticipant(ctx context.Context, userID string) ([]model.Conversation, error)

	// AppendMessage persists msg and returns it with the store-assigned
	// insertion sequence.
	AppendMessage(ctx context.Context, msg *model.Message) (*model.Message, error)

	// ListMessages returns the conversation's full history ordered by
	// (created_at, seq) ascending.
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close()
}
