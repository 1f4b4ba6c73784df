// Package model defines data structures for the marketplace chat service.
package model

import (
	"time"
)

// Conversation pairs exactly two participants with the item listing that
// triggered contact. The participant pair is stored in canonical order
// (ParticipantLo < ParticipantHi) so that (pair, item) is a stable uniqueness
// key regardless of who initiated. Conversations are immutable after creation.
type Conversation struct {
	ID            string    `json:"id"`
	ItemID        string    `json:"item_id"`
	ParticipantLo string    `json:"participant_lo"`
	ParticipantHi string    `json:"participant_hi"`
	CreatedAt     time.Time `json:"created_at"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID == c.ParticipantLo || userID == c.ParticipantHi
}

// CanonicalPair returns the two identities in canonical (sorted) order.
func CanonicalPair(a, b string) (lo, hi string) {
	if a < b {
		return a, b
	}
	return b, a
}

// ResolveConversationRequest is the request to find or create the conversation
// between the caller and another user about an item. The caller's own identity
// comes from the verified credential, never from the body.
type ResolveConversationRequest struct {
	OtherUserID string `json:"other_user_id"`
	ItemID      string `json:"item_id"`
}

// ListConversationsResponse is the response for listing the caller's conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}
