package model

import (
	"time"
)

// Message is one immutable entry in a conversation's history. IDs are UUIDv7
// so clients can deduplicate a message seen both via history fetch and live
// delivery. Seq is the store's insertion counter and breaks created_at ties;
// history order is (created_at, seq) ascending and realtime delivery follows
// append order.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Seq            uint64    `json:"seq,omitempty"`
}

// SendMessageRequest is the request to append a message to a conversation.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// ListMessagesResponse is the response for a conversation history fetch.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}
