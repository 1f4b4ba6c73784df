package model

// Websocket event names. Clients send authenticate/join/leave/send; the
// server emits acknowledgements, receive_message fan-out, and error events.
const (
	EventAuthenticate      = "authenticate"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"

	EventAuthenticated  = "authenticated"
	EventJoined         = "joined"
	EventLeft           = "left"
	EventReceiveMessage = "receive_message"
	EventError          = "error"
)

// ClientEvent is an inbound websocket frame. SenderID is accepted for wire
// compatibility with older clients but never trusted; the verified connection
// identity is authoritative.
type ClientEvent struct {
	Type           string `json:"type"`
	Token          string `json:"token,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
	SenderID       string `json:"sender_id,omitempty"`
}

// ServerEvent is an outbound websocket frame.
type ServerEvent struct {
	Type           string   `json:"type"`
	ConversationID string   `json:"conversation_id,omitempty"`
	UserID         string   `json:"user_id,omitempty"`
	Message        *Message `json:"message,omitempty"`
	Code           string   `json:"code,omitempty"`
	Error          string   `json:"error,omitempty"`
}
