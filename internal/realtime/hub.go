package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/sostenible-social/marketplace-chat/internal/model"
	"github.com/sostenible-social/marketplace-chat/pkg/logger"
	"github.com/sostenible-social/marketplace-chat/pkg/metrics"
)

// Session is a live subscriber the hub can deliver payloads to. Connection
// implements it; tests substitute fakes so the hub runs without a network.
type Session interface {
	ID() string
	Send(payload []byte) error
}

// Hub tracks room membership and fans persisted messages out to every
// subscriber of a conversation. Membership is process-local and ephemeral:
// it holds no authority over conversation or message data. Delivery is best
// effort per subscriber; one failing socket never affects the rest of the
// room or the publisher.
type Hub struct {
	mu          sync.RWMutex
	sessions    map[string]Session
	rooms       map[string]map[string]Session  // conversationID -> sessionID -> session
	memberships map[string]map[string]struct{} // sessionID -> conversationIDs

	logger *logger.Logger
}

// NewHub constructs an empty Hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		sessions:    make(map[string]Session),
		rooms:       make(map[string]map[string]Session),
		memberships: make(map[string]map[string]struct{}),
		logger:      log,
	}
}

// Register tracks a session. Join is a no-op for unregistered sessions, so
// registration must precede any room membership.
func (h *Hub) Register(s Session) {
	h.mu.Lock()
	h.sessions[s.ID()] = s
	h.memberships[s.ID()] = make(map[string]struct{})
	h.mu.Unlock()
}

// Unregister removes the session from every room and stops tracking it.
// All memberships are dropped atomically under one lock acquisition.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	if _, ok := h.sessions[sessionID]; ok {
		for convID := range h.memberships[sessionID] {
			h.leaveLocked(convID, sessionID)
		}
		delete(h.memberships, sessionID)
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()
}

// Join adds the session to the conversation's room. Idempotent; joining a
// room the session is already in is a no-op, and joining one room never
// affects membership in another.
func (h *Hub) Join(conversationID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[sessionID]
	if !ok {
		return
	}

	room := h.rooms[conversationID]
	if room == nil {
		room = make(map[string]Session)
		h.rooms[conversationID] = room
		metrics.RoomsActive.Inc()
	}
	room[sessionID] = s
	h.memberships[sessionID][conversationID] = struct{}{}
}

// Leave removes the session from the conversation's room.
func (h *Hub) Leave(conversationID, sessionID string) {
	h.mu.Lock()
	h.leaveLocked(conversationID, sessionID)
	if m, ok := h.memberships[sessionID]; ok {
		delete(m, conversationID)
	}
	h.mu.Unlock()
}

// Publish delivers msg to every current subscriber of its conversation,
// including the sender's own connection. Callers invoke it only after the
// message is durably stored, so each sender's own messages fan out in append
// order. Two senders appending concurrently may publish in the opposite order
// of their store-assigned seq; the durable history is the authority and
// message ids let clients reconcile. Returns the number of sessions the
// payload was handed to.
func (h *Hub) Publish(conversationID string, msg *model.Message) int {
	payload, err := json.Marshal(model.ServerEvent{
		Type:           model.EventReceiveMessage,
		ConversationID: conversationID,
		Message:        msg,
	})
	if err != nil {
		h.logger.Error("marshal realtime payload", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	members := make([]Session, 0, len(h.rooms[conversationID]))
	for _, s := range h.rooms[conversationID] {
		members = append(members, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range members {
		if err := s.Send(payload); err != nil {
			metrics.RecordDelivery(false)
			h.logger.Warn("realtime delivery failed",
				zap.String("conversation_id", conversationID),
				zap.String("session_id", s.ID()),
				zap.Error(err),
			)
			continue
		}
		metrics.RecordDelivery(true)
		delivered++
	}
	return delivered
}

// Close drops all membership state. Connections are owned by their handlers
// and are closed separately.
func (h *Hub) Close() {
	h.mu.Lock()
	for range h.rooms {
		metrics.RoomsActive.Dec()
	}
	h.sessions = make(map[string]Session)
	h.rooms = make(map[string]map[string]Session)
	h.memberships = make(map[string]map[string]struct{})
	h.mu.Unlock()
}

func (h *Hub) leaveLocked(conversationID, sessionID string) {
	room := h.rooms[conversationID]
	if room == nil {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
		metrics.RoomsActive.Dec()
	}
}
