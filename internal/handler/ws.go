package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sostenible-social/marketplace-chat/internal/middleware"
	"github.com/sostenible-social/marketplace-chat/internal/model"
	"github.com/sostenible-social/marketplace-chat/internal/realtime"
	"github.com/sostenible-social/marketplace-chat/internal/service"
	"github.com/sostenible-social/marketplace-chat/pkg/logger"
	"github.com/sostenible-social/marketplace-chat/pkg/metrics"
)

const (
	wsReadLimit = 128 * 1024
	wsPongWait  = 60 * time.Second
)

// WSHandler owns the websocket surface. Each connection walks an explicit
// state machine: unauthenticated (only the authenticate event is accepted),
// idle once verified, subscribed to whatever rooms it has joined, and closed.
// Teardown removes all room memberships in one step.
type WSHandler struct {
	hub       *realtime.Hub
	messages  *service.MessageService
	jwtSecret string
	logger    *logger.Logger
	upgrader  websocket.Upgrader
}

// NewWSHandler creates a websocket handler.
func NewWSHandler(hub *realtime.Hub, msgSvc *service.MessageService, jwtSecret string, log *logger.Logger) *WSHandler {
	return &WSHandler{
		hub:       hub,
		messages:  msgSvc,
		jwtSecret: jwtSecret,
		logger:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Serve handles GET /ws. A bearer token may be supplied as a ?token= query
// parameter to skip the authenticate handshake.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := realtime.NewConnection(ws)
	conn.Start()

	metrics.WSConnectionsActive.Inc()
	defer metrics.WSConnectionsActive.Dec()
	defer h.hub.Unregister(conn.ID())
	defer conn.Close(websocket.CloseNormalClosure, "bye")

	userID := ""
	if token := r.URL.Query().Get("token"); token != "" {
		id, err := middleware.VerifyToken(h.jwtSecret, token)
		if err != nil {
			h.sendError(conn, err)
			return
		}
		userID = id
		h.hub.Register(conn)
		h.send(conn, model.ServerEvent{Type: model.EventAuthenticated, UserID: userID})
	}

	ws.SetReadLimit(wsReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var ev model.ClientEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			h.send(conn, model.ServerEvent{Type: model.EventError, Code: "invalid_request", Error: "malformed event"})
			continue
		}

		if userID == "" && ev.Type != model.EventAuthenticate {
			h.send(conn, model.ServerEvent{Type: model.EventError, Code: "unauthorized", Error: "authenticate first"})
			continue
		}

		switch ev.Type {
		case model.EventAuthenticate:
			id, err := middleware.VerifyToken(h.jwtSecret, ev.Token)
			if err != nil {
				h.sendError(conn, err)
				continue
			}
			if userID == "" {
				userID = id
				h.hub.Register(conn)
			}
			h.send(conn, model.ServerEvent{Type: model.EventAuthenticated, UserID: userID})

		case model.EventJoinConversation:
			// Join is advisory; read/write authorization is enforced at
			// the message store boundary.
			if ev.ConversationID == "" {
				h.send(conn, model.ServerEvent{Type: model.EventError, Code: "invalid_request", Error: "conversation_id is required"})
				continue
			}
			h.hub.Join(ev.ConversationID, conn.ID())
			h.send(conn, model.ServerEvent{Type: model.EventJoined, ConversationID: ev.ConversationID})

		case model.EventLeaveConversation:
			h.hub.Leave(ev.ConversationID, conn.ID())
			h.send(conn, model.ServerEvent{Type: model.EventLeft, ConversationID: ev.ConversationID})

		case model.EventSendMessage:
			// The verified connection identity is the sender; any
			// client-supplied sender_id is ignored. The echo back to this
			// connection arrives through the room like any other delivery.
			if _, err := h.messages.Append(r.Context(), ev.ConversationID, userID, ev.Content); err != nil {
				h.sendError(conn, err)
			}

		default:
			h.send(conn, model.ServerEvent{Type: model.EventError, Code: "invalid_request", Error: "unknown event type"})
		}
	}
}

func (h *WSHandler) send(conn *realtime.Connection, ev model.ServerEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := conn.Send(payload); err != nil {
		h.logger.Debug("websocket send failed", zap.Error(err))
	}
}

func (h *WSHandler) sendError(conn *realtime.Connection, err error) {
	h.send(conn, model.ServerEvent{
		Type:  model.EventError,
		Code:  errorCode(err),
		Error: err.Error(),
	})
}
