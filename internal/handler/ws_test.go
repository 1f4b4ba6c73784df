package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sostenible-social/marketplace-chat/internal/model"
)

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeEvent(t *testing.T, conn *websocket.Conn, ev model.ClientEvent) {
	t.Helper()
	if err := conn.WriteJSON(ev); err != nil {
		t.Fatalf("write %s event: %v", ev.Type, err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) model.ServerEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev model.ServerEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func expectEvent(t *testing.T, conn *websocket.Conn, eventType string) model.ServerEvent {
	t.Helper()
	ev := readEvent(t, conn)
	if ev.Type != eventType {
		t.Fatalf("expected %s event, got %s (%+v)", eventType, ev.Type, ev)
	}
	return ev
}

func TestWebsocketChatScenario(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conv := resolveConversation(t, env, mintToken(t, user1), user2, testItem)

	c1 := dialWS(t, srv, "")
	c2 := dialWS(t, srv, "")

	writeEvent(t, c1, model.ClientEvent{Type: model.EventAuthenticate, Token: mintToken(t, user1)})
	ev := expectEvent(t, c1, model.EventAuthenticated)
	if ev.UserID != user1 {
		t.Fatalf("expected identity %s, got %s", user1, ev.UserID)
	}
	writeEvent(t, c2, model.ClientEvent{Type: model.EventAuthenticate, Token: mintToken(t, user2)})
	expectEvent(t, c2, model.EventAuthenticated)

	writeEvent(t, c1, model.ClientEvent{Type: model.EventJoinConversation, ConversationID: conv.ID})
	expectEvent(t, c1, model.EventJoined)
	writeEvent(t, c2, model.ClientEvent{Type: model.EventJoinConversation, ConversationID: conv.ID})
	expectEvent(t, c2, model.EventJoined)

	// sender_id in the frame is deliberately wrong; the server must use the
	// verified connection identity instead.
	writeEvent(t, c1, model.ClientEvent{
		Type:           model.EventSendMessage,
		ConversationID: conv.ID,
		SenderID:       user3,
		Content:        "Hi",
	})

	for _, conn := range []*websocket.Conn{c1, c2} {
		ev := expectEvent(t, conn, model.EventReceiveMessage)
		if ev.Message == nil {
			t.Fatal("receive_message without message payload")
		}
		if ev.Message.Content != "Hi" {
			t.Fatalf("unexpected content: %s", ev.Message.Content)
		}
		if ev.Message.SenderID != user1 {
			t.Fatalf("sender must be the verified identity, got %s", ev.Message.SenderID)
		}
	}

	// The live delivery is also in the durable history.
	rec := doJSON(t, env, http.MethodGet, "/api/v1/conversations/"+conv.ID+"/messages", mintToken(t, user1), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history fetch: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"Hi"`) {
		t.Fatalf("history missing delivered message: %s", rec.Body.String())
	}
}

func TestWebsocketRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialWS(t, srv, "")

	writeEvent(t, conn, model.ClientEvent{Type: model.EventJoinConversation, ConversationID: "whatever"})
	ev := expectEvent(t, conn, model.EventError)
	if ev.Code != "unauthorized" {
		t.Fatalf("expected unauthorized code, got %s", ev.Code)
	}

	writeEvent(t, conn, model.ClientEvent{Type: model.EventAuthenticate, Token: "garbage"})
	ev = expectEvent(t, conn, model.EventError)
	if ev.Code != "unauthorized" {
		t.Fatalf("expected unauthorized code for bad token, got %s", ev.Code)
	}
}

func TestWebsocketQueryTokenHandshake(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialWS(t, srv, "?token="+mintToken(t, user1))
	ev := expectEvent(t, conn, model.EventAuthenticated)
	if ev.UserID != user1 {
		t.Fatalf("expected identity %s, got %s", user1, ev.UserID)
	}
}

func TestWebsocketSendErrorsDoNotCloseConnection(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conv := resolveConversation(t, env, mintToken(t, user1), user2, testItem)

	conn := dialWS(t, srv, "?token="+mintToken(t, user3))
	expectEvent(t, conn, model.EventAuthenticated)

	// Outsider joins the room (join is advisory) but cannot write.
	writeEvent(t, conn, model.ClientEvent{Type: model.EventJoinConversation, ConversationID: conv.ID})
	expectEvent(t, conn, model.EventJoined)

	writeEvent(t, conn, model.ClientEvent{Type: model.EventSendMessage, ConversationID: conv.ID, Content: "intruder"})
	ev := expectEvent(t, conn, model.EventError)
	if ev.Code != "forbidden" {
		t.Fatalf("expected forbidden code, got %s", ev.Code)
	}

	// Connection stays usable after a rejected send.
	writeEvent(t, conn, model.ClientEvent{Type: model.EventLeaveConversation, ConversationID: conv.ID})
	expectEvent(t, conn, model.EventLeft)
}
