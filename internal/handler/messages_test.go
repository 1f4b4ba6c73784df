package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/sostenible-social/marketplace-chat/internal/model"
)

func TestSendAndListMessages(t *testing.T) {
	env := newTestEnv(t)
	token1 := mintToken(t, user1)
	token2 := mintToken(t, user2)

	conv := resolveConversation(t, env, token1, user2, testItem)

	for i := 0; i < 3; i++ {
		rec := doJSON(t, env, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/messages", token1, model.SendMessageRequest{
			Content: fmt.Sprintf("hello-%d", i),
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("send %d: expected 201, got %d: %s", i, rec.Code, rec.Body.String())
		}
		var msg model.Message
		if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		if msg.SenderID != user1 {
			t.Fatalf("sender must come from the verified credential, got %s", msg.SenderID)
		}
		if msg.ID == "" || msg.CreatedAt.IsZero() {
			t.Fatalf("expected server-assigned id and timestamp: %+v", msg)
		}
	}

	rec := doJSON(t, env, http.MethodGet, "/api/v1/conversations/"+conv.ID+"/messages", token2, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp model.ListMessagesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 {
		t.Fatalf("expected 3 messages, got %d", resp.Total)
	}
	for i, m := range resp.Messages {
		if m.Content != fmt.Sprintf("hello-%d", i) {
			t.Fatalf("history out of order at %d: %s", i, m.Content)
		}
	}
}

func TestMessagesAuthorization(t *testing.T) {
	env := newTestEnv(t)
	conv := resolveConversation(t, env, mintToken(t, user1), user2, testItem)
	outsider := mintToken(t, user3)

	rec := doJSON(t, env, http.MethodGet, "/api/v1/conversations/"+conv.ID+"/messages", outsider, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("outsider list: expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, env, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/messages", outsider, model.SendMessageRequest{Content: "hi"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("outsider send: expected 403, got %d", rec.Code)
	}
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	token := mintToken(t, user1)
	conv := resolveConversation(t, env, token, user2, testItem)

	rec := doJSON(t, env, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/messages", token, model.SendMessageRequest{Content: ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty content: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, env, http.MethodPost, "/api/v1/conversations/not-a-uuid/messages", token, model.SendMessageRequest{Content: "hi"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed id: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, env, http.MethodPost, "/api/v1/conversations/9d2f4c6a-0000-4000-8000-000000000000/messages", token, model.SendMessageRequest{Content: "hi"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown conversation: expected 404, got %d", rec.Code)
	}
}
