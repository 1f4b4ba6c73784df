package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sostenible-social/marketplace-chat/internal/model"
	"github.com/sostenible-social/marketplace-chat/pkg/logger"
)

// fakeSession records delivered payloads; failing simulates a dead socket.
type fakeSession struct {
	id       string
	failing  bool
	received []model.ServerEvent
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Send(payload []byte) error {
	if s.failing {
		return errors.New("connection gone")
	}
	var ev model.ServerEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return err
	}
	s.received = append(s.received, ev)
	return nil
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	return NewHub(logger.NewNop())
}

func testMessage(convID, content string) *model.Message {
	return &model.Message{
		ID:             "msg-" + content,
		ConversationID: convID,
		SenderID:       "sender",
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestPublishReachesAllSubscribersIncludingSender(t *testing.T) {
	hub := newTestHub(t)
	s1 := &fakeSession{id: "s1"}
	s2 := &fakeSession{id: "s2"}
	hub.Register(s1)
	hub.Register(s2)
	hub.Join("conv-1", "s1")
	hub.Join("conv-1", "s2")

	delivered := hub.Publish("conv-1", testMessage("conv-1", "Hi"))
	if delivered != 2 {
		t.Fatalf("expected 2 deliveries, got %d", delivered)
	}
	for _, s := range []*fakeSession{s1, s2} {
		if len(s.received) != 1 {
			t.Fatalf("%s: expected 1 event, got %d", s.id, len(s.received))
		}
		ev := s.received[0]
		if ev.Type != model.EventReceiveMessage {
			t.Fatalf("%s: unexpected event type %s", s.id, ev.Type)
		}
		if ev.Message == nil || ev.Message.Content != "Hi" {
			t.Fatalf("%s: unexpected message %+v", s.id, ev.Message)
		}
	}
}

func TestPublishPreservesOrder(t *testing.T) {
	hub := newTestHub(t)
	s := &fakeSession{id: "s1"}
	hub.Register(s)
	hub.Join("conv-1", "s1")

	const n = 20
	for i := 0; i < n; i++ {
		hub.Publish("conv-1", testMessage("conv-1", fmt.Sprintf("%d", i)))
	}

	if len(s.received) != n {
		t.Fatalf("expected %d events, got %d", n, len(s.received))
	}
	for i, ev := range s.received {
		if ev.Message.Content != fmt.Sprintf("%d", i) {
			t.Fatalf("delivery out of order at %d: %s", i, ev.Message.Content)
		}
	}
}

func TestPublishIsolatedPerRoom(t *testing.T) {
	hub := newTestHub(t)
	s1 := &fakeSession{id: "s1"}
	s2 := &fakeSession{id: "s2"}
	hub.Register(s1)
	hub.Register(s2)
	hub.Join("conv-x", "s1")
	hub.Join("conv-y", "s2")

	hub.Publish("conv-x", testMessage("conv-x", "only-x"))

	if len(s1.received) != 1 {
		t.Fatalf("expected delivery to conv-x subscriber, got %d", len(s1.received))
	}
	if len(s2.received) != 0 {
		t.Fatalf("conv-y subscriber must not receive conv-x traffic, got %d", len(s2.received))
	}
}

func TestPublishBestEffortPerSubscriber(t *testing.T) {
	hub := newTestHub(t)
	dead := &fakeSession{id: "dead", failing: true}
	live := &fakeSession{id: "live"}
	hub.Register(dead)
	hub.Register(live)
	hub.Join("conv-1", "dead")
	hub.Join("conv-1", "live")

	delivered := hub.Publish("conv-1", testMessage("conv-1", "Hi"))
	if delivered != 1 {
		t.Fatalf("expected 1 successful delivery, got %d", delivered)
	}
	if len(live.received) != 1 {
		t.Fatal("one dead subscriber must not block the rest of the room")
	}
}

func TestJoinIdempotentAndIndependent(t *testing.T) {
	hub := newTestHub(t)
	s := &fakeSession{id: "s1"}
	hub.Register(s)
	hub.Join("conv-1", "s1")
	hub.Join("conv-1", "s1")
	hub.Join("conv-2", "s1")

	hub.Publish("conv-1", testMessage("conv-1", "once"))
	if len(s.received) != 1 {
		t.Fatalf("double join must not double deliveries, got %d", len(s.received))
	}

	// Leaving one room keeps the other membership intact.
	hub.Leave("conv-1", "s1")
	hub.Publish("conv-1", testMessage("conv-1", "gone"))
	hub.Publish("conv-2", testMessage("conv-2", "still-here"))
	if len(s.received) != 2 {
		t.Fatalf("expected 2 events after leave, got %d", len(s.received))
	}
	if s.received[1].Message.Content != "still-here" {
		t.Fatalf("unexpected event after leave: %+v", s.received[1])
	}
}

func TestJoinRequiresRegistration(t *testing.T) {
	hub := newTestHub(t)
	hub.Join("conv-1", "ghost")

	if delivered := hub.Publish("conv-1", testMessage("conv-1", "Hi")); delivered != 0 {
		t.Fatalf("unregistered session must not receive, got %d deliveries", delivered)
	}
}

func TestUnregisterRemovesAllMemberships(t *testing.T) {
	hub := newTestHub(t)
	s := &fakeSession{id: "s1"}
	hub.Register(s)
	hub.Join("conv-1", "s1")
	hub.Join("conv-2", "s1")

	hub.Unregister("s1")

	if d := hub.Publish("conv-1", testMessage("conv-1", "a")); d != 0 {
		t.Fatalf("expected no deliveries to conv-1 after unregister, got %d", d)
	}
	if d := hub.Publish("conv-2", testMessage("conv-2", "b")); d != 0 {
		t.Fatalf("expected no deliveries to conv-2 after unregister, got %d", d)
	}
	if len(s.received) != 0 {
		t.Fatalf("no deliveries may occur after teardown, got %d", len(s.received))
	}
}
