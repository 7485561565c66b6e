package bus

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestEventBus_EmitAndOn(t *testing.T) {
	eb := NewEventBus(testLogger())

	var got []Event
	eb.On(EventSkillRegistered, func(e Event) {
		got = append(got, e)
	})

	eb.Emit(Event{Type: EventSkillRegistered, Payload: map[string]any{"name": "repo"}})
	eb.Emit(Event{Type: EventSkillUnregistered, Payload: map[string]any{"name": "repo"}})

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Payload["name"] != "repo" {
		t.Errorf("unexpected payload: %v", got[0].Payload)
	}
	if got[0].Timestamp.IsZero() {
		t.Error("timestamp should be set on emit")
	}
}

func TestEventBus_Wildcard(t *testing.T) {
	eb := NewEventBus(testLogger())

	count := 0
	eb.On("*", func(e Event) { count++ })

	eb.Emit(Event{Type: EventSkillRegistered})
	eb.Emit(Event{Type: EventSkillConflict})
	eb.Emit(Event{Type: EventWorkflowStarted})

	if count != 3 {
		t.Errorf("wildcard handler should see all events, got %d", count)
	}
}

func TestEventBus_Off(t *testing.T) {
	eb := NewEventBus(testLogger())

	count := 0
	id := eb.On(EventSkillError, func(e Event) { count++ })
	eb.Emit(Event{Type: EventSkillError})
	eb.Off(EventSkillError, id)
	eb.Emit(Event{Type: EventSkillError})

	if count != 1 {
		t.Errorf("expected 1 delivery after Off, got %d", count)
	}
}

func TestEventBus_HandlerPanicIsIsolated(t *testing.T) {
	eb := NewEventBus(testLogger())

	called := false
	eb.On(EventSkillError, func(e Event) { panic("boom") })
	eb.On(EventSkillError, func(e Event) { called = true })

	eb.Emit(Event{Type: EventSkillError})

	if !called {
		t.Error("second handler should run despite first panicking")
	}
}

func TestEventBus_Replay(t *testing.T) {
	eb := NewEventBus(testLogger())

	start := time.Now().Add(-time.Second)
	eb.Emit(Event{Type: EventSkillConflict, Payload: map[string]any{"command": "deploy x"}})
	eb.Emit(Event{Type: EventSkillRegistered})

	conflicts := eb.Replay(EventSkillConflict, start)
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict in replay, got %d", len(conflicts))
	}
	all := eb.Replay("*", start)
	if len(all) != 2 {
		t.Errorf("expected 2 events in replay, got %d", len(all))
	}
}

func TestEventBus_HistoryBounded(t *testing.T) {
	eb := NewEventBus(testLogger())
	eb.maxHistory = 5

	for i := 0; i < 10; i++ {
		eb.Emit(Event{Type: EventSkillRegistered})
	}
	if eb.HistoryLen() != 5 {
		t.Errorf("history should be capped at 5, got %d", eb.HistoryLen())
	}
}

func TestMessageBus_PublishSubscribe(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	b.Publish(domain.InboundMessage{Channel: "cli", Content: "status"})

	select {
	case msg := <-b.Subscribe():
		if msg.Content != "status" {
			t.Errorf("unexpected content %q", msg.Content)
		}
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestMessageBus_OutboundHandler(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	var got string
	b.OnOutbound("cli", func(msg domain.OutboundMessage) { got = msg.Content })
	b.SendOutbound(domain.OutboundMessage{Channel: "cli", Content: "done"})

	if got != "done" {
		t.Errorf("outbound handler not invoked, got %q", got)
	}
}
