package broadcast

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/zapdesk/zapdesk/internal/domain"
)

func recv(t *testing.T, sub *Subscriber) Event {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscriber channel closed")
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, sub *Subscriber) {
	t.Helper()
	select {
	case event := <-sub.Events():
		t.Fatalf("unexpected event delivered: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_RoomScopedDelivery(t *testing.T) {
	hub := NewHub(zap.NewNop())
	inRoom := NewSubscriber("sub-in")
	outside := NewSubscriber("sub-out")
	hub.Register(inRoom)
	hub.Register(outside)
	hub.Join(inRoom, "ticket-1")

	hub.PublishMessageAppended("ticket-1", &domain.Message{ID: "msg-1", Sender: domain.SenderCustomer, Body: "oi"})

	event := recv(t, inRoom)
	if event.Kind != EventMessageAppended || event.TicketID != "ticket-1" {
		t.Errorf("event = %+v, want message_appended on ticket-1", event)
	}
	assertNoEvent(t, outside)
}

func TestHub_RepeatedJoinDeliversOnce(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sub := NewSubscriber("sub-1")
	hub.Register(sub)
	hub.Join(sub, "ticket-1")
	hub.Join(sub, "ticket-1")
	hub.Join(sub, "ticket-1")

	hub.PublishMessageAppended("ticket-1", &domain.Message{ID: "msg-1", Sender: domain.SenderBot, Body: "ola"})

	recv(t, sub)
	assertNoEvent(t, sub)
}

func TestHub_LeaveStopsRoomDelivery(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sub := NewSubscriber("sub-1")
	hub.Register(sub)
	hub.Join(sub, "ticket-1")
	hub.Leave(sub, "ticket-1")
	// Leaving twice is harmless.
	hub.Leave(sub, "ticket-1")

	hub.PublishMessageAppended("ticket-1", &domain.Message{ID: "msg-1", Sender: domain.SenderBot, Body: "ola"})
	assertNoEvent(t, sub)

	// Global events still arrive; only the room subscription ended.
	hub.PublishTransportStatus("CONNECTED", "")
	if event := recv(t, sub); event.Kind != EventTransportStatus {
		t.Errorf("event kind = %s, want transport_status", event.Kind)
	}
}

func TestHub_GlobalEventsReachAllClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	first := NewSubscriber("sub-1")
	second := NewSubscriber("sub-2")
	hub.Register(first)
	hub.Register(second)

	queueID := "queue-1"
	hub.PublishTicketCreated(&domain.Ticket{
		ID:             "ticket-1",
		ContactAddress: "contact-1",
		QueueID:        &queueID,
		Status:         domain.TicketStatusPending,
	})

	for _, sub := range []*Subscriber{first, second} {
		event := recv(t, sub)
		if event.Kind != EventTicketCreated || event.QueueID != "queue-1" {
			t.Errorf("event for %s = %+v, want ticket_created on queue-1", sub.ID, event)
		}
		if event.ID == "" || event.Origin != hub.Origin() || event.Timestamp.IsZero() {
			t.Errorf("event for %s missing stamp fields: %+v", sub.ID, event)
		}
	}
}

func TestHub_HumanRequestedReachesUnjoinedClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sub := NewSubscriber("sub-1")
	hub.Register(sub)

	hub.PublishHumanRequested("contact-1", "ticket-1")

	event := recv(t, sub)
	if event.Kind != EventHumanRequested || event.TicketID != "ticket-1" {
		t.Errorf("event = %+v, want human_requested", event)
	}
	payload, ok := event.Payload.(HumanRequestedPayload)
	if !ok || payload.ContactAddress != "contact-1" {
		t.Errorf("payload = %+v", event.Payload)
	}
}

func TestHub_UnregisterClosesChannelAndLeavesRooms(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sub := NewSubscriber("sub-1")
	hub.Register(sub)
	hub.Join(sub, "ticket-1")

	hub.Unregister(sub)
	// Second unregister is a no-op, not a double close.
	hub.Unregister(sub)

	if _, ok := <-sub.Events(); ok {
		t.Error("channel still open after unregister")
	}

	// Publishing afterwards must not panic on the closed channel.
	hub.PublishMessageAppended("ticket-1", &domain.Message{ID: "msg-1", Sender: domain.SenderBot, Body: "ola"})
	hub.PublishTransportStatus("CONNECTED", "")
}

func TestHub_JoinRequiresRegistration(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sub := NewSubscriber("sub-1")
	hub.Join(sub, "ticket-1")

	hub.PublishMessageAppended("ticket-1", &domain.Message{ID: "msg-1", Sender: domain.SenderBot, Body: "ola"})
	assertNoEvent(t, sub)
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sub := NewSubscriber("sub-1")
	hub.Register(sub)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.PublishTransportStatus("CONNECTED", "")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a subscriber that never reads")
	}

	// The buffer holds what it can; the rest was dropped.
	received := 0
	for {
		select {
		case <-sub.Events():
			received++
			continue
		default:
		}
		break
	}
	if received == 0 || received > 64 {
		t.Errorf("received %d events, want between 1 and the buffer size", received)
	}
}

func TestHub_DeliverSkipsOwnOrigin(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sub := NewSubscriber("sub-1")
	hub.Register(sub)

	// An event echoed back from the backplane with this hub's origin.
	hub.Deliver(Event{ID: "evt-1", Kind: EventTransportStatus, Origin: hub.Origin()})
	assertNoEvent(t, sub)

	// The same event from another instance goes through.
	hub.Deliver(Event{ID: "evt-2", Kind: EventTransportStatus, Origin: "other-instance"})
	if event := recv(t, sub); event.ID != "evt-2" {
		t.Errorf("event = %+v, want the remote event", event)
	}
}

func TestHub_DeliverRoutesRemoteRoomEvents(t *testing.T) {
	hub := NewHub(zap.NewNop())
	inRoom := NewSubscriber("sub-in")
	outside := NewSubscriber("sub-out")
	hub.Register(inRoom)
	hub.Register(outside)
	hub.Join(inRoom, "ticket-1")

	hub.Deliver(Event{
		ID:       "evt-1",
		Kind:     EventMessageAppended,
		TicketID: "ticket-1",
		Origin:   "other-instance",
	})

	recv(t, inRoom)
	assertNoEvent(t, outside)
}

func TestHub_PublishDuringUnregisterDoesNotPanic(t *testing.T) {
	hub := NewHub(zap.NewNop())

	// An operator disconnect while router and lifecycle goroutines publish
	// must never reach a closed delivery channel.
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		sub := NewSubscriber(fmt.Sprintf("sub-%d", i))
		hub.Register(sub)
		hub.Join(sub, "ticket-1")

		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.PublishTransportStatus("CONNECTED", "")
			hub.PublishMessageAppended("ticket-1", &domain.Message{ID: "msg", Sender: domain.SenderBot, Body: "oi"})
			hub.PublishHumanRequested("contact-1", "ticket-1")
		}()
		go func(s *Subscriber) {
			defer wg.Done()
			hub.Unregister(s)
		}(sub)
	}
	wg.Wait()
}

type capturingRelay struct {
	events []Event
}

func (r *capturingRelay) Relay(event Event) {
	r.events = append(r.events, event)
}

func TestHub_PublishesThroughRelay(t *testing.T) {
	hub := NewHub(zap.NewNop())
	relay := &capturingRelay{}
	hub.SetRelay(relay)

	hub.PublishHumanRequested("contact-1", "ticket-1")

	if len(relay.events) != 1 {
		t.Fatalf("relayed %d events, want 1", len(relay.events))
	}
	if relay.events[0].Origin != hub.Origin() {
		t.Errorf("relayed event origin = %q, want this hub's origin", relay.events[0].Origin)
	}
}

func TestPreview(t *testing.T) {
	if got := preview("  oi  ", 120); got != "oi" {
		t.Errorf("preview = %q, want trimmed body", got)
	}

	got := preview(strings.Repeat("a", 200), 120)
	if len(got) != 120 || !strings.HasSuffix(got, "...") {
		t.Errorf("preview length = %d, tail = %q", len(got), got[len(got)-3:])
	}

	// Multibyte text truncates on rune boundaries, never mid-sequence.
	accented := strings.Repeat("atenção ", 30)
	got = preview(accented, 120)
	if !utf8.ValidString(got) {
		t.Errorf("preview produced invalid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 120 {
		t.Errorf("preview rune count = %d, want 120", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("preview tail = %q, want ellipsis", got[len(got)-3:])
	}
}
