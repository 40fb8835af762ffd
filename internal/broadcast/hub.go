package broadcast

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zapdesk/zapdesk/internal/domain"
)

// Subscriber is one connected operator client. Events are delivered through
// a buffered channel; a subscriber that cannot keep up has events dropped
// rather than blocking the hub.
type Subscriber struct {
	ID string

	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// NewSubscriber allocates a subscriber with a delivery buffer.
func NewSubscriber(id string) *Subscriber {
	if id == "" {
		id = uuid.NewString()
	}
	return &Subscriber{ID: id, ch: make(chan Event, 64)}
}

// Events returns the delivery channel.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// deliver attempts a non-blocking send. The closed check and the send happen
// under the same lock as shutdown, so a publisher snapshotting this
// subscriber can never hit a closed channel.
func (s *Subscriber) deliver(event Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- event:
		return true
	default:
		return false
	}
}

// shutdown closes the delivery channel exactly once.
func (s *Subscriber) shutdown() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	s.mu.Unlock()
}

// Hub fans events out to subscribed operator clients, one room per ticket
// plus a global scope every registered client receives. A Backplane may be
// attached so events reach rooms on other instances too.
type Hub struct {
	origin string
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[string]*Subscriber
	rooms   map[string]map[string]*Subscriber

	relay Relay
}

// Relay forwards published events beyond this process. Nil-able.
type Relay interface {
	Relay(event Event)
}

// NewHub constructs a hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		origin:  uuid.NewString(),
		logger:  logger,
		clients: make(map[string]*Subscriber),
		rooms:   make(map[string]map[string]*Subscriber),
	}
}

// Origin identifies this hub instance on the backplane.
func (h *Hub) Origin() string {
	return h.origin
}

// SetRelay attaches a cross-instance relay.
func (h *Hub) SetRelay(relay Relay) {
	h.mu.Lock()
	h.relay = relay
	h.mu.Unlock()
}

// Register adds a client to the global scope.
func (h *Hub) Register(sub *Subscriber) {
	h.mu.Lock()
	h.clients[sub.ID] = sub
	h.mu.Unlock()
}

// Unregister removes the client everywhere and closes its channel.
func (h *Hub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[sub.ID]; !ok {
		return
	}
	delete(h.clients, sub.ID)
	for ticketID, room := range h.rooms {
		delete(room, sub.ID)
		if len(room) == 0 {
			delete(h.rooms, ticketID)
		}
	}
	// Publishers hold a snapshot taken before this point; the subscriber's
	// own lock keeps their sends away from the close.
	sub.shutdown()
}

// Join subscribes the client to a ticket room. Repeated joins have no
// additional effect.
func (h *Hub) Join(sub *Subscriber, ticketID string) {
	if strings.TrimSpace(ticketID) == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[sub.ID]; !ok {
		return
	}
	room, ok := h.rooms[ticketID]
	if !ok {
		room = make(map[string]*Subscriber)
		h.rooms[ticketID] = room
	}
	room[sub.ID] = sub
}

// Leave unsubscribes the client from a ticket room. Idempotent.
func (h *Hub) Leave(sub *Subscriber, ticketID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[ticketID]
	if !ok {
		return
	}
	delete(room, sub.ID)
	if len(room) == 0 {
		delete(h.rooms, ticketID)
	}
}

// PublishToRoom delivers an event to the ticket's room on every instance.
func (h *Hub) PublishToRoom(ticketID string, event Event) {
	event = h.stamp(event)
	event.TicketID = ticketID
	h.deliverRoom(ticketID, event)
	h.relayOut(event)
}

// PublishAll delivers an event to every connected client on every instance.
func (h *Hub) PublishAll(event Event) {
	event = h.stamp(event)
	h.deliverAll(event)
	h.relayOut(event)
}

// Deliver applies an event arriving from the backplane, skipping events this
// instance already delivered locally.
func (h *Hub) Deliver(event Event) {
	if event.Origin == h.origin {
		return
	}
	if event.TicketID != "" && event.Kind == EventMessageAppended {
		h.deliverRoom(event.TicketID, event)
		return
	}
	h.deliverAll(event)
}

// PublishTransportStatus notifies all clients of a transport state change.
func (h *Hub) PublishTransportStatus(status, detail string) {
	h.PublishAll(Event{
		Kind:    EventTransportStatus,
		Payload: TransportStatusPayload{Status: status, Detail: detail},
	})
}

// PublishTicketCreated notifies all clients of a new unassigned ticket.
func (h *Hub) PublishTicketCreated(ticket *domain.Ticket) {
	queueID := ""
	if ticket.QueueID != nil {
		queueID = *ticket.QueueID
	}
	h.PublishAll(Event{
		Kind:     EventTicketCreated,
		TicketID: ticket.ID,
		QueueID:  queueID,
		Payload: TicketCreatedPayload{
			ContactAddress: ticket.ContactAddress,
			Status:         ticket.Status,
			QueueID:        ticket.QueueID,
		},
	})
}

// PublishMessageAppended notifies the ticket's room of a new thread message.
func (h *Hub) PublishMessageAppended(ticketID string, msg *domain.Message) {
	h.PublishToRoom(ticketID, Event{
		Kind: EventMessageAppended,
		Payload: MessageAppendedPayload{
			MessageID:   msg.ID,
			Sender:      msg.Sender,
			BodyPreview: preview(msg.Body, 120),
		},
	})
}

// PublishHumanRequested surfaces an explicit handoff request to all clients,
// regardless of assignment, so an unattended request is not absorbed into a
// single technician's view.
func (h *Hub) PublishHumanRequested(contactAddress, ticketID string) {
	h.PublishAll(Event{
		Kind:     EventHumanRequested,
		TicketID: ticketID,
		Payload:  HumanRequestedPayload{ContactAddress: contactAddress},
	})
}

func (h *Hub) stamp(event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Origin = h.origin
	return event
}

func (h *Hub) relayOut(event Event) {
	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		relay.Relay(event)
	}
}

func (h *Hub) deliverRoom(ticketID string, event Event) {
	h.mu.RLock()
	room := h.rooms[ticketID]
	subs := make([]*Subscriber, 0, len(room))
	for _, sub := range room {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()
	h.send(subs, event)
}

func (h *Hub) deliverAll(event Event) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.clients))
	for _, sub := range h.clients {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()
	h.send(subs, event)
}

func (h *Hub) send(subs []*Subscriber, event Event) {
	for _, sub := range subs {
		if !sub.deliver(event) {
			h.logger.Debug("dropping event for slow or departed subscriber",
				zap.String("subscriber", sub.ID),
				zap.String("kind", string(event.Kind)))
		}
	}
}

// preview truncates on rune boundaries so accented text never yields an
// invalid UTF-8 fragment.
func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
