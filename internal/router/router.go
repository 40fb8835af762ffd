package router

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/zapdesk/zapdesk/internal/classifier"
	"github.com/zapdesk/zapdesk/internal/config"
	"github.com/zapdesk/zapdesk/internal/domain"
	"github.com/zapdesk/zapdesk/internal/observability"
	"github.com/zapdesk/zapdesk/internal/transport"
)

// Classifier yields a routing decision for an inbound message.
type Classifier interface {
	Classify(ctx context.Context, text string, hasActiveTicket bool) classifier.Result
}

// Lifecycle is the slice of the ticket lifecycle manager the router drives.
type Lifecycle interface {
	Open(ctx context.Context, contactAddress string, queueID *string) (*domain.Ticket, error)
	AppendMessage(ctx context.Context, ticketID string, sender domain.SenderKind, body string, externalID *string) (*domain.Message, error)
	SelectQueue(ctx context.Context, text string) (*string, error)
}

// TicketFinder resolves a contact's active ticket.
type TicketFinder interface {
	FindActiveByContact(ctx context.Context, address string) (*domain.Ticket, error)
}

// Notifier is the slice of the broadcast hub the router publishes through.
// Message-appended events are published by the lifecycle manager at append
// time, after the persistence write.
type Notifier interface {
	PublishTicketCreated(ticket *domain.Ticket)
	PublishHumanRequested(contactAddress, ticketID string)
}

// FaultObserver absorbs transport session faults.
type FaultObserver interface {
	ObserveFault(ctx context.Context, err error) bool
	Stats() transport.GuardStats
}

// Router decides, per inbound message, between automated handling and a
// human ticket thread. Work is serialized per contact address so active
// ticket lookups and ticket creation stay race free; distinct contacts
// proceed in parallel.
type Router struct {
	sessions   *SessionRegistry
	classifier Classifier
	lifecycle  Lifecycle
	tickets    TicketFinder
	gateway    transport.Gateway
	notifier   Notifier
	guard      FaultObserver
	metrics    *observability.Metrics
	routing    config.RoutingConfig
	sendTO     config.TransportConfig
	logger     *zap.Logger

	mu      sync.Mutex
	workers map[string]*contactWorker
	wg      sync.WaitGroup
}

// Dependencies bundles router collaborators.
type Dependencies struct {
	Classifier Classifier
	Lifecycle  Lifecycle
	Tickets    TicketFinder
	Gateway    transport.Gateway
	Notifier   Notifier
	Guard      FaultObserver
	Metrics    *observability.Metrics
	Routing    config.RoutingConfig
	Transport  config.TransportConfig
	Logger     *zap.Logger
}

// New constructs the router.
func New(deps Dependencies) *Router {
	return &Router{
		sessions:   NewSessionRegistry(),
		classifier: deps.Classifier,
		lifecycle:  deps.Lifecycle,
		tickets:    deps.Tickets,
		gateway:    deps.Gateway,
		notifier:   deps.Notifier,
		guard:      deps.Guard,
		metrics:    deps.Metrics,
		routing:    deps.Routing,
		sendTO:     deps.Transport,
		logger:     deps.Logger,
		workers:    make(map[string]*contactWorker),
	}
}

// Sessions exposes the registry for observability endpoints.
func (r *Router) Sessions() *SessionRegistry {
	return r.sessions
}

// Run consumes the gateway's inbound stream until ctx is cancelled. Each
// message is queued onto its contact's worker; the dispatch loop itself
// never blocks on a single hot contact.
func (r *Router) Run(ctx context.Context) {
	inbound := r.gateway.Inbound()
	for {
		select {
		case <-ctx.Done():
			r.wg.Wait()
			return
		case msg, ok := <-inbound:
			if !ok {
				r.wg.Wait()
				return
			}
			r.enqueue(ctx, msg)
		}
	}
}

// contactWorker holds the pending messages for one contact address. The
// queue is unbounded; draining happens on a single goroutine per contact so
// arrival order is preserved.
type contactWorker struct {
	mu      sync.Mutex
	pending []transport.InboundMessage
	running bool
}

func (r *Router) enqueue(ctx context.Context, msg transport.InboundMessage) {
	if strings.TrimSpace(msg.Address) == "" {
		r.logger.Warn("dropping inbound message without address")
		return
	}

	r.mu.Lock()
	w, ok := r.workers[msg.Address]
	if !ok {
		w = &contactWorker{}
		r.workers[msg.Address] = w
	}
	r.mu.Unlock()

	w.mu.Lock()
	w.pending = append(w.pending, msg)
	start := !w.running
	if start {
		w.running = true
	}
	w.mu.Unlock()

	if start {
		r.wg.Add(1)
		go r.drain(ctx, msg.Address, w)
	}
}

func (r *Router) drain(ctx context.Context, address string, w *contactWorker) {
	defer r.wg.Done()
	for {
		w.mu.Lock()
		if len(w.pending) == 0 {
			w.running = false
			w.mu.Unlock()
			return
		}
		msg := w.pending[0]
		w.pending = w.pending[1:]
		w.mu.Unlock()

		r.Handle(ctx, msg)
	}
}

// Handle routes one inbound message. Exported for tests; production traffic
// goes through Run, which serializes calls per contact.
func (r *Router) Handle(ctx context.Context, msg transport.InboundMessage) {
	session := r.sessions.Resolve(msg.Address)
	session.Touch()

	active, err := r.tickets.FindActiveByContact(ctx, msg.Address)
	if err != nil {
		r.logger.Error("active ticket lookup failed",
			zap.String("address", msg.Address), zap.Error(err))
		return
	}
	if active != nil {
		session.SetActiveTicket(active.ID)
	} else {
		session.SetActiveTicket("")
	}

	externalID := optionalID(msg.ExternalID)

	if r.isHandoffRequest(msg.Text) {
		r.handleHandoff(ctx, msg, active, externalID)
		return
	}

	result := r.classifier.Classify(ctx, msg.Text, active != nil)
	r.metrics.RecordRouted(result.Intent)

	switch {
	case result.ShouldRouteToTech && active != nil:
		// Append persists before the room event fires inside the
		// lifecycle manager; the technician or queue room gets notified
		// there.
		if _, err := r.lifecycle.AppendMessage(ctx, active.ID, domain.SenderCustomer, msg.Text, externalID); err != nil {
			r.logger.Error("append to thread failed",
				zap.String("ticket_id", active.ID), zap.Error(err))
		}

	case result.Intent == classifier.IntentNewTicket && active == nil:
		r.openTicket(ctx, msg, externalID)

	case active != nil:
		// Conversation continuation the classifier did not flag, e.g. a
		// repeated problem description on an open ticket.
		if _, err := r.lifecycle.AppendMessage(ctx, active.ID, domain.SenderCustomer, msg.Text, externalID); err != nil {
			r.logger.Error("append to thread failed",
				zap.String("ticket_id", active.ID), zap.Error(err))
		}

	default:
		r.autoReply(ctx, msg.Address, result.Intent)
	}
}

func (r *Router) openTicket(ctx context.Context, msg transport.InboundMessage, externalID *string) {
	queueID, err := r.lifecycle.SelectQueue(ctx, msg.Text)
	if err != nil {
		r.logger.Error("queue selection failed", zap.Error(err))
		// Ticket still opens; it just lands unqueued.
		queueID = nil
	}

	ticket, err := r.lifecycle.Open(ctx, msg.Address, queueID)
	if err != nil {
		r.logger.Error("ticket creation failed",
			zap.String("address", msg.Address), zap.Error(err))
		return
	}
	r.sessions.Resolve(msg.Address).SetActiveTicket(ticket.ID)

	if _, err := r.lifecycle.AppendMessage(ctx, ticket.ID, domain.SenderCustomer, msg.Text, externalID); err != nil {
		r.logger.Error("append opening message failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	// Persistence is done; now the queue's subscribers hear about it.
	r.notifier.PublishTicketCreated(ticket)

	if _, err := r.lifecycle.AppendMessage(ctx, ticket.ID, domain.SenderBot, r.routing.NewTicketReply, nil); err != nil {
		r.logger.Error("append bot ack failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	r.send(ctx, msg.Address, r.routing.NewTicketReply)
}

func (r *Router) handleHandoff(ctx context.Context, msg transport.InboundMessage, active *domain.Ticket, externalID *string) {
	ticketID := ""
	if active != nil {
		ticketID = active.ID
		if _, err := r.lifecycle.AppendMessage(ctx, active.ID, domain.SenderCustomer, msg.Text, externalID); err != nil {
			r.logger.Error("append handoff message failed",
				zap.String("ticket_id", active.ID), zap.Error(err))
		}
	}
	// Surfaced to every operator client, not just the assignee, so an
	// unattended request cannot disappear into one technician's queue.
	r.notifier.PublishHumanRequested(msg.Address, ticketID)
	r.send(ctx, msg.Address, r.routing.HandoffReply)
}

func (r *Router) autoReply(ctx context.Context, address, intent string) {
	var reply string
	switch intent {
	case classifier.IntentGreeting:
		reply = r.routing.GreetingReply
	case classifier.IntentStatusQuery:
		reply = r.routing.StatusReply
	default:
		reply = r.routing.FallbackReply
	}
	r.send(ctx, address, reply)
}

// send delivers an outbound reply. Failures are non-fatal: session faults go
// through the guard (with one retry while below the purge threshold),
// anything else is logged and dropped because the message of record, when
// there is one, already exists.
func (r *Router) send(ctx context.Context, address, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, r.sendTO.SendTimeout())
	defer cancel()

	err := r.gateway.Send(sendCtx, address, text)
	if err == nil {
		return
	}

	if r.guard != nil && r.guard.ObserveFault(ctx, err) {
		r.sessions.Resolve(address).RecordFault()
		r.metrics.RecordTransportFault()
		if !r.guard.Stats().LimitReached {
			retryCtx, cancelRetry := context.WithTimeout(ctx, r.sendTO.SendTimeout())
			defer cancelRetry()
			if retryErr := r.gateway.Send(retryCtx, address, text); retryErr == nil {
				return
			}
		}
	}
	r.logger.Warn("outbound send failed",
		zap.String("address", address), zap.Error(err))
}

func (r *Router) isHandoffRequest(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range r.routing.HandoffKeywords {
		if kw != "" && strings.Contains(normalized, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func optionalID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
