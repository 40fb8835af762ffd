package router

import (
	"sync"
	"time"
)

// Session is the per-contact conversation state. One instance exists per
// distinct contact address, created lazily on first message and never
// explicitly destroyed.
type Session struct {
	Address string

	mu             sync.Mutex
	activeTicketID string
	faults         int
	lastActivity   time.Time
}

// Touch records activity now.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// SetActiveTicket caches the contact's open ticket id ("" for none).
func (s *Session) SetActiveTicket(ticketID string) {
	s.mu.Lock()
	s.activeTicketID = ticketID
	s.mu.Unlock()
}

// ActiveTicket returns the cached open ticket id, "" when none.
func (s *Session) ActiveTicket() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTicketID
}

// RecordFault bumps the session's rolling transport fault counter.
func (s *Session) RecordFault() {
	s.mu.Lock()
	s.faults++
	s.mu.Unlock()
}

// Faults returns the rolling fault count for this contact.
func (s *Session) Faults() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faults
}

// LastActivity returns the last time this contact was heard from.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// SessionRegistry owns all conversation sessions.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionRegistry constructs an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*Session)}
}

// Resolve returns the session for an address, creating it on first use.
func (r *SessionRegistry) Resolve(address string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[address]; ok {
		return s
	}
	s := &Session{Address: address, lastActivity: time.Now()}
	r.sessions[address] = s
	return s
}

// Len reports how many contacts have sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
