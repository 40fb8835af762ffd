package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the routing core.
type Metrics struct {
	mu                sync.Mutex
	requestCount      map[string]int64
	errorCount        map[string]int64
	messagesRouted    map[string]int64
	classifyFallbacks int64
	transportFaults   int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		errorCount:     make(map[string]int64),
		messagesRouted: make(map[string]int64),
	}
}

// RecordRequest increments counters for HTTP requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordRouted counts an inbound message by the intent it resolved to.
func (m *Metrics) RecordRouted(intent string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesRouted[intent]++
}

// RecordClassifierFallback counts a silent fall-through to the rule engine.
func (m *Metrics) RecordClassifierFallback() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classifyFallbacks++
}

// RecordTransportFault counts a detected session fault.
func (m *Metrics) RecordTransportFault() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transportFaults++
}

// Snapshot returns a copy of current counter values.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.messagesRouted)+2)
	for intent, n := range m.messagesRouted {
		out["routed."+intent] = n
	}
	out["classifier.fallbacks"] = m.classifyFallbacks
	out["transport.faults"] = m.transportFaults
	return out
}
