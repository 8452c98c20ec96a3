// Package events provides the lifecycle event log for the runtime.
// State transitions, wave boundaries, health sweeps, restarts and
// shutdown outcomes are published here so listeners are decoupled from
// the emitting objects, replacing callback-style lifecycle hooks.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/service_runtime/internal/engine/state"
)

// Type classifies a lifecycle event.
type Type string

const (
	// Service lifecycle events
	TypeServiceRegistered   Type = "service.registered"
	TypeServiceInitializing Type = "service.initializing"
	TypeServiceRunning      Type = "service.running"
	TypeServiceInitFailed   Type = "service.init_failed"
	TypeServiceInitTimeout  Type = "service.init_timeout"
	TypeDependencyFailed    Type = "service.dependency_failed"
	TypeServiceShuttingDown Type = "service.shutting_down"
	TypeServiceTerminated   Type = "service.terminated"
	TypeShutdownFault       Type = "service.shutdown_fault"

	// Restart events
	TypeRestartStarted   Type = "restart.started"
	TypeRestartSucceeded Type = "restart.succeeded"
	TypeRestartFailed    Type = "restart.failed"

	// Health events
	TypeHealthChecked Type = "health.checked"
	TypeHealthSweep   Type = "health.sweep"

	// Scheduler events
	TypeWaveStarted   Type = "wave.started"
	TypeWaveCompleted Type = "wave.completed"

	// Runtime events
	TypeRuntimeInitializing Type = "runtime.initializing"
	TypeRuntimeInitialized  Type = "runtime.initialized"
	TypeRuntimeShuttingDown Type = "runtime.shutting_down"
	TypeRuntimeTerminated   Type = "runtime.terminated"
)

// Severity indicates the importance of an event.
type Severity string

const (
	SeverityDebug   Severity = "debug"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is one structured lifecycle event.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`

	// Service identifies the affected service, empty for runtime events.
	Service string `json:"service,omitempty"`

	// Wave is the one-based wave index for scheduler events, zero otherwise.
	Wave int `json:"wave,omitempty"`

	Status   state.Status      `json:"status,omitempty"`
	Message  string            `json:"message,omitempty"`
	Error    string            `json:"error,omitempty"`
	Duration time.Duration     `json:"duration_ns,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// String returns the JSON representation.
func (e Event) String() string {
	data, _ := json.Marshal(e)
	return string(data)
}

// Handler processes events as they are published.
type Handler func(Event)

// Filter decides whether a handler receives an event.
type Filter func(Event) bool

// Log is the lifecycle event sink.
type Log interface {
	// Publish records an event.
	Publish(event Event)

	// Subscribe registers a handler; the returned function unsubscribes.
	Subscribe(handler Handler) func()

	// SubscribeFiltered registers a handler behind a filter.
	SubscribeFiltered(filter Filter, handler Handler) func()

	// Recent returns the most recent n events, newest first.
	Recent(n int) []Event

	// RecentByService returns recent events for one service.
	RecentByService(serviceType string, n int) []Event
}

// RingBuffer is a thread-safe circular event buffer implementing Log.
type RingBuffer struct {
	mu       sync.RWMutex
	events   []Event
	size     int
	head     int
	count    int
	handlers []handlerEntry
	nextID   int64
}

type handlerEntry struct {
	id      int64
	filter  Filter
	handler Handler
}

// NewRingBuffer creates an event buffer holding at most size events.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1000
	}
	return &RingBuffer{
		events: make([]Event, size),
		size:   size,
	}
}

// Publish records an event and notifies subscribers outside the lock.
func (rb *RingBuffer) Publish(event Event) {
	rb.mu.Lock()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}

	rb.events[rb.head] = event
	rb.head = (rb.head + 1) % rb.size
	if rb.count < rb.size {
		rb.count++
	}

	handlers := make([]handlerEntry, len(rb.handlers))
	copy(handlers, rb.handlers)
	rb.mu.Unlock()

	for _, h := range handlers {
		if h.filter == nil || h.filter(event) {
			h.handler(event)
		}
	}
}

// Subscribe registers a handler for all events.
func (rb *RingBuffer) Subscribe(handler Handler) func() {
	return rb.SubscribeFiltered(nil, handler)
}

// SubscribeFiltered registers a handler behind a filter.
func (rb *RingBuffer) SubscribeFiltered(filter Filter, handler Handler) func() {
	rb.mu.Lock()
	id := rb.nextID
	rb.nextID++
	rb.handlers = append(rb.handlers, handlerEntry{id: id, filter: filter, handler: handler})
	rb.mu.Unlock()

	return func() {
		rb.mu.Lock()
		defer rb.mu.Unlock()
		for i, h := range rb.handlers {
			if h.id == id {
				rb.handlers = append(rb.handlers[:i], rb.handlers[i+1:]...)
				return
			}
		}
	}
}

// Recent returns the most recent n events in reverse chronological order.
func (rb *RingBuffer) Recent(n int) []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if n <= 0 || rb.count == 0 {
		return nil
	}
	if n > rb.count {
		n = rb.count
	}

	result := make([]Event, n)
	for i := 0; i < n; i++ {
		idx := (rb.head - 1 - i + rb.size) % rb.size
		result[i] = rb.events[idx]
	}
	return result
}

// RecentByService returns recent events for one service, newest first.
func (rb *RingBuffer) RecentByService(serviceType string, n int) []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if n <= 0 || rb.count == 0 {
		return nil
	}

	var result []Event
	for i := 0; i < rb.count && len(result) < n; i++ {
		idx := (rb.head - 1 - i + rb.size) % rb.size
		if rb.events[idx].Service == serviceType {
			result = append(result, rb.events[idx])
		}
	}
	return result
}

// Count returns the number of buffered events.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// NoOpLog discards all events.
type NoOpLog struct{}

func (NoOpLog) Publish(Event)                          {}
func (NoOpLog) Subscribe(Handler) func()               { return func() {} }
func (NoOpLog) SubscribeFiltered(Filter, Handler) func() { return func() {} }
func (NoOpLog) Recent(int) []Event                     { return nil }
func (NoOpLog) RecentByService(string, int) []Event    { return nil }
