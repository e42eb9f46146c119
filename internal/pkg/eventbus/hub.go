package eventbus

import (
	"sync"
	"time"
)

type EventType string

const (
	SessionCreated   EventType = "session_created"
	MonitoringActive EventType = "monitoring_active"
	AutoClockIn      EventType = "auto_clock_in"
	ClockIn          EventType = "clock_in"
	ClockOut         EventType = "clock_out"
	BreakStarted     EventType = "break_started"
	BreakEnded       EventType = "break_ended"
	OvertimeStarted  EventType = "overtime_started"
	NoShowDeclared   EventType = "no_show_declared"
	AdminOverride    EventType = "admin_override"
	ConflictDetected EventType = "conflict_detected"
	ErrorRecorded    EventType = "error_recorded"
)

// Event is a domain event emitted by the engine. Delivery (push, email, UI
// streams) is the subscribers' concern; the engine only publishes.
type Event struct {
	CompanyID  string      `json:"company_id"`
	Type       EventType   `json:"type"`
	SessionID  string      `json:"session_id,omitempty"`
	EmployeeID string      `json:"employee_id,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       interface{} `json:"data,omitempty"`
}

// Hub manages subscribers and event broadcasting, keyed by company.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a subscriber for a company's events and returns the
// event channel and a cleanup function.
func (h *Hub) Subscribe(companyID string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 16)

	if h.subscribers[companyID] == nil {
		h.subscribers[companyID] = make(map[chan Event]struct{})
	}
	h.subscribers[companyID][ch] = struct{}{}

	cleanup := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers[companyID], ch)
		close(ch)
		if len(h.subscribers[companyID]) == 0 {
			delete(h.subscribers, companyID)
		}
	}

	return ch, cleanup
}

// Publish sends an event to all of the company's subscribers. Publishing
// never blocks; a subscriber that cannot keep up misses events.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.subscribers[event.CompanyID]; ok {
		for ch := range subs {
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers for a company.
func (h *Hub) SubscriberCount(companyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.subscribers[companyID]; ok {
		return len(subs)
	}
	return 0
}
