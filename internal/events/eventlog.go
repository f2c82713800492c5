// Package events provides the append-only audit log of the simulation.
// Every engine milestone (weekly closings, fired catalog events, AI moves,
// deliveries, autosaves) lands here; observers and persistence read from it.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type categorizes a simulation event.
type Type string

const (
	TypeWeekClosed    Type = "WEEK_CLOSED"
	TypeEventFired    Type = "EVENT_FIRED"
	TypeEventPending  Type = "EVENT_PENDING"
	TypeAIDecision    Type = "AI_DECISION"
	TypeTaskCompleted Type = "TASK_COMPLETED"
	TypeAutosave      Type = "AUTOSAVE"
	TypeSimPaused     Type = "SIM_PAUSED"
)

// SimEvent is an immutable record of something the engine did.
type SimEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	SimDate   time.Time   `json:"sim_date"`
	Type      Type        `json:"type"`
	CompanyID string      `json:"company_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Persister defines how an event is durably stored.
type Persister interface {
	Append(event SimEvent) error
}

// Log is the in-memory append-only list of simulation events, with an
// optional write-through persister.
type Log struct {
	mu        sync.RWMutex
	events    []SimEvent
	persister Persister
}

// NewLog creates an event log. persister may be nil.
func NewLog(persister Persister) *Log {
	return &Log{
		events:    make([]SimEvent, 0),
		persister: persister,
	}
}

// Append records an event. Events are immutable once appended.
func (l *Log) Append(event SimEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	if l.persister != nil {
		// Write through; the sqlite persister is fast enough to stay inline
		// relative to the tick cadence.
		_ = l.persister.Append(event)
	}
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Since returns the events appended after index from, for pollers that track
// their own cursor.
func (l *Log) Since(from int) []SimEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if from >= len(l.events) {
		return nil
	}
	out := make([]SimEvent, len(l.events)-from)
	copy(out, l.events[from:])
	return out
}

// ByCompany returns all events concerning one company.
func (l *Log) ByCompany(companyID string) []SimEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []SimEvent
	for _, e := range l.events {
		if e.CompanyID == companyID {
			result = append(result, e)
		}
	}
	return result
}

// ByType returns all events of one category.
func (l *Log) ByType(t Type) []SimEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []SimEvent
	for _, e := range l.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}
