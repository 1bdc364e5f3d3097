package jobs

import (
	"slices"
	"sync"
	"time"

	"episode-mapper/internal/domain"
)

// EventType classifies notifications emitted while a job runs.
type EventType string

const (
	EventTypeStatus EventType = "status"
	EventTypeToast  EventType = "toast"
	EventTypeResult EventType = "result"
	EventTypeError  EventType = "error"
)

// Level is the severity of a toast notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is a sequenced payload consumed by UI subscribers.
type Event struct {
	Seq           int64            `json:"seq"`
	Timestamp     time.Time        `json:"timestamp"`
	JobID         string           `json:"jobId,omitempty"`
	Type          EventType        `json:"type"`
	Phase         Phase            `json:"phase,omitempty"`
	Status        domain.JobStatus `json:"status,omitempty"`
	Level         Level            `json:"level,omitempty"`
	Message       string           `json:"message,omitempty"`
	TranscriptURL string           `json:"transcriptUrl,omitempty"`
	MappingURL    string           `json:"mappingUrl,omitempty"`
}

// EventBus stores recent events and provides incremental reads.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
	listeners []func(Event)
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 200
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Listen registers fn to receive every event after it is sequenced.
// fn runs on the publishing goroutine and must not block.
func (b *EventBus) Listen(fn func(Event)) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

// Publish appends one event and assigns sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}
	listeners := slices.Clone(b.listeners)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(event)
	}
	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// Toasts filters events down to user notifications.
func Toasts(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, event := range events {
		if event.Type == EventTypeToast {
			out = append(out, event)
		}
	}
	return out
}
