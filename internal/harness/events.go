package harness

import (
	"sync"
	"time"
)

// EventType classifies a harness event.
type EventType string

const (
	EventPhase      EventType = "phase"
	EventHypothesis EventType = "hypothesis"
	EventToolResult EventType = "tool_result"
	EventFinding    EventType = "finding"
	EventConfidence EventType = "confidence"
	EventResolution EventType = "resolution"
	EventDone       EventType = "done"
)

// Event is a discrete, ordered record of investigation progress suitable for
// streaming to a console or a live dashboard.
type Event struct {
	InvestigationID string          `json:"investigation_id"`
	Type            EventType       `json:"type"`
	Phase           Phase           `json:"phase,omitempty"`
	Iteration       int             `json:"iteration"`
	Message         string          `json:"message,omitempty"`
	Hypothesis      *Hypothesis     `json:"hypothesis,omitempty"`
	Finding         *Finding        `json:"finding,omitempty"`
	Invocation      *ToolInvocation `json:"tool_invocation,omitempty"`
	Confidence      float64         `json:"confidence,omitempty"`
	Status          Status          `json:"status,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Subscriber receives investigation events in real time. Ch is closed when
// the run finishes.
type Subscriber struct {
	Ch chan Event
}

// bus fans events out to subscribers. Publishing never blocks phase
// progression: a subscriber that cannot keep up drops events.
type bus struct {
	mu   sync.Mutex
	subs []*Subscriber
	done bool
}

func newBus() *bus {
	return &bus{}
}

func (b *bus) subscribe() *Subscriber {
	sub := &Subscriber{Ch: make(chan Event, 64)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		close(sub.Ch)
		return sub
	}
	b.subs = append(b.subs, sub)
	return sub
}

func (b *bus) publish(ev Event) {
	b.mu.Lock()
	subs := append([]*Subscriber(nil), b.subs...)
	b.mu.Unlock()
	for _, s := range subs {
		select {
		case s.Ch <- ev:
		default:
		}
	}
}

func (b *bus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return
	}
	b.done = true
	for _, s := range b.subs {
		close(s.Ch)
	}
	b.subs = nil
}
