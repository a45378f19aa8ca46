package audit

import "time"

// EventType represents the type of audit event
type EventType string

const (
	// Investigation lifecycle events
	EventInvestigationStarted   EventType = "investigation.started"
	EventInvestigationConcluded EventType = "investigation.concluded"
	EventInvestigationFailed    EventType = "investigation.failed"

	// Resolution gating events
	EventResolutionProposed     EventType = "resolution.proposed"
	EventResolutionAutoExecuted EventType = "resolution.auto_executed"
	EventResolutionReviewed     EventType = "resolution.executing_with_review"

	// Evidence events
	EventToolInvoked EventType = "tool.invoked"
	EventToolFailed  EventType = "tool.failed"

	// Configuration events
	EventConfigLoaded EventType = "config.loaded"
	EventConfigReload EventType = "config.reload"

	// System events
	EventServerStarted  EventType = "system.server_started"
	EventServerShutdown EventType = "system.server_shutdown"
)

// ResolutionEventType maps a gated status to the audit event type recorded
// for the resolution decision.
func ResolutionEventType(status string) EventType {
	switch status {
	case "auto_executing":
		return EventResolutionAutoExecuted
	case "executing_with_review":
		return EventResolutionReviewed
	default:
		return EventResolutionProposed
	}
}

// Result represents the outcome of an audited action
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultPending Result = "pending"
)

// Event represents a single audit event
type Event struct {
	Timestamp       time.Time `json:"timestamp"`
	InvestigationID string    `json:"investigation_id,omitempty"`
	EventType       EventType `json:"event_type"`
	Result          Result    `json:"result"`

	// Subject under investigation or resource acted upon
	Subject string `json:"subject,omitempty"`

	// Event details
	Tool        string                 `json:"tool,omitempty"`
	Confidence  float64                `json:"confidence,omitempty"`
	Status      string                 `json:"status,omitempty"`
	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`

	// Error information
	Error string `json:"error,omitempty"`

	// Duration tracking
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// NewEvent creates a new audit event with default values
func NewEvent(eventType EventType) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Result:    ResultPending,
		Metadata:  make(map[string]interface{}),
	}
}

// WithInvestigationID sets the investigation this event belongs to
func (e *Event) WithInvestigationID(id string) *Event {
	e.InvestigationID = id
	return e
}

// WithSubject sets the subject under investigation
func (e *Event) WithSubject(subject string) *Event {
	e.Subject = subject
	return e
}

// WithTool sets the evidence tool involved
func (e *Event) WithTool(tool string) *Event {
	e.Tool = tool
	return e
}

// WithConfidence sets the confidence score at the time of the event
func (e *Event) WithConfidence(confidence float64) *Event {
	e.Confidence = confidence
	return e
}

// WithStatus sets the investigation status at the time of the event
func (e *Event) WithStatus(status string) *Event {
	e.Status = status
	return e
}

// WithDescription sets a human-readable description
func (e *Event) WithDescription(desc string) *Event {
	e.Description = desc
	return e
}

// WithResult sets the result of the event
func (e *Event) WithResult(result Result) *Event {
	e.Result = result
	return e
}

// WithError sets error information
func (e *Event) WithError(err error) *Event {
	if err != nil {
		e.Error = err.Error()
		e.Result = ResultFailure
	}
	return e
}

// WithDuration sets the duration in milliseconds
func (e *Event) WithDuration(duration time.Duration) *Event {
	e.DurationMs = duration.Milliseconds()
	return e
}

// WithMetadata adds metadata to the event
func (e *Event) WithMetadata(key string, value interface{}) *Event {
	e.Metadata[key] = value
	return e
}
