// Package types defines the public REST API contracts of the incidentloop
// server, shared with external clients and dashboards.
package types

import (
	"time"

	"github.com/incidentloop/incidentloop/internal/harness"
)

// CreateInvestigationRequest starts a new investigation.
type CreateInvestigationRequest struct {
	Subject        string `json:"subject"`
	IterationLimit int    `json:"iteration_limit,omitempty"`
}

// Investigation is the live view of one investigation run. Record is set
// once the run concludes.
type Investigation struct {
	ID         string          `json:"id"`
	Subject    string          `json:"subject"`
	Iteration  int             `json:"iteration"`
	Confidence float64         `json:"confidence"`
	Status     harness.Status  `json:"status"`
	Done       bool            `json:"done"`
	CreatedAt  time.Time       `json:"created_at"`
	Record     *harness.Record `json:"record,omitempty"`
	StreamURL  string          `json:"stream_url"`
}

// InvestigationList is the response to a list request, newest first.
type InvestigationList struct {
	Investigations []Investigation `json:"investigations"`
	Count          int             `json:"count"`
}

// CancelResponse acknowledges a cancellation request.
type CancelResponse struct {
	ID        string `json:"id"`
	Cancelled bool   `json:"cancelled"`
}

// HealthResponse reports liveness or readiness state.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
}
