// Package db provides the persistence layer for concluded investigations and
// audit events, backed by SQLite.
package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/incidentloop/incidentloop/internal/harness"
)

// Store is the main persistence interface.
type Store interface {
	InvestigationStore
	AuditStore

	// Close releases database resources.
	Close() error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
}

// ─── Investigation store ──────────────────────────────────────────────────────

// InvestigationRecord is the DB representation of a concluded investigation.
type InvestigationRecord struct {
	ID             string                 `json:"id"`
	Subject        string                 `json:"subject"`
	Iteration      int                    `json:"iteration"`
	IterationLimit int                    `json:"iteration_limit"`
	Confidence     float64                `json:"confidence"`
	Status         string                 `json:"status"`
	RootCause      string                 `json:"root_cause"`
	Resolution     string                 `json:"resolution"` // JSON blob, empty when none
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	ConcludedAt    *time.Time             `json:"concluded_at,omitempty"`
	Hypotheses     []HypothesisRecord     `json:"hypotheses"`
	Findings       []FindingRecord        `json:"findings"`
	ToolCalls      []ToolInvocationRecord `json:"tool_calls"`
}

// HypothesisRecord is a candidate explanation raised during an investigation.
type HypothesisRecord struct {
	ID              int64   `json:"id"`
	InvestigationID string  `json:"investigation_id"`
	Statement       string  `json:"statement"`
	Confidence      float64 `json:"confidence"`
	EvidenceNeeded  string  `json:"evidence_needed"` // JSON array
}

// FindingRecord is a discovered fact.
type FindingRecord struct {
	ID              int64     `json:"id"`
	InvestigationID string    `json:"investigation_id"`
	Statement       string    `json:"statement"`
	Severity        string    `json:"severity"`
	Confidence      float64   `json:"confidence"`
	Timestamp       time.Time `json:"timestamp"`
}

// ToolInvocationRecord is a record of an evidence tool execution.
type ToolInvocationRecord struct {
	ID              int64     `json:"id"`
	InvestigationID string    `json:"investigation_id"`
	ToolName        string    `json:"tool_name"`
	Params          string    `json:"params"` // JSON blob
	Summary         string    `json:"summary"`
	Failed          bool      `json:"failed"`
	Error           string    `json:"error,omitempty"`
	DurationMs      int64     `json:"duration_ms"`
	Timestamp       time.Time `json:"timestamp"`
}

// InvestigationStore persists investigation records.
type InvestigationStore interface {
	// SaveInvestigation creates or updates an investigation record.
	SaveInvestigation(ctx context.Context, rec *InvestigationRecord) error

	// GetInvestigation retrieves an investigation by ID.
	GetInvestigation(ctx context.Context, id string) (*InvestigationRecord, error)

	// ListInvestigations returns investigations, newest first.
	ListInvestigations(ctx context.Context, limit, offset int) ([]*InvestigationRecord, error)

	// DeleteInvestigation removes an investigation and its child rows.
	DeleteInvestigation(ctx context.Context, id string) error
}

// ─── Audit store ─────────────────────────────────────────────────────────────

// AuditRecord is the DB representation of an audit event.
type AuditRecord struct {
	ID              int64     `json:"id"`
	InvestigationID string    `json:"investigation_id"`
	EventType       string    `json:"event_type"`
	Description     string    `json:"description"`
	Status          string    `json:"status"`
	Result          string    `json:"result"`
	Metadata        string    `json:"metadata"` // JSON blob
	Timestamp       time.Time `json:"timestamp"`
}

// AuditStore persists audit log entries.
type AuditStore interface {
	// AppendAuditEvent appends an immutable audit event.
	AppendAuditEvent(ctx context.Context, rec *AuditRecord) error

	// QueryAuditEvents retrieves audit events with optional filters.
	QueryAuditEvents(ctx context.Context, q AuditQuery) ([]*AuditRecord, error)
}

// AuditQuery filters audit event queries.
type AuditQuery struct {
	InvestigationID string
	EventType       string
	From            time.Time
	To              time.Time
	Limit           int
	Offset          int
}

// ─── Conversion ──────────────────────────────────────────────────────────────

// FromHarnessRecord converts a terminal harness record into its DB shape.
func FromHarnessRecord(rec *harness.Record) *InvestigationRecord {
	out := &InvestigationRecord{
		ID:             rec.ID,
		Subject:        rec.Subject,
		Iteration:      rec.Iteration,
		IterationLimit: rec.IterationLimit,
		Confidence:     rec.Confidence,
		Status:         string(rec.Status),
		RootCause:      rec.RootCause,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
		ConcludedAt:    rec.ConcludedAt,
	}
	if rec.Resolution != nil {
		if blob, err := json.Marshal(rec.Resolution); err == nil {
			out.Resolution = string(blob)
		}
	}
	for _, h := range rec.Hypotheses {
		needed, _ := json.Marshal(h.EvidenceNeeded)
		out.Hypotheses = append(out.Hypotheses, HypothesisRecord{
			InvestigationID: rec.ID,
			Statement:       h.Text,
			Confidence:      h.Confidence,
			EvidenceNeeded:  string(needed),
		})
	}
	for _, f := range rec.Findings {
		out.Findings = append(out.Findings, FindingRecord{
			InvestigationID: rec.ID,
			Statement:       f.Text,
			Severity:        f.Severity,
			Confidence:      f.Confidence,
			Timestamp:       f.Timestamp,
		})
	}
	for _, inv := range rec.Invocations {
		params, _ := json.Marshal(inv.Params)
		out.ToolCalls = append(out.ToolCalls, ToolInvocationRecord{
			InvestigationID: rec.ID,
			ToolName:        inv.Tool,
			Params:          string(params),
			Summary:         inv.Summary,
			Failed:          inv.Failed,
			Error:           inv.Error,
			DurationMs:      inv.Duration.Milliseconds(),
			Timestamp:       inv.Timestamp,
		})
	}
	return out
}

// ToHarnessRecord rebuilds a harness record from its stored shape. Blobs that
// fail to decode are dropped rather than failing the whole read; raw tool
// results are not persisted and stay nil.
func ToHarnessRecord(rec *InvestigationRecord) *harness.Record {
	out := &harness.Record{
		ID:             rec.ID,
		Subject:        rec.Subject,
		Iteration:      rec.Iteration,
		IterationLimit: rec.IterationLimit,
		Confidence:     rec.Confidence,
		Status:         harness.Status(rec.Status),
		RootCause:      rec.RootCause,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
		ConcludedAt:    rec.ConcludedAt,
		Hypotheses:     []harness.Hypothesis{},
		Findings:       []harness.Finding{},
		Invocations:    []harness.ToolInvocation{},
	}
	if rec.Resolution != "" {
		var res harness.Resolution
		if err := json.Unmarshal([]byte(rec.Resolution), &res); err == nil {
			out.Resolution = &res
		}
	}
	for _, h := range rec.Hypotheses {
		var needed []string
		_ = json.Unmarshal([]byte(h.EvidenceNeeded), &needed)
		out.Hypotheses = append(out.Hypotheses, harness.Hypothesis{
			Text:           h.Statement,
			Confidence:     h.Confidence,
			EvidenceNeeded: needed,
		})
	}
	for _, f := range rec.Findings {
		out.Findings = append(out.Findings, harness.Finding{
			Text:       f.Statement,
			Severity:   f.Severity,
			Confidence: f.Confidence,
			Timestamp:  f.Timestamp,
		})
	}
	for _, tc := range rec.ToolCalls {
		var params map[string]interface{}
		_ = json.Unmarshal([]byte(tc.Params), &params)
		out.Invocations = append(out.Invocations, harness.ToolInvocation{
			Tool:      tc.ToolName,
			Params:    params,
			Summary:   tc.Summary,
			Failed:    tc.Failed,
			Error:     tc.Error,
			Duration:  time.Duration(tc.DurationMs) * time.Millisecond,
			Timestamp: tc.Timestamp,
		})
	}
	return out
}
