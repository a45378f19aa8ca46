package harness

// Package harness implements the confidence-gated investigation loop.
//
// Responsibilities:
//   - Maintain the Investigation Record: the single unit of state for one run
//   - Drive the THINK → ACT → OBSERVE → EVALUATE phase cycle
//   - Map confidence scores to actions via the threshold policy
//   - Select and dispatch evidence tools each iteration
//   - Emit ordered events for console and WebSocket consumers
//
// One Orchestrator owns one Record for the lifetime of one run. The Record is
// never shared across concurrent runs; a server handling many investigations
// instantiates one Orchestrator per run.

import "time"

// Status is the action bucket derived from the current confidence score.
type Status string

const (
	StatusInvestigating       Status = "investigating"
	StatusAwaitingApproval    Status = "awaiting_approval"
	StatusExecutingWithReview Status = "executing_with_review"
	StatusAutoExecuting       Status = "auto_executing"
)

// Terminal reports whether the status ends the investigation loop.
// Everything at awaiting_approval or above stops the run.
func (s Status) Terminal() bool {
	return s != StatusInvestigating && s != ""
}

// Hypothesis is a candidate explanation produced during THINK.
type Hypothesis struct {
	Text           string   `json:"text"`
	Confidence     float64  `json:"confidence"`
	EvidenceNeeded []string `json:"evidence_needed,omitempty"`
}

// Finding is a confirmed or inferred fact extracted during OBSERVE.
type Finding struct {
	Text       string    `json:"text"`
	Severity   string    `json:"severity"` // critical | high | medium | low
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// ToolInvocation records one executed evidence tool call during ACT.
type ToolInvocation struct {
	Tool      string                 `json:"tool"`
	Params    map[string]interface{} `json:"params"`
	Raw       interface{}            `json:"raw,omitempty"`
	Summary   string                 `json:"summary"`
	Failed    bool                   `json:"failed,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Duration  time.Duration          `json:"duration_ns"`
	Timestamp time.Time              `json:"timestamp"`
}

// Resolution is the proposed fix, set only once the reasoner asserts a root
// cause has been identified.
type Resolution struct {
	Action           string `json:"action"`
	Command          string `json:"command,omitempty"`
	RiskLevel        string `json:"risk_level"`
	ExpectedRecovery string `json:"expected_recovery,omitempty"`
}

// Record is the Investigation Record threaded through the loop. The subject
// is immutable once set; hypotheses, findings and tool invocations are
// append-only within a run; confidence is overwritten each EVALUATE.
type Record struct {
	ID             string           `json:"id"`
	Subject        string           `json:"subject"`
	Iteration      int              `json:"iteration"`
	IterationLimit int              `json:"iteration_limit"`
	Hypotheses     []Hypothesis     `json:"hypotheses"`
	Findings       []Finding        `json:"findings"`
	Invocations    []ToolInvocation `json:"tool_invocations"`
	Confidence     float64          `json:"confidence"`
	Resolution     *Resolution      `json:"resolution,omitempty"`
	RootCause      string           `json:"root_cause,omitempty"`
	Status         Status           `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	ConcludedAt    *time.Time       `json:"concluded_at,omitempty"`
}

// NewRecord creates a fresh Record with empty collections and iteration 0.
func NewRecord(id, subject string, iterationLimit int) *Record {
	now := time.Now()
	return &Record{
		ID:             id,
		Subject:        subject,
		IterationLimit: iterationLimit,
		Hypotheses:     []Hypothesis{},
		Findings:       []Finding{},
		Invocations:    []ToolInvocation{},
		Status:         StatusInvestigating,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (r *Record) appendHypotheses(hs []Hypothesis) {
	r.Hypotheses = append(r.Hypotheses, hs...)
	r.UpdatedAt = time.Now()
}

func (r *Record) appendFindings(fs []Finding) {
	r.Findings = append(r.Findings, fs...)
	r.UpdatedAt = time.Now()
}

func (r *Record) appendInvocation(inv ToolInvocation) {
	r.Invocations = append(r.Invocations, inv)
	r.UpdatedAt = time.Now()
}

// RecentFindings returns at most the last n findings.
func (r *Record) RecentFindings(n int) []Finding {
	if len(r.Findings) <= n {
		return r.Findings
	}
	return r.Findings[len(r.Findings)-n:]
}

// RecentHypotheses returns at most the last n hypotheses.
func (r *Record) RecentHypotheses(n int) []Hypothesis {
	if len(r.Hypotheses) <= n {
		return r.Hypotheses
	}
	return r.Hypotheses[len(r.Hypotheses)-n:]
}

// RecentInvocations returns at most the last n tool invocations, skipping
// failed ones so degraded calls never feed downstream analysis.
func (r *Record) RecentInvocations(n int) []ToolInvocation {
	out := make([]ToolInvocation, 0, n)
	for i := len(r.Invocations) - 1; i >= 0 && len(out) < n; i-- {
		if r.Invocations[i].Failed {
			continue
		}
		out = append(out, r.Invocations[i])
	}
	// Restore chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Snapshot returns a deep copy safe to hand to subscribers or a store while
// the orchestrator keeps mutating the original.
func (r *Record) Snapshot() *Record {
	cp := *r
	cp.Hypotheses = append([]Hypothesis(nil), r.Hypotheses...)
	cp.Findings = append([]Finding(nil), r.Findings...)
	cp.Invocations = append([]ToolInvocation(nil), r.Invocations...)
	if r.Resolution != nil {
		res := *r.Resolution
		cp.Resolution = &res
	}
	if r.ConcludedAt != nil {
		t := *r.ConcludedAt
		cp.ConcludedAt = &t
	}
	return &cp
}
