package harness

import "context"

// Phase identifies one of the four loop phases.
type Phase string

const (
	PhaseThink    Phase = "THINK"
	PhaseAct      Phase = "ACT"
	PhaseObserve  Phase = "OBSERVE"
	PhaseEvaluate Phase = "EVALUATE"
)

// ThinkContext is the bounded context handed to the reasoner during THINK.
type ThinkContext struct {
	Subject        string
	Iteration      int
	RecentFindings []Finding // at most the last 3
}

// ObserveContext is the bounded context handed to the reasoner during OBSERVE.
type ObserveContext struct {
	Subject           string
	RecentInvocations []ToolInvocation // at most the last 4, failed calls excluded
	RecentHypotheses  []Hypothesis     // at most the last 3
}

// EvaluateContext carries the full history for the resolution assessment.
type EvaluateContext struct {
	Subject    string
	Findings   []Finding
	Hypotheses []Hypothesis
}

// HypothesisSet is the structured THINK payload.
type HypothesisSet struct {
	Hypotheses  []Hypothesis
	NextActions []string
	Reasoning   string
}

// FindingSet is the structured OBSERVE payload.
type FindingSet struct {
	Findings     []Finding
	Patterns     []string
	Correlations []string
	Reasoning    string
}

// Assessment is the structured EVALUATE payload.
type Assessment struct {
	RootCauseIdentified bool
	RootCause           string
	Confidence          float64
	Resolution          *Resolution
	Reasoning           string
}

// Reasoner is the external oracle producing structured payloads from phase
// context. Implementations must be stateless across calls from the harness's
// perspective and must synthesize a fallback payload rather than fail when
// the underlying model returns something unparseable; the orchestrator
// additionally tolerates errors by substituting an empty payload, so a
// misbehaving reasoner can never abort a run.
type Reasoner interface {
	Hypotheses(ctx context.Context, tc ThinkContext) (HypothesisSet, error)
	Findings(ctx context.Context, oc ObserveContext) (FindingSet, error)
	Assess(ctx context.Context, ec EvaluateContext) (Assessment, error)
}
