package reasoner

import (
	"context"
	"sync"

	"github.com/incidentloop/incidentloop/internal/harness"
)

// Scripted is a harness.Reasoner with predetermined answers, used by tests
// and the offline demo mode. Confidences are consumed one per EVALUATE call;
// the final value repeats once the script runs out.
type Scripted struct {
	ScriptHypotheses  []harness.Hypothesis
	ScriptNextActions []string
	ScriptFindings    []harness.Finding
	Confidences       []float64
	RootCause         string
	Resolution        *harness.Resolution

	mu        sync.Mutex
	evaluates int
}

var _ harness.Reasoner = (*Scripted)(nil)

// Hypotheses returns the scripted hypothesis set on every THINK.
func (s *Scripted) Hypotheses(_ context.Context, _ harness.ThinkContext) (harness.HypothesisSet, error) {
	return harness.HypothesisSet{Hypotheses: s.ScriptHypotheses, NextActions: s.ScriptNextActions}, nil
}

// Findings returns the scripted findings on every OBSERVE.
func (s *Scripted) Findings(_ context.Context, _ harness.ObserveContext) (harness.FindingSet, error) {
	return harness.FindingSet{Findings: s.ScriptFindings}, nil
}

// Assess consumes the next scripted confidence.
func (s *Scripted) Assess(_ context.Context, ec harness.EvaluateContext) (harness.Assessment, error) {
	s.mu.Lock()
	idx := s.evaluates
	s.evaluates++
	s.mu.Unlock()

	if len(s.Confidences) == 0 {
		return harness.Assessment{Confidence: harness.FallbackConfidence(ec.Findings)}, nil
	}
	if idx >= len(s.Confidences) {
		idx = len(s.Confidences) - 1
	}
	a := harness.Assessment{
		Confidence: s.Confidences[idx],
		RootCause:  s.RootCause,
	}
	if a.RootCause != "" {
		a.RootCauseIdentified = true
	}
	if s.Resolution != nil {
		res := *s.Resolution
		a.Resolution = &res
	}
	return a, nil
}

// EvaluateCalls reports how many EVALUATE requests were made.
func (s *Scripted) EvaluateCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluates
}

// DemoClient is a Client that answers with realistic canned JSON, for
// running the harness without any provider credentials.
type DemoClient struct{}

func (DemoClient) Provider() string { return "demo" }

// Complete routes on the phase system prompt and returns the canned payload.
func (DemoClient) Complete(_ context.Context, system, _ string) (string, error) {
	switch system {
	case thinkSystemPrompt:
		return demoThinkResponse, nil
	case observeSystemPrompt:
		return demoObserveResponse, nil
	case evaluateSystemPrompt:
		return demoEvaluateResponse, nil
	default:
		return `{"response": "analysis in progress"}`, nil
	}
}

const demoThinkResponse = `{
  "hypotheses": [
    {"hypothesis": "Recent deployment changed connection pool configuration", "confidence": 75, "evidence_needed": ["deployment logs", "config changes"]},
    {"hypothesis": "Database connection exhaustion due to reduced pool size", "confidence": 60, "evidence_needed": ["db metrics", "connection counts"]},
    {"hypothesis": "Upstream service failure causing cascading timeouts", "confidence": 45, "evidence_needed": ["service health", "dependency graph"]}
  ],
  "next_actions": ["Query deployment_history", "Check service_metrics for the database"],
  "reasoning": "The timing of the errors suggests a recent change triggered the issue; 502s indicate upstream connectivity problems."
}`

const demoObserveResponse = `{
  "findings": [
    {"finding": "Deployment abc123 at 14:20 reduced connection pool from 10 to 5", "severity": "critical", "confidence": 98},
    {"finding": "Database connections at 100% capacity (5/5 active)", "severity": "critical", "confidence": 96},
    {"finding": "Connection wait time spiked to 4.5s (p99) after deployment", "severity": "high", "confidence": 94},
    {"finding": "47 HTTP 502 errors occurred in 1 hour, all after 14:21", "severity": "high", "confidence": 99}
  ],
  "patterns": ["Error spike correlates exactly with deployment completion time"],
  "correlations": ["Deployment abc123 (14:20) -> connection pool exhaustion (14:21) -> 502 errors (14:21+)"],
  "reasoning": "Clear causal chain: the deployment reduced pool_size from 10 to 5 while normal traffic needs 8-10 connections."
}`

const demoEvaluateResponse = `{
  "root_cause_identified": true,
  "root_cause": "Connection pool misconfiguration in deployment abc123 reduced pool_size from 10 to 5, causing immediate exhaustion under normal load",
  "confidence": 94,
  "resolution": {
    "immediate_action": "Rollback deployment abc123 to restore pool_size=10",
    "command": "kubectl rollout undo deployment/api-gateway --to-revision=previous",
    "risk_level": "low",
    "expected_recovery_time": "2-3 minutes after rollback"
  },
  "reasoning": "High confidence due to exact temporal correlation and matching configuration values; rollback restores a known-good state."
}`
