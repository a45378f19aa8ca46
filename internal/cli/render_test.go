package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/incidentloop/incidentloop/internal/harness"
)

func TestConfidenceBar(t *testing.T) {
	tests := []struct {
		confidence float64
		width      int
		want       string
	}{
		{0, 10, "[░░░░░░░░░░] 0%"},
		{50, 10, "[█████░░░░░] 50%"},
		{100, 10, "[██████████] 100%"},
		{150, 10, "[██████████] 100%"}, // clamped
		{-5, 10, "[░░░░░░░░░░] 0%"},
	}
	for _, tc := range tests {
		if got := confidenceBar(tc.confidence, tc.width); got != tc.want {
			t.Errorf("confidenceBar(%.0f, %d) = %q, want %q", tc.confidence, tc.width, got, tc.want)
		}
	}
}

func TestWrap(t *testing.T) {
	lines := wrap("connection pool misconfiguration reduced pool size causing exhaustion", 20)
	if len(lines) < 3 {
		t.Fatalf("expected at least 3 lines, got %d: %v", len(lines), lines)
	}
	for _, l := range lines {
		if len(l) > 20 && !strings.Contains(l, " ") {
			continue // single word longer than width is allowed
		}
		if len(l) > 20 {
			t.Errorf("line exceeds width: %q", l)
		}
	}
	if got := wrap("", 20); got != nil {
		t.Errorf("expected nil for empty text, got %v", got)
	}
}

func TestRenderer_Events(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, harness.DefaultThresholds())

	r.render(harness.Event{Type: harness.EventPhase, Phase: harness.PhaseThink, Iteration: 0, Message: "forming hypotheses"})
	r.render(harness.Event{Type: harness.EventHypothesis, Hypothesis: &harness.Hypothesis{
		Text: "pool too small", Confidence: 75, EvidenceNeeded: []string{"db metrics"},
	}})
	r.render(harness.Event{Type: harness.EventToolResult, Invocation: &harness.ToolInvocation{
		Tool: "log_search", Summary: "Found 8 log entries | 47 errors",
	}})
	r.render(harness.Event{Type: harness.EventToolResult, Invocation: &harness.ToolInvocation{
		Tool: "incident_feed", Failed: true, Error: "feed unavailable",
	}})
	r.render(harness.Event{Type: harness.EventFinding, Finding: &harness.Finding{
		Text: "pool exhausted", Severity: "critical", Confidence: 96,
	}})
	r.render(harness.Event{Type: harness.EventConfidence, Confidence: 94, Status: harness.StatusExecutingWithReview})

	out := buf.String()
	for _, want := range []string{
		"ITERATION 1",
		"THINK",
		"pool too small",
		"evidence needed: db metrics",
		"log_search",
		"Found 8 log entries",
		"feed unavailable",
		"[CRITICAL]",
		"pool exhausted",
		"94%",
		"executing with team review",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderer_Summary(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, harness.DefaultThresholds())

	now := time.Now()
	rec := &harness.Record{
		ID:             "inv-1",
		Subject:        "502 errors",
		Iteration:      2,
		IterationLimit: 5,
		Confidence:     94,
		Status:         harness.StatusExecutingWithReview,
		RootCause:      "pool_size reduced from 10 to 5",
		Resolution: &harness.Resolution{
			Action:           "rollback abc123",
			Command:          "kubectl rollout undo deployment/api-gateway",
			RiskLevel:        "low",
			ExpectedRecovery: "2-3 minutes",
		},
		Findings: []harness.Finding{
			{Text: "a", Severity: "critical"}, {Text: "b", Severity: "high"},
			{Text: "c", Severity: "medium"}, {Text: "d", Severity: "low"},
			{Text: "e", Severity: "low"},
		},
		ConcludedAt: &now,
	}
	r.printSummary(rec)

	out := buf.String()
	for _, want := range []string{
		"INVESTIGATION SUMMARY",
		"executing_with_review",
		"2/5",
		"pool_size reduced",
		"rollback abc123",
		"$ kubectl rollout undo",
		"risk: low",
		"expected recovery: 2-3 minutes",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q", want)
		}
	}
	if strings.Count(out, "[LOW]") != 1 {
		t.Errorf("expected key findings capped at 4, got:\n%s", out)
	}
}
