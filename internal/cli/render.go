package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/incidentloop/incidentloop/internal/harness"
)

// renderer writes the live event stream to the terminal. Events arrive in
// order from a single subscription, so no locking is needed.
type renderer struct {
	out        io.Writer
	thresholds harness.Thresholds

	iteration  int
	hypothesis int
	finding    int
}

func newRenderer(out io.Writer, t harness.Thresholds) *renderer {
	return &renderer{out: out, thresholds: t, iteration: -1}
}

func (r *renderer) render(ev harness.Event) {
	switch ev.Type {
	case harness.EventPhase:
		r.renderPhase(ev)
	case harness.EventHypothesis:
		r.renderHypothesis(ev)
	case harness.EventToolResult:
		r.renderToolResult(ev)
	case harness.EventFinding:
		r.renderFinding(ev)
	case harness.EventConfidence:
		r.renderConfidence(ev)
	case harness.EventResolution:
		fmt.Fprintf(r.out, "\n  %s %s\n", styleSuccess.Render("💡 proposed resolution:"), ev.Message)
	}
}

func (r *renderer) renderPhase(ev harness.Event) {
	if ev.Phase == harness.PhaseThink && ev.Iteration != r.iteration {
		r.iteration = ev.Iteration
		fmt.Fprintf(r.out, "\n%s\n", rule(70, "═"))
		fmt.Fprintf(r.out, "%s\n", stylePhase.Render(fmt.Sprintf("  ITERATION %d", ev.Iteration+1)))
		fmt.Fprintf(r.out, "%s\n", rule(70, "═"))
	}
	r.hypothesis = 0
	r.finding = 0
	fmt.Fprintf(r.out, "\n%s\n", rule(60, "─"))
	fmt.Fprintf(r.out, "%s\n", stylePhase.Render(fmt.Sprintf("  %s — %s", ev.Phase, ev.Message)))
	fmt.Fprintf(r.out, "%s\n", rule(60, "─"))
}

func (r *renderer) renderHypothesis(ev harness.Event) {
	if ev.Hypothesis == nil {
		return
	}
	r.hypothesis++
	fmt.Fprintf(r.out, "\n     %d. %s\n", r.hypothesis, ev.Hypothesis.Text)
	fmt.Fprintf(r.out, "        %s\n", styleMuted.Render(confidenceBar(ev.Hypothesis.Confidence, 10)))
	if len(ev.Hypothesis.EvidenceNeeded) > 0 {
		fmt.Fprintf(r.out, "        %s\n",
			styleMuted.Render("evidence needed: "+strings.Join(ev.Hypothesis.EvidenceNeeded, ", ")))
	}
}

func (r *renderer) renderToolResult(ev harness.Event) {
	if ev.Invocation == nil {
		return
	}
	inv := ev.Invocation
	if inv.Failed {
		fmt.Fprintf(r.out, "\n  %s %s\n", styleError.Render("✗ "+inv.Tool+":"), inv.Error)
		return
	}
	fmt.Fprintf(r.out, "\n  %s\n", styleBold.Render("🔧 "+inv.Tool))
	fmt.Fprintf(r.out, "     %s\n", styleMuted.Render(inv.Summary))
}

func (r *renderer) renderFinding(ev harness.Event) {
	if ev.Finding == nil {
		return
	}
	r.finding++
	f := ev.Finding
	tag := severityStyle(f.Severity).Render("[" + strings.ToUpper(f.Severity) + "]")
	fmt.Fprintf(r.out, "\n     %s %s\n", tag, f.Text)
	fmt.Fprintf(r.out, "        %s\n", styleMuted.Render(fmt.Sprintf("confidence: %.0f%%", f.Confidence)))
}

func (r *renderer) renderConfidence(ev harness.Event) {
	style := confidenceStyle(ev.Confidence, r.thresholds.ExecuteReview, r.thresholds.RequireApproval)
	fmt.Fprintf(r.out, "\n  %s\n", styleBold.Render("📊 confidence:"))
	fmt.Fprintf(r.out, "     %s\n", style.Render(confidenceBar(ev.Confidence, 30)))
	fmt.Fprintf(r.out, "     %s\n", decisionLine(ev.Status))
}

func decisionLine(status harness.Status) string {
	switch status {
	case harness.StatusAutoExecuting:
		return styleSuccess.Render("→ auto-executing the resolution")
	case harness.StatusExecutingWithReview:
		return styleWarning.Render("→ executing with team review")
	case harness.StatusAwaitingApproval:
		return styleWarning.Render("→ awaiting human approval")
	default:
		return styleMuted.Render("→ confidence below threshold, continuing investigation")
	}
}

func (r *renderer) printSummary(rec *harness.Record) {
	fmt.Fprintf(r.out, "\n%s\n", rule(70, "═"))
	fmt.Fprintf(r.out, "%s\n", stylePhase.Render("  INVESTIGATION SUMMARY"))
	fmt.Fprintf(r.out, "%s\n", rule(70, "═"))

	fmt.Fprintf(r.out, "\n  overview:\n")
	fmt.Fprintf(r.out, "     status:     %s\n", styleBold.Render(string(rec.Status)))
	fmt.Fprintf(r.out, "     iterations: %d/%d\n", rec.Iteration, rec.IterationLimit)
	fmt.Fprintf(r.out, "     confidence: %.0f%%\n", rec.Confidence)
	fmt.Fprintf(r.out, "     tool calls: %d\n", len(rec.Invocations))
	fmt.Fprintf(r.out, "     findings:   %d\n", len(rec.Findings))

	if len(rec.Findings) > 0 {
		fmt.Fprintf(r.out, "\n  key findings:\n")
		shown := rec.Findings
		if len(shown) > 4 {
			shown = shown[:4]
		}
		for i, f := range shown {
			tag := severityStyle(f.Severity).Render("[" + strings.ToUpper(f.Severity) + "]")
			fmt.Fprintf(r.out, "     %d. %s %s\n", i+1, tag, f.Text)
		}
	}

	if rec.RootCause != "" {
		fmt.Fprintf(r.out, "\n  %s\n", styleSuccess.Render("🎯 root cause:"))
		for _, line := range wrap(rec.RootCause, 60) {
			fmt.Fprintf(r.out, "     %s\n", line)
		}
	}

	if rec.Resolution != nil {
		fmt.Fprintf(r.out, "\n  %s\n", styleSuccess.Render("💡 resolution:"))
		fmt.Fprintf(r.out, "     %s\n", rec.Resolution.Action)
		if rec.Resolution.Command != "" {
			fmt.Fprintf(r.out, "     $ %s\n", rec.Resolution.Command)
		}
		fmt.Fprintf(r.out, "     risk: %s", rec.Resolution.RiskLevel)
		if rec.Resolution.ExpectedRecovery != "" {
			fmt.Fprintf(r.out, " | expected recovery: %s", rec.Resolution.ExpectedRecovery)
		}
		fmt.Fprintln(r.out)
	}

	fmt.Fprintf(r.out, "\n  decision: %s\n\n", decisionLine(rec.Status))
}
