package reasoner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/incidentloop/incidentloop/internal/harness"
)

const thinkSystemPrompt = `You are an incident investigation agent. Form hypotheses about the root cause.
Respond with JSON: {"hypotheses": [{"hypothesis": "...", "confidence": 0-100, "evidence_needed": [...]}], "next_actions": [...], "reasoning": "..."}`

const observeSystemPrompt = `You are an incident observation agent. Analyze the gathered evidence and extract findings.
Respond with JSON: {"findings": [{"finding": "...", "severity": "critical|high|medium|low", "confidence": 0-100}], "patterns": [...], "correlations": [...], "reasoning": "..."}`

const evaluateSystemPrompt = `You are an incident evaluation agent. Assess whether the root cause is identified.
Respond with JSON: {"root_cause_identified": true/false, "root_cause": "...", "confidence": 0-100, "resolution": {"immediate_action": "...", "command": "...", "risk_level": "low|medium|high", "expected_recovery_time": "..."}, "reasoning": "..."}`

func thinkUserPrompt(tc harness.ThinkContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Investigate this subject (iteration %d):\nSUBJECT: %s\n", tc.Iteration+1, tc.Subject)
	fmt.Fprintf(&b, "PREVIOUS FINDINGS: %s\n\n", mustJSON(tc.RecentFindings))
	b.WriteString("Form hypotheses about what is causing this issue.")
	return b.String()
}

func observeUserPrompt(oc harness.ObserveContext) string {
	type toolOutput struct {
		Tool    string      `json:"tool"`
		Summary string      `json:"summary"`
		Result  interface{} `json:"result"`
	}
	outputs := make([]toolOutput, 0, len(oc.RecentInvocations))
	for _, inv := range oc.RecentInvocations {
		outputs = append(outputs, toolOutput{Tool: inv.Tool, Summary: inv.Summary, Result: inv.Raw})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this data for the investigation:\nSUBJECT: %s\n", oc.Subject)
	fmt.Fprintf(&b, "TOOL OUTPUTS: %s\n", mustJSON(outputs))
	fmt.Fprintf(&b, "HYPOTHESES: %s\n\n", mustJSON(oc.RecentHypotheses))
	b.WriteString("Extract key findings, patterns, and correlations.")
	return b.String()
}

func evaluateUserPrompt(ec harness.EvaluateContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Evaluate this investigation:\nSUBJECT: %s\n", ec.Subject)
	fmt.Fprintf(&b, "FINDINGS: %s\n", mustJSON(ec.Findings))
	fmt.Fprintf(&b, "HYPOTHESES: %s\n\n", mustJSON(ec.Hypotheses))
	b.WriteString("Is the root cause identified? What is the confidence level? What action should be taken?")
	return b.String()
}

func mustJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}
