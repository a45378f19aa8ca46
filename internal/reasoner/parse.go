package reasoner

import (
	"encoding/json"
	"strings"

	"github.com/incidentloop/incidentloop/internal/harness"
)

// Wire schemas for the three phase payloads. Decoding is schema-first: a
// response either unmarshals into one of these or it takes the fallback
// branch — there is no string-prefix sniffing.

type hypothesisWire struct {
	Hypothesis     string   `json:"hypothesis"`
	Confidence     float64  `json:"confidence"`
	EvidenceNeeded []string `json:"evidence_needed"`
}

type thinkWire struct {
	Hypotheses  []hypothesisWire `json:"hypotheses"`
	NextActions []string         `json:"next_actions"`
	Reasoning   string           `json:"reasoning"`
}

type findingWire struct {
	Finding    string  `json:"finding"`
	Severity   string  `json:"severity"`
	Confidence float64 `json:"confidence"`
}

type observeWire struct {
	Findings     []findingWire `json:"findings"`
	Patterns     []string      `json:"patterns"`
	Correlations []string      `json:"correlations"`
	Reasoning    string        `json:"reasoning"`
}

type resolutionWire struct {
	ImmediateAction      string `json:"immediate_action"`
	Command              string `json:"command"`
	RiskLevel            string `json:"risk_level"`
	ExpectedRecoveryTime string `json:"expected_recovery_time"`
}

type evaluateWire struct {
	RootCauseIdentified bool            `json:"root_cause_identified"`
	RootCause           string          `json:"root_cause"`
	Confidence          *float64        `json:"confidence"`
	Resolution          *resolutionWire `json:"resolution"`
	Reasoning           string          `json:"reasoning"`
}

// extractJSONBlock strips optional markdown fences and returns the outermost
// JSON object found in the response. Handles:
//   - Bare JSON:   { ... }
//   - Code-fenced: ```json\n{ ... }\n```  or  ```\n{ ... }\n```
func extractJSONBlock(response string) (string, bool) {
	stripped := response
	for _, fence := range []string{"```json", "```JSON", "```"} {
		if idx := strings.Index(stripped, fence); idx != -1 {
			stripped = stripped[idx+len(fence):]
			if end := strings.Index(stripped, "```"); end != -1 {
				stripped = stripped[:end]
			}
			break
		}
	}

	jsonStart := strings.Index(stripped, "{")
	jsonEnd := strings.LastIndex(stripped, "}")
	if jsonStart != -1 && jsonEnd != -1 && jsonEnd > jsonStart {
		return stripped[jsonStart : jsonEnd+1], true
	}
	return "", false
}

func decodeHypotheses(response string) (harness.HypothesisSet, bool) {
	blob, ok := extractJSONBlock(response)
	if !ok {
		return harness.HypothesisSet{}, false
	}
	var wire thinkWire
	if err := json.Unmarshal([]byte(blob), &wire); err != nil {
		return harness.HypothesisSet{}, false
	}
	set := harness.HypothesisSet{
		NextActions: wire.NextActions,
		Reasoning:   wire.Reasoning,
	}
	for _, h := range wire.Hypotheses {
		if h.Hypothesis == "" {
			continue
		}
		set.Hypotheses = append(set.Hypotheses, harness.Hypothesis{
			Text:           h.Hypothesis,
			Confidence:     h.Confidence,
			EvidenceNeeded: h.EvidenceNeeded,
		})
	}
	return set, true
}

func decodeFindings(response string) (harness.FindingSet, bool) {
	blob, ok := extractJSONBlock(response)
	if !ok {
		return harness.FindingSet{}, false
	}
	var wire observeWire
	if err := json.Unmarshal([]byte(blob), &wire); err != nil {
		return harness.FindingSet{}, false
	}
	set := harness.FindingSet{
		Patterns:     wire.Patterns,
		Correlations: wire.Correlations,
		Reasoning:    wire.Reasoning,
	}
	for _, f := range wire.Findings {
		if f.Finding == "" {
			continue
		}
		set.Findings = append(set.Findings, harness.Finding{
			Text:       f.Finding,
			Severity:   f.Severity,
			Confidence: f.Confidence,
		})
	}
	return set, true
}

func decodeAssessment(response string) (harness.Assessment, bool) {
	blob, ok := extractJSONBlock(response)
	if !ok {
		return harness.Assessment{}, false
	}
	var wire evaluateWire
	if err := json.Unmarshal([]byte(blob), &wire); err != nil {
		return harness.Assessment{}, false
	}
	if wire.Confidence == nil {
		// A JSON object without a confidence score is not a usable
		// assessment.
		return harness.Assessment{}, false
	}
	a := harness.Assessment{
		RootCauseIdentified: wire.RootCauseIdentified,
		RootCause:           wire.RootCause,
		Confidence:          *wire.Confidence,
		Reasoning:           wire.Reasoning,
	}
	if wire.Resolution != nil {
		a.Resolution = &harness.Resolution{
			Action:           wire.Resolution.ImmediateAction,
			Command:          wire.Resolution.Command,
			RiskLevel:        wire.Resolution.RiskLevel,
			ExpectedRecovery: wire.Resolution.ExpectedRecoveryTime,
		}
	}
	return a, true
}
