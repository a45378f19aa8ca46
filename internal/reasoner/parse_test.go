package reasoner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
		ok       bool
	}{
		{"bare object", `{"confidence": 90}`, `{"confidence": 90}`, true},
		{"json fence", "```json\n{\"confidence\": 90}\n```", "{\"confidence\": 90}", true},
		{"plain fence", "```\n{\"a\": 1}\n```", "{\"a\": 1}", true},
		{"surrounding prose", "Here is my analysis:\n{\"a\": 1}\nHope that helps.", `{"a": 1}`, true},
		{"no json at all", "I cannot determine the cause.", "", false},
		{"empty response", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extractJSONBlock(tc.response)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestDecodeHypotheses(t *testing.T) {
	raw := `{
	  "hypotheses": [
	    {"hypothesis": "pool too small", "confidence": 75, "evidence_needed": ["db metrics"]},
	    {"hypothesis": "", "confidence": 50},
	    {"hypothesis": "bad deploy", "confidence": 60}
	  ],
	  "next_actions": ["Query deployment_history"],
	  "reasoning": "timing points at a change"
	}`
	set, ok := decodeHypotheses(raw)
	require.True(t, ok)
	require.Len(t, set.Hypotheses, 2, "empty hypothesis text must be dropped")
	assert.Equal(t, "pool too small", set.Hypotheses[0].Text)
	assert.Equal(t, 75.0, set.Hypotheses[0].Confidence)
	assert.Equal(t, []string{"db metrics"}, set.Hypotheses[0].EvidenceNeeded)
	assert.Equal(t, []string{"Query deployment_history"}, set.NextActions)
	assert.Equal(t, "timing points at a change", set.Reasoning)
}

func TestDecodeHypotheses_Malformed(t *testing.T) {
	_, ok := decodeHypotheses(`{"hypotheses": "not an array"}`)
	assert.False(t, ok)

	_, ok = decodeHypotheses("no json here")
	assert.False(t, ok)
}

func TestDecodeFindings(t *testing.T) {
	raw := "```json\n" + `{
	  "findings": [
	    {"finding": "pool exhausted", "severity": "critical", "confidence": 96},
	    {"finding": "", "severity": "low", "confidence": 10}
	  ],
	  "patterns": ["spike after deploy"],
	  "correlations": ["deploy -> exhaustion"],
	  "reasoning": "clear chain"
	}` + "\n```"
	set, ok := decodeFindings(raw)
	require.True(t, ok)
	require.Len(t, set.Findings, 1)
	assert.Equal(t, "pool exhausted", set.Findings[0].Text)
	assert.Equal(t, "critical", set.Findings[0].Severity)
	assert.Equal(t, 96.0, set.Findings[0].Confidence)
	assert.Equal(t, []string{"spike after deploy"}, set.Patterns)
	assert.Equal(t, []string{"deploy -> exhaustion"}, set.Correlations)
}

func TestDecodeAssessment(t *testing.T) {
	raw := `{
	  "root_cause_identified": true,
	  "root_cause": "pool_size reduced from 10 to 5",
	  "confidence": 94,
	  "resolution": {
	    "immediate_action": "rollback abc123",
	    "command": "kubectl rollout undo deployment/api-gateway",
	    "risk_level": "low",
	    "expected_recovery_time": "2-3 minutes"
	  },
	  "reasoning": "exact temporal correlation"
	}`
	a, ok := decodeAssessment(raw)
	require.True(t, ok)
	assert.True(t, a.RootCauseIdentified)
	assert.Equal(t, "pool_size reduced from 10 to 5", a.RootCause)
	assert.Equal(t, 94.0, a.Confidence)
	require.NotNil(t, a.Resolution)
	assert.Equal(t, "rollback abc123", a.Resolution.Action)
	assert.Equal(t, "kubectl rollout undo deployment/api-gateway", a.Resolution.Command)
	assert.Equal(t, "low", a.Resolution.RiskLevel)
	assert.Equal(t, "2-3 minutes", a.Resolution.ExpectedRecovery)
}

func TestDecodeAssessment_MissingConfidence(t *testing.T) {
	// A JSON object with no confidence score is not a usable assessment.
	_, ok := decodeAssessment(`{"root_cause_identified": false, "root_cause": "unknown"}`)
	assert.False(t, ok)
}

func TestDecodeAssessment_NoResolution(t *testing.T) {
	a, ok := decodeAssessment(`{"confidence": 40, "root_cause_identified": false}`)
	require.True(t, ok)
	assert.Equal(t, 40.0, a.Confidence)
	assert.Nil(t, a.Resolution)
}
