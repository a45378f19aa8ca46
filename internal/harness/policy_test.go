package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyAction_Boundaries(t *testing.T) {
	policy, err := NewPolicy(DefaultThresholds())
	require.NoError(t, err)

	tests := []struct {
		confidence float64
		want       Status
	}{
		{0, StatusInvestigating},
		{30, StatusInvestigating},
		{69.9, StatusInvestigating},
		{70, StatusAwaitingApproval}, // boundary is inclusive
		{84.9, StatusAwaitingApproval},
		{85, StatusExecutingWithReview},
		{94.9, StatusExecutingWithReview},
		{95, StatusAutoExecuting},
		{96, StatusAutoExecuting},
		{100, StatusAutoExecuting},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, policy.Action(tc.confidence), "confidence=%.1f", tc.confidence)
	}
}

func TestPolicyAction_CustomThresholds(t *testing.T) {
	policy, err := NewPolicy(Thresholds{AutoExecute: 99, ExecuteReview: 90, RequireApproval: 50})
	require.NoError(t, err)

	assert.Equal(t, StatusInvestigating, policy.Action(49.9))
	assert.Equal(t, StatusAwaitingApproval, policy.Action(50))
	assert.Equal(t, StatusExecutingWithReview, policy.Action(95))
	assert.Equal(t, StatusAutoExecuting, policy.Action(99))
}

func TestThresholdsValidate(t *testing.T) {
	tests := []struct {
		name    string
		t       Thresholds
		wantErr bool
	}{
		{"defaults valid", DefaultThresholds(), false},
		{"all equal valid", Thresholds{AutoExecute: 80, ExecuteReview: 80, RequireApproval: 80}, false},
		{"out of range high", Thresholds{AutoExecute: 101, ExecuteReview: 85, RequireApproval: 70}, true},
		{"out of range low", Thresholds{AutoExecute: 95, ExecuteReview: 85, RequireApproval: -1}, true},
		{"review above auto", Thresholds{AutoExecute: 85, ExecuteReview: 95, RequireApproval: 70}, true},
		{"approval above review", Thresholds{AutoExecute: 95, ExecuteReview: 70, RequireApproval: 85}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.t.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusInvestigating.Terminal())
	assert.False(t, Status("").Terminal())
	assert.True(t, StatusAwaitingApproval.Terminal())
	assert.True(t, StatusExecutingWithReview.Terminal())
	assert.True(t, StatusAutoExecuting.Terminal())
}

func TestFallbackConfidence(t *testing.T) {
	assert.Equal(t, 30.0, FallbackConfidence(nil), "floor when nothing is known")

	two := []Finding{{Confidence: 80}, {Confidence: 60}}
	assert.Equal(t, 70.0, FallbackConfidence(two), "mean below three findings")

	three := []Finding{{Confidence: 80}, {Confidence: 60}, {Confidence: 70}}
	assert.Equal(t, 80.0, FallbackConfidence(three), "corroboration bonus at three findings")

	high := []Finding{{Confidence: 98}, {Confidence: 97}, {Confidence: 99}}
	assert.Equal(t, 100.0, FallbackConfidence(high), "bonus never exceeds the scale")
}
