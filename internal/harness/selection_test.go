package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTablePolicy(t *testing.T) {
	p := DefaultTablePolicy()

	first := p.Select(0, HypothesisSet{}, nil)
	require.Len(t, first, 2)
	assert.Equal(t, "log_search", first[0].Tool)
	assert.Equal(t, "incident_feed", first[1].Tool)

	second := p.Select(1, HypothesisSet{}, nil)
	require.Len(t, second, 2)
	assert.Equal(t, "deployment_history", second[0].Tool)
	assert.Equal(t, "service_metrics", second[1].Tool)
	assert.Equal(t, "api-gateway", second[1].Params["service"])

	// Every later iteration reuses the default row.
	for _, it := range []int{2, 3, 7} {
		plan := p.Select(it, HypothesisSet{}, nil)
		require.Len(t, plan, 1)
		assert.Equal(t, "service_metrics", plan[0].Tool)
		assert.Equal(t, "database", plan[0].Params["service"])
	}
}

func TestTablePolicy_Deterministic(t *testing.T) {
	p := DefaultTablePolicy()
	a := p.Select(0, HypothesisSet{}, nil)
	b := p.Select(0, HypothesisSet{}, nil)
	assert.Equal(t, a, b)
}

func TestReasonerPolicy_MatchesNextActions(t *testing.T) {
	p := ReasonerPolicy{Fallback: DefaultTablePolicy()}
	registered := []string{"log_search", "deployment_history", "service_metrics", "incident_feed"}

	latest := HypothesisSet{NextActions: []string{
		"Query deployment history",
		"Check service metrics for the database",
	}}
	plan := p.Select(2, latest, registered)
	require.Len(t, plan, 2)
	assert.Equal(t, "deployment_history", plan[0].Tool)
	assert.Equal(t, "service_metrics", plan[1].Tool)
}

func TestReasonerPolicy_DeduplicatesTools(t *testing.T) {
	p := ReasonerPolicy{Fallback: DefaultTablePolicy()}
	registered := []string{"log_search"}

	latest := HypothesisSet{NextActions: []string{"run log_search", "re-run log_search"}}
	plan := p.Select(0, latest, registered)
	assert.Len(t, plan, 1)
}

func TestReasonerPolicy_FallsBackWhenNothingMatches(t *testing.T) {
	p := ReasonerPolicy{Fallback: DefaultTablePolicy()}
	registered := []string{"log_search", "incident_feed"}

	latest := HypothesisSet{NextActions: []string{"escalate to the on-call engineer"}}
	plan := p.Select(0, latest, registered)
	require.Len(t, plan, 2, "fallback table keeps the run moving")
	assert.Equal(t, "log_search", plan[0].Tool)
}
