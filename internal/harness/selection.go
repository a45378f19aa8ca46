package harness

import "strings"

// ToolCall names one tool invocation the ACT phase should perform, with
// explicit parameters.
type ToolCall struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

// SelectionPolicy decides which evidence tools to invoke for an iteration.
// Selection must be a deterministic, inspectable decision: the same inputs
// always produce the same plan.
type SelectionPolicy interface {
	Select(iteration int, latest HypothesisSet, registered []string) []ToolCall
}

// TablePolicy maps iteration index to a fixed tool plan. Iterations beyond
// the last row reuse the Default row. This is the reference behavior: the
// iteration→plan mapping is data, not branching logic.
type TablePolicy struct {
	Rows    map[int][]ToolCall
	Default []ToolCall
}

// DefaultTablePolicy returns the reference plan: broad log and incident
// sweep first, change history and service metrics second, then a narrow
// database metrics probe for every later iteration.
func DefaultTablePolicy() TablePolicy {
	return TablePolicy{
		Rows: map[int][]ToolCall{
			0: {
				{Tool: "log_search", Params: map[string]interface{}{"query": "service:api-gateway status:error", "window": "1h"}},
				{Tool: "incident_feed", Params: map[string]interface{}{}},
			},
			1: {
				{Tool: "deployment_history", Params: map[string]interface{}{"repo": "main-service", "limit": 5}},
				{Tool: "service_metrics", Params: map[string]interface{}{"service": "api-gateway"}},
			},
		},
		Default: []ToolCall{
			{Tool: "service_metrics", Params: map[string]interface{}{"service": "database"}},
		},
	}
}

// Select returns the plan for an iteration.
func (p TablePolicy) Select(iteration int, _ HypothesisSet, _ []string) []ToolCall {
	if row, ok := p.Rows[iteration]; ok {
		return row
	}
	return p.Default
}

// ReasonerPolicy lets the THINK payload's next_actions drive selection: any
// action naming a registered tool becomes a parameterless call for it. When
// no action matches, the fallback table keeps the run moving.
type ReasonerPolicy struct {
	Fallback TablePolicy
}

// Select matches next_actions against registered tool names. Matching is a
// case-insensitive substring check so "Query deployment history" resolves to
// the deployment_history tool.
func (p ReasonerPolicy) Select(iteration int, latest HypothesisSet, registered []string) []ToolCall {
	var calls []ToolCall
	seen := make(map[string]bool)
	for _, action := range latest.NextActions {
		normalized := strings.ToLower(strings.ReplaceAll(action, " ", "_"))
		for _, name := range registered {
			if seen[name] {
				continue
			}
			if strings.Contains(normalized, name) || strings.Contains(normalized, strings.ReplaceAll(name, "_", "")) {
				calls = append(calls, ToolCall{Tool: name, Params: map[string]interface{}{}})
				seen[name] = true
			}
		}
	}
	if len(calls) == 0 {
		return p.Fallback.Select(iteration, latest, registered)
	}
	return calls
}
