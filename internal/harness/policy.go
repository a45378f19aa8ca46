package harness

import "fmt"

// Thresholds is the ordered confidence boundary table. Each boundary is
// independently overridable through configuration.
type Thresholds struct {
	AutoExecute     float64 `json:"auto_execute"`
	ExecuteReview   float64 `json:"execute_review"`
	RequireApproval float64 `json:"require_approval"`
}

// DefaultThresholds returns the reference boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AutoExecute:     95,
		ExecuteReview:   85,
		RequireApproval: 70,
	}
}

// Validate checks the table is ordered and inside [0,100].
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{
		"auto_execute":     t.AutoExecute,
		"execute_review":   t.ExecuteReview,
		"require_approval": t.RequireApproval,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("threshold %s out of range: %.1f", name, v)
		}
	}
	if t.RequireApproval > t.ExecuteReview || t.ExecuteReview > t.AutoExecute {
		return fmt.Errorf("thresholds must be ordered: require_approval (%.1f) <= execute_review (%.1f) <= auto_execute (%.1f)",
			t.RequireApproval, t.ExecuteReview, t.AutoExecute)
	}
	return nil
}

// Policy maps a confidence score to an action bucket. Pure and deterministic;
// every comparison is inclusive, so a score exactly at a boundary resolves to
// the stronger action.
type Policy struct {
	thresholds Thresholds
}

// NewPolicy builds a Policy from a validated threshold table.
func NewPolicy(t Thresholds) (Policy, error) {
	if err := t.Validate(); err != nil {
		return Policy{}, err
	}
	return Policy{thresholds: t}, nil
}

// Action returns the status bucket for a confidence score.
func (p Policy) Action(confidence float64) Status {
	switch {
	case confidence >= p.thresholds.AutoExecute:
		return StatusAutoExecuting
	case confidence >= p.thresholds.ExecuteReview:
		return StatusExecutingWithReview
	case confidence >= p.thresholds.RequireApproval:
		return StatusAwaitingApproval
	default:
		return StatusInvestigating
	}
}

// Thresholds returns the boundary table in effect.
func (p Policy) Thresholds() Thresholds {
	return p.thresholds
}
