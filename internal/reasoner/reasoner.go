package reasoner

// Package reasoner adapts a raw text-completion provider into the structured
// oracle the harness consumes.
//
// Responsibilities:
//   - Build per-phase prompts from bounded investigation context
//   - Decode provider output into the three phase payload schemas
//   - Substitute a synthesized fallback payload when output is malformed,
//     so a bad model answer can never abort a run
//
// The adapter is stateless across calls: every request carries its full
// context, and nothing about the investigation is retained between phases.

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/incidentloop/incidentloop/internal/harness"
	"github.com/incidentloop/incidentloop/internal/metrics"
)

// Client is the provider boundary: one prompt in, one raw completion out.
type Client interface {
	// Complete generates a completion for the given system and user prompts.
	Complete(ctx context.Context, system, user string) (string, error)

	// Provider returns the provider name for observability.
	Provider() string
}

// Adapter wraps a Client and implements harness.Reasoner.
type Adapter struct {
	client Client
	log    *zap.Logger
}

// NewAdapter creates an Adapter around a provider client.
func NewAdapter(client Client, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{client: client, log: log}
}

var _ harness.Reasoner = (*Adapter)(nil)

// Hypotheses implements the THINK request. Malformed output yields an empty
// hypothesis set, never an error.
func (a *Adapter) Hypotheses(ctx context.Context, tc harness.ThinkContext) (harness.HypothesisSet, error) {
	raw, err := a.complete(ctx, harness.PhaseThink, thinkSystemPrompt, thinkUserPrompt(tc))
	if err != nil {
		return harness.HypothesisSet{}, nil
	}
	set, ok := decodeHypotheses(raw)
	if !ok {
		a.fallback(harness.PhaseThink, raw)
		return harness.HypothesisSet{Reasoning: raw}, nil
	}
	return set, nil
}

// Findings implements the OBSERVE request. Malformed output yields an empty
// finding set, never an error.
func (a *Adapter) Findings(ctx context.Context, oc harness.ObserveContext) (harness.FindingSet, error) {
	raw, err := a.complete(ctx, harness.PhaseObserve, observeSystemPrompt, observeUserPrompt(oc))
	if err != nil {
		return harness.FindingSet{}, nil
	}
	set, ok := decodeFindings(raw)
	if !ok {
		a.fallback(harness.PhaseObserve, raw)
		return harness.FindingSet{Reasoning: raw}, nil
	}
	return set, nil
}

// Assess implements the EVALUATE request. Malformed output yields an
// assessment whose confidence is derived from the findings already on
// record — low and conservative, never a failure.
func (a *Adapter) Assess(ctx context.Context, ec harness.EvaluateContext) (harness.Assessment, error) {
	raw, err := a.complete(ctx, harness.PhaseEvaluate, evaluateSystemPrompt, evaluateUserPrompt(ec))
	if err != nil {
		return harness.Assessment{Confidence: harness.FallbackConfidence(ec.Findings)}, nil
	}
	assessment, ok := decodeAssessment(raw)
	if !ok {
		a.fallback(harness.PhaseEvaluate, raw)
		return harness.Assessment{
			Confidence: harness.FallbackConfidence(ec.Findings),
			Reasoning:  raw,
		}, nil
	}
	return assessment, nil
}

func (a *Adapter) complete(ctx context.Context, phase harness.Phase, system, user string) (string, error) {
	start := time.Now()
	raw, err := a.client.Complete(ctx, system, user)
	metrics.ReasonerRequestDuration.WithLabelValues(a.client.Provider()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ReasonerRequests.WithLabelValues(string(phase), "error").Inc()
		a.log.Warn("reasoner request failed",
			zap.String("phase", string(phase)),
			zap.String("provider", a.client.Provider()),
			zap.Error(err))
		return "", err
	}
	metrics.ReasonerRequests.WithLabelValues(string(phase), "ok").Inc()
	return raw, nil
}

func (a *Adapter) fallback(phase harness.Phase, raw string) {
	metrics.ReasonerFallbacks.WithLabelValues(string(phase)).Inc()
	a.log.Warn("reasoner output not parseable, using fallback payload",
		zap.String("phase", string(phase)),
		zap.Int("response_len", len(raw)))
}
