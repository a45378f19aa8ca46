package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/incidentloop/incidentloop/internal/metrics"
)

const (
	thinkFindingsWindow     = 3
	observeInvocationWindow = 4
	observeHypothesisWindow = 3
)

// Config wires an Orchestrator. Reasoner and Tools are mandatory; everything
// else has a reference default.
type Config struct {
	Reasoner   Reasoner
	Tools      *Registry
	Selection  SelectionPolicy
	Thresholds Thresholds
	Summarize  func(raw interface{}) string
	Logger     *zap.Logger
}

// Orchestrator drives the THINK → ACT → OBSERVE → EVALUATE cycle for one
// investigation at a time. It owns the Record for the lifetime of a run and
// is the only component that mutates it.
type Orchestrator struct {
	reasoner  Reasoner
	tools     *Registry
	selection SelectionPolicy
	policy    Policy
	summarize func(interface{}) string
	log       *zap.Logger

	bus         *bus
	latestThink HypothesisSet
}

// New validates the wiring and returns an Orchestrator. A missing reasoner or
// an empty tool registry is a configuration failure: it aborts here, before
// any iteration begins. Nothing after this point aborts a run.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Reasoner == nil {
		return nil, fmt.Errorf("harness: no reasoner configured")
	}
	if cfg.Tools == nil || cfg.Tools.Len() == 0 {
		return nil, fmt.Errorf("harness: no evidence tools registered")
	}
	if cfg.Selection == nil {
		cfg.Selection = DefaultTablePolicy()
	}
	if (cfg.Thresholds == Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	policy, err := NewPolicy(cfg.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("harness: %w", err)
	}
	if cfg.Summarize == nil {
		cfg.Summarize = func(raw interface{}) string {
			return fmt.Sprintf("retrieved result (%T)", raw)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Orchestrator{
		reasoner:  cfg.Reasoner,
		tools:     cfg.Tools,
		selection: cfg.Selection,
		policy:    policy,
		summarize: cfg.Summarize,
		log:       cfg.Logger,
		bus:       newBus(),
	}, nil
}

// Subscribe registers a channel for real-time events of the next (or current)
// run. The channel is closed when the run finishes.
func (o *Orchestrator) Subscribe() *Subscriber {
	return o.bus.subscribe()
}

// Policy returns the confidence policy in effect.
func (o *Orchestrator) Policy() Policy {
	return o.policy
}

// Run executes the loop until the confidence policy signals termination or
// the iteration budget is exhausted, then returns the terminal Record. The
// only error is a violated precondition; once the loop starts the harness
// always produces a terminal record, however unresolved. Context cancellation
// is honored between phases.
func (o *Orchestrator) Run(ctx context.Context, subject string, iterationLimit int) (*Record, error) {
	if iterationLimit < 1 {
		return nil, fmt.Errorf("harness: iteration limit must be >= 1, got %d", iterationLimit)
	}
	return o.RunRecord(ctx, NewRecord(uuid.NewString(), subject, iterationLimit))
}

// RunRecord executes the loop for a pre-built record. Callers that need the
// investigation ID before the loop starts (e.g. to hand out a stream URL)
// construct the record themselves and use this entry point.
func (o *Orchestrator) RunRecord(ctx context.Context, rec *Record) (*Record, error) {
	if rec.IterationLimit < 1 {
		return nil, fmt.Errorf("harness: iteration limit must be >= 1, got %d", rec.IterationLimit)
	}
	defer o.bus.close()

	o.log.Info("investigation started",
		zap.String("id", rec.ID),
		zap.String("subject", rec.Subject),
		zap.Int("iteration_limit", rec.IterationLimit))

	for {
		o.think(ctx, rec)
		o.act(ctx, rec)
		o.observe(ctx, rec)
		o.evaluate(ctx, rec)

		if rec.Status.Terminal() {
			break
		}
		if rec.Iteration >= rec.IterationLimit {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	now := time.Now()
	rec.ConcludedAt = &now
	o.publish(Event{
		InvestigationID: rec.ID,
		Type:            EventDone,
		Iteration:       rec.Iteration,
		Confidence:      rec.Confidence,
		Status:          rec.Status,
		Message:         fmt.Sprintf("investigation finished after %d iteration(s)", rec.Iteration),
	})

	metrics.InvestigationsTotal.WithLabelValues(string(rec.Status)).Inc()
	metrics.InvestigationIterations.Observe(float64(rec.Iteration))
	o.log.Info("investigation finished",
		zap.String("id", rec.ID),
		zap.Int("iterations", rec.Iteration),
		zap.Float64("confidence", rec.Confidence),
		zap.String("status", string(rec.Status)))

	return rec, nil
}

// think asks the reasoner for hypotheses against the subject and a bounded
// window of recent findings. An empty or failed response never fails the run.
func (o *Orchestrator) think(ctx context.Context, rec *Record) {
	defer o.observePhase(PhaseThink)()
	o.publishPhase(rec, PhaseThink, "forming hypotheses")

	set, err := o.reasoner.Hypotheses(ctx, ThinkContext{
		Subject:        rec.Subject,
		Iteration:      rec.Iteration,
		RecentFindings: rec.RecentFindings(thinkFindingsWindow),
	})
	if err != nil {
		o.log.Warn("reasoner hypotheses failed", zap.String("id", rec.ID), zap.Error(err))
		set = HypothesisSet{}
	}
	for i := range set.Hypotheses {
		set.Hypotheses[i].Confidence = clampConfidence(set.Hypotheses[i].Confidence)
	}
	o.latestThink = set
	rec.appendHypotheses(set.Hypotheses)

	for i := range set.Hypotheses {
		o.publish(Event{
			InvestigationID: rec.ID,
			Type:            EventHypothesis,
			Phase:           PhaseThink,
			Iteration:       rec.Iteration,
			Hypothesis:      &set.Hypotheses[i],
			Message:         set.Hypotheses[i].Text,
		})
	}
}

// act selects evidence tools for this iteration and invokes them. Selected
// tools are independent and run concurrently; act returns only after every
// invocation has completed, so OBSERVE never races a tool. A failed call is
// recorded as a degraded invocation and the run continues.
func (o *Orchestrator) act(ctx context.Context, rec *Record) {
	defer o.observePhase(PhaseAct)()
	plan := o.selection.Select(rec.Iteration, o.latestThink, o.tools.Names())
	o.publishPhase(rec, PhaseAct, fmt.Sprintf("executing %d tool(s)", len(plan)))

	results := make([]ToolInvocation, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range plan {
		i, call := i, call
		g.Go(func() error {
			results[i] = o.invoke(gctx, call)
			return nil
		})
	}
	_ = g.Wait()

	for i := range results {
		rec.appendInvocation(results[i])
		status := "ok"
		if results[i].Failed {
			status = "failed"
		}
		metrics.ToolInvocations.WithLabelValues(results[i].Tool, status).Inc()
		metrics.ToolDuration.WithLabelValues(results[i].Tool).Observe(results[i].Duration.Seconds())
		o.publish(Event{
			InvestigationID: rec.ID,
			Type:            EventToolResult,
			Phase:           PhaseAct,
			Iteration:       rec.Iteration,
			Invocation:      &results[i],
			Message:         results[i].Summary,
		})
	}
}

func (o *Orchestrator) invoke(ctx context.Context, call ToolCall) ToolInvocation {
	inv := ToolInvocation{
		Tool:      call.Tool,
		Params:    call.Params,
		Timestamp: time.Now(),
	}
	tool, ok := o.tools.Get(call.Tool)
	if !ok {
		inv.Failed = true
		inv.Error = "tool not registered"
		inv.Summary = fmt.Sprintf("tool %s failed: not registered", call.Tool)
		return inv
	}
	start := time.Now()
	raw, err := tool.Execute(ctx, call.Params)
	inv.Duration = time.Since(start)
	if err != nil {
		inv.Failed = true
		inv.Error = err.Error()
		inv.Summary = fmt.Sprintf("tool %s failed: %v", call.Tool, err)
		o.log.Warn("tool invocation failed", zap.String("tool", call.Tool), zap.Error(err))
		return inv
	}
	inv.Raw = raw
	inv.Summary = o.summarize(raw)
	return inv
}

// observe asks the reasoner to extract findings from the most recent tool
// results and hypotheses.
func (o *Orchestrator) observe(ctx context.Context, rec *Record) {
	defer o.observePhase(PhaseObserve)()
	o.publishPhase(rec, PhaseObserve, "analyzing evidence")

	set, err := o.reasoner.Findings(ctx, ObserveContext{
		Subject:           rec.Subject,
		RecentInvocations: rec.RecentInvocations(observeInvocationWindow),
		RecentHypotheses:  rec.RecentHypotheses(observeHypothesisWindow),
	})
	if err != nil {
		o.log.Warn("reasoner findings failed", zap.String("id", rec.ID), zap.Error(err))
		set = FindingSet{}
	}
	now := time.Now()
	for i := range set.Findings {
		set.Findings[i].Confidence = clampConfidence(set.Findings[i].Confidence)
		set.Findings[i].Severity = normalizeSeverity(set.Findings[i].Severity)
		if set.Findings[i].Timestamp.IsZero() {
			set.Findings[i].Timestamp = now
		}
	}
	rec.appendFindings(set.Findings)

	for i := range set.Findings {
		o.publish(Event{
			InvestigationID: rec.ID,
			Type:            EventFinding,
			Phase:           PhaseObserve,
			Iteration:       rec.Iteration,
			Finding:         &set.Findings[i],
			Message:         set.Findings[i].Text,
		})
	}
}

// evaluate asks the reasoner for a resolution assessment over the full
// history, overwrites the confidence score, derives the status from the
// policy, and increments the iteration counter — exactly once per cycle.
func (o *Orchestrator) evaluate(ctx context.Context, rec *Record) {
	defer o.observePhase(PhaseEvaluate)()
	o.publishPhase(rec, PhaseEvaluate, "assessing confidence")

	a, err := o.reasoner.Assess(ctx, EvaluateContext{
		Subject:    rec.Subject,
		Findings:   rec.Findings,
		Hypotheses: rec.Hypotheses,
	})
	if err != nil {
		o.log.Warn("reasoner assessment failed", zap.String("id", rec.ID), zap.Error(err))
		a = Assessment{Confidence: FallbackConfidence(rec.Findings)}
	}

	rec.Confidence = clampConfidence(a.Confidence)
	rec.Status = o.policy.Action(rec.Confidence)
	if a.RootCause != "" {
		rec.RootCause = a.RootCause
	}
	// A resolution is only meaningful once the policy gates an action; while
	// still investigating the record carries none.
	if rec.Status != StatusInvestigating && a.Resolution != nil {
		res := *a.Resolution
		rec.Resolution = &res
	}
	rec.Iteration++

	o.publish(Event{
		InvestigationID: rec.ID,
		Type:            EventConfidence,
		Phase:           PhaseEvaluate,
		Iteration:       rec.Iteration,
		Confidence:      rec.Confidence,
		Status:          rec.Status,
		Message:         fmt.Sprintf("confidence %.1f%% → %s", rec.Confidence, rec.Status),
	})
	if rec.Resolution != nil {
		o.publish(Event{
			InvestigationID: rec.ID,
			Type:            EventResolution,
			Phase:           PhaseEvaluate,
			Iteration:       rec.Iteration,
			Status:          rec.Status,
			Message:         rec.Resolution.Action,
		})
	}
}

func (o *Orchestrator) publishPhase(rec *Record, phase Phase, msg string) {
	o.publish(Event{
		InvestigationID: rec.ID,
		Type:            EventPhase,
		Phase:           phase,
		Iteration:       rec.Iteration,
		Message:         msg,
	})
}

func (o *Orchestrator) publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	o.bus.publish(ev)
}

func (o *Orchestrator) observePhase(phase Phase) func() {
	start := time.Now()
	return func() {
		metrics.PhaseDuration.WithLabelValues(string(phase)).Observe(time.Since(start).Seconds())
	}
}

// FallbackConfidence derives a conservative score from the findings on
// record when the reasoner produced no usable assessment: the mean finding
// confidence, with a small bonus once three or more findings corroborate
// each other, and a low floor of 30 when there is nothing to go on.
func FallbackConfidence(findings []Finding) float64 {
	if len(findings) == 0 {
		return 30
	}
	var total float64
	for _, f := range findings {
		total += f.Confidence
	}
	avg := total / float64(len(findings))
	if len(findings) >= 3 {
		avg += 10
	}
	return clampConfidence(avg)
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

func normalizeSeverity(s string) string {
	switch s {
	case "critical", "high", "medium", "low":
		return s
	default:
		return "medium"
	}
}
