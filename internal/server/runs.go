package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/incidentloop/incidentloop/internal/audit"
	"github.com/incidentloop/incidentloop/internal/db"
	"github.com/incidentloop/incidentloop/internal/evidence"
	"github.com/incidentloop/incidentloop/internal/harness"
	"github.com/incidentloop/incidentloop/pkg/types"
)

// activeRun tracks one investigation from start through conclusion. The live
// view is maintained from the orchestrator's event stream; the full record is
// attached once the run finishes.
type activeRun struct {
	ID        string
	Subject   string
	CreatedAt time.Time

	orch   *harness.Orchestrator
	cancel context.CancelFunc

	mu         sync.RWMutex
	iteration  int
	confidence float64
	status     harness.Status
	done       bool
	final      *harness.Record
}

func (r *activeRun) view() types.Investigation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return types.Investigation{
		ID:         r.ID,
		Subject:    r.Subject,
		Iteration:  r.iteration,
		Confidence: r.confidence,
		Status:     r.status,
		Done:       r.done,
		CreatedAt:  r.CreatedAt,
		Record:     r.final,
		StreamURL:  fmt.Sprintf("/ws/investigations/%s", r.ID),
	}
}

// runManager owns all investigations started through the API.
type runManager struct {
	srv *Server

	mu   sync.RWMutex
	runs map[string]*activeRun
}

func newRunManager(srv *Server) *runManager {
	return &runManager{srv: srv, runs: make(map[string]*activeRun)}
}

// Start launches a new investigation and returns immediately with its ID.
func (m *runManager) Start(subject string, iterationLimit int) (*activeRun, error) {
	if iterationLimit < 1 {
		iterationLimit = m.srv.cfg.Harness.IterationLimit
	}

	orch, err := harness.New(harness.Config{
		Reasoner:   m.srv.reasoner,
		Tools:      m.srv.tools,
		Selection:  m.srv.selectionPolicy(),
		Thresholds: m.srv.thresholds(),
		Summarize:  evidence.Summarize,
		Logger:     m.srv.log,
	})
	if err != nil {
		return nil, err
	}

	rec := harness.NewRecord(uuid.NewString(), subject, iterationLimit)
	runCtx, cancel := context.WithCancel(m.srv.ctx)

	run := &activeRun{
		ID:        rec.ID,
		Subject:   subject,
		CreatedAt: rec.CreatedAt,
		orch:      orch,
		cancel:    cancel,
		status:    harness.StatusInvestigating,
	}

	m.mu.Lock()
	m.runs[run.ID] = run
	m.mu.Unlock()

	// Mirror the event stream into the live view before the loop starts so
	// GET requests never observe a stale confidence. Tool results are relayed
	// into the audit trail on the way through.
	sub := orch.Subscribe()
	go func() {
		for ev := range sub.Ch {
			switch ev.Type {
			case harness.EventToolResult:
				if ev.Invocation != nil {
					m.auditTool(run.ID, ev.Invocation)
				}
			case harness.EventConfidence, harness.EventDone:
				run.mu.Lock()
				run.iteration = ev.Iteration
				run.confidence = ev.Confidence
				if ev.Status != "" {
					run.status = ev.Status
				}
				run.mu.Unlock()
			}
		}
	}()

	if m.srv.audit != nil {
		_ = m.srv.audit.LogInvestigationStarted(runCtx, run.ID, subject)
	}
	m.srv.appendAudit(runCtx, run.ID, audit.EventInvestigationStarted, "", subject, audit.ResultSuccess)

	m.srv.wg.Add(1)
	go func() {
		defer m.srv.wg.Done()
		defer cancel()
		m.execute(runCtx, run, rec)
	}()

	return run, nil
}

// execute drives the run to completion and persists the outcome.
func (m *runManager) execute(ctx context.Context, run *activeRun, rec *harness.Record) {
	start := time.Now()
	final, err := run.orch.RunRecord(ctx, rec)
	if err != nil {
		m.srv.log.Error("investigation failed to start", zap.String("id", run.ID), zap.Error(err))
		bg := context.Background()
		if m.srv.audit != nil {
			_ = m.srv.audit.LogInvestigationFailed(bg, run.ID, err)
		}
		m.srv.appendAudit(bg, run.ID, audit.EventInvestigationFailed, "", err.Error(), audit.ResultFailure)
		run.mu.Lock()
		run.done = true
		run.mu.Unlock()
		return
	}

	run.mu.Lock()
	run.iteration = final.Iteration
	run.confidence = final.Confidence
	run.status = final.Status
	run.final = final
	run.done = true
	run.mu.Unlock()

	bg := context.Background()
	if m.srv.audit != nil {
		_ = m.srv.audit.LogInvestigationConcluded(bg, final.ID, string(final.Status), final.Confidence, time.Since(start))
		if final.Resolution != nil {
			_ = m.srv.audit.LogResolutionGated(bg, final.ID, string(final.Status), final.Resolution.Action, final.Confidence)
		}
	}
	m.srv.appendAudit(bg, final.ID, audit.EventInvestigationConcluded, string(final.Status),
		fmt.Sprintf("confidence %.1f after %d iteration(s)", final.Confidence, final.Iteration), audit.ResultSuccess)
	if final.Resolution != nil {
		m.srv.appendAudit(bg, final.ID, audit.ResolutionEventType(string(final.Status)),
			string(final.Status), final.Resolution.Action, audit.ResultSuccess)
	}

	if m.srv.store != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.srv.store.SaveInvestigation(saveCtx, db.FromHarnessRecord(final)); err != nil {
			m.srv.log.Error("failed to persist investigation", zap.String("id", final.ID), zap.Error(err))
		}
	}
}

// Get returns a run by ID.
func (m *runManager) Get(id string) (*activeRun, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	return run, ok
}

// List returns all runs, newest first.
func (m *runManager) List() []types.Investigation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	views := make([]types.Investigation, 0, len(m.runs))
	for _, run := range m.runs {
		views = append(views, run.view())
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views
}

// auditTool records one evidence tool invocation in the audit trail.
func (m *runManager) auditTool(id string, inv *harness.ToolInvocation) {
	ctx := context.Background()
	if inv.Failed {
		if m.srv.audit != nil {
			_ = m.srv.audit.LogToolFailed(ctx, id, inv.Tool, errors.New(inv.Error))
		}
		m.srv.appendAudit(ctx, id, audit.EventToolFailed, "",
			fmt.Sprintf("%s: %s", inv.Tool, inv.Error), audit.ResultFailure)
		return
	}
	if m.srv.audit != nil {
		_ = m.srv.audit.LogToolInvoked(ctx, id, inv.Tool, inv.Duration)
	}
	m.srv.appendAudit(ctx, id, audit.EventToolInvoked, "", inv.Tool, audit.ResultSuccess)
}

// Cancel stops a run in flight. The harness finishes its current cycle and
// concludes with whatever state it has.
func (m *runManager) Cancel(id string) error {
	run, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("investigation %s not found", id)
	}
	run.cancel()
	return nil
}
