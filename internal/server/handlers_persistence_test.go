package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/incidentloop/incidentloop/internal/config"
	"github.com/incidentloop/incidentloop/internal/db"
	"github.com/incidentloop/incidentloop/internal/harness"
	"github.com/incidentloop/incidentloop/pkg/types"
)

// newPersistentTestServer backs the API with an in-memory SQLite store.
func newPersistentTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Reasoner.Provider = "demo"
	cfg.Harness.IterationLimit = 3

	store, err := db.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	srv, err := New(cfg, zap.NewNop(), store, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		srv.cancel()
		srv.wg.Wait()
		_ = store.Close()
	})
	return srv
}

// waitForPersisted polls until the terminal record reaches the store.
func waitForPersisted(t *testing.T, srv *Server, id string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := srv.store.GetInvestigation(context.Background(), id); err == nil {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("investigation %s was never persisted", id)
}

// waitForAuditEvents polls until the audit log holds all of the given event
// types for one investigation. Tool events are appended from the event-stream
// mirror and can land slightly after the run concludes.
func waitForAuditEvents(t *testing.T, srv *Server, id string, want ...string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		events, err := srv.store.QueryAuditEvents(context.Background(), db.AuditQuery{InvestigationID: id})
		if err == nil {
			seen := make(map[string]bool, len(events))
			for _, ev := range events {
				seen[ev.EventType] = true
			}
			all := true
			for _, typ := range want {
				if !seen[typ] {
					all = false
					break
				}
			}
			if all {
				return
			}
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("audit log for %s never recorded all of %v", id, want)
}

func TestPersistenceHealth(t *testing.T) {
	srv := newPersistentTestServer(t)
	w := httptest.NewRecorder()
	srv.handlePersistenceDispatch(w, httptest.NewRequest(http.MethodGet, "/api/v1/persistence/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPersistence_StoreNotConfigured(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	srv.handlePersistenceDispatch(w, httptest.NewRequest(http.MethodGet, "/api/v1/persistence/investigations", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a store, got %d", w.Code)
	}
}

func TestPersistedHistoryAndAuditTrail(t *testing.T) {
	srv := newPersistentTestServer(t)
	created := postInvestigation(t, srv, "HTTP 502 errors spiking on api-gateway")
	waitForDone(t, srv, created.ID)
	waitForPersisted(t, srv, created.ID)

	// History list returns the persisted run in the public view shape.
	w := httptest.NewRecorder()
	srv.handlePersistenceDispatch(w, httptest.NewRequest(http.MethodGet, "/api/v1/persistence/investigations", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var list types.InvestigationList
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Count != 1 {
		t.Fatalf("expected 1 persisted investigation, got %d", list.Count)
	}
	if list.Investigations[0].ID != created.ID || !list.Investigations[0].Done {
		t.Errorf("unexpected persisted view: %+v", list.Investigations[0])
	}

	// Single record carries the rebuilt terminal record.
	w = httptest.NewRecorder()
	srv.handlePersistenceDispatch(w, httptest.NewRequest(http.MethodGet, "/api/v1/persistence/investigations/"+created.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var view types.Investigation
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Status != harness.StatusExecutingWithReview {
		t.Errorf("expected %s, got %s", harness.StatusExecutingWithReview, view.Status)
	}
	if view.Record == nil || len(view.Record.Findings) == 0 || view.Record.Resolution == nil {
		t.Error("expected the persisted view to carry findings and the gated resolution")
	}

	// Lifecycle, gating and tool events all reach the store-backed audit log.
	waitForAuditEvents(t, srv, created.ID,
		"investigation.started",
		"investigation.concluded",
		"resolution.executing_with_review",
		"tool.invoked",
	)

	// Filtered query over HTTP.
	w = httptest.NewRecorder()
	srv.handlePersistenceDispatch(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/persistence/audit?investigation_id="+created.ID+"&event_type=investigation.started", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Events []*db.AuditRecord `json:"events"`
		Total  int               `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode audit response: %v", err)
	}
	if body.Total != 1 || body.Events[0].EventType != "investigation.started" {
		t.Errorf("unexpected filtered audit result: %+v", body)
	}

	// Delete removes the persisted record.
	w = httptest.NewRecorder()
	srv.handlePersistenceDispatch(w, httptest.NewRequest(http.MethodDelete, "/api/v1/persistence/investigations/"+created.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d: %s", w.Code, w.Body.String())
	}
	w = httptest.NewRecorder()
	srv.handlePersistenceDispatch(w, httptest.NewRequest(http.MethodGet, "/api/v1/persistence/investigations/"+created.ID, nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestGetInvestigation_PersistedFallbackShape(t *testing.T) {
	srv := newPersistentTestServer(t)
	created := postInvestigation(t, srv, "database timeouts")
	waitForDone(t, srv, created.ID)
	waitForPersisted(t, srv, created.ID)

	// Simulate a restart: the run is gone from memory but survives in the store.
	srv.runs.mu.Lock()
	delete(srv.runs.runs, created.ID)
	srv.runs.mu.Unlock()

	w := httptest.NewRecorder()
	srv.handleInvestigationByID(w, httptest.NewRequest(http.MethodGet, "/api/v1/investigations/"+created.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var view types.Investigation
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ID != created.ID || !view.Done {
		t.Errorf("unexpected stored view: %+v", view)
	}
	if view.Status != harness.StatusExecutingWithReview {
		t.Errorf("expected %s, got %s", harness.StatusExecutingWithReview, view.Status)
	}
	if view.Record == nil || len(view.Record.Findings) == 0 {
		t.Error("expected the stored view to carry the rebuilt record")
	}
}

func TestParseIntParam(t *testing.T) {
	if got := parseIntParam("", 50); got != 50 {
		t.Errorf("expected default 50, got %d", got)
	}
	if got := parseIntParam("7", 50); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if got := parseIntParam("-3", 50); got != 50 {
		t.Errorf("expected default for negative input, got %d", got)
	}
	if got := parseIntParam("nope", 50); got != 50 {
		t.Errorf("expected default for junk input, got %d", got)
	}
}
