package server

// Persistence layer REST handlers.
//
// Routes (all under /api/v1/persistence/):
//   GET    /api/v1/persistence/health               → ping the store
//   GET    /api/v1/persistence/audit                → query the audit event log
//                                                     (investigation_id/event_type/from/to/limit/offset)
//   GET    /api/v1/persistence/investigations       → list persisted investigations (limit/offset)
//   GET    /api/v1/persistence/investigations/{id}  → get one persisted investigation
//   DELETE /api/v1/persistence/investigations/{id}  → delete a persisted investigation

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/incidentloop/incidentloop/internal/audit"
	"github.com/incidentloop/incidentloop/internal/db"
	"github.com/incidentloop/incidentloop/internal/harness"
	"github.com/incidentloop/incidentloop/pkg/types"
)

// handlePersistenceDispatch routes /api/v1/persistence/* requests.
func (s *Server) handlePersistenceDispatch(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error": "persistence store not configured",
		})
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/persistence")
	path = strings.TrimPrefix(path, "/")

	switch {
	case path == "" || path == "health":
		s.handlePersistenceHealth(w, r)
	case path == "audit":
		s.handlePersistenceAuditQuery(w, r)
	case path == "investigations":
		s.handlePersistenceList(w, r)
	case strings.HasPrefix(path, "investigations/"):
		s.handlePersistenceByID(w, r, strings.TrimPrefix(path, "investigations/"))
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) handlePersistenceHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"backend": "sqlite",
	})
}

func (s *Server) handlePersistenceAuditQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	aq := db.AuditQuery{
		InvestigationID: q.Get("investigation_id"),
		EventType:       q.Get("event_type"),
		Limit:           parseIntParam(q.Get("limit"), 50),
		Offset:          parseIntParam(q.Get("offset"), 0),
	}
	if v := q.Get("from"); v != "" {
		aq.From, _ = time.Parse(time.RFC3339, v)
	}
	if v := q.Get("to"); v != "" {
		aq.To, _ = time.Parse(time.RFC3339, v)
	}

	events, err := s.store.QueryAuditEvents(r.Context(), aq)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*db.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  len(events),
	})
}

func (s *Server) handlePersistenceList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	recs, err := s.store.ListInvestigations(r.Context(),
		parseIntParam(q.Get("limit"), 50), parseIntParam(q.Get("offset"), 0))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]types.Investigation, 0, len(recs))
	for _, rec := range recs {
		views = append(views, storedInvestigation(rec))
	}
	writeJSON(w, http.StatusOK, types.InvestigationList{
		Investigations: views,
		Count:          len(views),
	})
}

func (s *Server) handlePersistenceByID(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		http.Error(w, "investigation ID required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := s.store.GetInvestigation(r.Context(), id)
		if err != nil {
			http.Error(w, "investigation not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, storedInvestigation(rec))
	case http.MethodDelete:
		if _, err := s.store.GetInvestigation(r.Context(), id); err != nil {
			http.Error(w, "investigation not found", http.StatusNotFound)
			return
		}
		if err := s.store.DeleteInvestigation(r.Context(), id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":     id,
			"status": "deleted",
		})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// storedInvestigation converts a persisted record into the public view, the
// same shape live runs return. Only terminal records are persisted, so the
// view is always done; there is no live stream to link.
func storedInvestigation(rec *db.InvestigationRecord) types.Investigation {
	return types.Investigation{
		ID:         rec.ID,
		Subject:    rec.Subject,
		Iteration:  rec.Iteration,
		Confidence: rec.Confidence,
		Status:     harness.Status(rec.Status),
		Done:       true,
		CreatedAt:  rec.CreatedAt,
		Record:     db.ToHarnessRecord(rec),
	}
}

// appendAudit mirrors an audit event into the store-backed event log. The
// rotated file trail and the store are independent sinks; a missing store
// just skips the mirror.
func (s *Server) appendAudit(ctx context.Context, id string, typ audit.EventType, status, description string, result audit.Result) {
	if s.store == nil {
		return
	}
	rec := &db.AuditRecord{
		InvestigationID: id,
		EventType:       string(typ),
		Description:     description,
		Status:          status,
		Result:          string(result),
		Metadata:        "{}",
		Timestamp:       time.Now().UTC(),
	}
	if err := s.store.AppendAuditEvent(ctx, rec); err != nil {
		s.log.Warn("failed to append audit event",
			zap.String("event_type", string(typ)), zap.Error(err))
	}
}

func parseIntParam(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return def
	}
	return v
}
