package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/incidentloop/incidentloop/pkg/types"
)

// handleHealth handles liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// handleReady handles readiness checks. The store must answer a ping when
// persistence is configured.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ready := s.IsRunning()
	if ready && s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			ready = false
		}
	}
	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, types.HealthResponse{Status: "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// handleInvestigations handles GET (list) and POST (create) requests.
func (s *Server) handleInvestigations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListInvestigations(w, r)
	case http.MethodPost:
		s.handleCreateInvestigation(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListInvestigations(w http.ResponseWriter, r *http.Request) {
	views := s.runs.List()
	writeJSON(w, http.StatusOK, types.InvestigationList{
		Investigations: views,
		Count:          len(views),
	})
}

func (s *Server) handleCreateInvestigation(w http.ResponseWriter, r *http.Request) {
	var req types.CreateInvestigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Subject) == "" {
		http.Error(w, "subject is required", http.StatusBadRequest)
		return
	}

	run, err := s.runs.Start(req.Subject, req.IterationLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, run.view())
}

// handleInvestigationByID handles GET /{id} and DELETE /{id}.
func (s *Server) handleInvestigationByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/investigations/")
	id = strings.TrimSuffix(id, "/")
	if id == "" {
		http.Error(w, "investigation ID required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetInvestigation(w, r, id)
	case http.MethodDelete:
		s.handleCancelInvestigation(w, r, id)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGetInvestigation(w http.ResponseWriter, r *http.Request, id string) {
	if run, ok := s.runs.Get(id); ok {
		writeJSON(w, http.StatusOK, run.view())
		return
	}
	// Fall back to the persisted record for runs from earlier processes,
	// converted to the same view shape live runs return.
	if s.store != nil {
		if rec, err := s.store.GetInvestigation(r.Context(), id); err == nil {
			writeJSON(w, http.StatusOK, storedInvestigation(rec))
			return
		}
	}
	http.Error(w, "investigation not found", http.StatusNotFound)
}

func (s *Server) handleCancelInvestigation(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.runs.Cancel(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, types.CancelResponse{ID: id, Cancelled: true})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
