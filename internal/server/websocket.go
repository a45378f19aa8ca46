package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/incidentloop/incidentloop/internal/harness"
	"github.com/incidentloop/incidentloop/internal/metrics"
)

// defaultOrigins are the origins allowed when none are configured.
var defaultOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// newUpgrader builds a websocket upgrader that enforces the configured origin
// allow list. Requests without an Origin header (curl, same-host tooling) are
// always allowed; ["*"] allows any origin.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	origins := allowedOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range origins {
				if allowed == "*" {
					return true
				}
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// handleInvestigationStream streams investigation events over WebSocket.
// URL pattern: /ws/investigations/{id}
func (s *Server) handleInvestigationStream(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/ws/investigations/")
	id = strings.TrimSuffix(id, "/")
	if id == "" {
		http.Error(w, "investigation ID required", http.StatusBadRequest)
		return
	}

	run, ok := s.runs.Get(id)
	if !ok {
		http.Error(w, "investigation not found", http.StatusNotFound)
		return
	}

	upgrader := newUpgrader(s.cfg.Server.AllowedOrigins)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()
	s.log.Debug("event stream opened", zap.String("id", id))

	sub := run.orch.Subscribe()

	// Stream events until the run finishes or the client goes away.
	sawDone := false
	for ev := range sub.Ch {
		conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
		metrics.WebSocketMessagesTotal.WithLabelValues("outbound").Inc()
		if ev.Type == harness.EventDone {
			sawDone = true
			break
		}
	}

	// The channel closes immediately for runs that already concluded;
	// synthesize the terminal event so late subscribers still get an answer.
	view := run.view()
	if !sawDone && view.Done {
		ev := harness.Event{
			InvestigationID: run.ID,
			Type:            harness.EventDone,
			Iteration:       view.Iteration,
			Confidence:      view.Confidence,
			Status:          view.Status,
			Timestamp:       time.Now(),
		}
		if data, err := json.Marshal(ev); err == nil {
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = conn.WriteMessage(websocket.TextMessage, data)
			metrics.WebSocketMessagesTotal.WithLabelValues("outbound").Inc()
		}
	}
}
