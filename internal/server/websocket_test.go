package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/incidentloop/incidentloop/internal/harness"
)

func TestInvestigationStream(t *testing.T) {
	srv := newTestServer(t)
	mux := http.NewServeMux()
	srv.registerHandlers(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	created := postInvestigation(t, srv, "502 errors on api-gateway")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/investigations/" + created.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// Read events until the terminal one arrives. The demo run concludes
	// after one cycle, so a few seconds is plenty.
	var events []harness.Event
	deadline := time.Now().Add(10 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed after %d events: %v", len(events), err)
		}
		var ev harness.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		events = append(events, ev)
		if ev.Type == harness.EventDone {
			break
		}
	}

	if len(events) == 0 {
		t.Fatal("expected at least the terminal event")
	}
	last := events[len(events)-1]
	if last.Status != harness.StatusExecutingWithReview {
		t.Errorf("expected terminal status %s, got %s", harness.StatusExecutingWithReview, last.Status)
	}
	for _, ev := range events {
		if ev.InvestigationID != created.ID {
			t.Errorf("event for wrong investigation: %s", ev.InvestigationID)
		}
	}
}

func TestInvestigationStream_UnknownID(t *testing.T) {
	srv := newTestServer(t)
	mux := http.NewServeMux()
	srv.registerHandlers(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ws/investigations/does-not-exist")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestInvestigationStream_DisallowedOrigin(t *testing.T) {
	srv := newTestServer(t)
	mux := http.NewServeMux()
	srv.registerHandlers(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	created := postInvestigation(t, srv, "subject")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/investigations/" + created.ID
	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		t.Fatal("expected handshake rejection for disallowed origin")
	}
	if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}
}
