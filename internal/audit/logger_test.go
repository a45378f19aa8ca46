package audit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestLogger(t *testing.T) (Logger, *Config) {
	t.Helper()
	tmpDir := t.TempDir()
	config := &Config{
		Path:       filepath.Join(tmpDir, "audit.log"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     7,
	}
	logger, err := NewLogger(config, nil)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger, config
}

func readAuditLog(t *testing.T, logger Logger, config *Config) string {
	t.Helper()
	if err := logger.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	content, err := os.ReadFile(config.Path)
	if err != nil {
		t.Fatalf("failed to read audit log: %v", err)
	}
	return string(content)
}

func TestNewLogger(t *testing.T) {
	logger, _ := newTestLogger(t)
	if logger == nil {
		t.Fatal("Expected logger to be non-nil")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Path != "logs/audit.log" {
		t.Errorf("Expected audit log path 'logs/audit.log', got %s", config.Path)
	}
	if config.MaxSize != 100 {
		t.Errorf("Expected max size 100, got %d", config.MaxSize)
	}
	if config.MaxBackups != 5 {
		t.Errorf("Expected max backups 5, got %d", config.MaxBackups)
	}
	if config.MaxAge != 90 {
		t.Errorf("Expected max age 90, got %d", config.MaxAge)
	}
}

func TestLogEvent(t *testing.T) {
	logger, config := newTestLogger(t)

	ctx := context.Background()
	event := NewEvent(EventInvestigationStarted).
		WithInvestigationID("inv-123").
		WithSubject("HTTP 502 errors on api-gateway").
		WithResult(ResultSuccess)

	if err := logger.Log(ctx, event); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	content := readAuditLog(t, logger, config)
	if !strings.Contains(content, "inv-123") {
		t.Error("Expected audit log to contain investigation ID")
	}
	if !strings.Contains(content, string(EventInvestigationStarted)) {
		t.Error("Expected audit log to contain event type")
	}
}

func TestInvestigationLifecycleEvents(t *testing.T) {
	logger, config := newTestLogger(t)
	ctx := context.Background()

	if err := logger.LogInvestigationStarted(ctx, "inv-1", "error spike"); err != nil {
		t.Fatalf("LogInvestigationStarted failed: %v", err)
	}
	if err := logger.LogInvestigationConcluded(ctx, "inv-1", "awaiting_approval", 75, 2*time.Second); err != nil {
		t.Fatalf("LogInvestigationConcluded failed: %v", err)
	}
	if err := logger.LogInvestigationFailed(ctx, "inv-2", errors.New("boom")); err != nil {
		t.Fatalf("LogInvestigationFailed failed: %v", err)
	}

	content := readAuditLog(t, logger, config)
	for _, want := range []string{
		string(EventInvestigationStarted),
		string(EventInvestigationConcluded),
		string(EventInvestigationFailed),
		"awaiting_approval",
		"boom",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Expected audit log to contain %q", want)
		}
	}
}

func TestResolutionGatedEventTypes(t *testing.T) {
	logger, config := newTestLogger(t)
	ctx := context.Background()

	cases := []struct {
		status string
		want   EventType
	}{
		{"awaiting_approval", EventResolutionProposed},
		{"executing_with_review", EventResolutionReviewed},
		{"auto_executing", EventResolutionAutoExecuted},
	}
	for _, tc := range cases {
		if err := logger.LogResolutionGated(ctx, "inv-1", tc.status, "rollback deployment abc123", 90); err != nil {
			t.Fatalf("LogResolutionGated(%s) failed: %v", tc.status, err)
		}
	}

	content := readAuditLog(t, logger, config)
	for _, tc := range cases {
		if !strings.Contains(content, string(tc.want)) {
			t.Errorf("Expected audit log to contain event type %q for status %q", tc.want, tc.status)
		}
	}
}

func TestToolEvents(t *testing.T) {
	logger, config := newTestLogger(t)
	ctx := context.Background()

	if err := logger.LogToolInvoked(ctx, "inv-1", "log_search", 500*time.Millisecond); err != nil {
		t.Fatalf("LogToolInvoked failed: %v", err)
	}
	if err := logger.LogToolFailed(ctx, "inv-1", "service_metrics", errors.New("timeout")); err != nil {
		t.Fatalf("LogToolFailed failed: %v", err)
	}

	content := readAuditLog(t, logger, config)
	if !strings.Contains(content, "log_search") {
		t.Error("Expected audit log to contain tool name")
	}
	if !strings.Contains(content, string(EventToolFailed)) {
		t.Error("Expected audit log to contain tool failure event")
	}
}

func TestEventBuilder(t *testing.T) {
	event := NewEvent(EventResolutionProposed).
		WithInvestigationID("inv-9").
		WithSubject("subject").
		WithTool("log_search").
		WithConfidence(88).
		WithStatus("executing_with_review").
		WithDescription("desc").
		WithMetadata("key", "value").
		WithDuration(1500 * time.Millisecond).
		WithResult(ResultSuccess)

	if event.InvestigationID != "inv-9" {
		t.Errorf("unexpected investigation ID: %s", event.InvestigationID)
	}
	if event.Confidence != 88 {
		t.Errorf("unexpected confidence: %v", event.Confidence)
	}
	if event.DurationMs != 1500 {
		t.Errorf("unexpected duration: %d", event.DurationMs)
	}
	if event.Metadata["key"] != "value" {
		t.Error("expected metadata to be set")
	}
	if event.Result != ResultSuccess {
		t.Errorf("unexpected result: %s", event.Result)
	}
}

func TestWithErrorSetsFailure(t *testing.T) {
	event := NewEvent(EventInvestigationFailed).WithError(errors.New("it broke"))
	if event.Result != ResultFailure {
		t.Errorf("expected result failure, got %s", event.Result)
	}
	if event.Error != "it broke" {
		t.Errorf("unexpected error text: %s", event.Error)
	}
}

func TestAutoFlush(t *testing.T) {
	logger, config := newTestLogger(t)
	ctx := context.Background()

	if err := logger.LogInvestigationStarted(ctx, "inv-flush", "subject"); err != nil {
		t.Fatalf("LogInvestigationStarted failed: %v", err)
	}

	// The background flusher runs every second.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if content, err := os.ReadFile(config.Path); err == nil && strings.Contains(string(content), "inv-flush") {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Error("expected auto-flush to write buffered event")
}
