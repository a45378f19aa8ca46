// Package audit provides an append-only audit trail for investigation
// lifecycle and resolution-gating events, written as rotated JSON lines.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger defines the interface for audit logging
type Logger interface {
	// Log logs an audit event
	Log(ctx context.Context, event *Event) error

	// Investigation lifecycle events
	LogInvestigationStarted(ctx context.Context, investigationID, subject string) error
	LogInvestigationConcluded(ctx context.Context, investigationID, status string, confidence float64, duration time.Duration) error
	LogInvestigationFailed(ctx context.Context, investigationID string, err error) error

	// Resolution gating events
	LogResolutionGated(ctx context.Context, investigationID, status, action string, confidence float64) error

	// Evidence events
	LogToolInvoked(ctx context.Context, investigationID, tool string, duration time.Duration) error
	LogToolFailed(ctx context.Context, investigationID, tool string, err error) error

	// Sync flushes buffered log entries
	Sync() error

	// Close closes the audit logger
	Close() error
}

// Config represents audit logger configuration
type Config struct {
	// Path is the path to the audit log file
	Path string

	// MaxSize is the maximum size in megabytes before rotation
	MaxSize int

	// MaxBackups is the maximum number of old log files to retain
	MaxBackups int

	// MaxAge is the maximum number of days to retain old log files
	MaxAge int

	// Compress determines if rotated files should be compressed
	Compress bool
}

// DefaultConfig returns default audit logger configuration
func DefaultConfig() *Config {
	return &Config{
		Path:       "logs/audit.log",
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     90,
		Compress:   true,
	}
}

// auditLogger implements the Logger interface
type auditLogger struct {
	app         *zap.Logger
	sink        *zap.Logger
	config      *Config
	mu          sync.Mutex
	buffer      []*Event
	flushTicker *time.Ticker
	stopCh      chan struct{}
}

// NewLogger creates a new audit logger. The app logger receives operational
// errors (e.g. marshal failures); the audit sink itself is a separate rotated
// file that only ever receives events.
func NewLogger(config *Config, app *zap.Logger) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if app == nil {
		app = zap.NewNop()
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}

	rotator := &lumberjack.Logger{
		Filename:   config.Path,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}

	// Audit entries are always written regardless of app log level.
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		zapcore.InfoLevel,
	)

	l := &auditLogger{
		app:         app,
		sink:        zap.New(core),
		config:      config,
		buffer:      make([]*Event, 0, 100),
		flushTicker: time.NewTicker(1 * time.Second),
		stopCh:      make(chan struct{}),
	}
	go l.autoFlush()
	return l, nil
}

// Log logs an audit event
func (l *auditLogger) Log(ctx context.Context, event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buffer = append(l.buffer, event)
	if len(l.buffer) >= 100 {
		return l.flushLocked()
	}
	return nil
}

// flushLocked flushes the buffer (caller must hold lock)
func (l *auditLogger) flushLocked() error {
	if len(l.buffer) == 0 {
		return nil
	}

	for _, event := range l.buffer {
		eventJSON, err := json.Marshal(event)
		if err != nil {
			l.app.Error("failed to marshal audit event",
				zap.Error(err),
				zap.String("event_type", string(event.EventType)))
			continue
		}
		l.sink.Info(string(eventJSON),
			zap.String("investigation_id", event.InvestigationID),
			zap.String("event_type", string(event.EventType)),
			zap.String("result", string(event.Result)))
	}

	l.buffer = l.buffer[:0]
	return nil
}

// autoFlush periodically flushes the buffer
func (l *auditLogger) autoFlush() {
	for {
		select {
		case <-l.flushTicker.C:
			l.mu.Lock()
			_ = l.flushLocked()
			l.mu.Unlock()
		case <-l.stopCh:
			return
		}
	}
}

// LogInvestigationStarted logs when an investigation starts
func (l *auditLogger) LogInvestigationStarted(ctx context.Context, investigationID, subject string) error {
	event := NewEvent(EventInvestigationStarted).
		WithInvestigationID(investigationID).
		WithSubject(subject).
		WithResult(ResultSuccess).
		WithDescription(fmt.Sprintf("Investigation %s started", investigationID))
	return l.Log(ctx, event)
}

// LogInvestigationConcluded logs when an investigation reaches a terminal or
// budget-exhausted state.
func (l *auditLogger) LogInvestigationConcluded(ctx context.Context, investigationID, status string, confidence float64, duration time.Duration) error {
	event := NewEvent(EventInvestigationConcluded).
		WithInvestigationID(investigationID).
		WithStatus(status).
		WithConfidence(confidence).
		WithResult(ResultSuccess).
		WithDuration(duration).
		WithDescription(fmt.Sprintf("Investigation %s concluded with status %s", investigationID, status))
	return l.Log(ctx, event)
}

// LogInvestigationFailed logs when an investigation fails to start or run
func (l *auditLogger) LogInvestigationFailed(ctx context.Context, investigationID string, err error) error {
	event := NewEvent(EventInvestigationFailed).
		WithInvestigationID(investigationID).
		WithError(err).
		WithDescription(fmt.Sprintf("Investigation %s failed", investigationID))
	return l.Log(ctx, event)
}

// LogResolutionGated records the gating decision attached to a resolution.
func (l *auditLogger) LogResolutionGated(ctx context.Context, investigationID, status, action string, confidence float64) error {
	event := NewEvent(ResolutionEventType(status)).
		WithInvestigationID(investigationID).
		WithStatus(status).
		WithConfidence(confidence).
		WithResult(ResultSuccess).
		WithDescription(action)
	return l.Log(ctx, event)
}

// LogToolInvoked logs a completed evidence tool invocation
func (l *auditLogger) LogToolInvoked(ctx context.Context, investigationID, tool string, duration time.Duration) error {
	event := NewEvent(EventToolInvoked).
		WithInvestigationID(investigationID).
		WithTool(tool).
		WithResult(ResultSuccess).
		WithDuration(duration)
	return l.Log(ctx, event)
}

// LogToolFailed logs a failed evidence tool invocation
func (l *auditLogger) LogToolFailed(ctx context.Context, investigationID, tool string, err error) error {
	event := NewEvent(EventToolFailed).
		WithInvestigationID(investigationID).
		WithTool(tool).
		WithError(err)
	return l.Log(ctx, event)
}

// Sync flushes buffered log entries
func (l *auditLogger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.flushLocked(); err != nil {
		return err
	}
	return l.sink.Sync()
}

// Close closes the audit logger
func (l *auditLogger) Close() error {
	close(l.stopCh)
	l.flushTicker.Stop()
	return l.Sync()
}
