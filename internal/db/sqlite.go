package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)
)

// schema defines the tables for the persistence layer.
// Version is tracked in the schema_versions table.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS investigations (
    id              TEXT PRIMARY KEY,
    subject         TEXT NOT NULL,
    iteration       INTEGER NOT NULL DEFAULT 0,
    iteration_limit INTEGER NOT NULL DEFAULT 5,
    confidence      REAL NOT NULL DEFAULT 0.0,
    status          TEXT NOT NULL DEFAULT 'investigating',
    root_cause      TEXT NOT NULL DEFAULT '',
    resolution      TEXT NOT NULL DEFAULT '',
    created_at      DATETIME NOT NULL,
    updated_at      DATETIME NOT NULL,
    concluded_at    DATETIME
);
CREATE INDEX IF NOT EXISTS idx_investigations_status ON investigations(status);
CREATE INDEX IF NOT EXISTS idx_investigations_created_at ON investigations(created_at DESC);

CREATE TABLE IF NOT EXISTS investigation_hypotheses (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    investigation_id TEXT NOT NULL REFERENCES investigations(id) ON DELETE CASCADE,
    statement TEXT NOT NULL,
    confidence REAL NOT NULL DEFAULT 0.0,
    evidence_needed TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_hypotheses_investigation_id ON investigation_hypotheses(investigation_id);

CREATE TABLE IF NOT EXISTS investigation_findings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    investigation_id TEXT NOT NULL REFERENCES investigations(id) ON DELETE CASCADE,
    statement TEXT NOT NULL,
    severity TEXT NOT NULL DEFAULT 'medium',
    confidence REAL NOT NULL DEFAULT 0.0,
    timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_findings_investigation_id ON investigation_findings(investigation_id);

CREATE TABLE IF NOT EXISTS investigation_tool_calls (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    investigation_id TEXT NOT NULL REFERENCES investigations(id) ON DELETE CASCADE,
    tool_name TEXT NOT NULL,
    params TEXT NOT NULL DEFAULT '{}',
    summary TEXT NOT NULL DEFAULT '',
    failed INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL DEFAULT 0,
    timestamp DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tool_calls_investigation_id ON investigation_tool_calls(investigation_id);

CREATE TABLE IF NOT EXISTS audit_events (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    investigation_id TEXT NOT NULL DEFAULT '',
    event_type       TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL DEFAULT '',
    result           TEXT NOT NULL DEFAULT '',
    metadata         TEXT NOT NULL DEFAULT '{}',
    timestamp        DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_audit_investigation_id ON audit_events(investigation_id);
CREATE INDEX IF NOT EXISTS idx_audit_event_type ON audit_events(event_type);
`,
	},
}

// sqliteStore is the SQLite-backed implementation of Store.
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path and
// runs all pending schema migrations. Pass ":memory:" for an in-memory store.
func NewSQLiteStore(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// Enable WAL mode for better concurrency and performance.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	// Enable foreign-key constraints.
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &sqliteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate applies any unapplied migrations in order.
func (s *sqliteStore) migrate() error {
	// Ensure schema_versions table exists before reading from it.
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version    INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue // already applied
		}

		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}

		if _, err := s.db.Exec(`INSERT INTO schema_versions(version) VALUES(?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// ─── Investigations ───────────────────────────────────────────────────────────

func (s *sqliteStore) SaveInvestigation(ctx context.Context, rec *InvestigationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var concludedAt any
	if rec.ConcludedAt != nil {
		concludedAt = rec.ConcludedAt.UTC()
	}
	_, err = tx.ExecContext(ctx, `
        INSERT INTO investigations(id, subject, iteration, iteration_limit, confidence, status, root_cause, resolution, created_at, updated_at, concluded_at)
        VALUES(?,?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(id) DO UPDATE SET
            iteration    = excluded.iteration,
            confidence   = excluded.confidence,
            status       = excluded.status,
            root_cause   = excluded.root_cause,
            resolution   = excluded.resolution,
            updated_at   = excluded.updated_at,
            concluded_at = excluded.concluded_at
    `,
		rec.ID, rec.Subject, rec.Iteration, rec.IterationLimit, rec.Confidence,
		rec.Status, rec.RootCause, rec.Resolution,
		rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(), concludedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert investigation: %w", err)
	}

	// hypotheses
	if _, err := tx.ExecContext(ctx, `DELETE FROM investigation_hypotheses WHERE investigation_id=?`, rec.ID); err != nil {
		return fmt.Errorf("delete hypotheses: %w", err)
	}
	for _, h := range rec.Hypotheses {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO investigation_hypotheses(investigation_id, statement, confidence, evidence_needed)
            VALUES(?,?,?,?)
        `, rec.ID, h.Statement, h.Confidence, h.EvidenceNeeded)
		if err != nil {
			return fmt.Errorf("insert hypothesis: %w", err)
		}
	}

	// findings
	if _, err := tx.ExecContext(ctx, `DELETE FROM investigation_findings WHERE investigation_id=?`, rec.ID); err != nil {
		return fmt.Errorf("delete findings: %w", err)
	}
	for _, f := range rec.Findings {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO investigation_findings(investigation_id, statement, severity, confidence, timestamp)
            VALUES(?,?,?,?,?)
        `, rec.ID, f.Statement, f.Severity, f.Confidence, f.Timestamp.UTC())
		if err != nil {
			return fmt.Errorf("insert finding: %w", err)
		}
	}

	// tool calls
	if _, err := tx.ExecContext(ctx, `DELETE FROM investigation_tool_calls WHERE investigation_id=?`, rec.ID); err != nil {
		return fmt.Errorf("delete tool_calls: %w", err)
	}
	for _, tc := range rec.ToolCalls {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO investigation_tool_calls(investigation_id, tool_name, params, summary, failed, error, duration_ms, timestamp)
            VALUES(?,?,?,?,?,?,?,?)
        `, rec.ID, tc.ToolName, tc.Params, tc.Summary, tc.Failed, tc.Error, tc.DurationMs, tc.Timestamp.UTC())
		if err != nil {
			return fmt.Errorf("insert tool_call: %w", err)
		}
	}

	return tx.Commit()
}

func (s *sqliteStore) GetInvestigation(ctx context.Context, id string) (*InvestigationRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,subject,iteration,iteration_limit,confidence,status,root_cause,resolution,created_at,updated_at,concluded_at FROM investigations WHERE id=?`, id)
	rec, err := scanInvestigation(row)
	if err != nil {
		return nil, err
	}

	// hypotheses
	hRows, err := s.db.QueryContext(ctx, `SELECT statement,confidence,evidence_needed FROM investigation_hypotheses WHERE investigation_id=? ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query hypotheses: %w", err)
	}
	defer hRows.Close()
	for hRows.Next() {
		var h HypothesisRecord
		h.InvestigationID = id
		if err := hRows.Scan(&h.Statement, &h.Confidence, &h.EvidenceNeeded); err != nil {
			return nil, err
		}
		rec.Hypotheses = append(rec.Hypotheses, h)
	}

	// findings
	fRows, err := s.db.QueryContext(ctx, `SELECT statement,severity,confidence,timestamp FROM investigation_findings WHERE investigation_id=? ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer fRows.Close()
	for fRows.Next() {
		var f FindingRecord
		var ts string
		f.InvestigationID = id
		if err := fRows.Scan(&f.Statement, &f.Severity, &f.Confidence, &ts); err != nil {
			return nil, err
		}
		f.Timestamp, _ = parseTime(ts)
		rec.Findings = append(rec.Findings, f)
	}

	// tool calls
	tcRows, err := s.db.QueryContext(ctx, `SELECT tool_name,params,summary,failed,error,duration_ms,timestamp FROM investigation_tool_calls WHERE investigation_id=? ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query tool_calls: %w", err)
	}
	defer tcRows.Close()
	for tcRows.Next() {
		var tc ToolInvocationRecord
		var ts string
		tc.InvestigationID = id
		if err := tcRows.Scan(&tc.ToolName, &tc.Params, &tc.Summary, &tc.Failed, &tc.Error, &tc.DurationMs, &ts); err != nil {
			return nil, err
		}
		tc.Timestamp, _ = parseTime(ts)
		rec.ToolCalls = append(rec.ToolCalls, tc)
	}

	return rec, nil
}

func (s *sqliteStore) ListInvestigations(ctx context.Context, limit, offset int) ([]*InvestigationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id,subject,iteration,iteration_limit,confidence,status,root_cause,resolution,created_at,updated_at,concluded_at FROM investigations ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*InvestigationRecord
	for rows.Next() {
		rec, err := scanInvestigation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *sqliteStore) DeleteInvestigation(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM investigations WHERE id=?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvestigation(row rowScanner) (*InvestigationRecord, error) {
	rec := &InvestigationRecord{}
	var createdAt, updatedAt string
	var concludedAt sql.NullString
	err := row.Scan(&rec.ID, &rec.Subject, &rec.Iteration, &rec.IterationLimit,
		&rec.Confidence, &rec.Status, &rec.RootCause, &rec.Resolution,
		&createdAt, &updatedAt, &concludedAt)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt, _ = parseTime(createdAt)
	rec.UpdatedAt, _ = parseTime(updatedAt)
	if concludedAt.Valid {
		if t, err := parseTime(concludedAt.String); err == nil {
			rec.ConcludedAt = &t
		}
	}
	return rec, nil
}

// ─── Audit events ─────────────────────────────────────────────────────────────

func (s *sqliteStore) AppendAuditEvent(ctx context.Context, rec *AuditRecord) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO audit_events(investigation_id, event_type, description, status, result, metadata, timestamp)
        VALUES(?,?,?,?,?,?,?)
    `,
		rec.InvestigationID, rec.EventType, rec.Description, rec.Status,
		rec.Result, rec.Metadata, rec.Timestamp.UTC(),
	)
	return err
}

func (s *sqliteStore) QueryAuditEvents(ctx context.Context, q AuditQuery) ([]*AuditRecord, error) {
	query := `SELECT id,investigation_id,event_type,description,status,result,metadata,timestamp FROM audit_events WHERE 1=1`
	args := []any{}

	if q.InvestigationID != "" {
		query += ` AND investigation_id = ?`
		args = append(args, q.InvestigationID)
	}
	if q.EventType != "" {
		query += ` AND event_type = ?`
		args = append(args, q.EventType)
	}
	if !q.From.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, q.From.UTC())
	}
	if !q.To.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, q.To.UTC())
	}
	query += ` ORDER BY timestamp DESC`
	if q.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d OFFSET %d`, q.Limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*AuditRecord
	for rows.Next() {
		rec := &AuditRecord{}
		var ts string
		if err := rows.Scan(&rec.ID, &rec.InvestigationID, &rec.EventType, &rec.Description,
			&rec.Status, &rec.Result, &rec.Metadata, &ts); err != nil {
			return nil, err
		}
		rec.Timestamp, _ = parseTime(ts)
		result = append(result, rec)
	}
	return result, rows.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// parseTime handles multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q", s)
}
