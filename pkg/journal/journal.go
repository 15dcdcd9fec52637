// Package journal provides a best-effort sqlite audit journal of completed
// effect executions. The engine only ever appends to it; nothing is read
// back for recovery.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"effectkit/pkg/logx"
)

// Entry is one completed effect execution.
type Entry struct {
	OperationID      string        `json:"operation_id"`
	EffectType       string        `json:"effect_type"`
	Status           string        `json:"status"` // "success" or "error"
	Detail           string        `json:"detail,omitempty"`
	TransactionState string        `json:"transaction_state,omitempty"`
	NodeID           string        `json:"node_id"`
	RetryCount       int           `json:"retry_count"`
	ProcessingTime   time.Duration `json:"processing_time"`
	RecordedAt       time.Time     `json:"recorded_at"`
}

// Journal appends effect execution records to a sqlite database. Writes are
// asynchronous and best-effort: a full queue drops the entry with a warning,
// and write errors are logged, never propagated.
type Journal struct {
	db      *sql.DB
	entries chan Entry
	done    chan struct{}
	logger  *logx.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS effect_journal (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	operation_id TEXT NOT NULL,
	effect_type TEXT NOT NULL,
	status TEXT NOT NULL,
	detail TEXT,
	transaction_state TEXT,
	node_id TEXT NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0,
	processing_time_ms INTEGER NOT NULL DEFAULT 0,
	recorded_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_effect_journal_type ON effect_journal(effect_type);
CREATE INDEX IF NOT EXISTS idx_effect_journal_recorded ON effect_journal(recorded_at);
`

// Open creates or opens the journal database and starts the writer goroutine.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_busy_timeout=5000", path,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j := &Journal{
		db:      db,
		entries: make(chan Entry, 256),
		done:    make(chan struct{}),
		logger:  logx.NewLogger("journal"),
	}
	go j.writer()
	return j, nil
}

// Record queues one entry for writing. Never blocks: if the queue is full
// the entry is dropped with a warning.
func (j *Journal) Record(entry Entry) {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	select {
	case j.entries <- entry:
	default:
		j.logger.Warn("Journal queue full, dropping entry for operation %s", entry.OperationID)
	}
}

// Close drains queued entries and closes the database.
func (j *Journal) Close() error {
	close(j.entries)
	<-j.done
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("failed to close journal database: %w", err)
	}
	return nil
}

// writer consumes the entry queue until Close.
func (j *Journal) writer() {
	defer close(j.done)
	for entry := range j.entries {
		j.write(entry)
	}
}

func (j *Journal) write(entry Entry) {
	_, err := j.db.Exec(`
		INSERT INTO effect_journal
			(operation_id, effect_type, status, detail, transaction_state,
			 node_id, retry_count, processing_time_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.OperationID,
		entry.EffectType,
		entry.Status,
		entry.Detail,
		entry.TransactionState,
		entry.NodeID,
		entry.RetryCount,
		entry.ProcessingTime.Milliseconds(),
		entry.RecordedAt,
	)
	if err != nil {
		j.logger.Error("Failed to write journal entry for operation %s: %v", entry.OperationID, err)
	}
}

// Recent returns up to limit most recent entries, newest first. Intended for
// debugging and tests, not for recovery.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	rows, err := j.db.Query(`
		SELECT operation_id, effect_type, status, detail, transaction_state,
		       node_id, retry_count, processing_time_ms, recorded_at
		FROM effect_journal
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var processingMs int64
		if err := rows.Scan(&e.OperationID, &e.EffectType, &e.Status, &e.Detail,
			&e.TransactionState, &e.NodeID, &e.RetryCount, &processingMs, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		e.ProcessingTime = time.Duration(processingMs) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal rows: %w", err)
	}
	return entries, nil
}
