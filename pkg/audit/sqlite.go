package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// schema is the journal table. Events are append-only; the id is unique and
// the timestamp is indexed for the newest-first listing.
const schema = `
CREATE TABLE IF NOT EXISTS session_events (
	id              TEXT PRIMARY KEY,
	type            TEXT NOT NULL,
	session_id      TEXT NOT NULL,
	side            TEXT NOT NULL DEFAULT '',
	detail          TEXT NOT NULL DEFAULT '',
	utterance_bytes INTEGER NOT NULL DEFAULT 0,
	timestamp       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_events_timestamp ON session_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id);
`

// SQLiteBackend persists journal entries to a SQLite database in WAL mode.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (creating if needed) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database %q: %w", path, err)
	}

	// A single writer keeps WAL contention away.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// Append implements Backend.
func (s *SQLiteBackend) Append(ctx context.Context, event *Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_events (id, type, session_id, side, detail, utterance_bytes, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		string(event.Type),
		event.SessionID,
		event.Side,
		event.Detail,
		event.UtteranceBytes,
		event.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

// Recent implements Backend.
func (s *SQLiteBackend) Recent(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, session_id, side, detail, utterance_bytes, timestamp
		 FROM session_events ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			event Event
			typ   string
			ts    int64
		)
		if err := rows.Scan(&event.ID, &typ, &event.SessionID, &event.Side,
			&event.Detail, &event.UtteranceBytes, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		event.Type = EventType(typ)
		event.Timestamp = time.Unix(0, ts)
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit events: %w", err)
	}
	return events, nil
}

// Close implements Backend.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
