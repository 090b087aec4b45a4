package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/docsite/internal/foundation/errors"
)

// schemaVersion is stored in PRAGMA user_version.
const schemaVersion = 1

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS ledger_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT    NOT NULL,
	event_type  TEXT    NOT NULL,
	recorded_at INTEGER NOT NULL,
	payload     BLOB    NOT NULL,
	metadata    TEXT
);
CREATE INDEX IF NOT EXISTS ledger_events_run ON ledger_events(run_id);
CREATE INDEX IF NOT EXISTS ledger_events_recorded ON ledger_events(recorded_at);
`

const selectEvents = "SELECT id, run_id, event_type, recorded_at, payload, metadata FROM ledger_events"

// SQLiteStore is the build ledger backed by a single SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// NewSQLiteStore opens the ledger at dbPath, creating the file and its
// parent directory when missing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, ledgerError(err, "failed to create ledger directory", dbPath)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ledgerError(err, "failed to open ledger", dbPath)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, path: dbPath}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, ledgerError(err, "failed to initialize ledger schema", dbPath)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return err
	}
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	if version > schemaVersion {
		return errors.NewError(errors.CategoryConfig, "ledger was written by a newer docsite").
			WithContext("schema_version", version).Build()
	}
	if _, err := s.db.Exec(ledgerSchema); err != nil {
		return err
	}
	_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	return err
}

func ledgerError(err error, msg, path string) error {
	if errors.IsClassified(err) {
		return err
	}
	return errors.WrapError(err, errors.CategoryFileSystem, msg).WithContext("path", path).Build()
}

// Append adds an event stamped with the current time.
func (s *SQLiteStore) Append(ctx context.Context, runID, eventType string, payload []byte, metadata map[string]string) error {
	var meta []byte
	if len(metadata) > 0 {
		var err error
		if meta, err = json.Marshal(metadata); err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "failed to encode event metadata").
				WithContext("run_id", runID).Build()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO ledger_events (run_id, event_type, recorded_at, payload, metadata) VALUES (?, ?, ?, ?, ?)",
		runID, eventType, time.Now().UnixMilli(), payload, meta)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to append ledger event").
			WithContext("run_id", runID).WithContext("event_type", eventType).Build()
	}
	return nil
}

// GetByRunID returns the events of one run in append order.
func (s *SQLiteStore) GetByRunID(ctx context.Context, runID string) ([]Event, error) {
	return s.query(ctx, selectEvents+" WHERE run_id = ? ORDER BY id", runID)
}

// GetRange returns events recorded in [start, end] in append order.
func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	return s.query(ctx, selectEvents+" WHERE recorded_at >= ? AND recorded_at <= ? ORDER BY id",
		start.UnixMilli(), end.UnixMilli())
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, ledgerError(err, "failed to query ledger", s.path)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var (
			e    BaseEvent
			at   int64
			meta []byte
		)
		if err := rows.Scan(&e.EventID, &e.EventRunID, &e.EventType, &at, &e.EventPayload, &meta); err != nil {
			return nil, ledgerError(err, "failed to read ledger row", s.path)
		}
		e.EventTimestamp = time.UnixMilli(at)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.EventMetadata); err != nil {
				return nil, ledgerError(err, "corrupt ledger metadata", s.path)
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, ledgerError(err, "failed to read ledger", s.path)
	}
	return events, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
