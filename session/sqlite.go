package session

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a durable SessionStore backed by SQLite. State is kept as a
// JSON document per conversation key and merged transactionally, so the
// per-key serialization guarantee holds across processes sharing the file.
type SQLiteStore struct {
	db     *sql.DB
	policy *Policy
	logger logging.Logger
}

var _ core.SessionStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dsn and prepares the
// sessions table. Use ":memory:" for an ephemeral store in tests.
func NewSQLiteStore(dsn string, optFns ...func(o *Options)) (*SQLiteStore, error) {
	opts := Options{
		Logger: logging.NewDefaultLogger(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	// A single connection keeps :memory: databases coherent and makes the
	// transactional merge the sole writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		key   TEXT PRIMARY KEY,
		state TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}

	return &SQLiteStore{db: db, policy: opts.Policy, logger: opts.Logger}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateIfAbsent idempotently establishes an empty state for key.
func (s *SQLiteStore) CreateIfAbsent(key core.ConversationKey) error {
	if err := key.Validate(); err != nil {
		return err
	}

	if _, err := s.db.Exec(
		`INSERT OR IGNORE INTO sessions (key, state) VALUES (?, ?)`,
		key.String(), "{}",
	); err != nil {
		return fmt.Errorf("create session %s: %w", key.String(), err)
	}

	return nil
}

// Get returns the value stored for field under key, or def when absent.
func (s *SQLiteStore) Get(key core.ConversationKey, field string, def any) any {
	state, err := s.load(s.db, key)
	if err != nil {
		s.logger.Error("session load failed", "key", key.String(), "error", err)
		return def
	}

	if v, ok := state[field]; ok {
		return v
	}

	return def
}

// Snapshot returns a copy of the full state for key. An absent key yields an
// empty map.
func (s *SQLiteStore) Snapshot(key core.ConversationKey) map[string]any {
	state, err := s.load(s.db, key)
	if err != nil {
		s.logger.Error("session load failed", "key", key.String(), "error", err)
		return map[string]any{}
	}

	return state
}

// Merge applies delta to key's state inside a transaction: read, apply the
// declared per-field semantics, write back.
func (s *SQLiteStore) Merge(key core.ConversationKey, delta map[string]any) error {
	if err := key.Validate(); err != nil {
		return err
	}

	if len(delta) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("merge session %s: %w", key.String(), err)
	}
	defer func() { _ = tx.Rollback() }()

	state, err := s.load(tx, key)
	if err != nil {
		return err
	}

	s.policy.Apply(state, delta)

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", key.String(), err)
	}

	if _, err := tx.Exec(
		`INSERT INTO sessions (key, state) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET state = excluded.state`,
		key.String(), string(raw),
	); err != nil {
		return fmt.Errorf("write session %s: %w", key.String(), err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session %s: %w", key.String(), err)
	}

	s.logger.Debug("session state merged", "key", key.String(), "fields", len(delta))

	return nil
}

type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

func (s *SQLiteStore) load(q querier, key core.ConversationKey) (map[string]any, error) {
	var raw string

	err := q.QueryRow(`SELECT state FROM sessions WHERE key = ?`, key.String()).Scan(&raw)
	if err == sql.ErrNoRows {
		return map[string]any{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", key.String(), err)
	}

	state := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key.String(), err)
	}

	return state, nil
}
