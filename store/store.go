// Package store persists benchmark history so the cold-start cost of a
// full variant sweep is paid once per signature, not once per process.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const currentSchemaVersion = 1

// Store wraps the SQLite connection holding latency measurements.
// SQLite provides the durability contract the engine needs: WAL mode
// keeps readers unblocked by the single serialized writer, and commits
// are atomic so a crash mid-write cannot corrupt history read by a
// future process.
type Store struct {
	conn *sql.DB
}

// Open opens (creating if needed) the benchmark database in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	dbPath := filepath.Join(dir, "benchmarks.db")
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return finishOpen(conn)
}

// OpenMemory returns a non-persisted store for testing mode.
func OpenMemory() (*Store, error) {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A second connection would see a different empty database.
	conn.SetMaxOpenConns(1)

	return finishOpen(conn)
}

func finishOpen(conn *sql.DB) (*Store, error) {
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.init(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return s, nil
}

func (s *Store) init() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS measurements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		op TEXT NOT NULL,
		variant TEXT NOT NULL,
		signature TEXT NOT NULL,
		devices TEXT NOT NULL DEFAULT 'cpu',
		latency_ns INTEGER NOT NULL,
		recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_measurements_key ON measurements(op, signature, devices);

	CREATE TABLE IF NOT EXISTS meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		schema_version INTEGER NOT NULL DEFAULT %d
	);

	INSERT OR IGNORE INTO meta (id) VALUES (1);
	`, currentSchemaVersion)

	if _, err := s.conn.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	_, _ = s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE);")
	return s.conn.Close()
}

// Record appends one latency measurement for (op, variant, signature)
// against the given device set.
func (s *Store) Record(op, variant, signature, devices string, latency time.Duration) error {
	_, err := s.conn.Exec(`
		INSERT INTO measurements (op, variant, signature, devices, latency_ns)
		VALUES (?, ?, ?, ?, ?)`,
		op, variant, signature, devices, latency.Nanoseconds())
	if err != nil {
		return fmt.Errorf("record measurement: %w", err)
	}
	return nil
}

// Lookup returns the latency history per variant tag for an exact
// (op, signature, devices) key, each series in insertion order.
func (s *Store) Lookup(op, signature, devices string) (map[string][]time.Duration, error) {
	rows, err := s.conn.Query(`
		SELECT variant, latency_ns FROM measurements
		WHERE op = ? AND signature = ? AND devices = ?
		ORDER BY id`,
		op, signature, devices)
	if err != nil {
		return nil, fmt.Errorf("lookup measurements: %w", err)
	}
	defer rows.Close()

	history := make(map[string][]time.Duration)
	for rows.Next() {
		var variant string
		var ns int64
		if err := rows.Scan(&variant, &ns); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		history[variant] = append(history[variant], time.Duration(ns))
	}
	return history, rows.Err()
}

// Clear empties the history namespace of one operation.
func (s *Store) Clear(op string) error {
	if _, err := s.conn.Exec(`DELETE FROM measurements WHERE op = ?`, op); err != nil {
		return fmt.Errorf("clear %s: %w", op, err)
	}
	return nil
}

// ClearAll empties every operation's history.
func (s *Store) ClearAll() error {
	if _, err := s.conn.Exec(`DELETE FROM measurements`); err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	return nil
}

// Operations lists the operation namespaces with recorded history.
func (s *Store) Operations() ([]string, error) {
	rows, err := s.conn.Query(`SELECT DISTINCT op FROM measurements ORDER BY op`)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	var ops []string
	for rows.Next() {
		var op string
		if err := rows.Scan(&op); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}
