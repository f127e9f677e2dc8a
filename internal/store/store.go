// Package store is the SQLite persistence layer: session checkpoints,
// per-student mastery records, and the structured textbook content that
// backs exhaustive chapter enumeration.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database. A single Store is shared by the engine
// and the HTTP surface.
type Store struct {
	db  *sql.DB
	log *zap.Logger

	// recordLocks serializes read-modify-write cycles per (student, topic)
	// so a duplicate submit cannot lose an attempts/streak update.
	recordMu    sync.Mutex
	recordLocks map[string]*sync.Mutex
}

// Open opens (creating if needed) the database at path and initializes
// the schema.
func Open(path string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{
		db:          db,
		log:         log.Named("store"),
		recordLocks: make(map[string]*sync.Mutex),
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	s.log.Info("store ready", zap.String("path", path))
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS session_checkpoints (
		session_id  TEXT NOT NULL,
		turn_number INTEGER NOT NULL,
		state_json  TEXT NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, turn_number)
	);
	CREATE INDEX IF NOT EXISTS idx_checkpoints_session ON session_checkpoints(session_id);

	CREATE TABLE IF NOT EXISTS mastery_records (
		student_id       TEXT NOT NULL,
		topic_key        TEXT NOT NULL,
		subject          TEXT NOT NULL DEFAULT '',
		mastery_score    REAL NOT NULL,
		confidence_level REAL NOT NULL,
		attempts_count   INTEGER NOT NULL,
		correct_count    INTEGER NOT NULL,
		streak_count     INTEGER NOT NULL,
		last_practiced_at DATETIME NOT NULL,
		next_review_at    DATETIME NOT NULL,
		UNIQUE(student_id, topic_key)
	);
	CREATE INDEX IF NOT EXISTS idx_mastery_student ON mastery_records(student_id);
	CREATE INDEX IF NOT EXISTS idx_mastery_review ON mastery_records(next_review_at);

	CREATE TABLE IF NOT EXISTS textbook_content (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		subject    TEXT NOT NULL,
		chapter    TEXT NOT NULL,
		subtopic   TEXT NOT NULL DEFAULT '',
		syllabus   TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT '',
		content    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_content_subject ON textbook_content(subject);
	CREATE INDEX IF NOT EXISTS idx_content_chapter ON textbook_content(subject, chapter);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.log.Info("closing store")
	return s.db.Close()
}

// lockRecord returns the mutex guarding one (student, topic) record.
func (s *Store) lockRecord(key string) *sync.Mutex {
	s.recordMu.Lock()
	defer s.recordMu.Unlock()
	mu, ok := s.recordLocks[key]
	if !ok {
		mu = &sync.Mutex{}
		s.recordLocks[key] = mu
	}
	return mu
}
