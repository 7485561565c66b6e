// Package store provides the persistence backends consumed through the
// narrow interfaces in internal/domain: a SQLite fact/audit store and a
// wholesale read-modify-write JSON flag document.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/giquina/aws-clawd-bot-sub009/internal/domain"
)

// SQLiteStore implements domain.FactStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection; SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS facts (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		category    TEXT NOT NULL,
		content     TEXT NOT NULL,
		source      TEXT,
		importance  INTEGER DEFAULT 5,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		expires_at  DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_facts_cat ON facts(category);

	CREATE TABLE IF NOT EXISTS audit_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		action      TEXT NOT NULL,
		skill       TEXT,
		command     TEXT,
		result      TEXT,
		details     TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_audit_time ON audit_log(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) SaveFact(ctx context.Context, fact domain.Fact) error {
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now()
	}
	if fact.Importance == 0 {
		fact.Importance = 5
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO facts (category, content, source, importance, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		fact.Category, fact.Content, fact.Source, fact.Importance, fact.CreatedAt, fact.ExpiresAt,
	)
	return err
}

func (s *SQLiteStore) SearchFacts(ctx context.Context, query string, limit int) ([]domain.Fact, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, content, source, importance, created_at, expires_at
		 FROM facts
		 WHERE content LIKE ? AND (expires_at IS NULL OR expires_at > ?)
		 ORDER BY importance DESC, created_at DESC
		 LIMIT ?`,
		pattern, time.Now(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFacts(rows)
}

func (s *SQLiteStore) RecentFacts(ctx context.Context, limit int) ([]domain.Fact, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, content, source, importance, created_at, expires_at
		 FROM facts
		 WHERE expires_at IS NULL OR expires_at > ?
		 ORDER BY created_at DESC LIMIT ?`,
		time.Now(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFacts(rows)
}

func scanFacts(rows *sql.Rows) ([]domain.Fact, error) {
	var facts []domain.Fact
	for rows.Next() {
		var f domain.Fact
		var source sql.NullString
		var expiresAt sql.NullTime
		if err := rows.Scan(&f.ID, &f.Category, &f.Content, &source,
			&f.Importance, &f.CreatedAt, &expiresAt); err != nil {
			return nil, err
		}
		f.Source = source.String
		if expiresAt.Valid {
			f.ExpiresAt = &expiresAt.Time
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func (s *SQLiteStore) LogAudit(ctx context.Context, entry domain.AuditEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (action, skill, command, result, details)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.Action, entry.Skill, entry.Command, entry.Result, entry.Details,
	)
	return err
}

func (s *SQLiteStore) RecentAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, skill, command, result, details, created_at
		 FROM audit_log ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var skillName, command, result, details sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &skillName, &command, &result, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Skill = skillName.String
		e.Command = command.String
		e.Result = result.String
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
