// Package localstore is a SQLite storage collaborator for running imports without the server.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/benvon/time-import/internal/models"
	"github.com/benvon/time-import/internal/parsers"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

// Store holds categories and entries per user in a single SQLite file
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

// DefaultDBPath returns the per-user database location
func DefaultDBPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "time-import", "local.db"), nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version >= currentVersion {
		return nil
	}

	const ddl = `
	CREATE TABLE IF NOT EXISTS categories (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		name        TEXT NOT NULL,
		created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		UNIQUE(user_id, name)
	);

	CREATE TABLE IF NOT EXISTS time_entries (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id     TEXT NOT NULL,
		entry_date  TEXT NOT NULL,
		start_time  TEXT NOT NULL DEFAULT '',
		end_time    TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		category_id TEXT REFERENCES categories(id),
		created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE INDEX IF NOT EXISTS idx_entries_user_date ON time_entries(user_id, entry_date);
	`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("migrate v1: %w", err)
	}

	_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

// AddCategory creates a category for the user and returns its id
func (s *Store) AddCategory(ctx context.Context, userID uuid.UUID, name string) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return uuid.Nil, fmt.Errorf("category name cannot be empty")
	}
	id := uuid.New()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name) VALUES (?, ?, ?)`,
		id.String(), userID.String(), name,
	); err != nil {
		return uuid.Nil, fmt.Errorf("add category %q: %w", name, err)
	}
	return id, nil
}

// AddEntry stores an entry for the user. Date and times are normalized the way the parsers do.
func (s *Store) AddEntry(ctx context.Context, userID uuid.UUID, e models.StoredEntry) error {
	date, ok := parsers.ParseDate(e.Date)
	if !ok {
		return fmt.Errorf("invalid date %q", e.Date)
	}
	start, err := optionalClock(e.StartTime)
	if err != nil {
		return err
	}
	end, err := optionalClock(e.EndTime)
	if err != nil {
		return err
	}

	var categoryID any
	if e.CategoryID != nil {
		categoryID = e.CategoryID.String()
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO time_entries (user_id, entry_date, start_time, end_time, description, category_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID.String(), date, start, end, strings.TrimSpace(e.Description), categoryID,
	); err != nil {
		return fmt.Errorf("add entry: %w", err)
	}
	return nil
}

func optionalClock(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	clock, ok := parsers.ParseClock(raw)
	if !ok {
		return "", fmt.Errorf("invalid time %q", raw)
	}
	return clock, nil
}

// ListStoredEntries returns the user's entries ordered by date and start time
func (s *Store) ListStoredEntries(ctx context.Context, userID uuid.UUID) ([]models.StoredEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_date, start_time, end_time, description, category_id
		 FROM time_entries WHERE user_id = ? ORDER BY entry_date, start_time, id`,
		userID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []models.StoredEntry
	for rows.Next() {
		var e models.StoredEntry
		var categoryID sql.NullString
		if err := rows.Scan(&e.Date, &e.StartTime, &e.EndTime, &e.Description, &categoryID); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if categoryID.Valid {
			id, err := uuid.Parse(categoryID.String)
			if err != nil {
				return nil, fmt.Errorf("parse category id: %w", err)
			}
			e.CategoryID = &id
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListCategoryNames returns the user's category names in alphabetical order
func (s *Store) ListCategoryNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM categories WHERE user_id = ? ORDER BY name`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
