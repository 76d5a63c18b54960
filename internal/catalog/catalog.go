// Package catalog records generated tutorials in a SQLite database so they
// can be listed and read back later.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ErrNotFound is returned by Get and Latest when no entry matches.
var ErrNotFound = errors.New("catalog: tutorial not found")

// Entry is one generated tutorial.
type Entry struct {
	ID           string `json:"id"`
	Project      string `json:"project"`
	Source       string `json:"source"`
	Language     string `json:"language"`
	OutputDir    string `json:"output_dir"`
	Chapters     int    `json:"chapters"`
	Placeholders int    `json:"placeholders"` // chapters that failed to generate
	CreatedAt    string `json:"created_at"`
}

// Store is the tutorial catalog.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog database at path.
// Use ":memory:" for a throwaway catalog.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("catalog: create dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("catalog: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tutorials (
			id           TEXT PRIMARY KEY,
			project      TEXT    NOT NULL,
			source       TEXT    NOT NULL,
			language     TEXT    NOT NULL DEFAULT '',
			output_dir   TEXT    NOT NULL,
			chapters     INTEGER NOT NULL DEFAULT 0,
			placeholders INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tutorials_project ON tutorials(project, created_at);
	`)
	return err
}

// Record stores e, replacing an entry with the same ID. An empty ID gets a
// fresh UUID and an empty CreatedAt the current time. The stored entry is
// returned.
func (s *Store) Record(e Entry) (Entry, error) {
	if e.Project == "" || e.OutputDir == "" {
		return Entry{}, errors.New("catalog: project and output dir are required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt == "" {
		e.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := s.db.Exec(`
		INSERT INTO tutorials (id, project, source, language, output_dir, chapters, placeholders, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project = excluded.project,
			source = excluded.source,
			language = excluded.language,
			output_dir = excluded.output_dir,
			chapters = excluded.chapters,
			placeholders = excluded.placeholders,
			created_at = excluded.created_at`,
		e.ID, e.Project, e.Source, e.Language, e.OutputDir, e.Chapters, e.Placeholders, e.CreatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("catalog: record %s: %w", e.Project, err)
	}
	return e, nil
}

const selectEntry = `SELECT id, project, source, language, output_dir, chapters, placeholders, created_at FROM tutorials`

// List returns the most recent entries first. project filters when non-empty;
// limit <= 0 means 20.
func (s *Store) List(project string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := selectEntry
	args := []any{}
	if project != "" {
		query += ` WHERE project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with the given ID.
func (s *Store) Get(id string) (Entry, error) {
	return scanOne(s.db.QueryRow(selectEntry+` WHERE id = ?`, id))
}

// Latest returns the newest entry for project.
func (s *Store) Latest(project string) (Entry, error) {
	return scanOne(s.db.QueryRow(selectEntry+` WHERE project = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, project))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.Project, &e.Source, &e.Language, &e.OutputDir, &e.Chapters, &e.Placeholders, &e.CreatedAt)
	return e, err
}

func scanOne(row *sql.Row) (Entry, error) {
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("catalog: %w", err)
	}
	return e, nil
}
