// Package history keeps a SQLite log of dispatched invocations.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/rybkr/argroute/internal/cli"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("history store is closed")

// Entry is one recorded invocation.
type Entry struct {
	ID       int64
	Time     time.Time
	Args     []string
	Command  string // "" when no command matched
	Words    int
	Group    string
	Guesses  []string
	ExitCode int
}

// CommandCount is the number of invocations of one command.
type CommandCount struct {
	Command string
	Count   int
}

// Store is a history database. It is safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and migrates it to the latest
// schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate history database: %w", err)
	}
	for _, r := range results {
		slog.Debug("Applied history migration", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// Record stores rec. It implements cli.Recorder.
func (s *Store) Record(ctx context.Context, rec cli.Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}

	args, err := json.Marshal(nonNil(rec.Args))
	if err != nil {
		return err
	}
	guesses, err := json.Marshal(nonNil(rec.Guesses))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO invocations (created_at, args, command, words, grp, guesses, exit_code)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.now().UnixMilli(), string(args), rec.Command, rec.Words, rec.Group, string(guesses), rec.ExitCode)
	if err != nil {
		return fmt.Errorf("recording invocation: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, args, command, words, grp, guesses, exit_code
		 FROM invocations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e             Entry
			millis        int64
			args, guesses string
		)
		if err := rows.Scan(&e.ID, &millis, &args, &e.Command, &e.Words, &e.Group, &guesses, &e.ExitCode); err != nil {
			return nil, err
		}
		e.Time = time.UnixMilli(millis)
		if err := json.Unmarshal([]byte(args), &e.Args); err != nil {
			return nil, fmt.Errorf("decoding args of entry %d: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(guesses), &e.Guesses); err != nil {
			return nil, fmt.Errorf("decoding guesses of entry %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns the invocation count per command, most used first.
// Unmatched invocations are counted under "".
func (s *Store) Stats(ctx context.Context) ([]CommandCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT command, COUNT(*) FROM invocations
		 GROUP BY command ORDER BY COUNT(*) DESC, command ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []CommandCount
	for rows.Next() {
		var c CommandCount
		if err := rows.Scan(&c.Command, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Close closes the database. Closing twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
