package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// SQLOptions configure the SQL store.
type SQLOptions struct {
	Options
	// TablePrefix prefixes both tables (<prefix>_runs, <prefix>_messages).
	TablePrefix string
}

// SQLStore persists runs in Postgres or SQLite.
type SQLStore struct {
	db       *sql.DB
	dialect  string
	runs     string
	messages string
	opts     SQLOptions
}

// Open opens a database for driver ("postgres" or "sqlite3") and returns a
// store with its schema initialized.
func Open(ctx context.Context, driver, dsn string, optFns ...func(o *SQLOptions)) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == "sqlite3" {
		// single writer
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s, err := NewSQLStore(ctx, db, driver, optFns...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database. Supported dialects: "postgres", "sqlite", "sqlite3".
func NewSQLStore(ctx context.Context, db *sql.DB, dialect string, optFns ...func(o *SQLOptions)) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	switch dialect {
	case "postgres":
	case "sqlite", "sqlite3":
		dialect = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, sqlite)", dialect)
	}

	opts := SQLOptions{Options: defaultOptions(), TablePrefix: "agent"}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &SQLStore{
		db:       db,
		dialect:  dialect,
		runs:     pq.QuoteIdentifier(opts.TablePrefix + "_runs"),
		messages: pq.QuoteIdentifier(opts.TablePrefix + "_messages"),
		opts:     opts,
	}

	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// DB exposes the underlying handle.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + s.runs + ` (
    run_id VARCHAR(255) PRIMARY KEY,
    user_id VARCHAR(255) NOT NULL DEFAULT '',
    agent_name VARCHAR(255) NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS ` + s.messages + ` (
    run_id VARCHAR(255) NOT NULL,
    seq INTEGER NOT NULL,
    role VARCHAR(32) NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (run_id, seq)
)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Create implements Store.
func (s *SQLStore) Create(ctx context.Context, run Run) (*Run, error) {
	if run.ID == "" {
		return nil, fmt.Errorf("create run: empty run id")
	}

	now := s.opts.Now()
	query := `INSERT INTO ` + s.runs + ` (run_id, user_id, agent_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?) ON CONFLICT (run_id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, s.rebind(query), run.ID, run.UserID, run.AgentName, now, now); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return s.Get(ctx, run.ID)
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, runID string) (*Run, error) {
	run := &Run{ID: runID}

	query := `SELECT user_id, agent_name, created_at, updated_at FROM ` + s.runs + ` WHERE run_id = ?`
	err := s.db.QueryRowContext(ctx, s.rebind(query), runID).Scan(&run.UserID, &run.AgentName, &run.Created, &run.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	query = `SELECT role, content, created_at FROM ` + s.messages + ` WHERE run_id = ? ORDER BY seq`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), runID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		run.Messages = append(run.Messages, m)
	}

	return run, rows.Err()
}

// ListRunIDs implements Store.
func (s *SQLStore) ListRunIDs(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT run_id FROM ` + s.runs + ` WHERE user_id = ? ORDER BY created_at DESC, run_id DESC`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), userID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Append implements Store.
func (s *SQLStore) Append(ctx context.Context, runID string, msgs ...Message) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var next int
	query := `SELECT COALESCE(MAX(seq), 0) FROM ` + s.messages + ` WHERE run_id = ?`
	if err = tx.QueryRowContext(ctx, s.rebind(query), runID).Scan(&next); err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	now := s.opts.Now()
	res, err := tx.ExecContext(ctx, s.rebind(`UPDATE `+s.runs+` SET updated_at = ? WHERE run_id = ?`), now, runID)
	if err != nil {
		return fmt.Errorf("touch run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		return err
	}

	insert := s.rebind(`INSERT INTO ` + s.messages + ` (run_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?)`)
	for _, m := range msgs {
		next++
		created := m.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err = tx.ExecContext(ctx, insert, runID, next, m.Role, m.Content, created.UTC().Truncate(time.Microsecond)); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
