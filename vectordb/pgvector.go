package vectordb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// PgVectorOptions configure the Postgres store.
type PgVectorOptions struct {
	Schema     string
	Table      string
	Dimensions int
}

// PgVector stores documents in a Postgres table with a pgvector column and
// ranks them by cosine distance.
type PgVector struct {
	db    *sql.DB
	opts  PgVectorOptions
	table string
}

// OpenPgVector opens a Postgres connection (lib/pq) for dsn.
func OpenPgVector(ctx context.Context, dsn string, optFns ...func(o *PgVectorOptions)) (*PgVector, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return NewPgVector(db, optFns...), nil
}

// NewPgVector wraps an open database handle.
func NewPgVector(db *sql.DB, optFns ...func(o *PgVectorOptions)) *PgVector {
	opts := PgVectorOptions{Schema: "ai", Table: "knowledge", Dimensions: 384}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &PgVector{
		db:    db,
		opts:  opts,
		table: pq.QuoteIdentifier(opts.Schema) + "." + pq.QuoteIdentifier(opts.Table),
	}
}

// Close closes the database handle.
func (p *PgVector) Close() error { return p.db.Close() }

// vectorLiteral formats v in pgvector text form: [1,2,3].
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func (p *PgVector) createStatements() []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE SCHEMA IF NOT EXISTS ` + pq.QuoteIdentifier(p.opts.Schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    meta_data JSONB NOT NULL DEFAULT '{}',
    embedding vector(%d) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, p.table, p.opts.Dimensions),
	}
}

// Create implements VectorDB.
func (p *PgVector) Create(ctx context.Context) error {
	for _, stmt := range p.createStatements() {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("pgvector create: %w", err)
		}
	}
	return nil
}

// Exists implements VectorDB.
func (p *PgVector) Exists(ctx context.Context) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, p.table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pgvector exists: %w", err)
	}
	return exists, nil
}

// Drop implements VectorDB.
func (p *PgVector) Drop(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+p.table); err != nil {
		return fmt.Errorf("pgvector drop: %w", err)
	}
	return nil
}

func (p *PgVector) upsertSQL() string {
	return `INSERT INTO ` + p.table + ` (id, name, content, meta_data, embedding)
VALUES ($1, $2, $3, $4, $5::vector)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, content = EXCLUDED.content,
    meta_data = EXCLUDED.meta_data, embedding = EXCLUDED.embedding`
}

// Upsert implements VectorDB.
func (p *PgVector) Upsert(ctx context.Context, docs []Document) (err error) {
	if len(docs) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgvector begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, p.upsertSQL())
	if err != nil {
		return fmt.Errorf("pgvector prepare: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		if len(d.Embedding) != p.opts.Dimensions {
			err = fmt.Errorf("pgvector: document %s has %d dimensions, want %d", d.ID, len(d.Embedding), p.opts.Dimensions)
			return err
		}
		meta, mErr := json.Marshal(d.Metadata)
		if mErr != nil {
			err = fmt.Errorf("pgvector metadata: %w", mErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, d.ID, d.Name, d.Content, string(meta), vectorLiteral(d.Embedding)); err != nil {
			return fmt.Errorf("pgvector upsert %s: %w", d.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("pgvector commit: %w", err)
	}
	return nil
}

func (p *PgVector) searchSQL() string {
	return `SELECT id, name, content, meta_data, 1 - (embedding <=> $1::vector) AS score
FROM ` + p.table + `
ORDER BY embedding <=> $1::vector
LIMIT $2`
}

// Search implements VectorDB.
func (p *PgVector) Search(ctx context.Context, embedding []float32, limit int) ([]Document, error) {
	rows, err := p.db.QueryContext(ctx, p.searchSQL(), vectorLiteral(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			d    Document
			meta []byte
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.Content, &meta, &d.Score); err != nil {
			return nil, fmt.Errorf("pgvector scan: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &d.Metadata); err != nil {
				return nil, fmt.Errorf("pgvector metadata: %w", err)
			}
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Count implements VectorDB.
func (p *PgVector) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM `+p.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgvector count: %w", err)
	}
	return n, nil
}
