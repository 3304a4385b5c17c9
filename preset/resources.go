package preset

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/agentcrew/config"
	"github.com/hupe1980/agentcrew/embedder"
	"github.com/hupe1980/agentcrew/knowledge"
	"github.com/hupe1980/agentcrew/logging"
	"github.com/hupe1980/agentcrew/storage"
	"github.com/hupe1980/agentcrew/vectordb"
)

// Resources are the stores of the PDF assistant. With a database URL both
// live in Postgres (history tables and a pgvector table); otherwise history
// goes to SQLite and vectors to an embedded chromem database.
type Resources struct {
	Store    storage.Store
	VectorDB vectordb.VectorDB

	closers []io.Closer
}

// OpenResources opens the stores configured in cfg.
func OpenResources(ctx context.Context, cfg *config.Config) (*Resources, error) {
	r := &Resources{}
	historyFn := func(o *storage.SQLOptions) { o.TablePrefix = cfg.Storage.HistoryTable }

	if dsn := cfg.Storage.DatabaseURL; dsn != "" {
		store, err := storage.Open(ctx, "postgres", dsn, historyFn)
		if err != nil {
			return nil, err
		}
		r.Store = store
		r.closers = append(r.closers, store)

		pg := vectordb.NewPgVector(store.DB(), func(o *vectordb.PgVectorOptions) {
			o.Table = cfg.Knowledge.Collection
			o.Dimensions = cfg.Embedder.Dimensions
		})
		r.VectorDB = pg
		return r, nil
	}

	if cfg.Storage.SQLitePath != "" {
		store, err := storage.Open(ctx, "sqlite3", cfg.Storage.SQLitePath, historyFn)
		if err != nil {
			return nil, err
		}
		r.Store = store
		r.closers = append(r.closers, store)
	} else {
		r.Store = storage.NewInMemoryStore()
	}

	db, err := vectordb.NewChromem(func(o *vectordb.ChromemOptions) {
		o.Collection = cfg.Knowledge.Collection
		o.PersistDir = cfg.Knowledge.PersistDir
	})
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	r.VectorDB = db
	return r, nil
}

// Close releases the database connections.
func (r *Resources) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// NewEmbedder creates the embedder configured in cfg.
func NewEmbedder(cfg config.EmbedderConfig) embedder.Embedder {
	return embedder.NewOpenAI(func(o *embedder.OpenAIOptions) {
		if cfg.Model != "" {
			o.Model = cfg.Model
		}
		if cfg.BaseURL != "" {
			o.BaseURL = cfg.BaseURL
		}
		if cfg.APIKey != "" {
			o.APIKey = cfg.APIKey
		}
		if cfg.Dimensions > 0 {
			o.Dimensions = cfg.Dimensions
		}
	})
}

// LoadKnowledge builds the PDF knowledge base from cfg and loads it into db.
func LoadKnowledge(
	ctx context.Context,
	cfg config.KnowledgeConfig,
	emb embedder.Embedder,
	db vectordb.VectorDB,
	logger logging.Logger,
) (*knowledge.PDFURLBase, error) {
	kb, err := knowledge.NewPDFURLBase(cfg.URLs, emb, db, func(o *knowledge.Options) {
		o.Chunker = knowledge.Chunker{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}
		if cfg.NumDocuments > 0 {
			o.NumDocuments = cfg.NumDocuments
		}
		if logger != nil {
			o.Logger = logger
		}
	})
	if err != nil {
		return nil, err
	}

	if err := kb.Load(ctx, knowledge.LoadOptions{Recreate: cfg.Recreate, Upsert: cfg.Upsert}); err != nil {
		return nil, fmt.Errorf("load knowledge: %w", err)
	}
	return kb, nil
}

// ResolveRunID picks the run of a PDF assistant session. A new session gets
// an empty id (the dispatcher generates one); otherwise the newest run of
// user is continued when it exists.
func ResolveRunID(ctx context.Context, store storage.Store, user string, newRun bool) (runID string, continued bool, err error) {
	if newRun {
		return "", false, nil
	}
	ids, err := store.ListRunIDs(ctx, user)
	if err != nil {
		return "", false, fmt.Errorf("list runs: %w", err)
	}
	if len(ids) == 0 {
		return "", false, nil
	}
	return ids[0], true, nil
}
