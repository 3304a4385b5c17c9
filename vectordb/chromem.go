package vectordb

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
)

const nameKey = "_name"

// errNoEmbedFunc guards against chromem embedding on its own; documents and
// queries always arrive pre-embedded.
var errNoEmbedFunc = errors.New("chromem: embeddings must be computed by the knowledge base")

func noEmbed(context.Context, string) ([]float32, error) { return nil, errNoEmbedFunc }

// ChromemOptions configure the embedded store.
type ChromemOptions struct {
	Collection string
	// PersistDir enables on-disk persistence when set.
	PersistDir string
	Compress   bool
}

// Chromem is an embedded VectorDB backed by chromem-go.
type Chromem struct {
	db   *chromem.DB
	opts ChromemOptions
}

// NewChromem creates an embedded store.
func NewChromem(optFns ...func(o *ChromemOptions)) (*Chromem, error) {
	opts := ChromemOptions{Collection: "knowledge"}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.PersistDir == "" {
		return &Chromem{db: chromem.NewDB(), opts: opts}, nil
	}

	db, err := chromem.NewPersistentDB(opts.PersistDir, opts.Compress)
	if err != nil {
		return nil, fmt.Errorf("open chromem db: %w", err)
	}
	return &Chromem{db: db, opts: opts}, nil
}

func (c *Chromem) collection() *chromem.Collection {
	return c.db.GetCollection(c.opts.Collection, noEmbed)
}

// Create implements VectorDB.
func (c *Chromem) Create(_ context.Context) error {
	_, err := c.db.GetOrCreateCollection(c.opts.Collection, nil, noEmbed)
	return err
}

// Exists implements VectorDB.
func (c *Chromem) Exists(_ context.Context) (bool, error) {
	return c.collection() != nil, nil
}

// Drop implements VectorDB.
func (c *Chromem) Drop(_ context.Context) error {
	return c.db.DeleteCollection(c.opts.Collection)
}

// Upsert implements VectorDB.
func (c *Chromem) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	col := c.collection()
	if col == nil {
		return fmt.Errorf("chromem: collection %q does not exist", c.opts.Collection)
	}

	cdocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		meta := make(map[string]string, len(d.Metadata)+1)
		for k, v := range d.Metadata {
			meta[k] = v
		}
		meta[nameKey] = d.Name
		cdocs[i] = chromem.Document{
			ID:        d.ID,
			Metadata:  meta,
			Embedding: d.Embedding,
			Content:   d.Content,
		}
	}
	return col.AddDocuments(ctx, cdocs, runtime.NumCPU())
}

// Search implements VectorDB.
func (c *Chromem) Search(ctx context.Context, embedding []float32, limit int) ([]Document, error) {
	col := c.collection()
	if col == nil || col.Count() == 0 || limit <= 0 {
		return []Document{}, nil
	}
	limit = min(limit, col.Count())

	results, err := col.QueryEmbedding(ctx, embedding, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	docs := make([]Document, len(results))
	for i, r := range results {
		meta := make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			if k != nameKey {
				meta[k] = v
			}
		}
		docs[i] = Document{
			ID:        r.ID,
			Name:      r.Metadata[nameKey],
			Content:   r.Content,
			Metadata:  meta,
			Embedding: r.Embedding,
			Score:     r.Similarity,
		}
	}
	return docs, nil
}

// Count implements VectorDB.
func (c *Chromem) Count(_ context.Context) (int, error) {
	col := c.collection()
	if col == nil {
		return 0, nil
	}
	return col.Count(), nil
}
