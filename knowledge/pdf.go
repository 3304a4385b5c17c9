package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/embedder"
	"github.com/hupe1980/agentcrew/logging"
	"github.com/hupe1980/agentcrew/vectordb"
	"github.com/ledongthuc/pdf"
)

// Searcher finds the chunks most relevant to a query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]vectordb.Document, error)
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// LoadOptions control how Load treats existing data.
type LoadOptions struct {
	// Recreate drops the collection before loading.
	Recreate bool
	// Upsert reloads documents even when the collection is already populated.
	Upsert bool
}

// Options configure a PDFURLBase.
type Options struct {
	Chunker    Chunker
	HTTPClient HTTPDoer
	// NumDocuments is the default Search limit.
	NumDocuments int
	Logger       logging.Logger
}

// PDFURLBase is a knowledge base built from PDF documents served over HTTP.
type PDFURLBase struct {
	urls     []string
	embedder embedder.Embedder
	db       vectordb.VectorDB
	opts     Options
}

// NewPDFURLBase validates its inputs and creates a knowledge base.
func NewPDFURLBase(urls []string, emb embedder.Embedder, db vectordb.VectorDB, optFns ...func(o *Options)) (*PDFURLBase, error) {
	if len(urls) == 0 {
		return nil, core.ConfigError("urls", "at least one PDF URL is required")
	}
	if emb == nil {
		return nil, core.ConfigError("embedder", "an embedder is required")
	}
	if db == nil {
		return nil, core.ConfigError("vector_db", "a vector database is required")
	}

	opts := Options{
		Chunker:      DefaultChunker(),
		HTTPClient:   http.DefaultClient,
		NumDocuments: 5,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &PDFURLBase{
		urls:     append([]string(nil), urls...),
		embedder: emb,
		db:       db,
		opts:     opts,
	}, nil
}

// URLs returns a copy of the configured document URLs.
func (k *PDFURLBase) URLs() []string { return append([]string(nil), k.urls...) }

// Load reads every URL into the vector database.
func (k *PDFURLBase) Load(ctx context.Context, lo LoadOptions) error {
	if lo.Recreate {
		k.opts.Logger.Info("knowledge.load.drop")
		if err := k.db.Drop(ctx); err != nil {
			return fmt.Errorf("drop knowledge: %w", err)
		}
	}

	if err := k.db.Create(ctx); err != nil {
		return fmt.Errorf("create knowledge: %w", err)
	}

	if !lo.Recreate && !lo.Upsert {
		n, err := k.db.Count(ctx)
		if err != nil {
			return fmt.Errorf("count knowledge: %w", err)
		}
		if n > 0 {
			k.opts.Logger.Info("knowledge.load.skip", "documents", n)
			return nil
		}
	}

	for _, u := range k.urls {
		docs, err := k.Read(ctx, u)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			continue
		}

		texts := make([]string, len(docs))
		for i, d := range docs {
			texts[i] = d.Content
		}
		embeddings, err := k.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed %s: %w", u, err)
		}
		if len(embeddings) != len(docs) {
			return fmt.Errorf("embed %s: got %d embeddings for %d chunks", u, len(embeddings), len(docs))
		}
		for i := range docs {
			docs[i].Embedding = embeddings[i]
		}

		if err := k.db.Upsert(ctx, docs); err != nil {
			return fmt.Errorf("upsert %s: %w", u, err)
		}
		k.opts.Logger.Info("knowledge.load.url", "url", u, "chunks", len(docs))
	}
	return nil
}

// Read downloads one PDF and returns its chunks without embeddings.
func (k *PDFURLBase) Read(ctx context.Context, url string) ([]vectordb.Document, error) {
	data, err := k.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	pages, err := ExtractPages(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}

	name := documentName(url)
	var docs []vectordb.Document
	for p, text := range pages {
		for c, chunk := range k.opts.Chunker.Split(text) {
			page, idx := strconv.Itoa(p+1), strconv.Itoa(c)
			docs = append(docs, vectordb.Document{
				ID:      uuid.NewSHA1(uuid.NameSpaceURL, []byte(url+"#"+page+"#"+idx)).String(),
				Name:    name,
				Content: chunk,
				Metadata: map[string]string{
					"url":   url,
					"page":  page,
					"chunk": idx,
				},
			})
		}
	}
	return docs, nil
}

func (k *PDFURLBase) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := k.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: unexpected status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return data, nil
}

// ExtractPages returns the plain text of every page in order.
func ExtractPages(data []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages, nil
}

// documentName derives a short name from the last path segment of url.
func documentName(url string) string {
	name := url
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimRight(name, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".pdf")
}

// Search embeds query and returns the closest chunks. A limit <= 0 uses
// Options.NumDocuments.
func (k *PDFURLBase) Search(ctx context.Context, query string, limit int) ([]vectordb.Document, error) {
	if limit <= 0 {
		limit = k.opts.NumDocuments
	}

	embeddings, err := k.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("embed query: got %d embeddings", len(embeddings))
	}

	docs, err := k.db.Search(ctx, embeddings[0], limit)
	if err != nil {
		return nil, fmt.Errorf("search knowledge: %w", err)
	}
	return docs, nil
}
