// Package embedder turns text into vectors for the knowledge base.
package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder creates one embedding per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// OpenAIOptions configure the OpenAI compatible embedder. The defaults target
// a local Ollama server running all-minilm.
type OpenAIOptions struct {
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
	// SendDimensions forwards Dimensions to the API (OpenAI text-embedding-3 only).
	SendDimensions bool
	BatchSize      int
	HTTPClient     option.HTTPClient
}

// OpenAI embeds text through an OpenAI compatible /embeddings endpoint.
type OpenAI struct {
	client *openai.Client
	opts   OpenAIOptions
}

// NewOpenAI creates an embedder.
func NewOpenAI(optFns ...func(o *OpenAIOptions)) *OpenAI {
	opts := OpenAIOptions{
		Model:      "all-minilm",
		BaseURL:    "http://localhost:11434/v1/",
		APIKey:     "ollama",
		Dimensions: 384,
		BatchSize:  64,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(opts.BaseURL),
		option.WithMaxRetries(0),
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	client := openai.NewClient(reqOpts...)
	return &OpenAI{client: &client, opts: opts}
}

// Dimensions returns the configured vector size.
func (e *OpenAI) Dimensions() int { return e.opts.Dimensions }

// Embed implements Embedder, batching requests by BatchSize.
func (e *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.opts.BatchSize {
		end := min(start+e.opts.BatchSize, len(texts))
		batch := texts[start:end]

		params := openai.EmbeddingNewParams{
			Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
			Model:          e.opts.Model,
			EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
		}
		if e.opts.SendDimensions && e.opts.Dimensions > 0 {
			params.Dimensions = openai.Int(int64(e.opts.Dimensions))
		}

		resp, err := e.client.Embeddings.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("embeddings request: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("embeddings: got %d vectors for %d inputs", len(resp.Data), len(batch))
		}

		vecs := make([][]float32, len(batch))
		for _, d := range resp.Data {
			if d.Index < 0 || int(d.Index) >= len(batch) {
				return nil, fmt.Errorf("embeddings: index %d out of range", d.Index)
			}
			v := make([]float32, len(d.Embedding))
			for i, f := range d.Embedding {
				v[i] = float32(f)
			}
			vecs[d.Index] = v
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Mock is a deterministic bag-of-words embedder: each lower-cased word is
// hashed into one of Dims buckets and the vector is L2 normalized. Texts
// sharing words get a high cosine similarity.
type Mock struct {
	Dims int
}

// DefaultMockDims is used by NewMock for a non-positive size.
const DefaultMockDims = 64

// NewMock returns a Mock with dims buckets.
func NewMock(dims int) *Mock {
	if dims <= 0 {
		dims = DefaultMockDims
	}
	return &Mock{Dims: dims}
}

// Dimensions implements Embedder.
func (m *Mock) Dimensions() int { return m.Dims }

// Embed implements Embedder.
func (m *Mock) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if m.Dims <= 0 {
		return nil, fmt.Errorf("mock embedder: invalid dimensions %d", m.Dims)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, m.Dims)
		words := strings.FieldsFunc(strings.ToLower(t), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			v[int(h.Sum32()%uint32(m.Dims))]++
		}
		var norm float64
		for _, x := range v {
			norm += float64(x * x)
		}
		if norm > 0 {
			n := float32(math.Sqrt(norm))
			for j := range v {
				v[j] /= n
			}
		} else {
			v[0] = 1
		}
		out[i] = v
	}
	return out, nil
}
