package embedder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAI_EmbedBatches(t *testing.T) {
	var batches []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		var body struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "all-minilm", body.Model)
		batches = append(batches, len(body.Input))

		data := make([]string, len(body.Input))
		// reverse order to exercise index mapping
		for i := range body.Input {
			idx := len(body.Input) - 1 - i
			data[i] = fmt.Sprintf(`{"object":"embedding","index":%d,"embedding":[%d,0.5]}`, idx, len(body.Input[idx]))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"object":"list","model":"all-minilm","data":[%s],"usage":{"prompt_tokens":1,"total_tokens":1}}`, strings.Join(data, ","))
	}))
	defer srv.Close()

	e := NewOpenAI(func(o *OpenAIOptions) {
		o.BaseURL = srv.URL + "/"
		o.BatchSize = 2
	})
	assert.Equal(t, 384, e.Dimensions())

	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{1, 0.5}, vecs[0])
	assert.Equal(t, []float32{2, 0.5}, vecs[1])
	assert.Equal(t, []float32{3, 0.5}, vecs[2])
	assert.Equal(t, []int{2, 1}, batches)
}

func TestOpenAI_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"model not found"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOpenAI(func(o *OpenAIOptions) { o.BaseURL = srv.URL + "/" }).Embed(context.Background(), []string{"x"})
	assert.ErrorContains(t, err, "embeddings request")
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func TestMock_SimilarTextsScoreHigher(t *testing.T) {
	m := NewMock(64)
	vecs, err := m.Embed(context.Background(), []string{
		"thai green curry recipe",
		"Green curry recipe!",
		"quarterly earnings report",
		"",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 4)

	assert.Greater(t, dot(vecs[0], vecs[1]), dot(vecs[0], vecs[2]))
	assert.InDelta(t, 1.0, dot(vecs[0], vecs[0]), 1e-5)
	assert.InDelta(t, 1.0, dot(vecs[3], vecs[3]), 1e-5)

	again, _ := m.Embed(context.Background(), []string{"thai green curry recipe"})
	assert.Equal(t, vecs[0], again[0])
}

func TestMock_NonPositiveDimensions(t *testing.T) {
	for _, dims := range []int{0, -1} {
		m := NewMock(dims)
		assert.Equal(t, DefaultMockDims, m.Dimensions())

		vecs, err := m.Embed(context.Background(), []string{"green curry"})
		require.NoError(t, err)
		require.Len(t, vecs, 1)
		assert.Len(t, vecs[0], DefaultMockDims)
	}

	_, err := (&Mock{}).Embed(context.Background(), []string{"x"})
	require.Error(t, err)
}
