package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/logging"
	"github.com/hupe1980/agentcrew/tool"
	"github.com/hupe1980/agentcrew/vectordb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searcherFunc func(ctx context.Context, query string, limit int) ([]vectordb.Document, error)

func (f searcherFunc) Search(ctx context.Context, query string, limit int) ([]vectordb.Document, error) {
	return f(ctx, query, limit)
}

func toolContext() *core.ToolContext {
	rc := core.NewRunContext(context.Background(), "run", "user", nil, logging.NoOpLogger{})
	return core.NewToolContext(rc, "fc-1")
}

func TestSearchKnowledgeBase(t *testing.T) {
	var gotLimit int
	s := searcherFunc(func(_ context.Context, query string, limit int) ([]vectordb.Document, error) {
		gotLimit = limit
		assert.Equal(t, "green curry", query)
		return []vectordb.Document{{Name: "recipes", Content: "Green curry ...", Metadata: map[string]string{"page": "3"}}}, nil
	})

	kt := New(s, 4)
	assert.Equal(t, ToolName, kt.Name())

	out, err := kt.Call(toolContext(), map[string]any{"query": " green curry "})
	require.NoError(t, err)
	refs := out.([]Reference)
	require.Len(t, refs, 1)
	assert.Equal(t, "recipes", refs[0].Name)
	assert.Equal(t, "3", refs[0].Metadata["page"])
	assert.Equal(t, 4, gotLimit)
}

func TestSearchKnowledgeBase_Errors(t *testing.T) {
	boom := errors.New("db down")
	kt := New(searcherFunc(func(context.Context, string, int) ([]vectordb.Document, error) {
		return nil, boom
	}), 0)

	_, err := kt.Call(toolContext(), map[string]any{"query": "   "})
	te, ok := tool.AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, tool.CodeValidation, te.Code)

	_, err = kt.Call(toolContext(), map[string]any{"query": "x"})
	te, ok = tool.AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, tool.CodeExecution, te.Code)
	assert.Equal(t, boom.Error(), te.Message)
}
