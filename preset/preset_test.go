package preset

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcrew/agent"
	"github.com/hupe1980/agentcrew/config"
	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/embedder"
	"github.com/hupe1980/agentcrew/internal/testutil"
	"github.com/hupe1980/agentcrew/logging"
	"github.com/hupe1980/agentcrew/model"
	"github.com/hupe1980/agentcrew/storage"
)

func toolNames(a *agent.ModelAgent) []string {
	var names []string
	for _, d := range a.Descriptors() {
		names = append(names, d.Name)
	}
	return names
}

func TestNewModel(t *testing.T) {
	tests := []struct {
		cfg      config.ModelConfig
		provider string
		name     string
	}{
		{config.ModelConfig{Provider: config.ProviderGroq}, "groq", "llama-3.3-70b-versatile"},
		{config.ModelConfig{Provider: config.ProviderGroq, Name: "llama-3.1-8b-instant"}, "groq", "llama-3.1-8b-instant"},
		{config.ModelConfig{Provider: config.ProviderOpenAI, Name: "gpt-4o"}, "openai", "gpt-4o"},
		{config.ModelConfig{Provider: config.ProviderAnthropic, Name: "claude-3-5-haiku-latest"}, "anthropic", "claude-3-5-haiku-latest"},
		{config.ModelConfig{Provider: config.ProviderMock}, "mock", "mock"},
	}
	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.name, func(t *testing.T) {
			m, err := NewModel(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.provider, m.Info().Provider)
			assert.Equal(t, tt.name, m.Info().Name)
		})
	}

	_, err := NewModel(config.ModelConfig{Provider: "llama-cpp"})
	assert.True(t, core.IsConfigError(err))
}

func TestAgents(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")

	basic := BasicAgent(llm)
	assert.Empty(t, basic.Descriptors())
	assert.Empty(t, basic.Instructions())

	web := WebAgent(llm)
	assert.Equal(t, "Web Agent", web.Name())
	assert.Equal(t, []string{"duckduckgo_search"}, toolNames(web))
	assert.Equal(t, []string{"Always include sources"}, web.Instructions())

	fin := FinanceAgent(llm)
	assert.Equal(t, "finance agent", fin.Name())
	assert.Equal(t, "Get financial data", fin.Description())
	assert.Equal(t, []string{"get_current_stock_price", "get_analyst_recommendations", "get_stock_fundamentals"}, toolNames(fin))
	assert.Equal(t, []string{"Use tables to display data"}, fin.Instructions())

	team := FinanceTeam(llm)
	require.Len(t, team.Members(), 2)
	assert.Equal(t, "Web Agent", team.Members()[0].Name())
	assert.Equal(t, "finance agent", team.Members()[1].Name())
	assert.Equal(t, agent.ModeBroadcast, team.Mode())
}

func TestFinanceTeam_Respond(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(
		model.Turn{Text: "NVDA unveiled new chips (source: example.com)"},
		model.Turn{Text: "| Rating | Count |\n|---|---|\n| Buy | 40 |"},
		model.Turn{Text: "NVDA is rated Buy."},
	)

	var out bytes.Buffer
	rc := core.NewRunContext(context.Background(), "run", "user", &out, logging.NoOpLogger{})
	require.NoError(t, FinanceTeam(llm).Respond(rc, DefaultTeamQuery))
	assert.Equal(t, "NVDA is rated Buy.", out.String())

	reqs := llm.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, DefaultTeamQuery, reqs[0].Contents[len(reqs[0].Contents)-1].Text())
	assert.Contains(t, reqs[2].Contents[0].Text(), "- Always include sources\n- Use tables to display data")
}

func TestOpenResources_SQLiteAndChromem(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "history.db")

	res, err := OpenResources(ctx, &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Close() })

	_, ok := res.Store.(*storage.SQLStore)
	assert.True(t, ok)
	require.NotNil(t, res.VectorDB)

	runID, continued, err := ResolveRunID(ctx, res.Store, "alice", false)
	require.NoError(t, err)
	assert.Empty(t, runID)
	assert.False(t, continued)

	_, err = res.Store.Create(ctx, storage.Run{ID: "run-1", UserID: "alice"})
	require.NoError(t, err)

	runID, continued, err = ResolveRunID(ctx, res.Store, "alice", false)
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)
	assert.True(t, continued)

	runID, _, err = ResolveRunID(ctx, res.Store, "alice", true)
	require.NoError(t, err)
	assert.Empty(t, runID)
}

func TestPDFAssistant(t *testing.T) {
	ctx := context.Background()
	body := testutil.MinimalPDF("Massaman curry simmers beef with potatoes and peanuts")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Storage.SQLitePath = ""
	cfg.Knowledge.URLs = []string{srv.URL + "/ThaiRecipes.pdf"}

	res, err := OpenResources(ctx, &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Close() })

	kb, err := LoadKnowledge(ctx, cfg.Knowledge, embedder.NewMock(64), res.VectorDB, nil)
	require.NoError(t, err)

	docs, err := kb.Search(ctx, "massaman curry", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "Massaman")

	llm := model.NewMockModel("mock", "mock")
	a := PDFAssistant(llm, kb, res.Store)
	assert.Equal(t, []string{"search_knowledge_base", "get_chat_history"}, toolNames(a))

	_, err = LoadKnowledge(ctx, config.KnowledgeConfig{ChunkSize: 100}, embedder.NewMock(8), res.VectorDB, nil)
	assert.True(t, core.IsConfigError(err))
}

func TestOptions_AgentSettings(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")

	settings := BasicAgent(llm).Settings()
	assert.False(t, settings.LogToolStarts)
	assert.Equal(t, 10, settings.MaxToolRounds)

	settings = WebAgent(llm, func(o *Options) {
		o.Agent.LogToolStarts = true
		o.Agent.MaxParallelTools = 2
	}).Settings()
	assert.True(t, settings.LogToolStarts)
	assert.Equal(t, 2, settings.MaxParallelTools)
}
