package agentcrew

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcrew/agent"
	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/model"
	"github.com/hupe1980/agentcrew/render"
)

// printingAgent writes a colored echo of the query and records what it saw.
type printingAgent struct {
	agent.BaseAgent
	err error

	mu      sync.Mutex
	queries []string
	runIDs  []string
}

func newPrintingAgent() *printingAgent {
	return &printingAgent{BaseAgent: agent.NewBaseAgent("printer", "")}
}

func (a *printingAgent) Respond(rc *core.RunContext, query string) error {
	a.mu.Lock()
	a.queries = append(a.queries, query)
	a.runIDs = append(a.runIDs, rc.RunID)
	a.mu.Unlock()

	if _, err := io.WriteString(rc.Output, "\x1b[31m"+query+"\x1b[0m"); err != nil {
		return err
	}
	_, _ = io.WriteString(rc.Output, " World")
	return a.err
}

func TestDispatch_CleansCapturedOutput(t *testing.T) {
	a := newPrintingAgent()
	d := New(a)

	text, err := d.Dispatch(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", text)
}

func TestDispatch_EmptyQueryForwarded(t *testing.T) {
	a := newPrintingAgent()
	text, err := New(a).Dispatch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, a.queries)
	assert.Equal(t, " World", text)
}

func TestDispatch_SequentialCapturesAreIndependent(t *testing.T) {
	d := New(newPrintingAgent())

	first, err := d.Dispatch(context.Background(), "one")
	require.NoError(t, err)
	second, err := d.Dispatch(context.Background(), "two")
	require.NoError(t, err)

	assert.Equal(t, "one World", first)
	assert.Equal(t, "two World", second)
}

func TestDispatch_CaptureAfterFailedDispatch(t *testing.T) {
	boom := errors.New("boom")
	a := newPrintingAgent()
	a.err = boom
	d := New(a)

	first, err := d.Dispatch(context.Background(), "one")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "one World", first)

	a.err = nil
	second, err := d.Dispatch(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, "two World", second)
	assert.Equal(t, []string{"one", "two"}, a.queries)
}

func TestDispatch_Concurrent(t *testing.T) {
	d := New(newPrintingAgent(), func(o *Options) { o.MaxConcurrentDispatches = 2 })

	queries := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	results := make([]string, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := d.Dispatch(context.Background(), q)
			assert.NoError(t, err)
			results[i] = text
		}()
	}
	wg.Wait()

	for i, q := range queries {
		assert.Equal(t, q+" World", results[i])
	}
}

func TestDispatch_ErrorReturnsPartialText(t *testing.T) {
	boom := errors.New("groq api error: missing api key")
	a := newPrintingAgent()
	a.err = boom

	text, err := New(a).Dispatch(context.Background(), "Hello")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "Hello World", text)
}

func TestDispatch_RunID(t *testing.T) {
	a := newPrintingAgent()
	d := New(a)
	require.NotEmpty(t, d.RunID())

	_, _ = d.Dispatch(context.Background(), "x")
	_, _ = d.Dispatch(context.Background(), "y")
	assert.Equal(t, []string{d.RunID(), d.RunID()}, a.runIDs)

	other := New(a)
	assert.NotEqual(t, d.RunID(), other.RunID())

	fixed := New(a, func(o *Options) { o.RunID = "run-42"; o.UserID = "bob" })
	assert.Equal(t, "run-42", fixed.RunID())
	assert.Equal(t, "bob", fixed.UserID())
}

func TestDispatch_RunPerDispatch(t *testing.T) {
	a := newPrintingAgent()
	d := New(a, func(o *Options) { o.RunPerDispatch = true })

	_, _ = d.Dispatch(context.Background(), "x")
	_, _ = d.Dispatch(context.Background(), "y")

	require.Len(t, a.runIDs, 2)
	assert.NotEqual(t, a.runIDs[0], a.runIDs[1])
	for _, id := range a.runIDs {
		assert.NotEmpty(t, id)
		assert.NotEqual(t, d.RunID(), id)
	}
}

func TestDispatchTo_StreamsRawAndCaptures(t *testing.T) {
	var raw bytes.Buffer
	text, err := New(newPrintingAgent()).DispatchTo(context.Background(), "Hello", &raw)
	require.NoError(t, err)
	assert.Equal(t, "\x1b[31mHello\x1b[0m World", raw.String())
	assert.Equal(t, "Hello World", text)
}

func TestDispatch_CancelledWhileWaiting(t *testing.T) {
	d := New(newPrintingAgent(), func(o *Options) { o.MaxConcurrentDispatches = 1 })
	require.NoError(t, d.sem.Acquire(context.Background(), 1))
	defer d.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Dispatch(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRender(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, New(newPrintingAgent()).Render(context.Background(), "Hello", &out))
	assert.Equal(t, "Hello World\n", out.String())

	out.Reset()
	d := New(newPrintingAgent(), func(o *Options) { o.Renderer = render.NewMarkdownHTML() })
	require.NoError(t, d.Render(context.Background(), "**bold**", &out))
	assert.Equal(t, "<p><strong>bold</strong> World</p>\n", out.String())
}

func TestDispatch_ModelAgentEndToEnd(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(model.Turn{Text: "Agents plan.\nAgents act."})

	a := agent.NewModelAgent("Basic", llm)
	text, err := New(a).Dispatch(context.Background(), "Write 5 lines about the Agentic AI")
	require.NoError(t, err)
	assert.Equal(t, "Agents plan.\nAgents act.", text)

	req := llm.Requests()[0]
	assert.True(t, req.Stream)
	assert.Equal(t, "Write 5 lines about the Agentic AI", req.Contents[len(req.Contents)-1].Text())
}

func TestDispatch_TeamEndToEnd(t *testing.T) {
	webLLM := model.NewMockModel("web", "mock")
	webLLM.AddTurns(model.Turn{Text: "NVDA launched a new GPU."})
	finLLM := model.NewMockModel("fin", "mock")
	finLLM.AddTurns(model.Turn{Text: "| Rating | Count |\n|---|---|\n| Buy | 40 |"})
	leadLLM := model.NewMockModel("lead", "mock")
	leadLLM.AddTurns(model.Turn{Text: "Summary"})

	team := agent.NewTeam("Team", leadLLM, []core.Agent{
		agent.NewModelAgent("Web Agent", webLLM),
		agent.NewModelAgent("Finance Agent", finLLM),
	})

	text, err := New(team, func(o *Options) { o.Color = true }).Dispatch(context.Background(), "Summarize NVDA")
	require.NoError(t, err)
	assert.Equal(t, "Summary", text)

	assert.Len(t, webLLM.Requests(), 1)
	assert.Len(t, finLLM.Requests(), 1)
	prompt := leadLLM.Requests()[0].Contents[len(leadLLM.Requests()[0].Contents)-1].Text()
	assert.True(t, strings.Index(prompt, "NVDA launched") < strings.Index(prompt, "| Buy | 40 |"))
}
