package flow

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/logging"
	"github.com/hupe1980/agentcrew/model"
	"github.com/hupe1980/agentcrew/render"
	"github.com/hupe1980/agentcrew/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAgent struct {
	name         string
	llm          model.Model
	tools        []tool.Tool
	instructions string
	history      []core.Content
	settings     Settings
}

func (a *testAgent) GetName() string       { return a.name }
func (a *testAgent) GetLLM() model.Model   { return a.llm }
func (a *testAgent) GetTools() []tool.Tool { return a.tools }
func (a *testAgent) Settings() Settings    { return a.settings }
func (a *testAgent) ResolveInstructions(*core.RunContext) (string, error) {
	return a.instructions, nil
}
func (a *testAgent) History(*core.RunContext) ([]core.Content, error) { return a.history, nil }

type addArgs struct {
	A int `json:"a"`
	B int `json:"b"`
}

func addTool() tool.Tool {
	return tool.NewTypedFunctionTool("add", "Add two integers", func(_ *core.ToolContext, a addArgs) (any, error) {
		return a.A + a.B, nil
	})
}

// rawTool returns plain errors or panics, bypassing FunctionTool normalization.
type rawTool struct {
	name string
	fn   func(tc *core.ToolContext) (any, error)
}

func (t *rawTool) Name() string               { return t.name }
func (t *rawTool) Description() string        { return "raw" }
func (t *rawTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (t *rawTool) Call(tc *core.ToolContext, _ map[string]any) (any, error) {
	return t.fn(tc)
}

func newRunContext(out *bytes.Buffer, stream bool) *core.RunContext {
	rc := core.NewRunContext(context.Background(), "run-1", "alice", out, logging.NoOpLogger{})
	rc.Stream = stream
	return rc
}

func TestExecute_Streaming(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(model.Turn{Text: "hello world"})

	var out bytes.Buffer
	res, err := NewSingleAgentFlow(&testAgent{name: "a", llm: llm}).Execute(newRunContext(&out, true), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Text)
	assert.Equal(t, "hello world", out.String())
	assert.True(t, llm.Requests()[0].Stream)
}

func TestExecute_NonStreamingWritesOnce(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")

	var out bytes.Buffer
	res, err := NewSingleAgentFlow(&testAgent{name: "a", llm: llm}).Execute(newRunContext(&out, false), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: hi", res.Text)
	assert.Equal(t, "Mock response to: hi", out.String())
	assert.False(t, llm.Requests()[0].Stream)
}

func TestExecute_RequestAssembly(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	agent := &testAgent{
		name:         "tester",
		llm:          llm,
		tools:        []tool.Tool{addTool()},
		instructions: "You are {{.agent}} helping {{.user_id}} in {{.run_id}}.",
		history: []core.Content{
			core.NewTextContent(core.RoleUser, "earlier"),
			{Role: core.RoleAssistant},
			core.NewTextContent(core.RoleAssistant, "earlier answer"),
		},
	}

	_, err := NewSingleAgentFlow(agent).Execute(newRunContext(&bytes.Buffer{}, false), "")
	require.NoError(t, err)

	req := llm.Requests()[0]
	require.Len(t, req.Contents, 4)
	assert.Equal(t, core.RoleSystem, req.Contents[0].Role)
	assert.Equal(t, "You are tester helping alice in run-1.", req.Contents[0].Text())
	assert.Equal(t, "earlier", req.Contents[1].Text())
	assert.Equal(t, "earlier answer", req.Contents[2].Text())
	assert.Equal(t, core.RoleUser, req.Contents[3].Role)
	assert.Equal(t, "", req.Contents[3].Text())
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "add", req.Tools[0].Function.Name)
}

func TestExecute_ToolLoopWithTrace(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(
		model.Turn{Calls: []core.FunctionCall{{ID: "c1", Name: "add", Arguments: `{"a":1,"b":2}`}}},
		model.Turn{Text: "The sum is 3."},
	)

	agent := &testAgent{name: "calc", llm: llm, tools: []tool.Tool{addTool()}, settings: Settings{ShowToolCalls: true}}

	var out bytes.Buffer
	res, err := NewSingleAgentFlow(agent).Execute(newRunContext(&out, true), "1+2?")
	require.NoError(t, err)
	assert.Equal(t, "The sum is 3.", res.Text)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, 1, res.ToolCalls)
	assert.Equal(t, "Running:\n - add(a=1, b=2)\n\nThe sum is 3.", out.String())

	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	contents := reqs[1].Contents
	last := contents[len(contents)-1]
	assert.Equal(t, core.RoleTool, last.Role)
	frs := last.FunctionResponses()
	require.Len(t, frs, 1)
	assert.Equal(t, "c1", frs[0].ID)
	assert.Equal(t, 3, frs[0].Response)
	assert.Empty(t, frs[0].Error)
	assert.Len(t, contents[len(contents)-2].FunctionCalls(), 1)
}

func TestExecute_ColoredTraceIsStrippable(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(
		model.Turn{Calls: []core.FunctionCall{{ID: "c1", Name: "add", Arguments: `{"a":2,"b":2}`}}},
		model.Turn{Text: "4"},
	)

	var out bytes.Buffer
	rc := newRunContext(&out, true)
	rc.Color = true
	_, err := NewSingleAgentFlow(&testAgent{name: "calc", llm: llm, tools: []tool.Tool{addTool()}, settings: Settings{ShowToolCalls: true}}).Execute(rc, "2+2")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "\x1b[")
	assert.Equal(t, "Running:\n - add(a=2, b=2)\n\n4", render.Clean(out.String()))
}

func TestExecute_ToolFailuresReportedToModel(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(
		model.Turn{Calls: []core.FunctionCall{
			{ID: "c1", Name: "missing", Arguments: `{}`},
			{ID: "c2", Name: "add", Arguments: `{"a":"x"}`},
			{ID: "c3", Name: "boom", Arguments: ``},
			{ID: "c4", Name: "add", Arguments: `not json`},
		}},
		model.Turn{Text: "sorry"},
	)

	panicking := &rawTool{name: "boom", fn: func(*core.ToolContext) (any, error) { panic("kaboom") }}
	agent := &testAgent{name: "a", llm: llm, tools: []tool.Tool{addTool(), panicking}}

	res, err := NewSingleAgentFlow(agent).Execute(newRunContext(&bytes.Buffer{}, false), "q")
	require.NoError(t, err)
	assert.Equal(t, "sorry", res.Text)

	contents := llm.Requests()[1].Contents
	frs := contents[len(contents)-1].FunctionResponses()
	require.Len(t, frs, 4)
	assert.Equal(t, []string{"c1", "c2", "c3", "c4"}, []string{frs[0].ID, frs[1].ID, frs[2].ID, frs[3].ID})
	assert.Contains(t, frs[0].Error, tool.CodeNotFound)
	assert.Contains(t, frs[1].Error, tool.CodeValidation)
	assert.Contains(t, frs[2].Error, "panic recovered: kaboom")
	assert.Contains(t, frs[3].Error, "failed to unmarshal args")
}

func TestExecute_ToolTimeout(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(
		model.Turn{Calls: []core.FunctionCall{{ID: "c1", Name: "slow"}}},
		model.Turn{Text: "gave up"},
	)
	slow := &rawTool{name: "slow", fn: func(tc *core.ToolContext) (any, error) {
		<-tc.Context().Done()
		return nil, tc.Context().Err()
	}}

	agent := &testAgent{name: "a", llm: llm, tools: []tool.Tool{slow}, settings: Settings{ToolTimeout: 10 * time.Millisecond}}
	res, err := NewSingleAgentFlow(agent).Execute(newRunContext(&bytes.Buffer{}, false), "q")
	require.NoError(t, err)
	assert.Equal(t, "gave up", res.Text)

	contents := llm.Requests()[1].Contents
	frs := contents[len(contents)-1].FunctionResponses()
	require.Len(t, frs, 1)
	assert.Contains(t, frs[0].Error, tool.CodeTimeout)
}

func TestExecute_InfrastructureErrorsPropagate(t *testing.T) {
	down := errors.New("connection refused")

	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(model.Turn{Calls: []core.FunctionCall{{ID: "c1", Name: "db"}}})
	broken := &rawTool{name: "db", fn: func(*core.ToolContext) (any, error) { return nil, down }}

	_, err := NewSingleAgentFlow(&testAgent{name: "a", llm: llm, tools: []tool.Tool{broken}}).Execute(newRunContext(&bytes.Buffer{}, false), "q")
	assert.ErrorIs(t, err, down)

	failing := model.NewMockModel("mock", "mock")
	failing.AddTurns(model.Turn{Err: down})
	_, err = NewSingleAgentFlow(&testAgent{name: "a", llm: failing}).Execute(newRunContext(&bytes.Buffer{}, true), "q")
	assert.ErrorIs(t, err, down)
}

func TestExecute_MaxToolRounds(t *testing.T) {
	call := model.Turn{Calls: []core.FunctionCall{{ID: "c", Name: "add", Arguments: `{"a":1,"b":1}`}}}
	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(call, call, call)

	agent := &testAgent{name: "a", llm: llm, tools: []tool.Tool{addTool()}, settings: Settings{MaxToolRounds: 2}}
	res, err := NewSingleAgentFlow(agent).Execute(newRunContext(&bytes.Buffer{}, false), "loop")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxToolRounds)
	assert.ErrorIs(t, err, core.ErrRoundBudget)
	assert.Equal(t, 2, res.Rounds)
	assert.Len(t, llm.Requests(), 3)
}

func TestExecute_ParallelCallsKeepOrder(t *testing.T) {
	var calls []core.FunctionCall
	for i := 0; i < 8; i++ {
		calls = append(calls, core.FunctionCall{ID: string(rune('a' + i)), Name: "add", Arguments: `{"a":1,"b":` + string(rune('0'+i)) + `}`})
	}
	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(model.Turn{Calls: calls}, model.Turn{Text: "done"})

	agent := &testAgent{name: "a", llm: llm, tools: []tool.Tool{addTool()}, settings: Settings{MaxParallelTools: 3}}
	_, err := NewSingleAgentFlow(agent).Execute(newRunContext(&bytes.Buffer{}, false), "q")
	require.NoError(t, err)

	contents := llm.Requests()[1].Contents
	frs := contents[len(contents)-1].FunctionResponses()
	require.Len(t, frs, 8)
	for i, fr := range frs {
		assert.Equal(t, string(rune('a'+i)), fr.ID)
		assert.Equal(t, 1+i, fr.Response)
	}
}

func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rc := core.NewRunContext(ctx, "run", "", &bytes.Buffer{}, logging.NoOpLogger{})
	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(model.Turn{Text: strings.Repeat("x", 100)})

	_, err := NewSingleAgentFlow(&testAgent{name: "a", llm: llm}).Execute(rc, "q")
	assert.ErrorIs(t, err, context.Canceled)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestExecute_WriteError(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(model.Turn{Text: "hello"})

	rc := core.NewRunContext(context.Background(), "run", "", failingWriter{}, logging.NoOpLogger{})
	_, err := NewSingleAgentFlow(&testAgent{name: "a", llm: llm}).Execute(rc, "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestFormatToolCalls(t *testing.T) {
	got := FormatToolCalls([]core.FunctionCall{
		{Name: "get_current_stock_price", Arguments: `{"symbol":"NVDA"}`},
		{Name: "get_company_news", Arguments: `{"symbol":"NVDA","num_stories":3}`},
		{Name: "noop", Arguments: ``},
	})
	assert.Equal(t, "Running:\n"+
		" - get_current_stock_price(symbol=NVDA)\n"+
		" - get_company_news(symbol=NVDA, num_stories=3)\n"+
		" - noop()\n", got)
}

func TestExecute_LogToolStarts(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		llm := model.NewMockModel("mock", "mock")
		llm.AddTurns(
			model.Turn{Calls: []core.FunctionCall{{ID: "c1", Name: "add", Arguments: `{"a":1,"b":2}`}}},
			model.Turn{Text: "3"},
		)

		var logs bytes.Buffer
		logger := logging.NewSlogAdapter(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
		rc := core.NewRunContext(context.Background(), "run-1", "", nil, logger)

		agent := &testAgent{name: "calc", llm: llm, tools: []tool.Tool{addTool()}, settings: Settings{LogToolStarts: enabled}}
		_, err := NewSingleAgentFlow(agent).Execute(rc, "1+2")
		require.NoError(t, err)

		if enabled {
			assert.Contains(t, logs.String(), "msg=agent.function.start agent=calc function=add function_call_id=c1")
		} else {
			assert.NotContains(t, logs.String(), "agent.function.start")
		}
	}
}

// fixedExecutor answers every call with the same response.
type fixedExecutor struct{ calls []core.FunctionCall }

func (e *fixedExecutor) Execute(_ *core.RunContext, _ string, _ *tool.Registry, calls []core.FunctionCall) ([]core.FunctionResponse, error) {
	e.calls = append(e.calls, calls...)
	out := make([]core.FunctionResponse, len(calls))
	for i, fc := range calls {
		out[i] = core.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: "stubbed"}
	}
	return out, nil
}

func TestExecute_CustomFunctionExecutor(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.AddTurns(
		model.Turn{Calls: []core.FunctionCall{{ID: "c1", Name: "add", Arguments: `{"a":1,"b":2}`}}},
		model.Turn{Text: "done"},
	)

	exec := &fixedExecutor{}
	f := NewSingleAgentFlow(&testAgent{name: "a", llm: llm, tools: []tool.Tool{addTool()}})
	f.SetFunctionExecutor(exec)

	var out bytes.Buffer
	res, err := f.Execute(newRunContext(&out, false), "1+2")
	require.NoError(t, err)
	assert.Equal(t, "done", res.Text)
	require.Len(t, exec.calls, 1)

	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	frs := reqs[1].Contents[len(reqs[1].Contents)-1].FunctionResponses()
	require.Len(t, frs, 1)
	assert.Equal(t, "stubbed", frs[0].Response)
}
