package flow

import (
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/model"
	"github.com/hupe1980/agentcrew/render"
	"github.com/hupe1980/agentcrew/tool"
)

// BaseFlow is a single-agent flow implementing the request -> LLM ->
// (optional tool loop) cycle with pluggable request processors.
type BaseFlow struct {
	agent             FlowAgent
	requestProcessors []RequestProcessor
	executor          FunctionExecutor
}

// NewBaseFlow creates a new basic single-agent flow without processors.
func NewBaseFlow(agent FlowAgent) *BaseFlow {
	return &BaseFlow{
		agent:             agent,
		requestProcessors: []RequestProcessor{},
		executor: NewParallelFunctionExecutor(FunctionExecutorConfig{
			MaxParallel:    agent.Settings().MaxParallelTools,
			Timeout:        agent.Settings().ToolTimeout,
			LogStartEvents: agent.Settings().LogToolStarts,
		}),
	}
}

// AddRequestProcessor appends a request processor; order of registration defines execution order.
func (f *BaseFlow) AddRequestProcessor(processor RequestProcessor) {
	f.requestProcessors = append(f.requestProcessors, processor)
}

// SetFunctionExecutor replaces the tool executor.
func (f *BaseFlow) SetFunctionExecutor(e FunctionExecutor) { f.executor = e }

// Execute runs the tool loop until the model answers without tool calls.
func (f *BaseFlow) Execute(runCtx *core.RunContext, query string) (Result, error) {
	var res Result
	settings := f.agent.Settings()

	req := model.Request{Stream: runCtx.Stream}
	for _, processor := range f.requestProcessors {
		if err := processor.ProcessRequest(runCtx, query, &req, f.agent); err != nil {
			return res, fmt.Errorf("request processor %s failed: %w", processor.Name(), err)
		}
	}

	registry := tool.NewRegistry(f.agent.GetTools()...)
	req.Tools = tool.Definitions(registry.Tools())

	budget := core.NewRoundBudget(settings.MaxToolRounds)

	for {
		if err := runCtx.Err(); err != nil {
			return res, err
		}

		resp, streamed, err := f.generate(runCtx, req)
		if err != nil {
			return res, err
		}
		res.addUsage(resp.Usage)

		calls := resp.Content.FunctionCalls()
		if len(calls) == 0 {
			res.Text = resp.Content.Text()
			if !streamed && res.Text != "" {
				if _, err := io.WriteString(runCtx.Output, res.Text); err != nil {
					return res, fmt.Errorf("write response: %w", err)
				}
			}
			runCtx.LogDebug("agent.flow.complete", "agent", f.agent.GetName(), "rounds", res.Rounds, "tool_calls", res.ToolCalls)
			return res, nil
		}

		if err := budget.Take(); err != nil {
			runCtx.LogWarn("agent.tool_rounds.exceeded", "agent", f.agent.GetName(), "rounds", res.Rounds)
			return res, fmt.Errorf("%w (%d): %w", ErrMaxToolRounds, settings.MaxToolRounds, err)
		}

		req.Contents = append(req.Contents, resp.Content)

		if settings.ShowToolCalls {
			if err := f.writeTrace(runCtx, calls, streamed); err != nil {
				return res, err
			}
		}

		responses, err := f.executor.Execute(runCtx, f.agent.GetName(), registry, calls)
		if err != nil {
			return res, err
		}

		parts := make([]core.Part, len(responses))
		for i, fr := range responses {
			parts[i] = core.FunctionResponsePart{FunctionResponse: fr}
		}
		req.Contents = append(req.Contents, core.Content{Role: core.RoleTool, Parts: parts})

		res.Rounds++
		res.ToolCalls += len(calls)
	}
}

func (f *BaseFlow) writeTrace(runCtx *core.RunContext, calls []core.FunctionCall, afterText bool) error {
	trace := FormatToolCalls(calls)
	if runCtx.Color {
		trace = render.Lines(render.NewStyles(runCtx.Output, true).ToolCall, trace)
	}
	if afterText {
		trace = "\n" + trace
	}
	if _, err := io.WriteString(runCtx.Output, trace+"\n"); err != nil {
		return fmt.Errorf("write tool trace: %w", err)
	}
	return nil
}

// generate performs one model turn. Text deltas are written to the sink when
// streaming; the returned flag reports whether any text was written.
func (f *BaseFlow) generate(runCtx *core.RunContext, req model.Request) (model.Response, bool, error) {
	llm := f.agent.GetLLM()
	respCh, errCh := llm.Generate(runCtx.Context, req)

	var (
		final    *model.Response
		streamed bool
		writeErr error
	)
	for resp := range respCh {
		if !resp.Partial {
			r := resp
			final = &r
			continue
		}
		if !req.Stream || writeErr != nil {
			continue
		}
		if text := resp.Content.Text(); text != "" {
			if _, err := io.WriteString(runCtx.Output, text); err != nil {
				writeErr = fmt.Errorf("write response: %w", err)
				continue
			}
			streamed = true
		}
	}

	if err := <-errCh; err != nil {
		runCtx.LogError("agent.model.error", "agent", f.agent.GetName(), "model", llm.Info().Name, "error", err.Error())
		return model.Response{}, streamed, err
	}
	if writeErr != nil {
		return model.Response{}, streamed, writeErr
	}
	if final == nil {
		return model.Response{}, streamed, errors.New("model returned no final response")
	}
	return *final, streamed, nil
}
