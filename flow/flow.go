// Package flow runs the request -> model -> tool loop behind a ModelAgent.
//
// A flow assembles the model request through pluggable request processors
// (instructions, history, query), calls the model, executes any requested
// tools and feeds their results back until the model answers in plain text.
// Text is written to the RunContext sink as it arrives when streaming, or
// once at the end otherwise.
package flow

import (
	"errors"
	"time"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/model"
	"github.com/hupe1980/agentcrew/tool"
)

// ErrMaxToolRounds is returned when the model keeps requesting tools beyond
// the configured number of rounds.
var ErrMaxToolRounds = errors.New("exceeded max tool rounds")

// Flow defines the interface for agent execution flows.
type Flow interface {
	// Execute answers query, writing the response to runCtx.Output.
	Execute(runCtx *core.RunContext, query string) (Result, error)
}

// Settings tune the tool loop.
type Settings struct {
	// MaxToolRounds bounds the number of tool rounds; <= 0 means unbounded.
	MaxToolRounds int
	// ToolTimeout bounds a single tool call; 0 disables the timeout.
	ToolTimeout time.Duration
	// MaxParallelTools bounds concurrent tool calls of one round; <= 0 runs
	// all calls of a round concurrently.
	MaxParallelTools int
	// ShowToolCalls writes a "Running:" trace of every tool round to the sink.
	ShowToolCalls bool
	// LogToolStarts logs an agent.function.start debug entry per tool call.
	LogToolStarts bool
}

// FlowAgent defines the interface that agents must implement to work with flows.
type FlowAgent interface {
	// GetName returns the agent's display name.
	GetName() string

	// GetLLM returns the language model instance.
	GetLLM() model.Model

	// GetTools returns the tools offered to the model.
	GetTools() []tool.Tool

	// ResolveInstructions produces the system prompt for this run.
	ResolveInstructions(runCtx *core.RunContext) (string, error)

	// History returns earlier contents of the run to prepend to the request.
	History(runCtx *core.RunContext) ([]core.Content, error)

	// Settings returns the tool loop settings.
	Settings() Settings
}

// RequestProcessor processes the request before sending it to the LLM.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the request before the first model turn.
	ProcessRequest(runCtx *core.RunContext, query string, req *model.Request, agent FlowAgent) error
}

// Result summarises one execution.
type Result struct {
	// Text is the final assistant answer.
	Text string
	// Rounds is the number of tool rounds performed.
	Rounds int
	// ToolCalls is the total number of executed tool calls.
	ToolCalls int
	Usage     model.TokenUsage
}

func (r *Result) addUsage(u *model.TokenUsage) {
	if u == nil {
		return
	}
	r.Usage.PromptTokens += u.PromptTokens
	r.Usage.CompletionTokens += u.CompletionTokens
	r.Usage.TotalTokens += u.TotalTokens
}
