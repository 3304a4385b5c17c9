package core

import (
	"context"

	"github.com/hupe1980/agentcrew/logging"
)

// ToolContext provides the constrained surface a tool implementation sees
// while handling one function call: the cancellation context, identifiers of
// the surrounding run and a logger.
type ToolContext struct {
	runCtx         *RunContext
	functionCallID string

	*loggerAdapter
}

// NewToolContext constructs a tool context bound to a parent RunContext
// and unique functionCallID.
func NewToolContext(runCtx *RunContext, functionCallID string) *ToolContext {
	return &ToolContext{
		runCtx:         runCtx,
		functionCallID: functionCallID,
		loggerAdapter:  newLoggerAdapter(runCtx.Logger(), "run_id", runCtx.RunID, "function_call_id", functionCallID),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// RunID returns the run ID associated with the tool invocation.
func (tc *ToolContext) RunID() string { return tc.runCtx.RunID }

// UserID returns the user ID associated with the tool invocation.
func (tc *ToolContext) UserID() string { return tc.runCtx.UserID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// AgentName returns the agent name associated with the tool invocation.
func (tc *ToolContext) AgentName() string { return tc.runCtx.Agent.Name }

// RunContext exposes the parent run context. Tools that delegate to other
// agents (team transfers) derive their own run context from it.
func (tc *ToolContext) RunContext() *RunContext { return tc.runCtx }
