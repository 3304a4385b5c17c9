package core

import (
	"context"
	"io"

	"github.com/hupe1980/agentcrew/logging"
)

// RunContext carries the per-dispatch execution scope passed to Agent.Respond.
// It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (RunID, UserID) treated as opaque pass-through strings
//   - Output, the explicit sink the agent writes its response to
//   - Rendering hints (Stream, Color)
//   - The agent currently executing (for logs and tool contexts)
//
// A RunContext is never shared between concurrent dispatches. Derived copies
// (WithOutput, WithAgent) share identifiers but not the sink.
type RunContext struct {
	Context context.Context
	RunID   string
	UserID  string
	Agent   AgentInfo
	// Stream requests incremental writes of text deltas to Output.
	Stream bool
	// Color allows ANSI styling (tool call traces, headings) in Output.
	Color  bool
	Output io.Writer

	*loggerAdapter
}

// NewRunContext constructs a streaming RunContext writing to out. A nil out
// discards the response.
func NewRunContext(ctx context.Context, runID, userID string, out io.Writer, logger logging.Logger) *RunContext {
	if out == nil {
		out = io.Discard
	}

	return &RunContext{
		Context:       ctx,
		RunID:         runID,
		UserID:        userID,
		Stream:        true,
		Output:        out,
		loggerAdapter: newLoggerAdapter(logger, "run_id", runID),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// WithOutput returns a copy of the run context writing to w.
func (rc *RunContext) WithOutput(w io.Writer) *RunContext {
	clone := *rc
	clone.Output = w
	return &clone
}

// WithAgent returns a copy of the run context attributed to the given agent.
func (rc *RunContext) WithAgent(info AgentInfo) *RunContext {
	clone := *rc
	clone.Agent = info
	return &clone
}

// WithContext returns a copy of the run context bound to ctx.
func (rc *RunContext) WithContext(ctx context.Context) *RunContext {
	clone := *rc
	clone.Context = ctx
	return &clone
}
