package core

// Agent defines the interface that every responder in agentcrew implements.
//
// An Agent answers a single query. It writes its response to the sink carried
// by the RunContext (runCtx.Output), either incrementally (runCtx.Stream) or
// as one final write. Implementations must:
//   - Respect runCtx.Context cancellation
//   - Never write to process-wide streams; runCtx.Output is the only sink
//   - Propagate model and infrastructure failures to the caller
//   - Remain immutable after construction so a single value can serve
//     concurrent dispatches
type Agent interface {
	// Name is the human readable identifier used in logs, traces and team prompts.
	Name() string
	// Description summarises the agent's role (may be empty).
	Description() string
	// Respond answers query, writing the response to runCtx.Output.
	Respond(runCtx *RunContext, query string) error
}

// AgentInfo carries identifying details about an agent used in contexts & logs.
// Name is the external identifier; Type categorizes implementation (e.g. "model", "team").
type AgentInfo struct{ Name, Type string }
