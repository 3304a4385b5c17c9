package flow

// SingleAgentFlow implements the execution flow of a standalone agent. It
// wires the default processors for instruction resolution, history and the
// user query, then runs the tool loop.
type SingleAgentFlow struct{ *BaseFlow }

// NewSingleAgentFlow creates a new single-agent flow.
func NewSingleAgentFlow(agent FlowAgent) *SingleAgentFlow {
	baseFlow := NewBaseFlow(agent)

	baseFlow.AddRequestProcessor(NewInstructionsProcessor())
	baseFlow.AddRequestProcessor(NewHistoryProcessor())
	baseFlow.AddRequestProcessor(NewQueryProcessor())

	return &SingleAgentFlow{BaseFlow: baseFlow}
}
