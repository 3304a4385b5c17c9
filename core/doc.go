// Package core provides the foundational domain types and interfaces shared by
// the rest of agentcrew:
//
//   - Agent, the single-operation responder (Respond)
//   - RunContext, the per-dispatch scope carrying the explicit output sink
//   - ToolContext, the surface tools see while handling a function call
//   - Content / Part, the normalized conversation representation
//   - RoundBudget, the per-response tool round cap
//   - ErrConfig, the configuration error family
//
// The package keeps implementation concerns (model vendors, tools, storage)
// out of scope so every other package can depend on it without cycles.
package core
