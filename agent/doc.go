// Package agent contains the agent implementations of agentcrew:
//
//  1. ModelAgent answers a query with one model, an ordered list of
//     instructions and optional tools, knowledge and chat history
//  2. Team delegates a query to its members and merges their answers under
//     its own instructions
//
// Agents are immutable after construction. Every response is written to the
// sink carried by the RunContext, so one agent value can serve concurrent
// dispatches. Execution of the model/tool loop lives in the flow package.
package agent
