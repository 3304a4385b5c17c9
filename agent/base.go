package agent

import "fmt"

// BaseAgent bundles the identity shared by all agents. Embed it in concrete
// agent implementations and supply a Respond method to satisfy core.Agent.
type BaseAgent struct {
	name        string // Human-readable name
	description string // Detailed description of agent's purpose
}

// NewBaseAgent constructs a BaseAgent. An empty description is replaced by a
// generated one.
func NewBaseAgent(name, description string) BaseAgent {
	if description == "" {
		description = fmt.Sprintf("Agent %s", name)
	}
	return BaseAgent{name: name, description: description}
}

// Name returns the human-readable name for this agent.
func (b BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b BaseAgent) Description() string { return b.description }
