package testutil

import (
	"time"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/storage"
)

// RunBuilder helps construct stored runs with fluent chaining for tests.
// Example:
//
//	run := NewRunBuilder("run-1").User("alice").Exchange("hi", "hello").Build()
type RunBuilder struct {
	run storage.Run
	at  time.Time
}

// NewRunBuilder creates a new builder for a run with the given id.
func NewRunBuilder(id string) *RunBuilder {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &RunBuilder{run: storage.Run{ID: id, Created: at, Updated: at}, at: at}
}

// User sets the owning user (chainable).
func (b *RunBuilder) User(id string) *RunBuilder { b.run.UserID = id; return b }

// Agent sets the agent name (chainable).
func (b *RunBuilder) Agent(name string) *RunBuilder { b.run.AgentName = name; return b }

// Message appends one message one second after the previous one (chainable).
func (b *RunBuilder) Message(role, content string) *RunBuilder {
	b.at = b.at.Add(time.Second)
	b.run.Messages = append(b.run.Messages, storage.Message{Role: role, Content: content, CreatedAt: b.at})
	b.run.Updated = b.at
	return b
}

// Exchange appends a user query and the assistant answer (chainable).
func (b *RunBuilder) Exchange(query, answer string) *RunBuilder {
	return b.Message(core.RoleUser, query).Message(core.RoleAssistant, answer)
}

// Build returns a copy of the run.
func (b *RunBuilder) Build() storage.Run { return *b.run.Clone() }
