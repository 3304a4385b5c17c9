// Package tool implements the uniform request/response contract through which
// agents invoke external capabilities (web search, finance lookups, knowledge
// retrieval, chat history) with schema validated arguments.
package tool

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/internal/util"
	"github.com/hupe1980/agentcrew/model"
)

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeTimeout    = "TIMEOUT"
)

// Tool is the polymorphic capability contract. Agents only rely on this
// interface; which variant the model picks at runtime is opaque to them.
//
// Implementations must be safe for concurrent use.
type Tool interface {
	// Name returns the unique identifier (snake_case) exposed to the model.
	Name() string

	// Description tells the model when and how to use the tool.
	Description() string

	// Parameters returns the JSON schema of the accepted arguments.
	Parameters() map[string]any

	// Call executes the tool with decoded arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution. Agents report
// it back to the model instead of aborting the response.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// AsToolError unwraps err into a *ToolError.
func AsToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// Descriptor identifies a tool together with the configuration flags of the
// toolkit that contributed it. It is what the model sees on every turn.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  map[string]any  `json:"parameters"`
	Flags       map[string]bool `json:"flags,omitempty"`
}

// Definition converts the descriptor into the model level tool definition.
func (d Descriptor) Definition() model.ToolDefinition {
	return model.ToolDefinition{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		},
	}
}

// flagged is implemented by tools that expose configuration flags.
type flagged interface {
	Flags() map[string]bool
}

// Describe builds the Descriptor of a tool.
func Describe(t Tool) Descriptor {
	d := Descriptor{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Parameters(),
	}
	if f, ok := t.(flagged); ok {
		d.Flags = f.Flags()
	}
	return d
}

// Definitions returns the model tool definitions for tools, sorted by name.
func Definitions(tools []Tool) []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, Describe(t).Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Function.Name < defs[j].Function.Name })
	return defs
}
