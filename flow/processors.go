package flow

import (
	"fmt"

	"github.com/hupe1980/agentcrew/core"
	internalutil "github.com/hupe1980/agentcrew/internal/util"
	"github.com/hupe1980/agentcrew/model"
)

// InstructionsProcessor renders the system prompt as the first content.
//
// The prompt is a text/template with the variables agent, user_id and run_id.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest adds system instructions to the request.
func (p *InstructionsProcessor) ProcessRequest(runCtx *core.RunContext, _ string, req *model.Request, agent FlowAgent) error {
	instructions, err := agent.ResolveInstructions(runCtx)
	if err != nil {
		return fmt.Errorf("failed to resolve instruction: %w", err)
	}

	rendered, err := internalutil.RenderTemplate(instructions, map[string]any{
		"agent":   agent.GetName(),
		"user_id": runCtx.UserID,
		"run_id":  runCtx.RunID,
	})
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	runCtx.LogDebug("agent.instruction.resolved", "agent", agent.GetName(), "length", len(rendered))

	if rendered == "" {
		return nil
	}
	req.Contents = append(req.Contents, core.NewTextContent(core.RoleSystem, rendered))
	return nil
}

// HistoryProcessor appends earlier messages of the run.
type HistoryProcessor struct{}

// NewHistoryProcessor creates a new history processor.
func NewHistoryProcessor() *HistoryProcessor { return &HistoryProcessor{} }

// Name returns the processor's identifier.
func (p *HistoryProcessor) Name() string { return "history" }

// ProcessRequest adds conversation history to the request.
func (p *HistoryProcessor) ProcessRequest(runCtx *core.RunContext, _ string, req *model.Request, agent FlowAgent) error {
	history, err := agent.History(runCtx)
	if err != nil {
		return err
	}
	for _, c := range history {
		if len(c.Parts) > 0 {
			req.Contents = append(req.Contents, c)
		}
	}
	return nil
}

// QueryProcessor appends the user query. An empty query is forwarded as an
// empty user message.
type QueryProcessor struct{}

// NewQueryProcessor creates a new query processor.
func NewQueryProcessor() *QueryProcessor { return &QueryProcessor{} }

// Name returns the processor's identifier.
func (p *QueryProcessor) Name() string { return "query" }

// ProcessRequest adds the user content to the request.
func (p *QueryProcessor) ProcessRequest(_ *core.RunContext, query string, req *model.Request, _ FlowAgent) error {
	req.Contents = append(req.Contents, core.NewTextContent(core.RoleUser, query))
	return nil
}
