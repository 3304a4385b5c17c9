package agent

import (
	"bytes"
	"strings"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/render"
	"github.com/hupe1980/agentcrew/tool"
)

// transferTool hands a task to one team member and returns its answer.
type transferTool struct {
	member     core.Agent
	name       string
	bestEffort bool
}

func newTransferTool(member core.Agent, bestEffort bool) tool.Tool {
	return &transferTool{member: member, name: transferToolName(member.Name()), bestEffort: bestEffort}
}

// transferToolName derives transfer_task_to_<member> from a member name:
// lower case, runs of other characters become one underscore.
func transferToolName(member string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(member) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return "transfer_task_to_" + strings.TrimSuffix(b.String(), "_")
}

func (t *transferTool) Name() string { return t.name }

func (t *transferTool) Description() string {
	d := "Transfer a task to the team member " + t.member.Name() + " and return its answer."
	if desc := t.member.Description(); desc != "" {
		d += " Member role: " + desc
	}
	return d
}

func (t *transferTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_description": map[string]any{"type": "string", "description": "A clear and concise description of the task the member should achieve."},
			"expected_output":  map[string]any{"type": "string", "description": "The expected output from the member."},
		},
		"required": []string{"task_description"},
	}
}

func (t *transferTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	task, _ := args["task_description"].(string)
	if strings.TrimSpace(task) == "" {
		return nil, tool.NewToolError(t.name, "task_description must not be empty", tool.CodeValidation)
	}
	if expected, _ := args["expected_output"].(string); expected != "" {
		task += "\n\nThe expected output is: " + expected
	}

	var buf bytes.Buffer
	rc := tc.RunContext().WithOutput(&buf)
	rc.Stream = false
	rc.Color = false

	tc.LogDebug("team.transfer", "member", t.member.Name())
	if err := t.member.Respond(rc, task); err != nil {
		if t.bestEffort {
			return nil, tool.NewToolError(t.name, err.Error(), tool.CodeExecution)
		}
		return nil, &MemberError{Member: t.member.Name(), Err: err}
	}
	return strings.TrimSpace(render.Clean(buf.String())), nil
}
