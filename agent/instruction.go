package agent

import (
	"strings"
	"time"

	"github.com/hupe1980/agentcrew/core"
)

// Provider supplies dynamic instruction text at runtime.
type Provider interface {
	Instruction(*core.RunContext) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(*core.RunContext) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(rc *core.RunContext) (string, error) { return f(rc) }

// Instruction represents either a static instruction string or a dynamic provider.
// The zero value is empty.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(*core.RunContext) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsZero reports whether the instruction is unset.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(rc *core.RunContext) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(rc)
	}
	return i.text, nil
}

const (
	markdownInstruction  = "Use markdown to format your answers."
	knowledgeInstruction = "Always search your knowledge base before answering and use the results in your answer."
	historyInstruction   = "Use the get_chat_history tool when earlier messages of the conversation are needed."
)

// buildSystemPrompt assembles the system prompt from the configuration:
// description, role, then the instructions as a bullet list in declared
// order, followed by the generated ones (markdown, knowledge, history,
// datetime).
func buildSystemPrompt(cfg *Config, now time.Time) string {
	var sections []string

	if cfg.Description != "" {
		sections = append(sections, cfg.Description)
	}
	if cfg.Role != "" {
		sections = append(sections, "Your role is: "+cfg.Role)
	}

	instructions := append([]string(nil), cfg.Instructions...)
	if cfg.Markdown {
		instructions = append(instructions, markdownInstruction)
	}
	if cfg.Knowledge != nil && cfg.SearchKnowledge {
		instructions = append(instructions, knowledgeInstruction)
	}
	if cfg.Storage != nil && cfg.ReadChatHistory {
		instructions = append(instructions, historyInstruction)
	}
	if cfg.AddDatetimeToInstructions {
		instructions = append(instructions, "The current time is "+now.Format(time.RFC3339)+".")
	}

	if len(instructions) > 0 {
		var b strings.Builder
		b.WriteString("## Instructions")
		for _, in := range instructions {
			b.WriteString("\n- ")
			b.WriteString(in)
		}
		sections = append(sections, b.String())
	}

	return strings.Join(sections, "\n\n")
}
