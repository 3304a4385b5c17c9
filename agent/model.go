package agent

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/flow"
	"github.com/hupe1980/agentcrew/knowledge"
	"github.com/hupe1980/agentcrew/model"
	"github.com/hupe1980/agentcrew/storage"
	"github.com/hupe1980/agentcrew/tool"
	"github.com/hupe1980/agentcrew/tool/history"
	knowledgetool "github.com/hupe1980/agentcrew/tool/knowledge"
)

// ErrMaxToolRounds is returned when the model keeps calling tools beyond
// Config.MaxToolRounds.
var ErrMaxToolRounds = flow.ErrMaxToolRounds

// Config is the explicit configuration record of a ModelAgent. It is copied
// at construction; the agent cannot be reconfigured afterwards.
type Config struct {
	// Description and Role open the system prompt. Role also describes the
	// agent to a team leader.
	Description string
	Role        string
	// Instructions are rendered as a bullet list in declared order.
	Instructions []string
	// SystemPrompt replaces the assembled system prompt when set.
	SystemPrompt Instruction

	Tools []tool.Tool

	ShowToolCalls             bool
	LogToolStarts             bool
	Markdown                  bool
	AddDatetimeToInstructions bool

	MaxToolRounds    int
	ToolTimeout      time.Duration
	MaxParallelTools int

	// Storage persists the query and final answer of every response under
	// the run id.
	Storage              storage.Store
	ReadChatHistory      bool
	AddHistoryToMessages bool
	NumHistoryMessages   int

	Knowledge       knowledge.Searcher
	SearchKnowledge bool
	NumDocuments    int

	// Now supplies the datetime instruction; tests inject a fixed clock.
	Now func() time.Time
}

// WithToolkit appends the tools of a toolkit.
func (c *Config) WithToolkit(tk *tool.Toolkit) { c.Tools = append(c.Tools, tk.Tools()...) }

func defaultConfig() Config {
	return Config{
		MaxToolRounds:      10,
		ToolTimeout:        30 * time.Second,
		NumHistoryMessages: 6,
		NumDocuments:       5,
		SearchKnowledge:    true,
		Now:                func() time.Time { return time.Now().UTC() },
	}
}

// ModelAgent answers queries with a language model, running the tool loop
// of the flow package.
type ModelAgent struct {
	BaseAgent
	llm   model.Model
	cfg   Config
	tools []tool.Tool
	flow  flow.Flow
}

// NewModelAgent creates a model-based agent.
//
// Defaults: 10 tool rounds, 30s per tool call, 6 history messages, 5
// knowledge documents, knowledge search enabled when Knowledge is set.
func NewModelAgent(name string, llm model.Model, optFns ...func(c *Config)) *ModelAgent {
	cfg := defaultConfig()
	for _, fn := range optFns {
		fn(&cfg)
	}
	cfg.Instructions = append([]string(nil), cfg.Instructions...)
	if cfg.Now == nil {
		cfg.Now = defaultConfig().Now
	}

	tools := append([]tool.Tool(nil), cfg.Tools...)
	if cfg.Knowledge != nil && cfg.SearchKnowledge {
		tools = append(tools, knowledgetool.New(cfg.Knowledge, cfg.NumDocuments))
	}
	if cfg.Storage != nil && cfg.ReadChatHistory {
		tools = append(tools, history.New(cfg.Storage))
	}
	cfg.Tools = tools

	description := cfg.Role
	if description == "" {
		description = cfg.Description
	}

	a := &ModelAgent{
		BaseAgent: NewBaseAgent(name, description),
		llm:       llm,
		cfg:       cfg,
		tools:     tools,
	}
	a.flow = flow.NewSingleAgentFlow(a)
	return a
}

// Instructions returns a copy of the configured instructions.
func (a *ModelAgent) Instructions() []string { return append([]string(nil), a.cfg.Instructions...) }

// Descriptors returns the descriptors of all tools offered to the model.
func (a *ModelAgent) Descriptors() []tool.Descriptor {
	out := make([]tool.Descriptor, len(a.tools))
	for i, t := range a.tools {
		out[i] = tool.Describe(t)
	}
	return out
}

// Respond implements core.Agent.
func (a *ModelAgent) Respond(runCtx *core.RunContext, query string) error {
	runCtx = runCtx.WithAgent(core.AgentInfo{Name: a.Name(), Type: "model"})
	runCtx.LogDebug("agent.respond.start", "agent", a.Name(), "stream", runCtx.Stream)

	if err := a.ensureRun(runCtx); err != nil {
		return err
	}

	res, err := a.flow.Execute(runCtx, query)
	if err != nil {
		runCtx.LogError("agent.respond.error", "agent", a.Name(), "error", err.Error())
		return fmt.Errorf("agent %s: %w", a.Name(), err)
	}

	if err := a.persist(runCtx, query, res.Text); err != nil {
		return err
	}

	runCtx.LogInfo(
		"agent.respond.complete",
		"agent", a.Name(),
		"rounds", res.Rounds,
		"tool_calls", res.ToolCalls,
		"total_tokens", res.Usage.TotalTokens,
	)
	return nil
}

func (a *ModelAgent) ensureRun(runCtx *core.RunContext) error {
	if a.cfg.Storage == nil || runCtx.RunID == "" {
		return nil
	}
	_, err := a.cfg.Storage.Create(runCtx.Context, storage.Run{
		ID:        runCtx.RunID,
		UserID:    runCtx.UserID,
		AgentName: a.Name(),
	})
	if err != nil {
		return fmt.Errorf("create run %s: %w", runCtx.RunID, err)
	}
	return nil
}

func (a *ModelAgent) persist(runCtx *core.RunContext, query, answer string) error {
	if a.cfg.Storage == nil || runCtx.RunID == "" {
		return nil
	}
	err := a.cfg.Storage.Append(runCtx.Context, runCtx.RunID,
		storage.Message{Role: core.RoleUser, Content: query},
		storage.Message{Role: core.RoleAssistant, Content: answer},
	)
	if err != nil {
		return fmt.Errorf("store run %s: %w", runCtx.RunID, err)
	}
	return nil
}

// FlowAgent implementation.

// GetName returns the agent's display name.
func (a *ModelAgent) GetName() string { return a.Name() }

// GetLLM returns the language model instance.
func (a *ModelAgent) GetLLM() model.Model { return a.llm }

// GetTools returns the tools offered to the model.
func (a *ModelAgent) GetTools() []tool.Tool { return append([]tool.Tool(nil), a.tools...) }

// Settings returns the tool loop settings.
func (a *ModelAgent) Settings() flow.Settings {
	return flow.Settings{
		MaxToolRounds:    a.cfg.MaxToolRounds,
		ToolTimeout:      a.cfg.ToolTimeout,
		MaxParallelTools: a.cfg.MaxParallelTools,
		ShowToolCalls:    a.cfg.ShowToolCalls,
		LogToolStarts:    a.cfg.LogToolStarts,
	}
}

// ResolveInstructions produces the system prompt.
func (a *ModelAgent) ResolveInstructions(runCtx *core.RunContext) (string, error) {
	if !a.cfg.SystemPrompt.IsZero() {
		return a.cfg.SystemPrompt.Resolve(runCtx)
	}
	return buildSystemPrompt(&a.cfg, a.cfg.Now()), nil
}

// History returns the last NumHistoryMessages stored messages of the run
// when AddHistoryToMessages is enabled.
func (a *ModelAgent) History(runCtx *core.RunContext) ([]core.Content, error) {
	if a.cfg.Storage == nil || !a.cfg.AddHistoryToMessages || runCtx.RunID == "" {
		return nil, nil
	}

	run, err := a.cfg.Storage.Get(runCtx.Context, runCtx.RunID)
	if errors.Is(err, storage.ErrRunNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	msgs := run.LastMessages(a.cfg.NumHistoryMessages)
	contents := make([]core.Content, 0, len(msgs))
	for _, m := range msgs {
		contents = append(contents, core.NewTextContent(m.Role, m.Content))
	}
	return contents, nil
}

// Text runs a and returns its complete response as one value.
func Text(runCtx *core.RunContext, a core.Agent, query string) (string, error) {
	var buf bytes.Buffer
	rc := runCtx.WithOutput(&buf)
	rc.Stream = false
	err := a.Respond(rc, query)
	return buf.String(), err
}
