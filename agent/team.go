package agent

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/model"
	"github.com/hupe1980/agentcrew/render"
	"github.com/hupe1980/agentcrew/tool"
)

// Mode selects how a Team uses its members.
type Mode int

const (
	// ModeBroadcast sends the query to every member in declaration order,
	// each exactly once, then merges the answers with the team's model.
	ModeBroadcast Mode = iota
	// ModeDelegate lets the team's model decide which members to call through
	// one transfer_task_to_<member> tool per member.
	ModeDelegate
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeBroadcast:
		return "broadcast"
	case ModeDelegate:
		return "delegate"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MemberError reports the failure of one team member.
type MemberError struct {
	Member string
	Err    error
}

func (e *MemberError) Error() string { return fmt.Sprintf("team member %s: %v", e.Member, e.Err) }

// Unwrap returns the member's error.
func (e *MemberError) Unwrap() error { return e.Err }

// TeamOptions configure a Team. The embedded Config configures the team's
// own model agent (instructions, markdown, tool trace).
type TeamOptions struct {
	Config

	Mode Mode
	// Concurrent runs broadcast members concurrently. Answers are still
	// merged in declaration order.
	Concurrent bool
	// BestEffort merges whatever members produced; failed members contribute
	// "error: <msg>". Without it the first member failure aborts the team.
	BestEffort bool
	// ShowMemberResponses writes every member answer under a heading before
	// the merged answer.
	ShowMemberResponses bool
}

// Team delegates a query to its members and merges their answers under its
// own instructions.
type Team struct {
	BaseAgent
	leader  *ModelAgent
	members []core.Agent
	opts    TeamOptions
}

// NewTeam creates a team led by llm. Members keep their declaration order.
func NewTeam(name string, llm model.Model, members []core.Agent, optFns ...func(o *TeamOptions)) *Team {
	opts := TeamOptions{Config: defaultConfig()}
	for _, fn := range optFns {
		fn(&opts)
	}

	t := &Team{
		members: append([]core.Agent(nil), members...),
		opts:    opts,
	}

	leaderCfg := opts.Config
	leaderCfg.Instructions = append([]string(nil), opts.Instructions...)
	leaderCfg.Tools = append([]tool.Tool(nil), opts.Tools...)
	if opts.Mode == ModeDelegate {
		leaderCfg.Description = strings.TrimSpace(leaderCfg.Description + "\n\n" + memberListing(t.members))
		for _, m := range t.members {
			leaderCfg.Tools = append(leaderCfg.Tools, newTransferTool(m, opts.BestEffort))
		}
	}

	description := opts.Role
	if description == "" {
		description = opts.Description
	}

	t.leader = NewModelAgent(name, llm, func(c *Config) { *c = leaderCfg })
	t.BaseAgent = NewBaseAgent(name, description)
	return t
}

// Members returns the members in declaration order.
func (t *Team) Members() []core.Agent { return append([]core.Agent(nil), t.members...) }

// Mode returns the delegation mode.
func (t *Team) Mode() Mode { return t.opts.Mode }

// Respond implements core.Agent.
func (t *Team) Respond(runCtx *core.RunContext, query string) error {
	runCtx = runCtx.WithAgent(core.AgentInfo{Name: t.Name(), Type: "team"})
	runCtx.LogDebug("team.respond.start", "team", t.Name(), "mode", t.opts.Mode.String(), "members", len(t.members))

	if t.opts.Mode == ModeDelegate {
		return t.leader.Respond(runCtx, query)
	}

	var (
		outputs []memberOutput
		err     error
	)
	if t.opts.Concurrent {
		outputs, err = runParallel(runCtx, t.members, query, t.opts.BestEffort)
	} else {
		outputs, err = runSequential(runCtx, t.members, query, t.opts.BestEffort)
	}
	if err != nil {
		runCtx.LogError("team.member.error", "team", t.Name(), "error", err.Error())
		return err
	}

	if t.opts.ShowMemberResponses {
		if err := writeMemberResponses(runCtx, outputs); err != nil {
			return err
		}
	}

	return t.leader.Respond(runCtx, mergePrompt(query, outputs))
}

// memberOutput is the captured answer of one member.
type memberOutput struct {
	name string
	text string
	err  error
}

// runMember runs m into a private buffer. The member never sees the team's
// sink; its answer is captured without terminal decoration.
func runMember(runCtx *core.RunContext, m core.Agent, query string) memberOutput {
	var buf bytes.Buffer
	rc := runCtx.WithOutput(&buf)
	rc.Stream = false
	rc.Color = false

	runCtx.LogDebug("team.member.start", "member", m.Name())
	err := m.Respond(rc, query)
	return memberOutput{name: m.Name(), text: strings.TrimSpace(render.Clean(buf.String())), err: err}
}

func writeMemberResponses(runCtx *core.RunContext, outputs []memberOutput) error {
	styles := render.NewStyles(runCtx.Output, runCtx.Color)
	for _, o := range outputs {
		text := o.text
		if o.err != nil {
			text = styles.Error.Render("error: " + o.err.Error())
		}
		heading := styles.Heading.Render("### " + o.name)
		if _, err := io.WriteString(runCtx.Output, heading+"\n\n"+text+"\n\n"); err != nil {
			return fmt.Errorf("write member response: %w", err)
		}
	}
	return nil
}

// mergePrompt builds the query for the team's own model: the original query
// followed by every member answer in declaration order.
func mergePrompt(query string, outputs []memberOutput) string {
	var b strings.Builder
	b.WriteString(query)
	b.WriteString("\n\nYour team members answered the query above. Their responses, in order:\n")
	for _, o := range outputs {
		fmt.Fprintf(&b, "\n### %s\n\n", o.name)
		if o.err != nil {
			b.WriteString("error: " + o.err.Error())
		} else {
			b.WriteString(o.text)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nCombine these responses into one complete answer to the query.")
	return b.String()
}

// memberListing describes the members to a delegating leader.
func memberListing(members []core.Agent) string {
	var b strings.Builder
	b.WriteString("You are the leader of a team of agents. Transfer tasks to the members best suited for them and combine their answers.\n\nTeam members:")
	for i, m := range members {
		fmt.Fprintf(&b, "\n - Agent %d: %s", i+1, m.Name())
		if d := m.Description(); d != "" {
			b.WriteString(": " + d)
		}
		fmt.Fprintf(&b, " (tool: %s)", transferToolName(m.Name()))
	}
	return b.String()
}
