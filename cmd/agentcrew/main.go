// Command agentcrew runs the agentcrew agents from the command line.
//
// Usage:
//
//	agentcrew ask "Write 5 lines about the Agentic AI"
//	agentcrew team
//	agentcrew pdf --no-new --user alice
//	agentcrew web --addr :8080
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"
	"golang.org/x/term"

	"github.com/hupe1980/agentcrew"
	"github.com/hupe1980/agentcrew/config"
	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/logging"
	"github.com/hupe1980/agentcrew/model"
	"github.com/hupe1980/agentcrew/preset"
	"github.com/hupe1980/agentcrew/render"
	"github.com/hupe1980/agentcrew/server"
)

// CLI defines the command-line interface.
type CLI struct {
	Ask     AskCmd     `cmd:"" help:"Ask the basic agent a question."`
	Team    TeamCmd    `cmd:"" help:"Ask the web and finance agent team."`
	PDF     PDFCmd     `cmd:"" name:"pdf" help:"Chat with the PDF assistant."`
	Web     WebCmd     `cmd:"" help:"Serve the web interface."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Config   string `short:"c" help:"Path to config file." type:"path"`
	EnvFile  string `name:"env-file" help:"Path to .env file." default:".env"`
	Provider string `help:"Model provider (groq, openai, anthropic, mock)."`
	Model    string `help:"Model name."`
	LogLevel string `name:"log-level" help:"Log level (debug, info, warn, error)."`
	Stream   bool   `default:"true" negatable:"" help:"Stream responses (use --no-stream to disable)."`
}

// app bundles what every command needs.
type app struct {
	cfg    *config.Config
	logger logging.Logger
	llm    model.Model
	color  bool
}

func (c *CLI) setup() (*app, error) {
	if err := config.LoadDotEnv(c.EnvFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if c.Provider != "" {
		cfg.Model.Provider = c.Provider
	}
	if c.Model != "" {
		cfg.Model.Name = c.Model
	}
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if lvl, _ := logging.ParseLevel(cfg.Logging.Level); lvl == logging.LogLevelDebug {
		cfg.Agent.LogToolStarts = true
	}

	logger, err := logging.New(cfg.LoggerConfig())
	if err != nil {
		return nil, core.ConfigError("logging", "%v", err)
	}
	llm, err := preset.NewModel(cfg.Model)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		llm:    llm,
		color:  term.IsTerminal(int(os.Stdout.Fd())),
	}, nil
}

func (a *app) presetOptions(o *preset.Options) { o.Agent = a.cfg.Agent }

func (a *app) dispatcher(ag core.Agent, stream bool, optFns ...func(o *agentcrew.Options)) *agentcrew.Dispatcher {
	return agentcrew.New(ag, append([]func(o *agentcrew.Options){func(o *agentcrew.Options) {
		o.Logger = a.logger
		o.Stream = stream
		o.Color = a.color
	}}, optFns...)...)
}

// printResponse streams the response to stdout and terminates it with a newline.
func printResponse(ctx context.Context, d *agentcrew.Dispatcher, query string) error {
	text, err := d.DispatchTo(ctx, query, os.Stdout)
	if text != "" {
		fmt.Println()
	}
	return err
}

// AskCmd asks the basic agent.
type AskCmd struct {
	Query string `arg:"" optional:"" help:"Query to send."`
}

// Run executes the command.
func (c *AskCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := cli.setup()
	if err != nil {
		return err
	}
	query := c.Query
	if query == "" {
		query = preset.DefaultAskQuery
	}
	return printResponse(ctx, a.dispatcher(preset.BasicAgent(a.llm, a.presetOptions), cli.Stream), query)
}

// TeamCmd asks the finance team.
type TeamCmd struct {
	Query      string `arg:"" optional:"" help:"Query to send."`
	Concurrent bool   `help:"Run team members concurrently."`
}

// Run executes the command.
func (c *TeamCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := cli.setup()
	if err != nil {
		return err
	}
	if c.Concurrent {
		a.cfg.Agent.Concurrent = true
	}
	query := c.Query
	if query == "" {
		query = preset.DefaultTeamQuery
	}
	return printResponse(ctx, a.dispatcher(preset.FinanceTeam(a.llm, a.presetOptions), cli.Stream), query)
}

// PDFCmd chats with the PDF assistant.
type PDFCmd struct {
	New      bool   `default:"true" negatable:"" help:"Start a new run (use --no-new to continue the latest run)."`
	User     string `default:"user" help:"User id owning the run."`
	Recreate bool   `help:"Drop and reload the knowledge base."`
}

// Run executes the command.
func (c *PDFCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := cli.setup()
	if err != nil {
		return err
	}
	if c.Recreate {
		a.cfg.Knowledge.Recreate = true
	}

	res, err := preset.OpenResources(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = res.Close() }()

	kb, err := preset.LoadKnowledge(ctx, a.cfg.Knowledge, preset.NewEmbedder(a.cfg.Embedder), res.VectorDB, a.logger)
	if err != nil {
		return err
	}

	runID, continued, err := preset.ResolveRunID(ctx, res.Store, c.User, c.New)
	if err != nil {
		return err
	}

	d := a.dispatcher(preset.PDFAssistant(a.llm, kb, res.Store, a.presetOptions), cli.Stream, func(o *agentcrew.Options) {
		o.RunID = runID
		o.UserID = c.User
	})

	if continued {
		fmt.Printf("continuing run: %s\n\n", d.RunID())
	} else {
		fmt.Printf("Started running: %s\n\n", d.RunID())
	}

	return repl(ctx, d, os.Stdin, os.Stdout, c.User)
}

// WebCmd serves the web interface.
type WebCmd struct {
	Addr  string `help:"Listen address (defaults to the configured server.addr)."`
	Agent string `default:"team" enum:"basic,web,finance,team" help:"Agent answering web queries (basic, web, finance, team)."`
}

// Run executes the command.
func (c *WebCmd) Run(ctx context.Context, cli *CLI) error {
	a, err := cli.setup()
	if err != nil {
		return err
	}

	var ag core.Agent
	switch c.Agent {
	case "basic":
		ag = preset.BasicAgent(a.llm, a.presetOptions)
	case "web":
		ag = preset.WebAgent(a.llm, a.presetOptions)
	case "finance":
		ag = preset.FinanceAgent(a.llm, a.presetOptions)
	default:
		ag = preset.FinanceTeam(a.llm, a.presetOptions)
	}

	d := agentcrew.New(ag, func(o *agentcrew.Options) {
		o.Logger = a.logger
		o.Stream = false
		o.Renderer = render.NewMarkdownHTML()
		o.MaxConcurrentDispatches = a.cfg.Server.MaxConcurrent
		o.RunPerDispatch = true
	})

	addr := c.Addr
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	srv := server.New(d, func(o *server.Options) {
		o.Addr = addr
		o.Title = ag.Name()
		o.ReadTimeout = a.cfg.Server.ReadTimeout
		o.RequestTimeout = a.cfg.Server.RequestTimeout
		o.Logger = a.logger
	})

	fmt.Printf("agentcrew web interface on http://localhost%s\n", addr)
	return srv.ListenAndServe(ctx)
}

// VersionCmd shows version information.
type VersionCmd struct{}

// Run executes the command.
func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("agentcrew version %s\n", version)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("agentcrew"),
		kong.Description("Groq powered agents: a basic agent, a web and finance team and a PDF assistant."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	err := kctx.Run(&cli)
	kctx.FatalIfErrorf(err)
}
