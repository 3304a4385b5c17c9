package preset

import (
	"github.com/hupe1980/agentcrew/agent"
	"github.com/hupe1980/agentcrew/config"
	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/knowledge"
	"github.com/hupe1980/agentcrew/model"
	"github.com/hupe1980/agentcrew/storage"
	"github.com/hupe1980/agentcrew/tool/duckduckgo"
	"github.com/hupe1980/agentcrew/tool/yfinance"
)

// Default queries of the command line surface.
const (
	DefaultAskQuery  = "Write 5 lines about the Agentic AI"
	DefaultTeamQuery = "Summarize analyst recommendations and share the latest news for NVDA"
)

// Options tune the preset agents. Tool options point the tools at other
// endpoints (tests, proxies).
type Options struct {
	Agent      config.AgentConfig
	DuckDuckGo []func(o *duckduckgo.Options)
	YFinance   []func(o *yfinance.Options)
}

func (o *Options) apply(c *agent.Config) {
	c.MaxToolRounds = o.Agent.MaxToolRounds
	if o.Agent.ToolTimeout > 0 {
		c.ToolTimeout = o.Agent.ToolTimeout
	}
	c.MaxParallelTools = o.Agent.MaxParallelTools
	c.LogToolStarts = o.Agent.LogToolStarts
}

func newOptions(optFns []func(o *Options)) Options {
	opts := Options{Agent: config.Default().Agent}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// BasicAgent is a plain model agent without tools or instructions.
func BasicAgent(llm model.Model, optFns ...func(o *Options)) *agent.ModelAgent {
	opts := newOptions(optFns)
	return agent.NewModelAgent("Basic Agent", llm, opts.apply)
}

// WebAgent searches the web with DuckDuckGo and cites its sources.
func WebAgent(llm model.Model, optFns ...func(o *Options)) *agent.ModelAgent {
	opts := newOptions(optFns)
	return agent.NewModelAgent("Web Agent", llm, func(c *agent.Config) {
		opts.apply(c)
		c.Role = "Search the web for information"
		c.Tools = append(c.Tools, duckduckgo.New(opts.DuckDuckGo...))
		c.Instructions = []string{"Always include sources"}
		c.ShowToolCalls = opts.Agent.ShowToolCalls
		c.Markdown = opts.Agent.Markdown
	})
}

// FinanceAgent reads stock prices, analyst recommendations and fundamentals
// from Yahoo Finance.
func FinanceAgent(llm model.Model, optFns ...func(o *Options)) *agent.ModelAgent {
	opts := newOptions(optFns)
	yfFns := append([]func(o *yfinance.Options){func(o *yfinance.Options) {
		o.StockPrice = true
		o.AnalystRecommendations = true
		o.StockFundamentals = true
	}}, opts.YFinance...)

	return agent.NewModelAgent("finance agent", llm, func(c *agent.Config) {
		opts.apply(c)
		c.Role = "Get financial data"
		c.WithToolkit(yfinance.New(yfFns...))
		c.Instructions = []string{"Use tables to display data"}
		c.ShowToolCalls = opts.Agent.ShowToolCalls
		c.Markdown = opts.Agent.Markdown
	})
}

// FinanceTeam combines the web and finance agents. Both members answer every
// query in declaration order and the team merges their answers.
func FinanceTeam(llm model.Model, optFns ...func(o *Options)) *agent.Team {
	opts := newOptions(optFns)
	members := []core.Agent{
		WebAgent(llm, optFns...),
		FinanceAgent(llm, optFns...),
	}

	return agent.NewTeam("Agent Team", llm, members, func(o *agent.TeamOptions) {
		opts.apply(&o.Config)
		o.Instructions = []string{"Always include sources", "Use tables to display data"}
		o.ShowToolCalls = opts.Agent.ShowToolCalls
		o.Markdown = opts.Agent.Markdown
		o.Concurrent = opts.Agent.Concurrent
	})
}

// PDFAssistant answers from a knowledge base and keeps the chat history of
// its run in store.
func PDFAssistant(llm model.Model, kb knowledge.Searcher, store storage.Store, optFns ...func(o *Options)) *agent.ModelAgent {
	opts := newOptions(optFns)
	return agent.NewModelAgent("PDF Assistant", llm, func(c *agent.Config) {
		opts.apply(c)
		c.Knowledge = kb
		c.SearchKnowledge = true
		c.Storage = store
		c.ReadChatHistory = true
		c.ShowToolCalls = opts.Agent.ShowToolCalls
		c.Markdown = opts.Agent.Markdown
	})
}
