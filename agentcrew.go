// Package agentcrew runs composed agents for one query at a time and returns
// their printed response as plain text.
//
// Most applications interact with this package by:
//  1. Building an agent (agent.NewModelAgent) or a team (agent.NewTeam)
//  2. Creating a Dispatcher via New()
//  3. Calling Dispatch (capture), DispatchTo (stream and capture) or Render
//
// Every dispatch writes to its own sink. Nothing process-wide is redirected,
// so dispatches on one Dispatcher may run concurrently.
package agentcrew

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/logging"
	"github.com/hupe1980/agentcrew/render"
)

// Options configures a Dispatcher.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Stream writes text deltas to the sink as they arrive. When false the
	// agent writes its answer in one piece.
	Stream bool

	// Color allows ANSI styling (tool call traces, headings). Captured text is
	// cleaned either way.
	Color bool

	// RunID identifies the conversation. When empty a UUID is generated per
	// Dispatcher. It is passed through unchanged.
	RunID string
	// UserID is passed through unchanged.
	UserID string
	// RunPerDispatch gives every dispatch a fresh UUID run id instead of
	// RunID. Use it when callers are unrelated (web requests).
	RunPerDispatch bool

	// Renderer formats cleaned text in Render (defaults to render.Plain).
	Renderer render.Renderer

	// MaxConcurrentDispatches limits dispatches executing simultaneously.
	// Set to 0 for unlimited.
	MaxConcurrentDispatches int64
}

// Dispatcher sends queries to one agent and captures what it prints.
type Dispatcher struct {
	agent core.Agent
	opts  Options
	sem   *semaphore.Weighted
}

// New creates a Dispatcher for a with optional overrides.
func New(a core.Agent, optFns ...func(o *Options)) *Dispatcher {
	opts := Options{
		Logger:   logging.NoOpLogger{},
		Stream:   true,
		Renderer: render.Plain{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Renderer == nil {
		opts.Renderer = render.Plain{}
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	d := &Dispatcher{agent: a, opts: opts}
	if opts.MaxConcurrentDispatches > 0 {
		d.sem = semaphore.NewWeighted(opts.MaxConcurrentDispatches)
	}
	return d
}

// Agent returns the dispatched agent.
func (d *Dispatcher) Agent() core.Agent { return d.agent }

// RunID returns the run id passed to every dispatch unless RunPerDispatch
// is set.
func (d *Dispatcher) RunID() string { return d.opts.RunID }

// UserID returns the user id passed to every dispatch.
func (d *Dispatcher) UserID() string { return d.opts.UserID }

// Dispatch runs the agent on query and returns its cleaned output. The query
// is forwarded unchanged, including the empty string. On failure the cleaned
// partial output is returned together with the error.
func (d *Dispatcher) Dispatch(ctx context.Context, query string) (string, error) {
	return d.DispatchTo(ctx, query, nil)
}

// DispatchTo behaves like Dispatch and additionally writes the raw output to
// w as it is produced. A nil w only captures.
func (d *Dispatcher) DispatchTo(ctx context.Context, query string, w io.Writer) (string, error) {
	var buf bytes.Buffer

	sink := io.Writer(&buf)
	if w != nil {
		sink = io.MultiWriter(&buf, w)
	}

	err := d.run(ctx, query, sink)
	return render.Clean(buf.String()), err
}

// Render dispatches query and writes the cleaned output to w through the
// configured Renderer. Partial output is rendered before a failure is
// returned.
func (d *Dispatcher) Render(ctx context.Context, query string, w io.Writer) error {
	text, err := d.Dispatch(ctx, query)
	if text != "" {
		if rerr := d.opts.Renderer.Render(w, text); rerr != nil && err == nil {
			err = fmt.Errorf("render: %w", rerr)
		}
	}
	return err
}

func (d *Dispatcher) run(ctx context.Context, query string, sink io.Writer) error {
	if d.sem != nil {
		if err := d.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		defer d.sem.Release(1)
	}

	runID := d.opts.RunID
	if d.opts.RunPerDispatch {
		runID = uuid.NewString()
	}

	runCtx := core.NewRunContext(ctx, runID, d.opts.UserID, sink, d.opts.Logger)
	runCtx.Stream = d.opts.Stream
	runCtx.Color = d.opts.Color

	start := time.Now()
	runCtx.LogDebug("dispatch.start", "agent", d.agent.Name(), "query_length", len(query))

	if err := d.agent.Respond(runCtx, query); err != nil {
		runCtx.LogError("dispatch.error", "agent", d.agent.Name(), "error", err.Error())
		return err
	}

	runCtx.LogInfo("dispatch.complete", "agent", d.agent.Name(), "duration", time.Since(start).String())
	return nil
}
