package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/tool"
	"golang.org/x/sync/errgroup"
)

// FunctionExecutor executes one round of function calls. Implementations must:
//   - Respect runCtx.Context cancellation
//   - Never panic (recover internally and report the panic as a tool error)
//   - Return exactly one FunctionResponse per incoming FunctionCall, in order
//
// Failures the model can react to (unknown tool, bad arguments, *tool.ToolError)
// become the response's Error text. Any other error aborts the round and is
// returned.
type FunctionExecutor interface {
	Execute(runCtx *core.RunContext, agentName string, registry *tool.Registry, calls []core.FunctionCall) ([]core.FunctionResponse, error)
}

// FunctionExecutorConfig configures the default parallel executor.
type FunctionExecutorConfig struct {
	MaxParallel    int           // 0 or <1 => no explicit limit (len(calls))
	Timeout        time.Duration // per call; 0 => none
	LogStartEvents bool          // log a start line per function
}

// parallelFunctionExecutor is the default implementation.
type parallelFunctionExecutor struct {
	cfg FunctionExecutorConfig
}

// NewParallelFunctionExecutor constructs a new executor with the given config.
func NewParallelFunctionExecutor(cfg FunctionExecutorConfig) FunctionExecutor {
	return &parallelFunctionExecutor{cfg: cfg}
}

func (e *parallelFunctionExecutor) Execute(
	runCtx *core.RunContext,
	agentName string,
	registry *tool.Registry,
	calls []core.FunctionCall,
) ([]core.FunctionResponse, error) {
	n := len(calls)
	if n == 0 {
		return nil, nil
	}

	maxPar := e.cfg.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	results := make([]core.FunctionResponse, n)
	batchStart := time.Now()

	g, gctx := errgroup.WithContext(runCtx.Context)
	g.SetLimit(maxPar)

	for i, fc := range calls {
		g.Go(func() error {
			fr, err := e.executeOne(runCtx.WithContext(gctx), agentName, registry, fc)
			if err != nil {
				return err
			}
			results[i] = fr
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := runCtx.Err(); err != nil {
		return nil, err
	}

	runCtx.LogDebug(
		"agent.functions.batch.complete",
		"agent", agentName,
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results, nil
}

func (e *parallelFunctionExecutor) executeOne(
	runCtx *core.RunContext,
	agentName string,
	registry *tool.Registry,
	fc core.FunctionCall,
) (core.FunctionResponse, error) {
	if err := runCtx.Err(); err != nil {
		return core.FunctionResponse{}, err
	}

	callCtx := runCtx
	if e.cfg.Timeout > 0 {
		ctx, cancel := context.WithTimeout(runCtx.Context, e.cfg.Timeout)
		defer cancel()
		callCtx = runCtx.WithContext(ctx)
	}
	toolCtx := core.NewToolContext(callCtx, fc.ID)

	if e.cfg.LogStartEvents {
		runCtx.LogDebug("agent.function.start", "agent", agentName, "function", fc.Name, "function_call_id", fc.ID)
	}

	start := time.Now()
	var (
		result any
		err    error
	)
	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				err = panicError(fc.Name, r)
				runCtx.LogError("agent.function.panic", "agent", agentName, "function", fc.Name, "recover", r)
			}
		}()
		result, err = executeTool(registry, toolCtx, fc.Name, fc.Arguments)
	}()

	runCtx.LogInfo(
		"agent.function.executed",
		"agent", agentName,
		"function", fc.Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	fr := core.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: result}
	if err == nil {
		return fr, nil
	}

	// The parent run was cancelled: abort instead of reporting to the model.
	if runCtx.Err() != nil {
		return core.FunctionResponse{}, runCtx.Err()
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = tool.NewToolError(fc.Name, fmt.Sprintf("timed out after %s", e.cfg.Timeout), tool.CodeTimeout)
	}

	toolErr, ok := tool.AsToolError(err)
	if !ok {
		return core.FunctionResponse{}, fmt.Errorf("tool %s: %w", fc.Name, err)
	}
	fr.Response = nil
	fr.Error = toolErr.Error()
	return fr, nil
}

// panicError converts a recovered panic value to a tool error.
func panicError(name string, r any) error {
	return &tool.ToolError{
		Tool:    name,
		Message: fmt.Sprintf("panic recovered: %v", r),
		Code:    tool.CodeExecution,
		Details: string(debug.Stack()),
	}
}

// executeTool centralizes tool lookup & execution using the agent tool registry.
func executeTool(registry *tool.Registry, toolCtx *core.ToolContext, toolName, args string) (any, error) {
	impl, ok := registry.Get(toolName)
	if !ok {
		return nil, tool.NewToolError(toolName, "tool not found", tool.CodeNotFound)
	}

	argMap := map[string]any{}
	if args != "" {
		if err := json.Unmarshal([]byte(args), &argMap); err != nil {
			return nil, tool.NewToolError(toolName, fmt.Sprintf("failed to unmarshal args: %v", err), tool.CodeValidation)
		}
	}

	return impl.Call(toolCtx, argMap)
}
