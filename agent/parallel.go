package agent

import (
	"github.com/hupe1980/agentcrew/core"
	"golang.org/x/sync/errgroup"
)

// runParallel runs every member once concurrently and returns the outputs in
// declaration order. Unless bestEffort is set, the first failure cancels the
// remaining members.
func runParallel(runCtx *core.RunContext, members []core.Agent, query string, bestEffort bool) ([]memberOutput, error) {
	outputs := make([]memberOutput, len(members))

	g, gctx := errgroup.WithContext(runCtx.Context)
	memberCtx := runCtx.WithContext(gctx)

	for i, m := range members {
		g.Go(func() error {
			out := runMember(memberCtx, m, query)
			outputs[i] = out
			if out.err != nil && !bestEffort {
				return &MemberError{Member: m.Name(), Err: out.err}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := runCtx.Err(); err != nil {
		return nil, err
	}
	return outputs, nil
}
