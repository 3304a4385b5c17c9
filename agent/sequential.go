package agent

import (
	"github.com/hupe1980/agentcrew/core"
)

// runSequential runs every member once in declaration order. Unless
// bestEffort is set, the first failure stops further processing.
func runSequential(runCtx *core.RunContext, members []core.Agent, query string, bestEffort bool) ([]memberOutput, error) {
	outputs := make([]memberOutput, 0, len(members))
	for _, m := range members {
		if err := runCtx.Err(); err != nil {
			return nil, err
		}

		out := runMember(runCtx, m, query)
		if out.err != nil && !bestEffort {
			return nil, &MemberError{Member: m.Name(), Err: out.err}
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}
