package flow

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentcrew/core"
	"github.com/tidwall/gjson"
)

// FormatToolCalls renders the "Running:" block shown before a tool round:
//
//	Running:
//	 - get_current_stock_price(symbol=NVDA)
//
// Arguments keep the order the model sent them in.
func FormatToolCalls(calls []core.FunctionCall) string {
	var b strings.Builder
	b.WriteString("Running:\n")
	for _, c := range calls {
		fmt.Fprintf(&b, " - %s(%s)\n", c.Name, formatArgs(c.Arguments))
	}
	return b.String()
}

func formatArgs(raw string) string {
	parsed := gjson.Parse(raw)
	if !parsed.IsObject() {
		return strings.TrimSpace(raw)
	}

	var args []string
	parsed.ForEach(func(key, value gjson.Result) bool {
		args = append(args, key.String()+"="+value.String())
		return true
	})
	return strings.Join(args, ", ")
}
