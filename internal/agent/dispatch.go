package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/handroid/handroid/internal/llm"
	"github.com/handroid/handroid/internal/tools"
)

// executeToolCall runs one model-requested tool call and returns the content
// for the resulting tool message. Every fault is absorbed into that content
// so the model can see what went wrong and re-plan; nothing here aborts the
// conversation loop.
func (a *Agent) executeToolCall(ctx context.Context, call llm.ToolCall) string {
	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			msg := fmt.Sprintf("Error parsing arguments for tool '%s': %v", call.Name, err)
			a.logger.Error("tool argument parse failed", "tool", call.Name, "error", err)
			return msg
		}
	}

	a.logger.Info("executing tool", "tool", call.Name, "args", args)
	out, err := a.registry.Invoke(ctx, call.Name, args)
	if errors.Is(err, tools.ErrUnknownTool) {
		msg := fmt.Sprintf("Error: Tool '%s' not found. Available tools: [%s]",
			call.Name, strings.Join(a.registry.Names(), ", "))
		a.logger.Warn("unknown tool requested", "tool", call.Name)
		return msg
	}
	if err != nil {
		a.logger.Error("tool execution failed", "tool", call.Name, "error", err)
		return fmt.Sprintf("Error executing tool '%s': %v", call.Name, err)
	}

	// A successful action changes what is on the screen, so earlier state
	// observations are rewritten before this result joins the history.
	if a.invalidating[call.Name] {
		if n := markPhoneStateStale(a.history); n > 0 {
			a.logger.Info("stale phone-state observations marked",
				"tool", call.Name, "rewritten", n)
		}
	}
	return out
}
