package agent

import (
	"regexp"
	"strings"

	"github.com/handroid/handroid/internal/llm"
)

// stateFieldRe matches the "state" field of a phone-state observation
// embedded in tool message content.
var stateFieldRe = regexp.MustCompile(`"state":\s*"[^"]*"`)

// staleStateValue replaces the observed value once it can no longer be
// trusted. The rewrite is idempotent: re-marking produces the same text.
const staleStateValue = `"state": "outdated phone state"`

// markPhoneStateStale rewrites the state values in all tool messages of
// history in place and reports how many messages changed. Non-tool messages
// and tool messages without a state field are untouched.
func markPhoneStateStale(history []llm.Message) int {
	changed := 0
	for i := range history {
		if history[i].Role != llm.RoleTool {
			continue
		}
		content := history[i].Content
		if !strings.Contains(content, `"state":`) {
			continue
		}
		updated := stateFieldRe.ReplaceAllString(content, staleStateValue)
		if updated != content {
			history[i].Content = updated
			changed++
		}
	}
	return changed
}
