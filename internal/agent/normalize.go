package agent

import "github.com/handroid/handroid/internal/llm"

// continuePrompt is inserted after a system message that is not followed by
// a user message, since chat-completion backends reject such sequences.
const continuePrompt = "Please continue."

// Normalize returns a cleaned copy of messages fit to send to the gateway:
// consecutive messages with the same role are collapsed to the first (tool
// messages excepted, as one assistant turn legitimately yields several), and
// a synthetic user message is inserted after any system message not already
// followed by one. The input is not modified.
func Normalize(messages []llm.Message) []llm.Message {
	cleaned := make([]llm.Message, 0, len(messages))
	var lastRole llm.Role
	for _, msg := range messages {
		if msg.Role == lastRole && msg.Role != llm.RoleTool {
			continue
		}
		cleaned = append(cleaned, msg)
		lastRole = msg.Role
	}

	validated := make([]llm.Message, 0, len(cleaned)+1)
	for i, msg := range cleaned {
		validated = append(validated, msg)
		if msg.Role != llm.RoleSystem {
			continue
		}
		if i+1 >= len(cleaned) || cleaned[i+1].Role != llm.RoleUser {
			validated = append(validated, llm.User(continuePrompt))
		}
	}
	return validated
}
