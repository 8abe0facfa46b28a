package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/handroid/handroid/internal/jsonutil"
	"github.com/handroid/handroid/internal/llm"
	"github.com/handroid/handroid/internal/prompts"
)

// compactionRetries is how many model attempts are made before compaction is
// abandoned and the original history restored.
const compactionRetries = 3

// compactionMaxTokens bounds the summary completion.
const compactionMaxTokens = 1536

// Summary is the structured digest a compaction produces.
type Summary struct {
	Goal         string   `json:"goal"`
	Steps        []string `json:"steps"`
	StateChanges []string `json:"state_changes"`
	Done         []string `json:"done"`
	Pending      []string `json:"pending"`
}

// Turn is one simplified user or assistant exchange kept after compaction.
type Turn struct {
	Role    llm.Role `json:"role"`
	Content string   `json:"content"`
}

// CompactionResult reports what a compaction did. Aborted is set when every
// attempt failed and the history was restored unchanged.
type CompactionResult struct {
	Summary           Summary
	SimplifiedHistory []Turn
	Aborted           bool
}

// Compact summarizes and rebuilds the conversation history on demand.
func (a *Agent) Compact(ctx context.Context) *CompactionResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev := a.state
	a.setState(StateCompacting)
	result := a.compactLocked(ctx)
	a.setState(prev)
	return result
}

// compactLocked runs the compaction protocol under the agent lock: filter
// the history to plain turns, ask the model for a structured summary at zero
// temperature, and rebuild the history from it. After compactionRetries
// failed attempts the snapshot is restored and the result marked Aborted.
func (a *Agent) compactLocked(ctx context.Context) *CompactionResult {
	snapshot := make([]llm.Message, len(a.history))
	copy(snapshot, a.history)

	filtered := filterForCompaction(a.history)
	if len(filtered) == 0 {
		a.logger.Info("nothing to compact")
		return &CompactionResult{}
	}

	payload, err := json.MarshalIndent(filtered, "", "  ")
	if err != nil {
		a.logger.Error("compaction payload encoding failed", "error", err)
		return &CompactionResult{Aborted: true}
	}

	req := llm.ChatRequest{
		Model: a.cfg.Model,
		Messages: []llm.Message{
			llm.System(prompts.CompactionPrompt()),
			llm.User("Conversation history to compress:\n" + string(payload)),
		},
		Temperature: 0,
		MaxTokens:   compactionMaxTokens,
	}

	for attempt := 1; attempt <= compactionRetries; attempt++ {
		a.logger.Info("compaction attempt", "attempt", attempt, "of", compactionRetries)

		resp, err := a.gateway.Chat(ctx, req)
		if err != nil {
			a.logger.Warn("compaction model call failed", "attempt", attempt, "error", err)
			continue
		}

		obj, err := jsonutil.ExtractObject(resp.Text)
		if err != nil {
			a.logger.Warn("compaction response not parseable", "attempt", attempt, "error", err)
			continue
		}

		result := coerceCompaction(obj)
		a.rebuildHistory(result)
		a.logger.Info("history compacted",
			"attempt", attempt, "messages", len(a.history))
		return result
	}

	a.history = snapshot
	if a.cfg.WarnOnCompactionFailure {
		a.logger.Warn("all compaction attempts failed, history restored",
			"attempts", compactionRetries)
	}
	return &CompactionResult{Aborted: true}
}

// filterForCompaction reduces the history to plain user/assistant turns the
// summarizer can digest: system messages are dropped, assistant tool-call
// envelopes keep only their readable text, and tool results collapse to a
// one-line digest.
func filterForCompaction(history []llm.Message) []Turn {
	var filtered []Turn
	for _, msg := range history {
		switch msg.Role {
		case llm.RoleSystem:
			continue
		case llm.RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				if s := strings.TrimSpace(msg.Content); s != "" {
					filtered = append(filtered, Turn{Role: llm.RoleAssistant, Content: s})
				}
				continue
			}
			filtered = append(filtered, Turn{Role: llm.RoleAssistant, Content: msg.Content})
		case llm.RoleTool:
			brief := strings.TrimSpace(strings.ReplaceAll(msg.Content, "\n", " "))
			if len(brief) > 200 {
				brief = brief[:200]
			}
			if brief != "" {
				filtered = append(filtered, Turn{
					Role:    llm.RoleAssistant,
					Content: "(tool result) " + brief,
				})
			}
		default:
			filtered = append(filtered, Turn{Role: msg.Role, Content: msg.Content})
		}
	}
	return filtered
}

// coerceCompaction maps the model's JSON object onto the summary schema,
// substituting defaults for anything missing or mistyped. Simplified turns
// keep only user/assistant roles with non-blank content.
func coerceCompaction(obj map[string]any) *CompactionResult {
	result := &CompactionResult{}

	if s, ok := obj["summary"].(map[string]any); ok {
		result.Summary = Summary{
			Goal:         asString(s["goal"]),
			Steps:        asStringSlice(s["steps"]),
			StateChanges: asStringSlice(s["state_changes"]),
			Done:         asStringSlice(s["done"]),
			Pending:      asStringSlice(s["pending"]),
		}
	}
	if result.Summary.Steps == nil {
		result.Summary.Steps = []string{}
	}
	if result.Summary.StateChanges == nil {
		result.Summary.StateChanges = []string{}
	}
	if result.Summary.Done == nil {
		result.Summary.Done = []string{}
	}
	if result.Summary.Pending == nil {
		result.Summary.Pending = []string{}
	}

	if turns, ok := obj["simplified_history"].([]any); ok {
		for _, raw := range turns {
			t, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			role := llm.Role(asString(t["role"]))
			content := asString(t["content"])
			if (role != llm.RoleUser && role != llm.RoleAssistant) || strings.TrimSpace(content) == "" {
				continue
			}
			result.SimplifiedHistory = append(result.SimplifiedHistory, Turn{Role: role, Content: content})
		}
	}
	return result
}

// rebuildHistory replaces the conversation with the compacted form: the
// original system prompt, the summary as hidden system context, the
// simplified turns, and a trailing user message so the next model call has
// something to answer.
func (a *Agent) rebuildHistory(result *CompactionResult) {
	a.history = nil
	if a.cfg.SystemPrompt != "" {
		a.history = append(a.history, llm.System(a.cfg.SystemPrompt))
	}

	summaryJSON, err := json.MarshalIndent(result.Summary, "", "  ")
	if err != nil {
		summaryJSON = []byte("{}")
	}
	a.history = append(a.history, llm.System(
		"[Conversation summary for later reasoning; not shown to the user]\n"+string(summaryJSON)))

	for _, turn := range result.SimplifiedHistory {
		switch turn.Role {
		case llm.RoleUser:
			a.history = append(a.history, llm.User(turn.Content))
		case llm.RoleAssistant:
			a.history = append(a.history, llm.Assistant(turn.Content))
		}
	}

	if len(a.history) == 0 || a.history[len(a.history)-1].Role != llm.RoleUser {
		a.history = append(a.history, llm.User(nextUserMessage(result.Summary.Pending)))
	}
}

// nextUserMessage picks the trailing user message after a rebuild.
func nextUserMessage(pending []string) string {
	if len(pending) > 0 {
		return fmt.Sprintf("Please continue the unfinished task: %s. "+
			"Do not ask for clarification unless necessary; give the next action directly.", pending[0])
	}
	return "If there is nothing pending, reply: idle."
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, asString(item))
	}
	return out
}
