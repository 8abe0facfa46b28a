// Package llm provides the chat message model and the model gateway client.
package llm

import "log/slog"

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Role tags a conversation message. Only the four values below exist;
// use the constructors rather than building Message literals so that
// illegal role/field combinations never enter a history.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model-requested tool invocation. ID is the gateway's
// correlation token and must come back unchanged on the answering tool
// message. Arguments is the serialized JSON payload exactly as the
// model produced it — parsing is the dispatcher's job.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry in a conversation history.
//
// Field usage by role:
//   - system, user: Content only.
//   - assistant: Content, plus ToolCalls when the model requested tools
//     (Content is then the empty string, never absent).
//   - tool: Content plus ToolCallID linking back to the request.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant builds a plain-text assistant message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// AssistantToolCalls builds the assistant message recording a
// tool-call request. Content is the empty string: some gateways reject
// assistant entries with no content field at all.
func AssistantToolCalls(calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: "", ToolCalls: calls}
}

// ToolResult builds the tool message answering the call with the given
// correlation id.
func ToolResult(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// ToolSpec is a tool descriptor in the gateway's wire format.
type ToolSpec struct {
	Type     string       `json:"type"` // always "function"
	Function FunctionSpec `json:"function"`
}

// FunctionSpec describes one callable function to the model.
type FunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatRequest is one gateway round trip.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	// MaxTokens bounds the completion length. Zero means provider default.
	MaxTokens int
	// Tools, when non-empty, enables tool calling for this request.
	Tools []ToolSpec
	// ToolChoice is the gateway tool-choice policy ("auto", "none", ...).
	// Empty omits the field.
	ToolChoice string
}

// ChatResult is the model's answer: either plain text or an ordered
// tool-call list. When ToolCalls is non-empty it takes precedence and
// Text is whatever content accompanied the request (usually empty).
type ChatResult struct {
	Text      string
	ToolCalls []ToolCall
}
