// Package agent runs the tool-calling conversation loop: it holds the
// message history, relays it to a chat-completion gateway, executes the tool
// calls the model requests, and keeps the history within bounds through
// model-assisted compaction.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/handroid/handroid/internal/llm"
)

// Gateway is the chat-completion backend. *llm.Client satisfies this.
type Gateway interface {
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResult, error)
}

// Registry is the tool surface offered to the model. *tools.Registry
// satisfies this.
type Registry interface {
	Specs() []llm.ToolSpec
	Names() []string
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
}

// State is the phase the conversation loop is in.
type State string

const (
	// StateAwaitingModel: a request is (about to be) in flight to the model.
	StateAwaitingModel State = "awaiting_model"
	// StateToolExecution: the model requested tool calls being executed.
	StateToolExecution State = "tool_execution"
	// StateCompacting: the history is being summarized and rebuilt.
	StateCompacting State = "compacting"
	// StateDone: the last instruction produced a final text answer.
	StateDone State = "done"
)

// Config tunes the agent loop.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int

	// MaxIterations is the number of model rounds allowed per instruction
	// before the history is compacted and the counter restarts.
	MaxIterations int

	SystemPrompt string

	// StateInvalidatingTools names the tools whose successful execution
	// makes earlier phone-state observations stale.
	StateInvalidatingTools []string

	// WarnOnCompactionFailure logs a warning when all compaction attempts
	// fail and the history is restored unchanged.
	WarnOnCompactionFailure bool
}

// Agent is one conversation with the model. Chat serializes callers; the
// history only changes under the lock.
type Agent struct {
	mu       sync.Mutex
	cfg      Config
	gateway  Gateway
	registry Registry
	logger   *slog.Logger

	history      []llm.Message
	specs        []llm.ToolSpec
	state        State
	invalidating map[string]bool
}

// New creates an agent. The tool specifications are fetched from the
// registry once and reused for every request; call RefreshTools after
// changing the registry.
func New(gateway Gateway, registry Registry, cfg Config, logger *slog.Logger) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{
		cfg:      cfg,
		gateway:  gateway,
		registry: registry,
		logger:   logger,
		specs:    registry.Specs(),
		state:    StateDone,
	}
	a.setInvalidating(cfg.StateInvalidatingTools)
	if cfg.SystemPrompt != "" {
		a.history = append(a.history, llm.System(cfg.SystemPrompt))
	}
	return a
}

// Chat processes one user instruction and returns the model's final text
// answer. It never returns an error: gateway failures come back as error
// text, and tool failures are fed to the model as tool results.
func (a *Agent) Chat(ctx context.Context, userMessage string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = append(a.history, llm.User(userMessage))

	iteration := 0
	for {
		iteration++
		if iteration > a.cfg.MaxIterations {
			a.logger.Info("iteration ceiling reached, compacting history",
				"max_iterations", a.cfg.MaxIterations)
			a.setState(StateCompacting)
			a.compactLocked(ctx)
			iteration = 1
		}

		a.setState(StateAwaitingModel)
		result, err := a.gateway.Chat(ctx, a.request())
		if err != nil {
			a.logger.Error("model call failed", "error", err)
			a.setState(StateDone)
			return fmt.Sprintf("An error occurred: %v", err)
		}

		if len(result.ToolCalls) > 0 {
			a.setState(StateToolExecution)
			a.history = append(a.history, llm.AssistantToolCalls(result.ToolCalls))
			for _, call := range result.ToolCalls {
				content := a.executeToolCall(ctx, call)
				a.history = append(a.history, llm.ToolResult(call.ID, content))
			}
			continue
		}

		a.history = append(a.history, llm.Assistant(result.Text))
		a.setState(StateDone)
		return result.Text
	}
}

// request assembles the next gateway round trip from a normalized view of
// the history. The stored history itself is left as appended.
func (a *Agent) request() llm.ChatRequest {
	return llm.ChatRequest{
		Model:       a.cfg.Model,
		Messages:    Normalize(a.history),
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
		Tools:       a.specs,
		ToolChoice:  "auto",
	}
}

func (a *Agent) setState(s State) {
	if a.state != s {
		a.logger.Debug("state transition", "from", a.state, "to", s)
	}
	a.state = s
}

// State reports the loop phase.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// History returns a copy of the stored message history.
func (a *Agent) History() []llm.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]llm.Message, len(a.history))
	copy(out, a.history)
	return out
}

// Clear drops the conversation, keeping only the system prompt.
func (a *Agent) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
	if a.cfg.SystemPrompt != "" {
		a.history = append(a.history, llm.System(a.cfg.SystemPrompt))
	}
	a.setState(StateDone)
}

// RefreshTools re-reads the tool specifications from the registry.
func (a *Agent) RefreshTools() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.specs = a.registry.Specs()
}

// SetStateInvalidatingTools replaces the set of tools that invalidate
// earlier phone-state observations.
func (a *Agent) SetStateInvalidatingTools(names []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setInvalidating(names)
	a.logger.Info("state-invalidating tools set", "tools", names)
}

func (a *Agent) setInvalidating(names []string) {
	a.invalidating = make(map[string]bool, len(names))
	for _, name := range names {
		a.invalidating[name] = true
	}
}
