package agent

import (
	"testing"

	"github.com/handroid/handroid/internal/llm"
)

func roles(messages []llm.Message) []llm.Role {
	out := make([]llm.Role, len(messages))
	for i, m := range messages {
		out[i] = m.Role
	}
	return out
}

func TestNormalizeDropsConsecutiveSameRole(t *testing.T) {
	in := []llm.Message{
		llm.System("sys"),
		llm.User("first"),
		llm.User("second"),
		llm.Assistant("reply"),
		llm.Assistant("again"),
	}
	out := Normalize(in)

	want := []llm.Role{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant}
	got := roles(out)
	if len(got) != len(want) {
		t.Fatalf("got roles %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got roles %v, want %v", got, want)
		}
	}
	// First of each run survives.
	if out[1].Content != "first" || out[2].Content != "reply" {
		t.Errorf("wrong survivors: %q, %q", out[1].Content, out[2].Content)
	}
}

func TestNormalizeKeepsToolRuns(t *testing.T) {
	in := []llm.Message{
		llm.System("sys"),
		llm.User("do two things"),
		llm.AssistantToolCalls([]llm.ToolCall{
			{ID: "call_1", Name: "a", Arguments: "{}"},
			{ID: "call_2", Name: "b", Arguments: "{}"},
		}),
		llm.ToolResult("call_1", "one"),
		llm.ToolResult("call_2", "two"),
	}
	out := Normalize(in)
	if len(out) != 5 {
		t.Fatalf("tool run collapsed: %v", roles(out))
	}
	if out[3].Role != llm.RoleTool || out[4].Role != llm.RoleTool {
		t.Errorf("tool messages not preserved: %v", roles(out))
	}
}

func TestNormalizeInsertsUserAfterSystem(t *testing.T) {
	// System followed by assistant.
	out := Normalize([]llm.Message{
		llm.System("sys"),
		llm.Assistant("hello"),
	})
	if len(out) != 3 || out[1].Role != llm.RoleUser {
		t.Fatalf("no user inserted after system: %v", roles(out))
	}
	if out[1].Content != continuePrompt {
		t.Errorf("unexpected filler content: %q", out[1].Content)
	}

	// System as the last message.
	out = Normalize([]llm.Message{llm.System("sys")})
	if len(out) != 2 || out[1].Role != llm.RoleUser {
		t.Fatalf("no user appended after trailing system: %v", roles(out))
	}

	// System already followed by user: unchanged.
	out = Normalize([]llm.Message{llm.System("sys"), llm.User("hi")})
	if len(out) != 2 {
		t.Fatalf("unnecessary insertion: %v", roles(out))
	}
}

func TestNormalizeDoesNotModifyInput(t *testing.T) {
	in := []llm.Message{
		llm.System("sys"),
		llm.User("a"),
		llm.User("b"),
	}
	_ = Normalize(in)
	if len(in) != 3 || in[2].Content != "b" {
		t.Error("input slice was modified")
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if out := Normalize(nil); len(out) != 0 {
		t.Errorf("expected empty output, got %v", roles(out))
	}
}
