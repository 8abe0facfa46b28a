package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChatText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}

		var req wireRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 {
			t.Errorf("messages = %d, want 2", len(req.Messages))
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "hello there"}, "finish_reason": "stop"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1", "sk-test", nil)
	res, err := c.Chat(context.Background(), ChatRequest{
		Model:    "test-model",
		Messages: []Message{System("sys"), User("hi")},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Text != "hello there" {
		t.Errorf("Text = %q", res.Text)
	}
	if len(res.ToolCalls) != 0 {
		t.Errorf("unexpected tool calls: %v", res.ToolCalls)
	}
}

func TestChatToolCallsPreserveOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"content": "",
						"tool_calls": []map[string]any{
							{"id": "call_2", "type": "function", "function": map[string]any{"name": "swipe", "arguments": `{"direction":"up"}`}},
							{"id": "call_1", "type": "function", "function": map[string]any{"name": "tap", "arguments": `{"x":1,"y":2}`}},
						},
					},
					"finish_reason": "tool_calls",
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	res, err := c.Chat(context.Background(), ChatRequest{Model: "m", Messages: []Message{User("go")}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if len(res.ToolCalls) != 2 {
		t.Fatalf("tool calls = %d, want 2", len(res.ToolCalls))
	}
	// Wire order must survive: the orchestrator executes calls in the
	// order the model returned them.
	if res.ToolCalls[0].ID != "call_2" || res.ToolCalls[1].ID != "call_1" {
		t.Errorf("order not preserved: %+v", res.ToolCalls)
	}
	if res.ToolCalls[0].Name != "swipe" {
		t.Errorf("name = %q", res.ToolCalls[0].Name)
	}
	if res.ToolCalls[1].Arguments != `{"x":1,"y":2}` {
		t.Errorf("arguments = %q", res.ToolCalls[1].Arguments)
	}
}

func TestChatGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad", nil)
	_, err := c.Chat(context.Background(), ChatRequest{Model: "m", Messages: []Message{User("hi")}})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestToWireToolMessages(t *testing.T) {
	msgs := []Message{
		AssistantToolCalls([]ToolCall{{ID: "c1", Name: "tap", Arguments: "{}"}}),
		ToolResult("c1", "ok"),
	}
	wire := toWire(msgs)

	if wire[0].Content != "" {
		t.Errorf("assistant content = %q, want empty string", wire[0].Content)
	}
	if len(wire[0].ToolCalls) != 1 || wire[0].ToolCalls[0].Type != "function" {
		t.Errorf("tool_calls = %+v", wire[0].ToolCalls)
	}
	if wire[1].ToolCallID != "c1" {
		t.Errorf("tool_call_id = %q", wire[1].ToolCallID)
	}
}

func TestConstructors(t *testing.T) {
	if m := Assistant("hi"); m.Role != RoleAssistant || m.ToolCalls != nil || m.ToolCallID != "" {
		t.Errorf("Assistant() = %+v", m)
	}
	if m := ToolResult("id1", "out"); m.Role != RoleTool || m.ToolCallID != "id1" {
		t.Errorf("ToolResult() = %+v", m)
	}
	if m := AssistantToolCalls(nil); m.Content != "" {
		t.Errorf("AssistantToolCalls content = %q", m.Content)
	}
}
