package web

import (
	"bytes"
	"encoding/json"
	"html"
	"net/http"

	"github.com/yuin/goldmark"
)

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	Message string `json:"message"`
}

// chatResponse carries the assistant reply as raw text plus an HTML
// rendering for direct insertion into the page.
type chatResponse struct {
	Reply string `json:"reply"`
	HTML  string `json:"html"`
}

// historyEntry is one conversation message in GET /api/history output.
// Tool-call envelopes are represented by their tool names so the UI
// can show what the agent did between replies.
type historyEntry struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Tools   []string `json:"tools,omitempty"`
}

// renderMarkdown converts assistant markdown to HTML. On conversion
// errors the text is served escaped inside <pre> so the reply is
// never lost.
func renderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return "<pre>" + html.EscapeString(text) + "</pre>"
	}
	return buf.String()
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	reply := s.chatter.Chat(r.Context(), req.Message)
	s.writeJSON(w, chatResponse{
		Reply: reply,
		HTML:  renderMarkdown(reply),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries := []historyEntry{}
	for _, msg := range s.chatter.History() {
		entry := historyEntry{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		for _, tc := range msg.ToolCalls {
			entry.Tools = append(entry.Tools, tc.Name)
		}
		entries = append(entries, entry)
	}
	s.writeJSON(w, entries)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.chatter.Clear()
	s.logger.Info("conversation cleared via web")
	s.writeJSON(w, map[string]string{"status": "cleared"})
}
