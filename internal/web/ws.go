package web

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The UI is served from the same origin; same-host tools like
	// wscat are also fine for a LAN-bound agent.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsInbound is one client frame on the /ws endpoint.
type wsInbound struct {
	Message string `json:"message"`
}

// wsOutbound is one server frame. Error is set instead of Reply when
// the frame could not be processed.
type wsOutbound struct {
	Reply string `json:"reply,omitempty"`
	HTML  string `json:"html,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleWS runs a chat session over a websocket. Each inbound frame is
// a user instruction; the reply frame carries the assistant text once
// the tool loop finishes. Frames are processed one at a time so the
// conversation history stays ordered.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	defer conn.Close()

	s.logger.Debug("websocket client connected", "remote", r.RemoteAddr)

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read failed", "error", err)
			}
			return
		}

		if in.Message == "" {
			if err := conn.WriteJSON(wsOutbound{Error: "message is required"}); err != nil {
				return
			}
			continue
		}

		reply := s.chatter.Chat(r.Context(), in.Message)
		out := wsOutbound{
			Reply: reply,
			HTML:  renderMarkdown(reply),
		}
		if err := conn.WriteJSON(out); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
}
