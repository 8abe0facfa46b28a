// Package web provides the chat web interface for handroid.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/handroid/handroid/internal/buildinfo"
	"github.com/handroid/handroid/internal/llm"
)

//go:embed static/*
var staticFiles embed.FS

// Chatter is the conversation surface the web server drives. The
// concrete implementation is the agent loop wired in main.go.
type Chatter interface {
	// Chat runs one user instruction through the tool loop and
	// returns the assistant's final text.
	Chat(ctx context.Context, userMessage string) string
	// History returns a copy of the conversation so far.
	History() []llm.Message
	// Clear resets the conversation, keeping the system prompt.
	Clear()
}

// Config holds web server dependencies.
type Config struct {
	Chatter Chatter
	Logger  *slog.Logger
}

// Server serves the chat UI, the JSON API, and the websocket endpoint.
type Server struct {
	chatter Chatter
	logger  *slog.Logger
}

// NewServer creates a Server. A nil logger falls back to slog.Default.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		chatter: cfg.Chatter,
		logger:  logger,
	}
}

// RegisterRoutes adds all web routes to a mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Strip the "static" prefix from embedded files.
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	fileServer := http.FileServer(http.FS(subFS))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" || r.URL.Path == "" {
			r.URL.Path = "/index.html"
		}
		fileServer.ServeHTTP(w, r)
	})

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/clear", s.handleClear)
	mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, buildinfo.Info())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("web json encode failed", "error", err)
	}
}
