// Package mockchat serves the chat streaming wire protocol from
// canned scripts, for the CLI and for exercising the consumer against
// a real HTTP stack.
package mockchat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pkt.systems/parley/schema"
	"pkt.systems/pslog"
)

// Record is one line of a scripted stream. Raw is emitted verbatim
// after the data prefix (malformed payloads included); otherwise Event
// is marshalled.
type Record struct {
	Raw   string
	Event *schema.StreamEvent
}

// Config configures the mock backend.
type Config struct {
	// Script builds the response records for a request. Defaults to
	// EchoScript.
	Script func(req schema.ChatRequest) []Record
	// ChunkSize splits the response body into flushes of this many
	// bytes, cutting records mid-line. Zero writes records whole.
	ChunkSize int
	// Delay sleeps between flushes.
	Delay time.Duration
	// RequireToken rejects requests without this bearer token with 401.
	RequireToken string
	// Logger defaults to the background context logger.
	Logger pslog.Logger
}

// Server is an http.Handler implementing POST /api/chat/stream.
type Server struct {
	cfg Config
	log pslog.Logger
}

// New constructs a mock backend server.
func New(cfg Config) *Server {
	if cfg.Script == nil {
		cfg.Script = EchoScript
	}
	if cfg.Logger == nil {
		cfg.Logger = pslog.Ctx(context.Background())
	}
	return &Server{cfg: cfg, log: cfg.Logger}
}

// Handler returns a mux routing the stream endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/stream", s.handleStream)
	return mux
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cfg.RequireToken != "" {
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.RequireToken {
			s.log.Info("mockchat rejecting unauthenticated stream")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}
	var req schema.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	normalized, err := req.Normalize()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Debug("mockchat stream start", "conversation", normalized.ConversationID, "prompt_len", len(normalized.Prompt))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)

	var body strings.Builder
	for _, record := range s.cfg.Script(normalized) {
		payload := record.Raw
		if record.Event != nil {
			data, err := json.Marshal(record.Event)
			if err != nil {
				continue
			}
			payload = string(data)
		}
		fmt.Fprintf(&body, "data: %s\n", payload)
	}
	body.WriteString("data: [DONE]\n")

	out := body.String()
	chunk := s.cfg.ChunkSize
	if chunk <= 0 {
		chunk = len(out)
	}
	for start := 0; start < len(out); start += chunk {
		end := start + chunk
		if end > len(out) {
			end = len(out)
		}
		if _, err := fmt.Fprint(w, out[start:end]); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		if s.cfg.Delay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(s.cfg.Delay):
			}
		}
	}
}

// EchoScript streams the prompt back word by word, then completes.
func EchoScript(req schema.ChatRequest) []Record {
	words := strings.Fields(req.Prompt)
	records := make([]Record, 0, len(words)+1)
	for i, word := range words {
		delta := word
		if i < len(words)-1 {
			delta += " "
		}
		records = append(records, Record{Event: &schema.StreamEvent{Type: schema.EventContent, Content: delta}})
	}
	records = append(records, Record{Event: &schema.StreamEvent{
		Type:     schema.EventDone,
		Metadata: map[string]any{"model": "mock", "words": len(words)},
	}})
	return records
}
