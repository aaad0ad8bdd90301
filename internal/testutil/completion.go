package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// CompletionServer imitates an OpenAI-compatible /chat/completions endpoint
type CompletionServer struct {
	*httptest.Server

	mu         sync.Mutex
	status     int
	reply      string
	errMessage string
	calls      int
	lastModel  string
	lastPrompt string
	lastAuth   string
}

// NewCompletionServer answers every request with reply until told otherwise
func NewCompletionServer(t testing.TB, reply string) *CompletionServer {
	t.Helper()
	s := &CompletionServer{status: http.StatusOK, reply: reply}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Fail makes later requests answer with status and an OpenAI style error body
func (s *CompletionServer) Fail(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status, s.errMessage = status, message
}

// Empty makes later requests succeed without any choice
func (s *CompletionServer) Empty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status, s.reply = http.StatusOK, ""
}

func (s *CompletionServer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// LastRequest returns the model, the single message text and the
// Authorization header of the most recent request
func (s *CompletionServer) LastRequest() (model, prompt, auth string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastModel, s.lastPrompt, s.lastAuth
}

func (s *CompletionServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls++
	s.lastModel = req.Model
	s.lastAuth = r.Header.Get("Authorization")
	if len(req.Messages) > 0 {
		s.lastPrompt = req.Messages[len(req.Messages)-1].Content
	}
	status, reply, errMessage := s.status, s.reply, s.errMessage
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": errMessage, "type": "server_error"},
		})
		return
	}

	choices := []map[string]any{}
	if reply != "" {
		choices = append(choices, map[string]any{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": reply},
			"finish_reason": "stop",
		})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   req.Model,
		"choices": choices,
		"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
}
