package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aschepis/llmchat/llm"
	"github.com/rs/zerolog"
)

func TestSend_Reply(t *testing.T) {
	var got struct {
		Model    string         `json:"model"`
		Stream   bool           `json:"stream"`
		Options  map[string]any `json:"options"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model": "llama3", "message": {"role": "assistant", "content": "hello back"}, "done": true, "prompt_eval_count": 7, "eval_count": 4}` + "\n"))
	}))
	defer server.Close()

	profile := llm.NewModelProfile(llm.ProviderOllama, "llama3", llm.WithBaseURL(server.URL), llm.WithExtra("top_k", 20))
	adapter, err := NewAdapter(profile, Options{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}

	res, err := adapter.Send(context.Background(), &llm.Request{
		Message: llm.NewTurn(llm.RoleUser, "hi"),
		System:  "be brief",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if res.Content != "hello back" {
		t.Errorf("Expected 'hello back', got %q", res.Content)
	}
	if res.Usage.InputTokens != 7 || res.Usage.OutputTokens != 4 {
		t.Errorf("Unexpected usage %+v", res.Usage)
	}
	if got.Stream {
		t.Error("Expected non-streaming request")
	}
	if got.Options["num_predict"] != float64(llm.DefaultMaxTokens) || got.Options["top_k"] != float64(20) {
		t.Errorf("Unexpected options %v", got.Options)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("Expected leading system message, got %+v", got.Messages)
	}
}

func TestSend_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'llama3' not found"}`))
	}))
	defer server.Close()

	adapter, err := NewAdapter(llm.NewModelProfile(llm.ProviderOllama, "llama3", llm.WithBaseURL(server.URL)), Options{})
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}
	_, err = adapter.Send(context.Background(), &llm.Request{Message: llm.NewTurn(llm.RoleUser, "hi")})
	if !llm.IsProviderError(err) {
		t.Fatalf("Expected provider error, got %v", err)
	}
	if llm.StatusCode(err) != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", llm.StatusCode(err))
	}
}

func TestParseHost(t *testing.T) {
	u, err := parseHost("localhost:11434")
	if err != nil {
		t.Fatalf("parseHost failed: %v", err)
	}
	if u.Scheme != "http" || u.Host != "localhost:11434" {
		t.Errorf("Unexpected URL %v", u)
	}
}
