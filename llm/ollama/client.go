// Package ollama implements llm.Adapter for a local Ollama server.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aschepis/llmchat/llm"
	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const (
	// DefaultHost is used when the profile has no base URL.
	DefaultHost = "http://localhost:11434"

	// DefaultTimeout bounds one round trip when no timeout is configured.
	DefaultTimeout = 60 * time.Second
)

// Options configures the adapter transport.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// OllamaAdapter implements the llm.Adapter interface for Ollama's chat API.
type OllamaAdapter struct {
	client  *api.Client
	profile llm.ModelProfile
	logger  zerolog.Logger
}

// NewAdapter creates a new OllamaAdapter for the given profile.
func NewAdapter(profile llm.ModelProfile, opts Options) (*OllamaAdapter, error) {
	if profile.Provider != llm.ProviderOllama {
		return nil, llm.NewConfigurationError(fmt.Sprintf("ollama adapter cannot serve provider %q", profile.Provider), nil)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	host := profile.BaseURL
	if host == "" {
		host = DefaultHost
	}
	baseURL, err := parseHost(host)
	if err != nil {
		return nil, llm.NewConfigurationError("invalid ollama host", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &OllamaAdapter{
		client:  api.NewClient(baseURL, httpClient),
		profile: profile.Clone(),
		logger:  opts.Logger.With().Str("component", "ollamaAdapter").Logger(),
	}, nil
}

// parseHost parses a host string into a URL.
func parseHost(host string) (*url.URL, error) {
	// If host doesn't have a scheme, add http://
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return url.Parse(host)
}

// Provider implements llm.Adapter.Provider.
func (a *OllamaAdapter) Provider() llm.Provider {
	return llm.ProviderOllama
}

// Send implements llm.Adapter.Send.
func (a *OllamaAdapter) Send(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	if req == nil {
		return nil, llm.NewValidationError("request is required", nil)
	}

	messages := ToOllamaMessages(req.Turns())
	if req.System != "" {
		messages = append([]api.Message{{Role: "system", Content: req.System}}, messages...)
	}

	options := maps.Clone(a.profile.Extra)
	if options == nil {
		options = make(map[string]any)
	}
	options["temperature"] = a.profile.Temperature
	if a.profile.MaxTokens > 0 {
		options["num_predict"] = a.profile.MaxTokens
	}

	chatReq := &api.ChatRequest{
		Model:    a.profile.Model,
		Messages: messages,
		Stream:   new(bool), // false for non-streaming
		Options:  options,
	}

	a.logger.Debug().
		Str("model", a.profile.Model).
		Int("messages", len(messages)).
		Msg("Sending Ollama chat request")

	var chatResp api.ChatResponse
	var received bool
	err := a.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		chatResp = resp
		received = true
		return nil
	})
	if err != nil {
		return nil, a.convertError(err)
	}

	raw, _ := json.Marshal(chatResp)
	if !received || chatResp.Message.Content == "" {
		return nil, llm.NewUnexpectedResponseError(http.StatusOK, raw)
	}

	model := chatResp.Model
	if model == "" {
		model = a.profile.Model
	}

	return &llm.Result{
		Content:  chatResp.Message.Content,
		Model:    model,
		Provider: llm.ProviderOllama,
		Usage: &llm.Usage{
			InputTokens:  int64(chatResp.PromptEvalCount),
			OutputTokens: int64(chatResp.EvalCount),
		},
		Raw: raw,
	}, nil
}

// convertError converts Ollama client errors to llm.Error types.
func (a *OllamaAdapter) convertError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return llm.NewProviderError("Ollama API error", statusErr.StatusCode, []byte(statusErr.ErrorMessage), err)
	}
	if llm.IsTransportError(err) {
		return llm.NewNetworkError("Ollama request failed", err)
	}
	return llm.NewProviderError("unexpected response shape", http.StatusOK, []byte(err.Error()), err)
}

// ToOllamaMessages converts turns to Ollama messages.
// Attachments are rendered into the content.
func ToOllamaMessages(turns []llm.Turn) []api.Message {
	return lo.Map(turns, func(t llm.Turn, _ int) api.Message {
		return api.Message{Role: string(t.Role), Content: t.Text()}
	})
}

var _ llm.Adapter = (*OllamaAdapter)(nil)
