package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aschepis/llmchat/llm"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds one round trip when no timeout is configured.
const DefaultTimeout = 60 * time.Second

// Options configures the adapter transport.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// AnthropicAdapter implements the llm.Adapter interface for Anthropic's messages API.
type AnthropicAdapter struct {
	client  *anthropic.Client
	profile llm.ModelProfile
	logger  zerolog.Logger
}

// NewAdapter creates a new AnthropicAdapter for the given profile.
// A base URL override is the API root; the SDK appends "v1/messages".
func NewAdapter(profile llm.ModelProfile, opts Options) (*AnthropicAdapter, error) {
	if profile.Provider != llm.ProviderAnthropic {
		return nil, llm.NewConfigurationError(fmt.Sprintf("anthropic adapter cannot serve provider %q", profile.Provider), nil)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(profile.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if profile.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(profile.BaseURL))
	}

	client := anthropic.NewClient(reqOpts...)
	return &AnthropicAdapter{
		client:  &client,
		profile: profile.Clone(),
		logger:  opts.Logger.With().Str("component", "anthropicAdapter").Logger(),
	}, nil
}

// Provider implements llm.Adapter.Provider.
func (a *AnthropicAdapter) Provider() llm.Provider {
	return llm.ProviderAnthropic
}

// Send implements llm.Adapter.Send.
func (a *AnthropicAdapter) Send(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	if req == nil {
		return nil, llm.NewValidationError("request is required", nil)
	}

	messages, system := ToMessageParams(req.Turns())

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.profile.Model),
		MaxTokens:   int64(a.profile.MaxTokens),
		Messages:    messages,
		System:      buildSystemBlocks(req.System, system),
		Temperature: anthropic.Float(a.profile.Temperature),
	}

	a.logger.Debug().
		Str("model", a.profile.Model).
		Int("messages", len(messages)).
		Msg("Sending Anthropic message request")

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, a.convertError(err)
	}

	raw := json.RawMessage(message.RawJSON())
	text, ok := firstText(message)
	if !ok {
		return nil, llm.NewUnexpectedResponseError(http.StatusOK, raw, a.profile.Secrets()...)
	}

	model := string(message.Model)
	if model == "" {
		model = a.profile.Model
	}

	return &llm.Result{
		Content:  text,
		Model:    model,
		Provider: llm.ProviderAnthropic,
		Usage: &llm.Usage{
			InputTokens:  message.Usage.InputTokens,
			OutputTokens: message.Usage.OutputTokens,
		},
		Raw: raw,
	}, nil
}

// firstText returns the first non-empty text block of a message.
func firstText(message *anthropic.Message) (string, bool) {
	for _, block := range message.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, true
		}
	}
	return "", false
}

// buildSystemBlocks combines the request system prompt with system turns from history.
func buildSystemBlocks(systemPrompt string, historySystem []string) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, text := range historySystem {
		blocks = append(blocks, anthropic.TextBlockParam{Text: text})
	}
	if systemPrompt != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: systemPrompt})
	}
	return blocks
}

// convertError converts Anthropic SDK errors to llm.Error types.
func (a *AnthropicAdapter) convertError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return llm.NewProviderError("Anthropic API error", apiErr.StatusCode, []byte(apiErr.RawJSON()), err, a.profile.Secrets()...)
	}

	if llm.IsTransportError(err) {
		return llm.NewNetworkError("Anthropic request failed", err)
	}

	return llm.NewProviderError("unexpected response shape", http.StatusOK, []byte(err.Error()), err, a.profile.Secrets()...)
}

var _ llm.Adapter = (*AnthropicAdapter)(nil)
