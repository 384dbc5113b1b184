package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/aschepis/llmchat/llm"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultTimeout bounds one round trip when no timeout is configured.
const DefaultTimeout = 60 * time.Second

// Options configures the adapter transport.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// OpenAIAdapter implements the llm.Adapter interface for OpenAI's chat completions API.
type OpenAIAdapter struct {
	client  *openai.Client
	profile llm.ModelProfile
	logger  zerolog.Logger
}

// NewAdapter creates a new OpenAIAdapter for the given profile.
// If the profile has no base URL, the official API endpoint is used.
func NewAdapter(profile llm.ModelProfile, opts Options) (*OpenAIAdapter, error) {
	if profile.Provider != llm.ProviderOpenAI {
		return nil, llm.NewConfigurationError(fmt.Sprintf("openai adapter cannot serve provider %q", profile.Provider), nil)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	config := openai.DefaultConfig(profile.APIKey)

	// Set custom base URL if provided
	if profile.BaseURL != "" {
		config.BaseURL = profile.BaseURL
	}

	if org, ok := profile.Extra["organization"].(string); ok && org != "" {
		config.OrgID = org
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	config.HTTPClient = httpClient

	return &OpenAIAdapter{
		client:  openai.NewClientWithConfig(config),
		profile: profile.Clone(),
		logger:  opts.Logger.With().Str("component", "openaiAdapter").Logger(),
	}, nil
}

// Provider implements llm.Adapter.Provider.
func (a *OpenAIAdapter) Provider() llm.Provider {
	return llm.ProviderOpenAI
}

// Send implements llm.Adapter.Send.
func (a *OpenAIAdapter) Send(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	if req == nil {
		return nil, llm.NewValidationError("request is required", nil)
	}

	chatReq := a.newChatRequest(ToOpenAIMessages(req.Turns()))

	// Prepend the system prompt as a leading system message
	if req.System != "" {
		systemMsg := openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		}
		chatReq.Messages = append([]openai.ChatCompletionMessage{systemMsg}, chatReq.Messages...)
	}

	a.logger.Debug().
		Str("model", chatReq.Model).
		Int("messages", len(chatReq.Messages)).
		Msg("Sending OpenAI chat completion")

	chatResp, err := a.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, a.convertError(err)
	}

	raw, _ := json.Marshal(chatResp)
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return nil, llm.NewUnexpectedResponseError(http.StatusOK, raw, a.profile.Secrets()...)
	}

	model := chatResp.Model
	if model == "" {
		model = a.profile.Model
	}

	return &llm.Result{
		Content:  chatResp.Choices[0].Message.Content,
		Model:    model,
		Provider: llm.ProviderOpenAI,
		Usage: &llm.Usage{
			InputTokens:  int64(chatResp.Usage.PromptTokens),
			OutputTokens: int64(chatResp.Usage.CompletionTokens),
		},
		Raw: raw,
	}, nil
}

// reasoningPrefixes are the model families that take max_completion_tokens and a
// fixed temperature of 1.
var reasoningPrefixes = []string{"o1", "o3", "o4", "gpt-5"}

// IsReasoningModel reports whether model belongs to a reasoning model family.
func IsReasoningModel(model string) bool {
	for _, prefix := range reasoningPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// newChatRequest applies the profile's sampling parameters in the form the model
// family accepts.
func (a *OpenAIAdapter) newChatRequest(messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	chatReq := openai.ChatCompletionRequest{
		Model:    a.profile.Model,
		Messages: messages,
	}

	if IsReasoningModel(a.profile.Model) {
		chatReq.MaxCompletionTokens = a.profile.MaxTokens
		if a.profile.Temperature == 1 {
			chatReq.Temperature = 1
		} else {
			a.logger.Debug().
				Str("model", a.profile.Model).
				Float64("temperature", a.profile.Temperature).
				Msg("Omitting temperature for reasoning model")
		}
		return chatReq
	}

	chatReq.MaxTokens = a.profile.MaxTokens
	chatReq.Temperature = float32(a.profile.Temperature)
	if a.profile.Temperature == 0 {
		// temperature is omitempty; zero would otherwise fall back to the server default
		chatReq.Temperature = math.SmallestNonzeroFloat32
	}
	return chatReq
}

// convertError converts OpenAI client errors to llm.Error types.
func (a *OpenAIAdapter) convertError(err error) error {
	secrets := a.profile.Secrets()

	// Rejected locally by the client library; nothing was sent.
	for _, local := range []error{
		openai.ErrReasoningModelMaxTokensDeprecated,
		openai.ErrReasoningModelLimitationsLogprobs,
		openai.ErrReasoningModelLimitationsOther,
		openai.ErrChatCompletionInvalidModel,
		openai.ErrChatCompletionStreamNotSupported,
	} {
		if errors.Is(err, local) {
			return llm.NewConfigurationError(fmt.Sprintf("model %q rejected before sending", a.profile.Model), err)
		}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return llm.NewProviderError("OpenAI API error", apiErr.HTTPStatusCode, []byte(apiErr.Message), err, secrets...)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		body := reqErr.HTTPStatus
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return llm.NewProviderError("OpenAI API error", reqErr.HTTPStatusCode, []byte(body), err, secrets...)
	}

	if llm.IsTransportError(err) {
		return llm.NewNetworkError("OpenAI request failed", err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr) && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return llm.NewValidationError("OpenAI request could not be built", err)
	}

	// The call completed but the body could not be decoded
	return llm.NewProviderError("unexpected response shape", http.StatusOK, []byte(err.Error()), err, secrets...)
}

var _ llm.Adapter = (*OpenAIAdapter)(nil)
