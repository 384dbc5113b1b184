// Package platform implements the llm.Adapter for the hosted-model platform's
// getChatResponse endpoint.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aschepis/llmchat/llm"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// DefaultBaseURL is the platform API root used when the profile has no override.
	DefaultBaseURL = "https://api.abacus.ai/api/v0"

	// DefaultTimeout bounds one round trip when no timeout is configured.
	DefaultTimeout = 60 * time.Second

	chatPath = "/getChatResponse"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 10 * 1024 * 1024
)

// Options configures the adapter transport.
type Options struct {
	HTTPClient *http.Client  // optional; a client with Timeout is created otherwise
	Timeout    time.Duration // ignored when HTTPClient is set
	Logger     zerolog.Logger
}

// Adapter implements llm.Adapter for the hosted platform.
type Adapter struct {
	profile    llm.ModelProfile
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewAdapter creates a platform adapter for the given profile.
// The profile must carry a deployment id and either an API key or a deployment token.
func NewAdapter(profile llm.ModelProfile, opts Options) (*Adapter, error) {
	if profile.Provider != llm.ProviderPlatform {
		return nil, llm.NewConfigurationError(fmt.Sprintf("platform adapter cannot serve provider %q", profile.Provider), nil)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	baseURL := profile.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Adapter{
		profile:    profile.Clone(),
		endpoint:   strings.TrimRight(baseURL, "/") + chatPath,
		httpClient: httpClient,
		logger:     opts.Logger.With().Str("component", "platformAdapter").Logger(),
	}, nil
}

// Provider implements llm.Adapter.Provider.
func (a *Adapter) Provider() llm.Provider {
	return llm.ProviderPlatform
}

// Send implements llm.Adapter.Send.
func (a *Adapter) Send(ctx context.Context, req *llm.Request) (*llm.Result, error) {
	if req == nil {
		return nil, llm.NewValidationError("request is required", nil)
	}

	payload, err := json.Marshal(a.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal platform request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, llm.NewConfigurationError("invalid platform endpoint", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.profile.APIKey != "" {
		httpReq.Header.Set("apiKey", a.profile.APIKey)
	}

	a.logger.Debug().
		Str("deployment", a.profile.DeploymentID).
		Int("messages", len(req.History)+1).
		Msg("Sending platform chat request")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.NewNetworkError("platform request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, llm.NewNetworkError("failed to read platform response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, llm.NewProviderError("platform API error", resp.StatusCode, body, nil, a.profile.Secrets()...)
	}

	return a.parseResponse(resp.StatusCode, body)
}

// buildRequest maps the provider-neutral request onto the platform wire format.
func (a *Adapter) buildRequest(req *llm.Request) chatRequest {
	out := chatRequest{
		DeploymentID:        a.profile.DeploymentID,
		DeploymentToken:     a.profile.DeploymentToken,
		Messages:            ToMessages(req.Turns()),
		SystemMessage:       req.System,
		Temperature:         a.profile.Temperature,
		NumCompletionTokens: a.profile.MaxTokens,
		Extra:               a.profile.Extra,
	}
	return out
}

// parseResponse extracts the reply from {"result": {"messages": [...]}}.
// The reply is the text of the last message.
func (a *Adapter) parseResponse(status int, body []byte) (*llm.Result, error) {
	secrets := a.profile.Secrets()
	if !gjson.ValidBytes(body) {
		return nil, llm.NewUnexpectedResponseError(status, body, secrets...)
	}

	if success := gjson.GetBytes(body, "success"); success.Exists() && !success.Bool() {
		msg := gjson.GetBytes(body, "error").String()
		if msg == "" {
			msg = "platform reported failure"
		}
		return nil, llm.NewProviderError(llm.TruncateBody(llm.ScrubSecrets(msg, secrets...)), status, body, nil, secrets...)
	}

	messages := gjson.GetBytes(body, "result.messages")
	if !messages.IsArray() || len(messages.Array()) == 0 {
		return nil, llm.NewUnexpectedResponseError(status, body, secrets...)
	}
	all := messages.Array()
	text := all[len(all)-1].Get("text")
	if !text.Exists() || text.Type != gjson.String {
		return nil, llm.NewUnexpectedResponseError(status, body, secrets...)
	}

	return &llm.Result{
		Content:  text.String(),
		Model:    a.profile.Model,
		Provider: llm.ProviderPlatform,
		Raw:      json.RawMessage(body),
	}, nil
}

var _ llm.Adapter = (*Adapter)(nil)
