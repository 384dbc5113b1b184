package config

import (
	"fmt"
	"net/http"
	"time"

	"github.com/aschepis/llmchat/llm"
	llmanthropic "github.com/aschepis/llmchat/llm/anthropic"
	llmollama "github.com/aschepis/llmchat/llm/ollama"
	llmopenai "github.com/aschepis/llmchat/llm/openai"
	"github.com/aschepis/llmchat/llm/platform"
	"github.com/rs/zerolog"
)

// AdapterOptions are shared by every provider adapter.
type AdapterOptions struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// NewAdapter creates the adapter for the profile's provider.
func NewAdapter(profile llm.ModelProfile, opts AdapterOptions) (llm.Adapter, error) {
	switch profile.Provider {
	case llm.ProviderPlatform:
		return platform.NewAdapter(profile, platform.Options(opts))
	case llm.ProviderOpenAI:
		return llmopenai.NewAdapter(profile, llmopenai.Options(opts))
	case llm.ProviderAnthropic:
		return llmanthropic.NewAdapter(profile, llmanthropic.Options(opts))
	case llm.ProviderOllama:
		return llmollama.NewAdapter(profile, llmollama.Options(opts))
	default:
		return nil, llm.NewConfigurationError(fmt.Sprintf("unknown provider %q", profile.Provider), nil)
	}
}

// AdapterFactory returns a factory suitable for chat.NewClient.
func AdapterFactory(opts AdapterOptions) llm.AdapterFactory {
	return func(profile llm.ModelProfile) (llm.Adapter, error) {
		return NewAdapter(profile, opts)
	}
}

// AdapterOptions derives adapter options from the configuration.
func (c *Config) AdapterOptions(logger zerolog.Logger) AdapterOptions {
	return AdapterOptions{
		Timeout: c.Timeout(),
		Logger:  logger,
	}
}
