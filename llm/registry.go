package llm

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Provider identifies the backend a model profile talks to.
type Provider string

const (
	ProviderPlatform  Provider = "platform"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4000
)

// ParseProvider converts a provider string into a Provider.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderPlatform, ProviderOpenAI, ProviderAnthropic, ProviderOllama:
		return p, nil
	default:
		return "", NewConfigurationError(fmt.Sprintf("unknown provider %q", s), nil)
	}
}

// ModelProfile is the resolved configuration for one named model.
type ModelProfile struct {
	Provider        Provider
	Model           string
	APIKey          string
	DeploymentID    string
	DeploymentToken string
	BaseURL         string
	Temperature     float64
	MaxTokens       int
	Extra           map[string]any
}

// ProfileOption customizes a ModelProfile built by NewModelProfile.
type ProfileOption func(*ModelProfile)

// WithAPIKey sets the API key.
func WithAPIKey(key string) ProfileOption {
	return func(p *ModelProfile) { p.APIKey = key }
}

// WithDeployment sets the hosted-platform deployment identifier and secret.
func WithDeployment(id, token string) ProfileOption {
	return func(p *ModelProfile) {
		p.DeploymentID = id
		p.DeploymentToken = token
	}
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(url string) ProfileOption {
	return func(p *ModelProfile) { p.BaseURL = url }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ProfileOption {
	return func(p *ModelProfile) { p.Temperature = t }
}

// WithMaxTokens sets the output token limit.
func WithMaxTokens(n int) ProfileOption {
	return func(p *ModelProfile) { p.MaxTokens = n }
}

// WithExtra adds a provider-specific parameter.
func WithExtra(key string, value any) ProfileOption {
	return func(p *ModelProfile) {
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[key] = value
	}
}

// NewModelProfile builds a profile with the default sampling parameters applied.
func NewModelProfile(provider Provider, model string, opts ...ProfileOption) ModelProfile {
	p := ModelProfile{
		Provider:    provider,
		Model:       model,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Clone returns a copy that shares no mutable state with p.
func (p ModelProfile) Clone() ModelProfile {
	p.Extra = maps.Clone(p.Extra)
	return p
}

// Secrets returns the credential values carried by the profile, for scrubbing.
func (p ModelProfile) Secrets() []string {
	return lo.Compact([]string{p.APIKey, p.DeploymentToken})
}

// Validate checks that the profile carries the credentials its provider needs.
func (p ModelProfile) Validate() error {
	switch p.Provider {
	case ProviderPlatform:
		if p.APIKey == "" && p.DeploymentToken == "" {
			return NewConfigurationError("platform profile requires an API key or a deployment token", nil)
		}
		if p.DeploymentID == "" {
			return NewConfigurationError("platform profile requires a deployment id", nil)
		}
	case ProviderOpenAI, ProviderAnthropic:
		if p.APIKey == "" {
			return NewConfigurationError(fmt.Sprintf("%s profile requires an API key", p.Provider), nil)
		}
		if p.Model == "" {
			return NewConfigurationError(fmt.Sprintf("%s profile requires a model", p.Provider), nil)
		}
	case ProviderOllama:
		if p.Model == "" {
			return NewConfigurationError("ollama profile requires a model", nil)
		}
	default:
		return NewConfigurationError(fmt.Sprintf("unknown provider %q", p.Provider), nil)
	}
	return nil
}

// Registry maps model names to profiles and tracks the default model.
// It is safe for concurrent use and is meant to be shared between chat clients.
type Registry struct {
	mu           sync.RWMutex
	profiles     map[string]ModelProfile
	defaultModel string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]ModelProfile)}
}

// Register inserts or overwrites a profile. Credentials are not validated here so
// configuration can be staged; validation happens on Resolve.
func (r *Registry) Register(name string, profile ModelProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[name] = profile.Clone()
}

// SetDefault sets the model used when Resolve is called with an empty name.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[name]; !ok {
		return NewConfigurationError(fmt.Sprintf("unknown model %q", name), nil)
	}
	r.defaultModel = name
	return nil
}

// Default returns the current default model name.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultModel
}

// Resolve returns the validated profile registered under name, or under the default
// model when name is empty.
func (r *Registry) Resolve(name string) (ModelProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultModel
	}
	if name == "" {
		return ModelProfile{}, NewConfigurationError("no model name given and no default model set", nil)
	}

	profile, ok := r.profiles[name]
	if !ok {
		return ModelProfile{}, NewConfigurationError(
			fmt.Sprintf("unknown model %q (available: %v)", name, r.namesUnlocked()), nil)
	}
	if err := profile.Validate(); err != nil {
		return ModelProfile{}, fmt.Errorf("model %q: %w", name, err)
	}
	return profile.Clone(), nil
}

// List returns a snapshot of model names and their providers.
func (r *Registry) List() map[string]Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.MapValues(r.profiles, func(p ModelProfile, _ string) Provider {
		return p.Provider
	})
}

// namesUnlocked must be called with r.mu held.
func (r *Registry) namesUnlocked() []string {
	names := lo.Keys(r.profiles)
	slices.Sort(names)
	return names
}
