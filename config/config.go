package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/aschepis/llmchat/attachment"
	"github.com/aschepis/llmchat/llm"
	"gopkg.in/yaml.v3"
)

// DefaultModel is the model used when the configuration does not name one.
const DefaultModel = "platform-gpt5"

// ModelConfig represents one named model in the configuration file.
type ModelConfig struct {
	Provider        string         `yaml:"provider"`                   // "platform", "openai", "anthropic" or "ollama"
	Model           string         `yaml:"model,omitempty"`            // Provider model identifier
	APIKey          string         `yaml:"api_key,omitempty"`          // Provider API key
	DeploymentID    string         `yaml:"deployment_id,omitempty"`    // Hosted platform deployment
	DeploymentToken string         `yaml:"deployment_token,omitempty"` // Hosted platform deployment secret
	BaseURL         string         `yaml:"base_url,omitempty"`         // Endpoint override
	Temperature     *float64       `yaml:"temperature,omitempty"`      // Default: 0.7
	MaxTokens       int            `yaml:"max_tokens,omitempty"`       // Default: 4000
	Extra           map[string]any `yaml:"extra,omitempty"`            // Provider-specific parameters
}

// AttachmentConfig configures the attachment reader.
type AttachmentConfig struct {
	Root     string `yaml:"root,omitempty"`      // Directory attachments are confined to (default: ".")
	MaxBytes int64  `yaml:"max_bytes,omitempty"` // Size ceiling per file (default: 1 MiB)
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error or trace
	File   string `yaml:"file,omitempty"`   // Log file path; stdout when empty
	Pretty bool   `yaml:"pretty,omitempty"` // Human-readable console output
}

// Config is the complete client configuration.
type Config struct {
	DefaultModel   string                  `yaml:"default_model,omitempty"`
	RequestTimeout int                     `yaml:"request_timeout,omitempty"` // Seconds per provider round trip
	Transcripts    string                  `yaml:"transcripts,omitempty"`     // SQLite database path; empty disables recording
	Attachments    AttachmentConfig        `yaml:"attachments,omitempty"`
	Log            LogConfig               `yaml:"log,omitempty"`
	Models         map[string]*ModelConfig `yaml:"models,omitempty"`
}

// DefaultProfiles returns the built-in model names with empty credentials.
func DefaultProfiles() map[string]*ModelConfig {
	return map[string]*ModelConfig{
		"platform-gpt5":    {Provider: string(llm.ProviderPlatform), Model: "gpt-5", BaseURL: "https://api.abacus.ai/api/v0"},
		"openai-gpt4":      {Provider: string(llm.ProviderOpenAI), Model: "gpt-4"},
		"openai-gpt5":      {Provider: string(llm.ProviderOpenAI), Model: "gpt-5"},
		"anthropic-claude": {Provider: string(llm.ProviderAnthropic), Model: "claude-3-sonnet-20240229"},
	}
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		DefaultModel:   DefaultModel,
		RequestTimeout: 60,
		Attachments: AttachmentConfig{
			Root:     ".",
			MaxBytes: attachment.DefaultMaxBytes,
		},
		Log: LogConfig{
			Level: "info",
		},
		Models: DefaultProfiles(),
	}
}

// ConfigPathEnv overrides the default config file path.
const ConfigPathEnv = "LLMCHAT_CONFIG_PATH"

// GetConfigPath returns the default config file path.
// Can be overridden via the LLMCHAT_CONFIG_PATH environment variable.
func GetConfigPath() string {
	if envPath := os.Getenv(ConfigPathEnv); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.llmchat/config.yaml"
	}
	return filepath.Join(homeDir, ".llmchat", "config.yaml")
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// Load reads the configuration at path and merges it over the defaults.
// An empty path means GetConfigPath(). Returns defaults if the file doesn't exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	expandedPath := expandPath(path)
	if _, err := os.Stat(expandedPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Defaults(), nil
		}
		return nil, llm.NewConfigurationError(fmt.Sprintf("config file %q is not accessible", expandedPath), err)
	}

	configYAML, err := os.ReadFile(expandedPath) //#nosec 304 -- intentional file read for config
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", expandedPath, err)
	}
	return Parse(configYAML)
}

// Parse decodes YAML and merges it over the defaults. Models present in both are merged
// field by field, so a file only needs to carry credentials for a built-in model.
func Parse(data []byte) (*Config, error) {
	defaults := Defaults()

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, llm.NewConfigurationError("failed to parse config", err)
	}

	models := cfg.Models
	cfg.Models = nil
	if err := mergo.Merge(defaults, cfg, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	for name, model := range models {
		if model == nil {
			continue
		}
		base, ok := defaults.Models[name]
		if !ok {
			defaults.Models[name] = model
			continue
		}
		if err := mergo.Merge(base, model, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge model %q: %w", name, err)
		}
	}

	return defaults, nil
}

// Save writes the configuration to path.
func Save(cfg *Config, path string) error {
	expandedPath := expandPath(path)

	// Ensure directory exists
	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.RequestTimeout) * time.Second
}

// Profile converts one model entry into a profile.
func (m *ModelConfig) Profile() (llm.ModelProfile, error) {
	provider, err := llm.ParseProvider(m.Provider)
	if err != nil {
		return llm.ModelProfile{}, err
	}

	opts := []llm.ProfileOption{
		llm.WithAPIKey(m.APIKey),
		llm.WithDeployment(m.DeploymentID, m.DeploymentToken),
		llm.WithBaseURL(m.BaseURL),
	}
	if m.Temperature != nil {
		opts = append(opts, llm.WithTemperature(*m.Temperature))
	}
	if m.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(m.MaxTokens))
	}
	for k, v := range m.Extra {
		opts = append(opts, llm.WithExtra(k, v))
	}
	return llm.NewModelProfile(provider, m.Model, opts...), nil
}

// Registry builds a model registry from the configured models.
// Credentials are not checked here; they are validated when a model is resolved.
func (c *Config) Registry() (*llm.Registry, error) {
	registry := llm.NewRegistry()
	for name, model := range c.Models {
		if model == nil {
			continue
		}
		profile, err := model.Profile()
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", name, err)
		}
		registry.Register(name, profile)
	}

	defaultModel := c.DefaultModel
	if defaultModel == "" {
		defaultModel = DefaultModel
	}
	if err := registry.SetDefault(defaultModel); err != nil {
		return nil, err
	}
	return registry, nil
}

// AttachmentReader builds the attachment reader described by the configuration.
func (c *Config) AttachmentReader() (*attachment.Reader, error) {
	return attachment.NewReader(expandPath(c.Attachments.Root), attachment.WithMaxBytes(c.Attachments.MaxBytes))
}
