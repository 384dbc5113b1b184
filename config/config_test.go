package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aschepis/llmchat/chat"
	"github.com/aschepis/llmchat/llm"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, cfg.DefaultModel)
	assert.Equal(t, 60*time.Second, cfg.Timeout())
	assert.Len(t, cfg.Models, 4)
}

func TestLoad_EmptyPathUsesConfigPathEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_model: openai-gpt4\n"), 0o600))
	t.Setenv(ConfigPathEnv, path)

	assert.Equal(t, path, GetConfigPath())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai-gpt4", cfg.DefaultModel)
}

func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	assert.Equal(t, "config.yaml", filepath.Base(GetConfigPath()))
	assert.Equal(t, ".llmchat", filepath.Base(filepath.Dir(GetConfigPath())))
}

func TestLoad_StatFailureIsReported(t *testing.T) {
	// a regular file used as a directory fails with ENOTDIR, not "not exist"
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	cfg, err := Load(filepath.Join(blocker, "config.yaml"))
	assert.Nil(t, cfg)
	assert.True(t, llm.IsConfigurationError(err), "got %v", err)
}

func TestParse_MergesOverDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
default_model: openai-gpt4
request_timeout: 5
models:
  openai-gpt4:
    api_key: sk-test
  local:
    provider: ollama
    model: llama3
    temperature: 0
    extra:
      top_k: 20
`))
	require.NoError(t, err)

	assert.Equal(t, "openai-gpt4", cfg.DefaultModel)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, "info", cfg.Log.Level, "unset sections keep their defaults")

	gpt4 := cfg.Models["openai-gpt4"]
	require.NotNil(t, gpt4)
	assert.Equal(t, "openai", gpt4.Provider, "provider comes from the built-in entry")
	assert.Equal(t, "gpt-4", gpt4.Model)
	assert.Equal(t, "sk-test", gpt4.APIKey)

	local := cfg.Models["local"]
	require.NotNil(t, local)
	require.NotNil(t, local.Temperature)
	assert.Zero(t, *local.Temperature)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("models: [unterminated"))
	assert.True(t, llm.IsConfigurationError(err), "got %v", err)
}

func TestRegistry(t *testing.T) {
	cfg, err := Parse([]byte(`
models:
  platform-gpt5:
    api_key: k1
    deployment_id: d1
  local:
    provider: ollama
    model: llama3
    max_tokens: 128
`))
	require.NoError(t, err)

	registry, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, registry.Default())
	assert.Equal(t, llm.ProviderOllama, registry.List()["local"])

	profile, err := registry.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderPlatform, profile.Provider)
	assert.Equal(t, "d1", profile.DeploymentID)
	assert.InDelta(t, llm.DefaultTemperature, profile.Temperature, 1e-9)

	local, err := registry.Resolve("local")
	require.NoError(t, err)
	assert.Equal(t, 128, local.MaxTokens)

	_, err = registry.Resolve("anthropic-claude")
	assert.True(t, llm.IsConfigurationError(err), "built-in model without credentials: %v", err)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	cfg, err := Parse([]byte(`
models:
  weird:
    provider: carrier-pigeon
`))
	require.NoError(t, err)
	_, err = cfg.Registry()
	assert.True(t, llm.IsConfigurationError(err), "got %v", err)
}

func TestRegistry_UnknownDefault(t *testing.T) {
	cfg := Defaults()
	cfg.DefaultModel = "nope"
	_, err := cfg.Registry()
	assert.True(t, llm.IsConfigurationError(err), "got %v", err)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Defaults()
	cfg.Models["openai-gpt5"].APIKey = "sk-saved"

	require.NoError(t, Save(cfg, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-saved", loaded.Models["openai-gpt5"].APIKey)
}

func TestAttachmentReader(t *testing.T) {
	dir := t.TempDir()
	cfg := Defaults()
	cfg.Attachments = AttachmentConfig{Root: dir, MaxBytes: 32}

	reader, err := cfg.AttachmentReader()
	require.NoError(t, err)
	assert.Equal(t, int64(32), reader.MaxBytes())

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, reader.Root())
}

func TestNewAdapter_UnknownProvider(t *testing.T) {
	_, err := NewAdapter(llm.ModelProfile{Provider: "nope"}, AdapterOptions{})
	assert.True(t, llm.IsConfigurationError(err), "got %v", err)
}

// Each provider is exercised end to end against a fixture that speaks its wire format.
func TestAdapterFactory_ProviderFixtures(t *testing.T) {
	tests := []struct {
		name     string
		provider llm.Provider
		path     string
		suffix   string
		opts     []llm.ProfileOption
		response string
	}{
		{
			name:     "platform",
			provider: llm.ProviderPlatform,
			path:     "/getChatResponse",
			opts:     []llm.ProfileOption{llm.WithAPIKey("k1"), llm.WithDeployment("d1", "")},
			response: `{"success": true, "result": {"messages": [{"is_user": false, "text": "hello back"}]}}`,
		},
		{
			name:     "openai",
			provider: llm.ProviderOpenAI,
			path:     "/v1/chat/completions",
			suffix:   "/v1",
			opts:     []llm.ProfileOption{llm.WithAPIKey("sk-test")},
			response: `{"id": "c1", "object": "chat.completion", "created": 1, "model": "m", "choices": [{"index": 0, "message": {"role": "assistant", "content": "hello back"}, "finish_reason": "stop"}], "usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}}`,
		},
		{
			name:     "anthropic",
			provider: llm.ProviderAnthropic,
			path:     "/v1/messages",
			suffix:   "/",
			opts:     []llm.ProfileOption{llm.WithAPIKey("ak-test")},
			response: `{"id": "msg_1", "type": "message", "role": "assistant", "model": "m", "content": [{"type": "text", "text": "hello back"}], "stop_reason": "end_turn", "usage": {"input_tokens": 3, "output_tokens": 2}}`,
		},
		{
			name:     "ollama",
			provider: llm.ProviderOllama,
			path:     "/api/chat",
			response: `{"model": "m", "message": {"role": "assistant", "content": "hello back"}, "done": true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, tt.path, r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			registry := llm.NewRegistry()
			opts := append([]llm.ProfileOption{llm.WithBaseURL(server.URL + tt.suffix)}, tt.opts...)
			registry.Register("m1", llm.NewModelProfile(tt.provider, "m", opts...))
			require.NoError(t, registry.SetDefault("m1"))

			factory := AdapterFactory(AdapterOptions{Timeout: 5 * time.Second, Logger: zerolog.Nop()})
			client, err := chat.NewClient(registry, factory)
			require.NoError(t, err)

			res, err := client.SendMessage(context.Background(), "hi")
			require.NoError(t, err)
			assert.Equal(t, "hello back", res.Content)
			assert.Equal(t, tt.provider, res.Provider)
			assert.Equal(t, 2, client.Len())
		})
	}
}
