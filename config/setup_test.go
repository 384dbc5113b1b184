package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession_RecordsAndResumes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model": "llama3", "message": {"role": "assistant", "content": "hello back"}, "done": true}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	cfg, err := Parse([]byte(`
default_model: local
transcripts: ` + filepath.Join(dir, "transcripts.db") + `
attachments:
  root: ` + dir + `
models:
  local:
    provider: ollama
    model: llama3
    base_url: ` + server.URL + `
`))
	require.NoError(t, err)

	ctx := context.Background()
	session, err := cfg.NewSession(ctx, zerolog.Nop(), "")
	require.NoError(t, err)
	_, err = session.Client.SendMessage(ctx, "hi")
	require.NoError(t, err)
	id := session.Client.ConversationID()
	require.NotEmpty(t, id)
	require.NoError(t, session.Close())

	resumed, err := cfg.NewSession(ctx, zerolog.Nop(), id)
	require.NoError(t, err)
	defer func() { _ = resumed.Close() }()
	assert.Equal(t, []string{"user: hi", "assistant: hello back"}, resumed.Client.Transcript())
}

func TestNewSession_WithoutTranscripts(t *testing.T) {
	cfg := Defaults()
	cfg.Attachments.Root = t.TempDir()

	session, err := cfg.NewSession(context.Background(), zerolog.Nop(), "")
	require.NoError(t, err)
	assert.Nil(t, session.Store)
	assert.Empty(t, session.Client.ConversationID())
	assert.NoError(t, session.Close())
}

func TestConfigLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.log")
	cfg := Defaults()
	cfg.Log = LogConfig{Level: "debug", File: path}

	log, closer := cfg.Logger()
	log.Debug().Msg("configured")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "configured"))
}
