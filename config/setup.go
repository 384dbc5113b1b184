package config

import (
	"context"
	"errors"
	"io"

	"github.com/aschepis/llmchat/chat"
	"github.com/aschepis/llmchat/conversations"
	"github.com/aschepis/llmchat/logger"
	"github.com/rs/zerolog"
)

// Logger builds the logger described by the log section.
func (c *Config) Logger() (zerolog.Logger, io.Closer) {
	return logger.New(logger.Options{
		File:   expandPath(c.Log.File),
		Pretty: c.Log.Pretty,
		Level:  c.Log.Level,
	})
}

// Session is a chat client together with the resources it owns.
type Session struct {
	Client *chat.Client
	Store  *conversations.Store // nil when transcripts are disabled
}

// Close releases the transcript store, if any.
func (s *Session) Close() error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Close()
}

// NewSession wires the registry, attachment reader, adapter factory and optional
// transcript store into a chat client. conversationID resumes a stored conversation;
// empty starts a new one.
func (c *Config) NewSession(ctx context.Context, log zerolog.Logger, conversationID string, opts ...chat.Option) (*Session, error) {
	registry, err := c.Registry()
	if err != nil {
		return nil, err
	}
	reader, err := c.AttachmentReader()
	if err != nil {
		return nil, err
	}

	session := &Session{}
	clientOpts := []chat.Option{
		chat.WithAttachmentReader(reader),
		chat.WithLogger(log),
	}
	if c.Transcripts != "" {
		store, err := conversations.Open(ctx, expandPath(c.Transcripts), log)
		if err != nil {
			return nil, err
		}
		session.Store = store
		clientOpts = append(clientOpts, chat.WithRecorder(store, conversationID))
	}

	client, err := chat.NewClient(registry, AdapterFactory(c.AdapterOptions(log)), append(clientOpts, opts...)...)
	if err != nil {
		return nil, errors.Join(err, session.Close())
	}
	session.Client = client
	log.Debug().
		Str("attachmentRoot", reader.Root()).
		Str("conversationID", client.ConversationID()).
		Msg("Chat session ready")

	if session.Store != nil && conversationID != "" {
		turns, err := session.Store.Load(ctx, conversationID)
		if err != nil {
			return nil, errors.Join(err, session.Close())
		}
		if err := client.Restore(turns); err != nil {
			return nil, errors.Join(err, session.Close())
		}
	}
	return session, nil
}
