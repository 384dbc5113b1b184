// Package chat implements a conversation client that keeps an in-memory history and
// dispatches each new turn through the adapter of the resolved model.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aschepis/llmchat/attachment"
	"github.com/aschepis/llmchat/llm"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Recorder persists completed turns of a conversation.
type Recorder interface {
	Record(ctx context.Context, conversationID string, turns ...llm.Turn) error
}

// Client holds one conversation. Its history is never shared with other clients.
//
// Sends on one Client are serialized: a call made while another is in flight waits
// for it to finish, so history appends always follow completion order.
type Client struct {
	registry *llm.Registry
	factory  llm.AdapterFactory
	model    string
	reader   *attachment.Reader
	logger   zerolog.Logger

	recorder       Recorder
	conversationID string

	mu      sync.Mutex
	history []llm.Turn
}

// Option customizes a Client.
type Option func(*Client)

// WithModel selects the registered model name. Empty means the registry default.
func WithModel(name string) Option {
	return func(c *Client) { c.model = name }
}

// WithAttachmentReader sets the reader used for attachment paths.
func WithAttachmentReader(r *attachment.Reader) Option {
	return func(c *Client) { c.reader = r }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRecorder records every completed exchange under conversationID. An empty id
// starts a new conversation with a generated id.
func WithRecorder(rec Recorder, conversationID string) Option {
	return func(c *Client) {
		c.recorder = rec
		c.conversationID = conversationID
	}
}

// NewClient creates a chat client. The registry may be shared between clients.
func NewClient(registry *llm.Registry, factory llm.AdapterFactory, opts ...Option) (*Client, error) {
	if registry == nil {
		return nil, llm.NewConfigurationError("registry is required", nil)
	}
	if factory == nil {
		return nil, llm.NewConfigurationError("adapter factory is required", nil)
	}

	c := &Client{
		registry: registry,
		factory:  factory,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.recorder != nil && c.conversationID == "" {
		c.conversationID = uuid.NewString()
	}
	c.logger = c.logger.With().Str("component", "chatClient").Logger()

	if c.reader == nil {
		reader, err := attachment.NewReader("")
		if err != nil {
			return nil, err
		}
		c.reader = reader
	}
	return c, nil
}

// Model returns the configured model name (empty for the registry default).
func (c *Client) Model() string {
	return c.model
}

// ConversationID returns the id exchanges are recorded under, if a recorder is set.
func (c *Client) ConversationID() string {
	return c.conversationID
}

type sendOptions struct {
	attachments    []string
	systemPrompt   string
	excludeHistory bool
}

// SendOption customizes a single SendMessage call.
type SendOption func(*sendOptions)

// WithAttachments attaches files to the outgoing turn.
func WithAttachments(paths ...string) SendOption {
	return func(o *sendOptions) { o.attachments = append(o.attachments, paths...) }
}

// WithSystemPrompt sends a system prompt with this request only. It is not stored
// in the history.
func WithSystemPrompt(prompt string) SendOption {
	return func(o *sendOptions) { o.systemPrompt = prompt }
}

// WithoutHistory sends only the new turn, without prior history.
func WithoutHistory() SendOption {
	return func(o *sendOptions) { o.excludeHistory = true }
}

// SendMessage sends text as a user turn and returns the reply.
// On success the user turn and the assistant reply are appended to the history, in
// that order. On any failure the history is left unchanged.
func (c *Client) SendMessage(ctx context.Context, text string, opts ...SendOption) (*llm.Result, error) {
	var o sendOptions
	for _, opt := range opts {
		opt(&o)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	profile, err := c.registry.Resolve(c.model)
	if err != nil {
		return nil, err
	}

	fragments, err := c.reader.ReadAll(o.attachments)
	if err != nil {
		return nil, err
	}

	adapter, err := c.factory(profile)
	if err != nil {
		return nil, err
	}
	adapter = llm.WrapWithMiddleware(adapter, newLoggingMiddleware(c.logger, profile))

	req := &llm.Request{
		Message: llm.NewTurn(llm.RoleUser, text, fragments...),
		System:  o.systemPrompt,
	}
	if !o.excludeHistory {
		req.History = llm.CloneTurns(c.history)
	}

	res, err := adapter.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, llm.NewProviderError("adapter returned no result", 0, nil, nil)
	}
	if res.Provider == "" {
		res.Provider = profile.Provider
	}
	if res.Model == "" {
		res.Model = profile.Model
	}

	reply := res.Turn()
	c.history = append(c.history, req.Message, reply)
	c.record(ctx, req.Message, reply)

	return res, nil
}

// AddMessage appends a turn directly, without any network call.
func (c *Client) AddMessage(role, content string, attachments ...string) error {
	r, err := llm.ParseRole(role)
	if err != nil {
		return err
	}
	fragments, err := c.reader.ReadAll(attachments)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, llm.NewTurn(r, content, fragments...))
	return nil
}

// Restore appends previously recorded turns, for example a transcript loaded from
// storage. Nothing is appended if any turn has an invalid role.
func (c *Client) Restore(turns []llm.Turn) error {
	restored := llm.CloneTurns(turns)
	for i := range restored {
		r, err := llm.ParseRole(string(restored[i].Role))
		if err != nil {
			return fmt.Errorf("turn %d: %w", i, err)
		}
		restored[i].Role = r
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, restored...)
	return nil
}

// ClearHistory empties the history.
func (c *Client) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}

// History returns a copy of the conversation so far.
func (c *Client) History() []llm.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return llm.CloneTurns(c.history)
}

// Len returns the number of turns in the history.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

// Transcript returns the history rendered as role-prefixed lines.
func (c *Client) Transcript() []string {
	return lo.Map(c.History(), func(t llm.Turn, _ int) string {
		return fmt.Sprintf("%s: %s", t.Role, t.Content)
	})
}

// record hands the completed exchange to the recorder. Failures are logged only;
// the in-memory history stays authoritative.
func (c *Client) record(ctx context.Context, turns ...llm.Turn) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, c.conversationID, turns...); err != nil {
		c.logger.Warn().Err(err).Str("conversationID", c.conversationID).Msg("Failed to record conversation turns")
	}
}

// IsConfigurationProblem reports errors the caller must fix before retrying.
func IsConfigurationProblem(err error) bool {
	return llm.IsConfigurationError(err) || llm.IsValidationError(err) || llm.IsNotFoundError(err)
}

// ErrNoReply is returned by Last when the history holds no assistant turn.
var ErrNoReply = errors.New("no assistant reply in history")

// Last returns the most recent assistant turn.
func (c *Client) Last() (llm.Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	turn, _, ok := lo.FindLastIndexOf(c.history, func(t llm.Turn) bool {
		return t.Role == llm.RoleAssistant
	})
	if !ok {
		return llm.Turn{}, ErrNoReply
	}
	return turn.Clone(), nil
}
