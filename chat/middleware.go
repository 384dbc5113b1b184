package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/aschepis/llmchat/llm"
	"github.com/rs/zerolog"
)

// LoggingMiddleware logs each exchange with its size, latency and outcome.
// A LoggingMiddleware is built per send and is not safe for concurrent use.
type LoggingMiddleware struct {
	logger  zerolog.Logger
	profile llm.ModelProfile
	started time.Time
}

func newLoggingMiddleware(logger zerolog.Logger, profile llm.ModelProfile) *LoggingMiddleware {
	return &LoggingMiddleware{
		logger: logger.With().
			Str("component", "llmMiddleware").
			Str("provider", string(profile.Provider)).
			Str("model", profile.Model).
			Logger(),
		profile: profile,
	}
}

// BeforeSend implements llm.Middleware.BeforeSend.
func (m *LoggingMiddleware) BeforeSend(ctx context.Context, req *llm.Request) (*llm.Request, error) {
	m.started = time.Now()
	m.logger.Debug().
		Int("historyTurns", len(req.History)).
		Int("attachments", len(req.Message.Attachments)).
		Int("contextSize", getContextSize(req)).
		Msg("Sending chat request")
	llm.Debug(ctx, fmt.Sprintf("Sending %d turns to %s (%s)", len(req.History)+1, m.profile.Provider, m.profile.Model))
	return req, nil
}

// AfterSend implements llm.Middleware.AfterSend.
func (m *LoggingMiddleware) AfterSend(ctx context.Context, req *llm.Request, res *llm.Result) (*llm.Result, error) {
	event := m.logger.Info().
		Dur("latency", time.Since(m.started)).
		Int("replySize", len(res.Content))
	if res.Usage != nil {
		event = event.Int64("inputTokens", res.Usage.InputTokens).Int64("outputTokens", res.Usage.OutputTokens)
	}
	event.Msg("Chat request completed")
	llm.Debug(ctx, fmt.Sprintf("Reply received from %s in %s", m.profile.Provider, time.Since(m.started).Round(time.Millisecond)))
	return res, nil
}

// OnError implements llm.Middleware.OnError.
func (m *LoggingMiddleware) OnError(ctx context.Context, req *llm.Request, err error) error {
	if err == nil {
		return nil
	}
	m.logger.Warn().
		Err(err).
		Dur("latency", time.Since(m.started)).
		Int("status", llm.StatusCode(err)).
		Bool("retryable", llm.IsRetryableError(err)).
		Msg("Chat request failed")
	llm.Debug(ctx, fmt.Sprintf("Request to %s failed", m.profile.Provider))
	return err
}

// getContextSize counts the characters sent to the model, attachments included.
func getContextSize(req *llm.Request) int {
	total := len(req.System)
	for _, t := range req.Turns() {
		total += len(t.Text())
	}
	return total
}

var _ llm.Middleware = (*LoggingMiddleware)(nil)
