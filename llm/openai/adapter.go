// Package openai implements llm.Adapter on top of the go-openai SDK.
package openai

import (
	"github.com/aschepis/llmchat/llm"
	"github.com/samber/lo"
	openai "github.com/sashabaranov/go-openai"
)

// ToOpenAIMessages converts turns to OpenAI chat message format.
func ToOpenAIMessages(turns []llm.Turn) []openai.ChatCompletionMessage {
	return lo.Map(turns, func(t llm.Turn, _ int) openai.ChatCompletionMessage {
		return ToOpenAIMessage(t)
	})
}

// ToOpenAIMessage converts a single turn to OpenAI format.
// Attachments are rendered into the content.
func ToOpenAIMessage(turn llm.Turn) openai.ChatCompletionMessage {
	var role string
	switch turn.Role {
	case llm.RoleAssistant:
		role = openai.ChatMessageRoleAssistant
	case llm.RoleSystem:
		role = openai.ChatMessageRoleSystem
	default:
		role = openai.ChatMessageRoleUser
	}

	return openai.ChatCompletionMessage{
		Role:    role,
		Content: turn.Text(),
	}
}
