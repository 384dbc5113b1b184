// Package anthropic implements llm.Adapter on top of the Anthropic Go SDK.
package anthropic

import (
	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/aschepis/llmchat/llm"
)

// ToMessageParam converts a user or assistant turn to an Anthropic MessageParam.
// Attachments are rendered into the text block.
func ToMessageParam(turn llm.Turn) anthropic.MessageParam {
	block := anthropic.NewTextBlock(turn.Text())
	if turn.Role == llm.RoleAssistant {
		return anthropic.NewAssistantMessage(block)
	}
	return anthropic.NewUserMessage(block)
}

// ToMessageParams converts turns to Anthropic MessageParams. The messages API has no
// system role, so system turns are returned separately for the system blocks.
func ToMessageParams(turns []llm.Turn) ([]anthropic.MessageParam, []string) {
	msgs := make([]anthropic.MessageParam, 0, len(turns))
	var system []string
	for _, turn := range turns {
		if turn.Role == llm.RoleSystem {
			system = append(system, turn.Text())
			continue
		}
		msgs = append(msgs, ToMessageParam(turn))
	}
	return msgs, system
}
