package platform

import (
	"encoding/json"
	"maps"

	"github.com/aschepis/llmchat/llm"
	"github.com/samber/lo"
)

// Message is one entry of the platform's messages array.
type Message struct {
	IsUser bool   `json:"is_user"`
	Text   string `json:"text"`
}

type chatRequest struct {
	DeploymentID        string         `json:"deploymentId"`
	DeploymentToken     string         `json:"deploymentToken,omitempty"`
	Messages            []Message      `json:"messages"`
	SystemMessage       string         `json:"systemMessage,omitempty"`
	Temperature         float64        `json:"temperature"`
	NumCompletionTokens int            `json:"numCompletionTokens"`
	Extra               map[string]any `json:"-"`
}

// MarshalJSON merges provider-specific extra parameters into the body.
// Documented fields win over extras with the same key.
func (r chatRequest) MarshalJSON() ([]byte, error) {
	type plain chatRequest
	base, err := json.Marshal(plain(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	var fields map[string]any
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	merged := maps.Clone(r.Extra)
	maps.Copy(merged, fields)
	return json.Marshal(merged)
}

// ToMessage converts a turn into the platform's {is_user, text} shape.
// Attachments are rendered into the text.
func ToMessage(turn llm.Turn) Message {
	return Message{
		IsUser: turn.Role == llm.RoleUser,
		Text:   turn.Text(),
	}
}

// ToMessages converts a slice of turns.
func ToMessages(turns []llm.Turn) []Message {
	return lo.Map(turns, func(t llm.Turn, _ int) Message {
		return ToMessage(t)
	})
}
