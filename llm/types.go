package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Role represents the role of a turn in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole converts a role string into a Role.
// Only "system", "user" and "assistant" are accepted.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAssistant, RoleSystem:
		return r, nil
	default:
		return "", NewValidationError(fmt.Sprintf("invalid role %q", s), nil)
	}
}

// FragmentKind is the inferred handling for an attached file.
type FragmentKind string

const (
	FragmentKindJSON FragmentKind = "json"
	FragmentKindText FragmentKind = "text"
)

// Fragment is the text rendering of an attached file, ready for embedding in a Turn.
type Fragment struct {
	Path     string       `json:"path"`
	Name     string       `json:"name"`
	Kind     FragmentKind `json:"kind"`
	Content  string       `json:"content"`  // canonical JSON or verbatim text
	Rendered string       `json:"rendered"` // markdown block embedded into the prompt
}

// Turn is a single message in a conversation.
type Turn struct {
	Role        Role       `json:"role"`
	Content     string     `json:"content"`
	Attachments []Fragment `json:"attachments,omitempty"`
}

// NewTurn creates a turn with the given role, content and attachments.
func NewTurn(role Role, content string, attachments ...Fragment) Turn {
	t := Turn{Role: role, Content: content}
	if len(attachments) > 0 {
		t.Attachments = append([]Fragment(nil), attachments...)
	}
	return t
}

// Text returns the content sent to a provider: the turn content followed by the
// rendered attachment block, if any.
func (t Turn) Text() string {
	if len(t.Attachments) == 0 {
		return t.Content
	}
	parts := lo.Map(t.Attachments, func(f Fragment, _ int) string {
		return f.Rendered
	})
	return t.Content + "\n\n## Attached Files:\n\n" + strings.Join(parts, "\n\n")
}

// Clone returns a deep copy of the turn.
func (t Turn) Clone() Turn {
	return NewTurn(t.Role, t.Content, t.Attachments...)
}

// CloneTurns deep-copies a slice of turns.
func CloneTurns(turns []Turn) []Turn {
	return lo.Map(turns, func(t Turn, _ int) Turn {
		return t.Clone()
	})
}

// Request is a provider-neutral chat request handed to an Adapter.
type Request struct {
	History []Turn
	Message Turn
	System  string
}

// Turns returns the history followed by the new message.
func (r *Request) Turns() []Turn {
	turns := make([]Turn, 0, len(r.History)+1)
	turns = append(turns, r.History...)
	return append(turns, r.Message)
}

// Result is the normalized outcome of one provider call.
type Result struct {
	Content  string
	Model    string
	Provider Provider
	Usage    *Usage
	Raw      json.RawMessage // provider payload, for diagnostics
}

// Usage represents token usage information from an LLM response.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Turn converts the result into an assistant turn.
func (r *Result) Turn() Turn {
	return NewTurn(RoleAssistant, r.Content)
}
