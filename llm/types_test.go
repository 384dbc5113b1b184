package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"user", "assistant", "system", " User "} {
		if _, err := ParseRole(s); err != nil {
			t.Errorf("Expected %q to parse, got %v", s, err)
		}
	}
	if _, err := ParseRole("tool"); !IsValidationError(err) {
		t.Errorf("Expected validation error for 'tool', got %v", err)
	}
}

func TestTurnText(t *testing.T) {
	plain := NewTurn(RoleUser, "Hello, world!")
	if plain.Text() != "Hello, world!" {
		t.Errorf("Expected plain text, got %q", plain.Text())
	}

	withFiles := NewTurn(RoleUser, "Summarize", Fragment{
		Name:     "notes.txt",
		Kind:     FragmentKindText,
		Content:  "abc",
		Rendered: "### notes.txt\n```\nabc\n```",
	})
	text := withFiles.Text()
	if !strings.HasPrefix(text, "Summarize\n\n## Attached Files:\n") {
		t.Errorf("Unexpected attachment header in %q", text)
	}
	if !strings.HasSuffix(text, "### notes.txt\n```\nabc\n```") {
		t.Errorf("Expected rendered fragment at the end of %q", text)
	}
}

func TestTurnText_MultipleAttachmentsLayout(t *testing.T) {
	turn := NewTurn(RoleUser, "Compare",
		Fragment{Name: "a.json", Rendered: "### a.json\n```json\n{}\n```"},
		Fragment{Name: "b.txt", Rendered: "### b.txt\n```\nb\n```"},
	)
	expected := "Compare\n\n## Attached Files:\n\n" +
		"### a.json\n```json\n{}\n```\n\n" +
		"### b.txt\n```\nb\n```"
	if got := turn.Text(); got != expected {
		t.Errorf("Unexpected layout:\n%q\nexpected:\n%q", got, expected)
	}
}

func TestCloneTurnsIsDeep(t *testing.T) {
	turns := []Turn{NewTurn(RoleUser, "hi", Fragment{Name: "a"})}
	clone := CloneTurns(turns)
	clone[0].Attachments[0].Name = "b"
	if turns[0].Attachments[0].Name != "a" {
		t.Error("Expected CloneTurns to copy attachments")
	}
}

func TestRequestTurns(t *testing.T) {
	req := &Request{
		History: []Turn{NewTurn(RoleUser, "one"), NewTurn(RoleAssistant, "two")},
		Message: NewTurn(RoleUser, "three"),
	}
	turns := req.Turns()
	if len(turns) != 3 || turns[2].Content != "three" {
		t.Errorf("Unexpected turns %v", turns)
	}
}

type stubAdapter struct {
	res *Result
	err error
}

func (s stubAdapter) Send(ctx context.Context, req *Request) (*Result, error) {
	return s.res, s.err
}

func (s stubAdapter) Provider() Provider { return ProviderOllama }

func TestWrapWithMiddleware(t *testing.T) {
	var calls []string
	mw := MiddlewareFunc{
		BeforeSendFunc: func(ctx context.Context, req *Request) (*Request, error) {
			calls = append(calls, "before")
			return req, nil
		},
		AfterSendFunc: func(ctx context.Context, req *Request, res *Result) (*Result, error) {
			calls = append(calls, "after")
			res.Content = strings.ToUpper(res.Content)
			return res, nil
		},
	}

	adapter := WrapWithMiddleware(stubAdapter{res: &Result{Content: "ok"}}, mw)
	res, err := adapter.Send(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if res.Content != "OK" {
		t.Errorf("Expected middleware to rewrite content, got %q", res.Content)
	}
	if strings.Join(calls, ",") != "before,after" {
		t.Errorf("Unexpected middleware order %v", calls)
	}
	if adapter.Provider() != ProviderOllama {
		t.Errorf("Expected wrapped provider, got %q", adapter.Provider())
	}
}

func TestWrapWithMiddlewareOnError(t *testing.T) {
	original := NewNetworkError("down", errors.New("refused"))
	var seen error
	mw := MiddlewareFunc{
		OnErrorFunc: func(ctx context.Context, req *Request, err error) error {
			seen = err
			return nil
		},
	}

	_, err := WrapWithMiddleware(stubAdapter{err: original}, mw).Send(context.Background(), &Request{})
	if !errors.Is(err, original) {
		t.Errorf("Expected original error when middleware returns nil, got %v", err)
	}
	if seen != original {
		t.Error("Expected OnError to observe the adapter error")
	}
}

func TestDebugCallback(t *testing.T) {
	Debug(context.Background(), "ignored")

	var got string
	ctx := WithDebugCallback(context.Background(), func(msg string) { got = msg })
	Debug(ctx, "hello")
	if got != "hello" {
		t.Errorf("Expected callback to receive 'hello', got %q", got)
	}

	if _, ok := DebugCallback(WithDebugCallback(context.Background(), nil)); ok {
		t.Error("Expected nil callback to be reported as unset")
	}
}
