package attachment

import (
	"strings"

	"github.com/aschepis/llmchat/llm"
)

func newFragment(path, name string, kind llm.FragmentKind, content string) llm.Fragment {
	return llm.Fragment{
		Path:     path,
		Name:     name,
		Kind:     kind,
		Content:  content,
		Rendered: Render(name, kind, content),
	}
}

// Render formats one attachment as a markdown heading followed by a fenced block.
func Render(name string, kind llm.FragmentKind, content string) string {
	var b strings.Builder
	b.WriteString("### ")
	b.WriteString(name)
	b.WriteString("\n```")
	if kind == llm.FragmentKindJSON {
		b.WriteString("json")
	}
	b.WriteString("\n")
	b.WriteString(content)
	b.WriteString("\n```")
	return b.String()
}
