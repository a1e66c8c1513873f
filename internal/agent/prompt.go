package agent

import (
	"fmt"
	"strings"

	"github.com/coopco/toolchat/internal/tools"
)

// BuildSystemPrompt lists the available tools and the directive syntax for
// models without native tool calling. It is empty when there are no tools.
func BuildSystemPrompt(defs []tools.ToolDefinition, marker string) string {
	if len(defs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("You are a helpful assistant with access to these tools:\n")
	for _, d := range defs {
		fmt.Fprintf(&b, "- %s: %s\n  parameters: %s\n", d.Function.Name, d.Function.Description, d.Function.Parameters)
	}
	fmt.Fprintf(&b, "\nTo use a tool, reply with a line of the form:\n%s {\"name\": \"<tool>\", \"arguments\": {...}}\n", marker)
	b.WriteString("You will receive the tool result and can then answer the user. Do not invent tool results.")
	return b.String()
}
