package exec

import (
	"fmt"
	"strings"

	"github.com/jonwraymond/toolpilot/capability"
	"github.com/jonwraymond/toolpilot/dialogue"
)

// SystemPrompt builds the system turn listing caps and the call format of d.
func SystemPrompt(caps []capability.Descriptor, d dialogue.Dialect) string {
	var b strings.Builder
	b.WriteString("You are a network diagnostics assistant operating a Linux host.\n\nAVAILABLE TOOLS:\n")
	for _, c := range caps {
		label := c.Name
		if c.Risk == capability.RiskSensitive {
			label += " (sensitive)"
		}
		desc := c.Description
		if c.Usage != "" {
			desc += " - " + c.Usage
		}
		fmt.Fprintf(&b, "- %s: %s\n", label, strings.TrimPrefix(desc, " - "))
	}

	b.WriteString("\nINSTRUCTIONS:\n")
	b.WriteString("1. When the user asks to run a command or check something on the network, respond with a tool call.\n")
	if d == dialogue.DialectLegacy {
		b.WriteString("2. Format: <EXECUTE_TOOL>tool_name|arguments</EXECUTE_TOOL> (one call per reply)\n")
	} else {
		b.WriteString(`2. Format: <TOOL_CALLS>[{"capability":"tool_name","arguments":"...","timeout_seconds":30}]</TOOL_CALLS>` + "\n")
		b.WriteString("   List several calls to run them in order.\n")
	}
	b.WriteString("3. Only use tools from the list. Answer questions that need no command directly.\n")
	b.WriteString("4. After results arrive, provide a short security analysis and suggest next steps.\n")

	b.WriteString("\nEXAMPLE:\nUser: \"Check DNS for example.com\"\nResponse: ")
	if d == dialogue.DialectLegacy {
		b.WriteString("<EXECUTE_TOOL>nslookup|example.com</EXECUTE_TOOL>")
	} else {
		b.WriteString(`<TOOL_CALLS>[{"capability":"nslookup","arguments":"example.com"}]</TOOL_CALLS>`)
	}
	return b.String()
}
