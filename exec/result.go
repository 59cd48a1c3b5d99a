package exec

import (
	"fmt"
	"strings"

	"github.com/jonwraymond/tooldiscovery/index"

	"github.com/jonwraymond/toolpilot/runtime"
)

// Outcome is the result of one instruction round.
type Outcome struct {
	// RoundID identifies the round in logs and history.
	RoundID string `json:"round_id,omitempty"`

	// Executed is true when at least one capability was invoked.
	Executed bool `json:"executed"`

	// Command lists the invoked capabilities with their arguments.
	Command string `json:"command,omitempty"`

	// Output is the rendered output of the invoked capabilities.
	Output string `json:"output,omitempty"`

	// Analysis is the model's interpretation of Output.
	Analysis string `json:"analysis,omitempty"`

	// Response is the model's free-text reply when nothing was executed.
	Response string `json:"response,omitempty"`

	// Results holds every execution result in request order.
	Results []runtime.Result `json:"results,omitempty"`

	// Error describes why the round failed.
	Error string `json:"error,omitempty"`
}

// OK returns true if the round completed.
func (o Outcome) OK() bool {
	return o.Error == ""
}

// CapabilitySummary is an alias to index.Summary for search results.
type CapabilitySummary = index.Summary

// commandLine joins the commands of results.
func commandLine(results []runtime.Result) string {
	cmds := make([]string, len(results))
	for i, r := range results {
		cmds[i] = r.Command()
	}
	return strings.Join(cmds, "; ")
}

// outputText renders results for display. A single result renders as its
// display text; several are prefixed with their command lines.
func outputText(results []runtime.Result) string {
	if len(results) == 1 {
		return results[0].Display()
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("$ %s\n%s", r.Command(), r.Display())
	}
	return strings.Join(parts, "\n\n")
}

// resultsTurn renders results as the content of the synthetic turn that asks
// for analysis.
func resultsTurn(results []runtime.Result) string {
	var b strings.Builder
	b.WriteString("Results of the requested commands:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n[%d] $ %s\n", i+1, r.Command())
		if r.Succeeded {
			fmt.Fprintf(&b, "status: succeeded (exit %d)\n", r.ExitCode)
		} else {
			fmt.Fprintf(&b, "status: failed: %s\n", r.ErrorMessage)
		}
		if r.Stdout != "" {
			b.WriteString("stdout:\n" + strings.TrimRight(r.Stdout, "\n") + "\n")
		}
		if r.Stderr != "" {
			b.WriteString("stderr:\n" + strings.TrimRight(r.Stderr, "\n") + "\n")
		}
		if r.Truncated {
			b.WriteString("(output truncated)\n")
		}
	}
	b.WriteString("\nAnalyze the command output and provide security insights in a few sentences. Do not request further commands.")
	return b.String()
}
