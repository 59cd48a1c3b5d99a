package runtime

import (
	"strings"
	"time"
)

// Result is the outcome of one capability execution.
type Result struct {
	// Capability is the capability name that was requested.
	Capability string `json:"capability"`

	// Arguments is the raw argument text as requested.
	Arguments string `json:"arguments"`

	// Stdout and Stderr hold at most the profile's byte budget each.
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`

	// Succeeded is true when the process exited with status zero in time.
	Succeeded bool `json:"succeeded"`

	// Truncated is true when either stream exceeded its budget.
	Truncated bool `json:"truncated"`

	// ErrorMessage describes a failure. Empty on success.
	ErrorMessage string `json:"error_message,omitempty"`

	// ExitCode is the process exit code, or -1 when it did not exit normally.
	ExitCode int `json:"exit_code"`

	// Duration is the wall-clock run time.
	Duration time.Duration `json:"duration"`
}

// Command returns the capability and arguments as one line.
func (r Result) Command() string {
	return strings.TrimSpace(r.Capability + " " + r.Arguments)
}

// Display renders the result for a person: stdout, else stderr, else
// "Success". Failures render as "ERROR: <message>".
func (r Result) Display() string {
	if !r.Succeeded {
		return "ERROR: " + r.ErrorMessage
	}
	if strings.TrimSpace(r.Stdout) != "" {
		return r.Stdout
	}
	if strings.TrimSpace(r.Stderr) != "" {
		return r.Stderr
	}
	return "Success"
}

// Unavailable builds the result reported when a capability could not be
// resolved or was not approved.
func Unavailable(capability, arguments string, err error) Result {
	msg := "tool not available"
	if err != nil {
		msg = err.Error()
	}
	return Result{
		Capability:   capability,
		Arguments:    arguments,
		ErrorMessage: clip(msg, LimitsFor(ProfileCompact).MaxErrorChars),
		ExitCode:     -1,
	}
}

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
