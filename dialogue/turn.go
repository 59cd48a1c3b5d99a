package dialogue

import (
	"time"
	"unicode/utf8"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultToolTimeoutSeconds applies when a tool call names no timeout.
const DefaultToolTimeoutSeconds = 30

// ToolCallRequest is a parsed request to run a capability. Values are only
// produced by parsing model replies.
type ToolCallRequest struct {
	capability     string
	arguments      string
	timeoutSeconds int
}

func newToolCall(capability, arguments string, timeoutSeconds int) ToolCallRequest {
	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultToolTimeoutSeconds
	}
	return ToolCallRequest{capability: capability, arguments: arguments, timeoutSeconds: timeoutSeconds}
}

// Capability returns the requested capability name.
func (c ToolCallRequest) Capability() string { return c.capability }

// Arguments returns the raw argument text.
func (c ToolCallRequest) Arguments() string { return c.arguments }

// TimeoutSeconds returns the requested timeout, always positive.
func (c ToolCallRequest) TimeoutSeconds() int { return c.timeoutSeconds }

// Timeout returns the requested timeout as a duration.
func (c ToolCallRequest) Timeout() time.Duration {
	return time.Duration(c.timeoutSeconds) * time.Second
}

// String returns "capability arguments".
func (c ToolCallRequest) String() string {
	if c.arguments == "" {
		return c.capability
	}
	return c.capability + " " + c.arguments
}

// Turn is one message of a conversation.
type Turn struct {
	Role    Role
	Content string

	// ToolCalls is set on assistant turns that requested capabilities.
	ToolCalls []ToolCallRequest
}

// Conversation is an ordered sequence of turns.
type Conversation []Turn

// Size returns the total content length in runes.
func (c Conversation) Size() int {
	n := 0
	for _, t := range c {
		n += utf8.RuneCountInString(t.Content)
	}
	return n
}

// Reply is a parsed model reply.
type Reply struct {
	// Text is the raw reply text.
	Text string

	// ToolCalls lists requested calls in the order they appeared.
	ToolCalls []ToolCallRequest
}

// HasToolCalls reports whether the reply requested any capability.
func (r Reply) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}
