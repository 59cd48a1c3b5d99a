// Package dialogue talks to an OpenAI-compatible chat-completions backend and
// turns model replies into structured tool-call requests.
//
// A [Client] performs one HTTP exchange. An [Adapter] sits on top of it: it
// sends a [Conversation], splits oversized payloads into chunks, maps every
// transport failure to [ErrModelUnavailable], and parses the reply text into
// [ToolCallRequest] values according to a [Dialect].
//
// Two reply dialects are understood:
//
//	EXECUTE: nslookup example.com
//	<EXECUTE_TOOL>nslookup|example.com</EXECUTE_TOOL>
//
// carry at most one call (the legacy dialect), and
//
//	<TOOL_CALLS>[{"capability":"dig","arguments":"example.com MX","timeout_seconds":10}]</TOOL_CALLS>
//
// carries any number of calls in order (the structured dialect). Malformed
// replies never produce an error; they simply contain no calls.
package dialogue
