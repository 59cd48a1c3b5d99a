package dialogue

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Dialect selects how replies are parsed for tool calls.
type Dialect int

const (
	// DialectAuto tries the structured dialect, then the legacy one.
	DialectAuto Dialect = iota

	// DialectLegacy recognizes at most one EXECUTE marker.
	DialectLegacy

	// DialectStructured recognizes a TOOL_CALLS JSON block.
	DialectStructured
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case DialectLegacy:
		return "legacy"
	case DialectStructured:
		return "structured"
	default:
		return "auto"
	}
}

// ParseDialect parses a dialect name.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return DialectAuto, nil
	case "legacy":
		return DialectLegacy, nil
	case "structured":
		return DialectStructured, nil
	default:
		return DialectAuto, fmt.Errorf("unknown dialect %q", s)
	}
}

var (
	taggedCall = regexp.MustCompile(`<EXECUTE_TOOL>\s*(?P<capability>[A-Za-z0-9][\w.-]*)\s*\|(?P<arguments>[^<]*)</EXECUTE_TOOL>`)
	lineCall   = regexp.MustCompile(`EXECUTE:[ \t]*(?P<capability>[A-Za-z0-9][\w.-]*)(?:[ \t]+(?P<arguments>[^\n]*))?`)
	callsBlock = regexp.MustCompile(`(?s)<TOOL_CALLS>(.*?)</TOOL_CALLS>`)
)

// Parse extracts tool calls from reply text.
func Parse(text string, d Dialect) []ToolCallRequest {
	switch d {
	case DialectLegacy:
		return parseLegacy(text)
	case DialectStructured:
		return parseStructured(text)
	default:
		if calls := parseStructured(text); len(calls) > 0 {
			return calls
		}
		return parseLegacy(text)
	}
}

// parseLegacy returns the earliest marker of either legacy form.
func parseLegacy(text string) []ToolCallRequest {
	var (
		best  []int
		bestR *regexp.Regexp
	)
	for _, re := range []*regexp.Regexp{taggedCall, lineCall} {
		loc := re.FindStringSubmatchIndex(text)
		if loc != nil && (best == nil || loc[0] < best[0]) {
			best, bestR = loc, re
		}
	}
	if best == nil {
		return nil
	}

	group := func(name string) string {
		i := bestR.SubexpIndex(name)
		if best[2*i] < 0 {
			return ""
		}
		return text[best[2*i]:best[2*i+1]]
	}
	return []ToolCallRequest{newToolCall(group("capability"), strings.TrimSpace(group("arguments")), 0)}
}

type wireCall struct {
	Capability     string `json:"capability"`
	Arguments      string `json:"arguments"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

func parseStructured(text string) []ToolCallRequest {
	m := callsBlock.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var wire []wireCall
	if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &wire); err != nil {
		return nil
	}

	out := make([]ToolCallRequest, 0, len(wire))
	for _, w := range wire {
		name := strings.TrimSpace(w.Capability)
		if name == "" {
			continue
		}
		out = append(out, newToolCall(name, strings.TrimSpace(w.Arguments), w.TimeoutSeconds))
	}
	return out
}
