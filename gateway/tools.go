package gateway

import (
	"context"
	"fmt"

	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolpilot/dialogue"
	"github.com/jonwraymond/toolpilot/exec"
)

type runInstructionInput struct {
	Instruction string `json:"instruction" jsonschema:"natural-language instruction to carry out"`
	SessionID   string `json:"session_id,omitempty" jsonschema:"session to run in; defaults to the shared session"`
}

type historyInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session to read; defaults to the shared session"`
}

type registerInput struct {
	Name       string `json:"name" jsonschema:"capability name the model will use"`
	Executable string `json:"executable,omitempty" jsonschema:"program on PATH; defaults to name"`
	Package    string `json:"package" jsonschema:"system package that provides the program"`
}

type searchInput struct {
	Query string `json:"query" jsonschema:"search terms"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results"`
}

type describeInput struct {
	Name string `json:"name" jsonschema:"capability name"`
}

type queryInput struct {
	Prompt      string  `json:"prompt" jsonschema:"prompt to send to the model"`
	ChunkSize   int     `json:"chunk_size,omitempty" jsonschema:"maximum characters per request; larger prompts are split"`
	Temperature float64 `json:"temperature,omitempty" jsonschema:"sampling temperature"`
}

func (s *Server) registerTools() {
	readOnly := &mcp.ToolAnnotations{ReadOnlyHint: true}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_instruction",
		Description: "Ask the model to carry out an instruction with the registered network tools and analyze the results.",
	}, s.runInstruction)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_history",
		Description: "List the recorded rounds of a session, most recent first.",
		Annotations: readOnly,
	}, s.getHistory)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "register_capability",
		Description: "Register a command-line tool the model may call.",
	}, s.registerCapability)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_capabilities",
		Description: "Search the registered tools by name, description or tag.",
		Annotations: readOnly,
	}, s.searchCapabilities)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "describe_capability",
		Description: "Show the documentation of a registered tool.",
		Annotations: readOnly,
	}, s.describeCapability)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "model_query",
		Description: "Send a prompt to the model. Large prompts are split into chunks and the replies joined.",
	}, s.modelQuery)
}

func (s *Server) runInstruction(ctx context.Context, _ *mcp.CallToolRequest, in runInstructionInput) (*mcp.CallToolResult, any, error) {
	sess, out, err := s.sessions.RunInstruction(ctx, in.SessionID, in.Instruction)
	if err != nil {
		s.logger.Warn().Err(err).Str("session", sess.ID()).Msg("run_instruction failed")
		return textResult(err.Error(), true), nil, nil
	}
	return jsonResult(out)
}

func (s *Server) getHistory(_ context.Context, _ *mcp.CallToolRequest, in historyInput) (*mcp.CallToolResult, any, error) {
	history := []exec.HistoryEntry{}
	if sess, ok := s.sessions.Peek(in.SessionID); ok {
		history = sess.History()
	}
	return jsonResult(map[string]any{"history": history})
}

func (s *Server) registerCapability(_ context.Context, _ *mcp.CallToolRequest, in registerInput) (*mcp.CallToolResult, any, error) {
	if err := s.exec.RegisterCapability(in.Name, in.Executable, in.Package); err != nil {
		return textResult(err.Error(), true), nil, nil
	}
	return textResult(fmt.Sprintf("Added %s", in.Name), false), nil, nil
}

func (s *Server) searchCapabilities(ctx context.Context, _ *mcp.CallToolRequest, in searchInput) (*mcp.CallToolResult, any, error) {
	results, err := s.exec.SearchCapabilities(ctx, in.Query, in.Limit)
	if err != nil {
		return textResult(err.Error(), true), nil, nil
	}
	return jsonResult(map[string]any{"capabilities": results})
}

func (s *Server) describeCapability(_ context.Context, _ *mcp.CallToolRequest, in describeInput) (*mcp.CallToolResult, any, error) {
	c := s.exec.Registry().Catalog()
	if c == nil {
		d, err := s.exec.Registry().Lookup(in.Name)
		if err != nil {
			return textResult(err.Error(), true), nil, nil
		}
		return textResult(fmt.Sprintf("%s: %s\nUsage: %s", d.Name, d.Description, d.Usage), false), nil, nil
	}
	doc, err := c.Describe(in.Name, tooldoc.DetailFull)
	if err != nil {
		return textResult(err.Error(), true), nil, nil
	}
	return jsonResult(doc)
}

func (s *Server) modelQuery(ctx context.Context, _ *mcp.CallToolRequest, in queryInput) (*mcp.CallToolResult, any, error) {
	if s.querier == nil {
		return textResult("model queries are not supported by this backend", true), nil, nil
	}
	if err := s.exec.Model().CheckCredential(); err != nil {
		return textResult(err.Error(), true), nil, nil
	}
	size := in.ChunkSize
	if size <= 0 {
		size = DefaultQueryChunkSize
	}
	temp := in.Temperature
	if temp == 0 {
		temp = DefaultQueryTemperature
	}

	text, err := s.querier.Query(ctx, in.Prompt, size, dialogue.CallOptions{Temperature: temp, MaxTokens: DefaultQueryMaxTokens})
	if err != nil {
		s.logger.Warn().Err(err).Msg("model_query failed")
		return textResult(err.Error(), true), nil, nil
	}
	return textResult(text, false), nil, nil
}
