package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/jonwraymond/toolpilot/dialogue"
	"github.com/jonwraymond/toolpilot/exec"
)

// Defaults for model_query.
const (
	DefaultQueryChunkSize   = 4096
	DefaultQueryTemperature = 0.7
	DefaultQueryMaxTokens   = 2000
)

// ConfigURI names the configuration resource.
const ConfigURI = "config://toolpilot"

// ErrSessionsRequired is returned by New when Config.Sessions is nil.
var ErrSessionsRequired = errors.New("gateway: Sessions is required")

// Querier sends a raw prompt to the model. It is satisfied by *dialogue.Adapter.
type Querier interface {
	Query(ctx context.Context, prompt string, chunkSize int, opts dialogue.CallOptions) (string, error)
}

// Config configures the MCP server.
type Config struct {
	// Sessions resolves the session named in each call.
	// Required.
	Sessions *exec.Sessions

	// Querier serves model_query.
	// Default: the engine's model when it implements Querier.
	Querier Querier

	// Settings is published as the configuration resource. It must not
	// contain secrets. Optional.
	Settings any

	// Version is reported to clients.
	Version string

	// Logger receives tool call events.
	Logger *zerolog.Logger
}

// Server is an MCP server over one engine.
type Server struct {
	sessions *exec.Sessions
	exec     *exec.Exec
	querier  Querier
	settings any
	server   *mcp.Server
	logger   zerolog.Logger
}

// New creates the server and registers its tools and resource.
func New(cfg Config) (*Server, error) {
	if cfg.Sessions == nil {
		return nil, ErrSessionsRequired
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "gateway").Logger()
	}

	e := cfg.Sessions.Exec()
	q := cfg.Querier
	if q == nil {
		q, _ = e.Model().(Querier)
	}

	s := &Server{
		sessions: cfg.Sessions,
		exec:     e,
		querier:  q,
		settings: cfg.Settings,
		server:   mcp.NewServer(&mcp.Implementation{Name: "toolpilot", Version: cfg.Version}, nil),
		logger:   logger,
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying server, e.g. to connect other transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

// Run serves over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info().Msg("serving on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         ConfigURI,
		Name:        "toolpilot-config",
		Description: "Effective toolpilot configuration",
		MIMEType:    "application/json",
	}, func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		view := map[string]any{
			"model":        s.modelInfo(),
			"capabilities": s.exec.Registry().Names(),
			"sessions":     s.sessions.Len(),
		}
		if s.settings != nil {
			view["settings"] = s.settings
		}
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			}},
		}, nil
	})
}

func (s *Server) modelInfo() map[string]any {
	m := s.exec.Model()
	return map[string]any{
		"configured": m.CheckCredential() == nil,
		"dialect":    m.Dialect().String(),
	}
}

// jsonResult renders v as the text content of a tool result.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// textResult returns text as a tool result, marked as an error if isError.
func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: isError,
	}
}
