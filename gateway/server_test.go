package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolpilot/capability"
	"github.com/jonwraymond/toolpilot/dialogue"
	"github.com/jonwraymond/toolpilot/exec"
	"github.com/jonwraymond/toolpilot/provision"
	"github.com/jonwraymond/toolpilot/runtime"
)

type scripted struct {
	mu       sync.Mutex
	replies  []string
	requests []dialogue.ChatRequest
}

func (s *scripted) Complete(_ context.Context, req dialogue.ChatRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

type stubResolver struct{ registry *capability.Registry }

func (r stubResolver) Resolve(_ context.Context, name string) (provision.Resolved, error) {
	d, err := r.registry.Lookup(name)
	if err != nil {
		return provision.Resolved{}, err
	}
	return provision.Resolved{Descriptor: d, Path: "/usr/bin/" + d.Executable}, nil
}

type stubRunner struct{}

func (stubRunner) Execute(_ context.Context, target provision.Resolved, args string, _ time.Duration) runtime.Result {
	return runtime.Result{Capability: target.Descriptor.Name, Arguments: args, Succeeded: true, Stdout: "64 bytes from 93.184.216.34\n"}
}

// connect starts a gateway over in-memory transports and returns a client
// session.
func connect(t *testing.T, backend *scripted) (*mcp.ClientSession, *exec.Sessions) {
	t.Helper()
	ctx := context.Background()

	registry := capability.NewRegistry(capability.WithCatalog(capability.NewCatalog("")))
	if err := registry.RegisterAll(capability.Defaults()); err != nil {
		t.Fatalf("RegisterAll() error = %v", err)
	}
	model, err := dialogue.NewAdapter(dialogue.AdapterConfig{Completer: backend})
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	e, err := exec.New(exec.Options{
		Registry: registry,
		Model:    model,
		Resolver: stubResolver{registry: registry},
		Runner:   stubRunner{},
	})
	if err != nil {
		t.Fatalf("exec.New() error = %v", err)
	}
	sessions, err := exec.NewSessions(e, 0)
	if err != nil {
		t.Fatalf("NewSessions() error = %v", err)
	}

	s, err := New(Config{Sessions: sessions, Settings: map[string]string{"profile": "compact"}, Version: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	st, ct := mcp.NewInMemoryTransports()
	ss, err := s.MCPServer().Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = cs.Close() })
	return cs, sessions
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s) error = %v", name, err)
	}
	var b strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String(), res.IsError
}

func TestNew_RequiresSessions(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrSessionsRequired) {
		t.Errorf("New() error = %v, want %v", err, ErrSessionsRequired)
	}
}

func TestListTools(t *testing.T) {
	cs, _ := connect(t, &scripted{})

	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	got := map[string]bool{}
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, name := range []string{"run_instruction", "get_history", "register_capability", "search_capabilities", "describe_capability", "model_query"} {
		if !got[name] {
			t.Errorf("tool %q not listed", name)
		}
	}
}

func TestRunInstructionAndHistory(t *testing.T) {
	cs, sessions := connect(t, &scripted{replies: []string{"EXECUTE: ping example.com", "Host is reachable."}})

	text, isErr := call(t, cs, "run_instruction", map[string]any{"instruction": "ping example.com", "session_id": "ops"})
	if isErr {
		t.Fatalf("run_instruction error: %s", text)
	}
	if !strings.Contains(text, `"command": "ping example.com"`) || !strings.Contains(text, "Host is reachable.") {
		t.Errorf("run_instruction = %s", text)
	}

	if sess, ok := sessions.Peek("ops"); !ok || sess.HistoryLen() != 1 {
		t.Fatalf("session ops was not recorded")
	}

	text, _ = call(t, cs, "get_history", map[string]any{"session_id": "ops"})
	if !strings.Contains(text, "Host is reachable.") {
		t.Errorf("get_history = %s", text)
	}
	text, _ = call(t, cs, "get_history", map[string]any{})
	if !strings.Contains(text, `"history": []`) {
		t.Errorf("get_history for the default session = %s, want empty", text)
	}
}

func TestRunInstruction_Failure(t *testing.T) {
	cs, _ := connect(t, &scripted{})

	text, isErr := call(t, cs, "run_instruction", map[string]any{"instruction": "ping example.com"})
	if !isErr {
		t.Errorf("run_instruction IsError = false, want true (%s)", text)
	}
	if !strings.Contains(text, "model unavailable") {
		t.Errorf("run_instruction = %q", text)
	}
}

func TestRegisterAndSearch(t *testing.T) {
	cs, _ := connect(t, &scripted{})

	if text, isErr := call(t, cs, "register_capability", map[string]any{"name": "masscan", "package": "masscan"}); isErr {
		t.Fatalf("register_capability error: %s", text)
	}
	if text, isErr := call(t, cs, "register_capability", map[string]any{"name": "masscan", "executable": "/opt/masscan", "package": "masscan"}); !isErr {
		t.Errorf("duplicate register_capability IsError = false (%s)", text)
	}

	text, isErr := call(t, cs, "search_capabilities", map[string]any{"query": "dns"})
	if isErr || !strings.Contains(text, "nslookup") {
		t.Errorf("search_capabilities(dns) = %s", text)
	}

	text, isErr = call(t, cs, "describe_capability", map[string]any{"name": "ping"})
	if isErr || !strings.Contains(text, "Test connectivity") {
		t.Errorf("describe_capability(ping) = %s", text)
	}
}

func TestModelQuery_Chunked(t *testing.T) {
	backend := &scripted{replies: []string{"first", "second"}}
	cs, _ := connect(t, backend)

	text, isErr := call(t, cs, "model_query", map[string]any{"prompt": strings.Repeat("x", 15), "chunk_size": 10})
	if isErr {
		t.Fatalf("model_query error: %s", text)
	}
	want := "first\n\n--- Chunk 1/2 ---\n\nsecond\n\n--- Chunk 2/2 ---\n\n"
	if text != want {
		t.Errorf("model_query = %q, want %q", text, want)
	}
	if len(backend.requests) != 2 || backend.requests[0].Temperature != DefaultQueryTemperature {
		t.Errorf("requests = %+v, want 2 at the default temperature", backend.requests)
	}
}

func TestConfigResource(t *testing.T) {
	cs, _ := connect(t, &scripted{})

	res, err := cs.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: ConfigURI})
	if err != nil {
		t.Fatalf("ReadResource() error = %v", err)
	}
	if len(res.Contents) != 1 {
		t.Fatalf("len(Contents) = %d, want 1", len(res.Contents))
	}
	text := res.Contents[0].Text
	for _, want := range []string{`"profile": "compact"`, `"nmap"`, `"dialect": "auto"`} {
		if !strings.Contains(text, want) {
			t.Errorf("config resource lacks %s:\n%s", want, text)
		}
	}
}
