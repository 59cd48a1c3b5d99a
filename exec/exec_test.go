package exec

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/toolpilot/capability"
	"github.com/jonwraymond/toolpilot/dialogue"
	"github.com/jonwraymond/toolpilot/runtime"
)

func TestNew_MissingRegistry(t *testing.T) {
	model, _ := dialogue.NewAdapter(dialogue.AdapterConfig{Completer: script()})

	_, err := New(Options{Model: model})
	if !errors.Is(err, ErrRegistryRequired) {
		t.Errorf("New() error = %v, want %v", err, ErrRegistryRequired)
	}
}

func TestNew_MissingModel(t *testing.T) {
	_, err := New(Options{Registry: capability.NewRegistry()})
	if !errors.Is(err, ErrModelRequired) {
		t.Errorf("New() error = %v, want %v", err, ErrModelRequired)
	}
}

func TestNew_DefaultsApplied(t *testing.T) {
	e, _ := testSetup(t, script(), nil)

	if e.opts.HistoryCapacity != DefaultHistoryCapacity {
		t.Errorf("HistoryCapacity = %d, want %d", e.opts.HistoryCapacity, DefaultHistoryCapacity)
	}
	if e.opts.MaxTurns != DefaultMaxTurns {
		t.Errorf("MaxTurns = %d, want %d", e.opts.MaxTurns, DefaultMaxTurns)
	}
	if e.opts.Act.Timeout != 30*time.Second || e.opts.Analyze.Timeout != 20*time.Second {
		t.Errorf("call timeouts = %v / %v, want 30s / 20s", e.opts.Act.Timeout, e.opts.Analyze.Timeout)
	}
	if e.opts.Act.Temperature != 0.2 {
		t.Errorf("Act.Temperature = %v, want 0.2", e.opts.Act.Temperature)
	}
}

func TestRunInstruction_DNSLookup(t *testing.T) {
	backend := script(
		"EXECUTE: nslookup example.com",
		"example.com resolves to a single public address.",
	)
	e, runner := testSetup(t, backend, nil)
	runner.results["nslookup"] = runtime.Result{
		Succeeded: true,
		Stdout:    "Name:\texample.com\nAddress: 93.184.216.34\n",
	}
	session := e.NewSession("")

	out, err := session.RunInstruction(context.Background(), "Check DNS for example.com")
	if err != nil {
		t.Fatalf("RunInstruction() error = %v", err)
	}

	if !out.Executed {
		t.Error("Executed = false, want true")
	}
	if out.Command != "nslookup example.com" {
		t.Errorf("Command = %q, want %q", out.Command, "nslookup example.com")
	}
	if !strings.Contains(out.Output, "93.184.216.34") {
		t.Errorf("Output = %q, want resolved address", out.Output)
	}
	if out.Analysis != "example.com resolves to a single public address." {
		t.Errorf("Analysis = %q", out.Analysis)
	}
	if len(out.Results) != 1 || !out.Results[0].Succeeded {
		t.Errorf("Results = %+v, want one success", out.Results)
	}

	history := session.History()
	if len(history) != 1 {
		t.Fatalf("History() length = %d, want 1", len(history))
	}
	entry := history[0]
	if entry.Command != out.Command || entry.Output != out.Output || entry.Analysis != out.Analysis {
		t.Errorf("history entry = %+v does not match outcome %+v", entry, out)
	}
	if entry.ID != out.RoundID || entry.Timestamp.IsZero() {
		t.Errorf("history entry id/timestamp = %q/%v", entry.ID, entry.Timestamp)
	}

	conv := session.Conversation()
	roles := make([]dialogue.Role, len(conv))
	for i, turn := range conv {
		roles[i] = turn.Role
	}
	want := []dialogue.Role{dialogue.RoleSystem, dialogue.RoleUser, dialogue.RoleAssistant, dialogue.RoleUser, dialogue.RoleAssistant}
	if !slices.Equal(roles, want) {
		t.Errorf("conversation roles = %v, want %v", roles, want)
	}
	if len(conv[2].ToolCalls) != 1 || conv[2].ToolCalls[0].Capability() != "nslookup" {
		t.Errorf("assistant turn tool calls = %v", conv[2].ToolCalls)
	}

	if backend.requestCount() != 2 {
		t.Errorf("model requests = %d, want 2", backend.requestCount())
	}
	if first := backend.requests[0]; first.Temperature != 0.2 || first.Messages[0].Role != "system" {
		t.Errorf("act request = %+v, want system prompt at temperature 0.2", first)
	}
}

func TestRunInstruction_FreeText(t *testing.T) {
	tests := []struct {
		name        string
		record      bool
		wantHistory int
	}{
		{"not recorded by default", false, 0},
		{"recorded when enabled", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := script("TCP is a connection-oriented transport protocol.")
			e, runner := testSetup(t, backend, func(o *Options) { o.RecordFreeText = tt.record })
			session := e.NewSession("")

			out, err := session.RunInstruction(context.Background(), "What is TCP?")
			if err != nil {
				t.Fatalf("RunInstruction() error = %v", err)
			}
			if out.Executed {
				t.Error("Executed = true, want false")
			}
			if out.Response != "TCP is a connection-oriented transport protocol." {
				t.Errorf("Response = %q", out.Response)
			}
			if n := len(runner.recorded()); n != 0 {
				t.Errorf("runner called %d times, want 0", n)
			}
			if session.HistoryLen() != tt.wantHistory {
				t.Errorf("HistoryLen() = %d, want %d", session.HistoryLen(), tt.wantHistory)
			}
			if tt.record && session.History()[0].Executed {
				t.Error("free-text history entry marked executed")
			}
		})
	}
}

func TestRunInstruction_UnavailableCapability(t *testing.T) {
	backend := script(
		`<TOOL_CALLS>[{"capability":"frobnicate","arguments":"--all"}]</TOOL_CALLS>`,
		"The requested tool is not installed.",
	)
	e, runner := testSetup(t, backend, nil)

	out, err := e.NewSession("").RunInstruction(context.Background(), "frobnicate everything")
	if err != nil {
		t.Fatalf("RunInstruction() error = %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].Succeeded {
		t.Fatalf("Results = %+v, want one failure", out.Results)
	}
	if !strings.Contains(out.Results[0].ErrorMessage, "unavailable") {
		t.Errorf("ErrorMessage = %q, want unavailable", out.Results[0].ErrorMessage)
	}
	if !strings.HasPrefix(out.Output, "ERROR: ") {
		t.Errorf("Output = %q, want ERROR prefix", out.Output)
	}
	if n := len(runner.recorded()); n != 0 {
		t.Errorf("runner called %d times, want 0", n)
	}
	// the round still reached analysis
	if backend.requestCount() != 2 || out.Analysis == "" {
		t.Errorf("requests = %d, analysis = %q; want analysis after failure", backend.requestCount(), out.Analysis)
	}
}

func TestRunInstruction_PreservesCallOrder(t *testing.T) {
	backend := script(
		`<TOOL_CALLS>[{"capability":"dig","arguments":"example.com"},{"capability":"whois","arguments":"example.com"}]</TOOL_CALLS>`,
		"Both lookups agree.",
	)
	e, runner := testSetup(t, backend, nil)
	runner.results["dig"] = runtime.Result{Succeeded: false, ErrorMessage: "exit status 9: no servers"}

	out, err := e.NewSession("").RunInstruction(context.Background(), "dig and whois example.com")
	if err != nil {
		t.Fatalf("RunInstruction() error = %v", err)
	}

	if got, want := runner.recorded(), []string{"dig example.com", "whois example.com"}; !slices.Equal(got, want) {
		t.Errorf("runner calls = %v, want %v", got, want)
	}
	if len(out.Results) != 2 || out.Results[0].Capability != "dig" || out.Results[1].Capability != "whois" {
		t.Fatalf("Results = %+v, want [dig whois]", out.Results)
	}
	if out.Results[0].Succeeded || !out.Results[1].Succeeded {
		t.Errorf("failure of dig should not affect whois: %+v", out.Results)
	}
	if out.Command != "dig example.com; whois example.com" {
		t.Errorf("Command = %q", out.Command)
	}

	analysisTurn := backend.lastMessage(1).Content
	a, b := strings.Index(analysisTurn, "[1] $ dig"), strings.Index(analysisTurn, "[2] $ whois")
	if a < 0 || b < 0 || a > b {
		t.Errorf("analysis turn does not list results in order:\n%s", analysisTurn)
	}
}

func TestRunInstruction_ModelFailureRollsBack(t *testing.T) {
	tests := []struct {
		name    string
		backend *scriptedBackend
	}{
		{"while querying", &scriptedBackend{replies: []reply{{err: errors.New("connection refused")}}}},
		{"while analyzing", &scriptedBackend{replies: []reply{{text: "EXECUTE: ping example.com"}, {err: errors.New("502")}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := testSetup(t, tt.backend, nil)
			session := e.NewSession("")

			out, err := session.RunInstruction(context.Background(), "ping example.com")
			if !errors.Is(err, dialogue.ErrModelUnavailable) {
				t.Fatalf("RunInstruction() error = %v, want %v", err, dialogue.ErrModelUnavailable)
			}
			if out.Error == "" {
				t.Error("Outcome.Error is empty")
			}
			if session.HistoryLen() != 0 {
				t.Errorf("HistoryLen() = %d, want 0", session.HistoryLen())
			}
			if n := len(session.Conversation()); n != 1 {
				t.Errorf("conversation has %d turns after failure, want only the system turn", n)
			}
		})
	}
}

func TestRunInstruction_Cancellation(t *testing.T) {
	backend := script("EXECUTE: traceroute example.com", "unused")
	e, runner := testSetup(t, backend, nil)
	runner.started = make(chan struct{}, 1)
	runner.block = make(chan struct{})
	session := e.NewSession("")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-runner.started
		cancel()
	}()

	_, err := session.RunInstruction(ctx, "trace example.com")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RunInstruction() error = %v, want %v", err, context.Canceled)
	}
	if session.HistoryLen() != 0 {
		t.Errorf("HistoryLen() = %d, want 0", session.HistoryLen())
	}
	if n := len(session.Conversation()); n != 1 {
		t.Errorf("conversation has %d turns after cancel, want 1", n)
	}
	if backend.requestCount() != 1 {
		t.Errorf("model requests = %d, want 1 (no analysis after cancel)", backend.requestCount())
	}
}

func TestRunInstruction_RejectsBeforeNetwork(t *testing.T) {
	t.Run("empty instruction", func(t *testing.T) {
		backend := script("x")
		e, _ := testSetup(t, backend, nil)
		_, err := e.NewSession("").RunInstruction(context.Background(), "   ")
		if !errors.Is(err, ErrEmptyInstruction) {
			t.Errorf("RunInstruction() error = %v, want %v", err, ErrEmptyInstruction)
		}
		if backend.requestCount() != 0 {
			t.Error("model was called for an empty instruction")
		}
	})

	t.Run("placeholder credential", func(t *testing.T) {
		backend := script("x")
		e, _ := testSetup(t, backend, func(o *Options) {
			o.Model, _ = dialogue.NewAdapter(dialogue.AdapterConfig{
				Completer:  backend,
				Credential: func() error { return dialogue.CheckCredential("YOUR_ACTUAL_API_KEY") },
			})
		})
		_, err := e.NewSession("").RunInstruction(context.Background(), "ping example.com")
		if !errors.Is(err, dialogue.ErrConfiguration) {
			t.Errorf("RunInstruction() error = %v, want %v", err, dialogue.ErrConfiguration)
		}
		if backend.requestCount() != 0 {
			t.Error("model was called without a usable credential")
		}
	})
}

func TestRunInstruction_HistoryBound(t *testing.T) {
	var texts []string
	for i := 0; i < 5; i++ {
		texts = append(texts, "EXECUTE: host example.com", "fine")
	}
	e, _ := testSetup(t, script(texts...), func(o *Options) { o.HistoryCapacity = 3 })
	session := e.NewSession("")

	var ids []string
	for i := 0; i < 5; i++ {
		out, err := session.RunInstruction(context.Background(), "lookup")
		if err != nil {
			t.Fatalf("round %d error = %v", i, err)
		}
		ids = append(ids, out.RoundID)
	}

	history := session.History()
	if len(history) != 3 {
		t.Fatalf("History() length = %d, want 3", len(history))
	}
	for i, entry := range history {
		if want := ids[4-i]; entry.ID != want {
			t.Errorf("History()[%d].ID = %q, want %q", i, entry.ID, want)
		}
	}
}

func TestRunInstruction_ConversationBound(t *testing.T) {
	e, _ := testSetup(t, script("a", "b", "c", "d"), func(o *Options) { o.MaxTurns = 5 })
	session := e.NewSession("")

	for i := 0; i < 4; i++ {
		if _, err := session.RunInstruction(context.Background(), "hello"); err != nil {
			t.Fatalf("round %d error = %v", i, err)
		}
	}

	conv := session.Conversation()[1:]
	if len(conv) > 5 {
		t.Errorf("conversation has %d turns, want at most 5", len(conv))
	}
	if conv[0].Role != dialogue.RoleUser {
		t.Errorf("oldest retained turn role = %q, want user", conv[0].Role)
	}
	if last := conv[len(conv)-1]; last.Content != "d" {
		t.Errorf("newest turn = %q, want %q", last.Content, "d")
	}
}

func TestRunInstruction_ApprovalGate(t *testing.T) {
	backend := script(
		`<TOOL_CALLS>[{"capability":"nmap","arguments":"10.0.0.1"},{"capability":"ping","arguments":"10.0.0.1"}]</TOOL_CALLS>`,
		"Scan was not approved.",
	)
	var asked []string
	e, runner := testSetup(t, backend, func(o *Options) {
		o.Approve = func(_ context.Context, d capability.Descriptor, _ dialogue.ToolCallRequest) error {
			asked = append(asked, d.Name)
			return errors.New("operator declined")
		}
	})

	out, err := e.NewSession("").RunInstruction(context.Background(), "scan and ping 10.0.0.1")
	if err != nil {
		t.Fatalf("RunInstruction() error = %v", err)
	}
	if !slices.Equal(asked, []string{"nmap"}) {
		t.Errorf("approver asked for %v, want only nmap", asked)
	}
	if got := runner.recorded(); !slices.Equal(got, []string{"ping 10.0.0.1"}) {
		t.Errorf("runner calls = %v, want only ping", got)
	}
	if !strings.Contains(out.Results[0].ErrorMessage, "not approved") {
		t.Errorf("nmap ErrorMessage = %q", out.Results[0].ErrorMessage)
	}
}

func TestSession_OneRoundAtATime(t *testing.T) {
	backend := script("EXECUTE: ping example.com", "done")
	e, runner := testSetup(t, backend, nil)
	runner.started = make(chan struct{}, 1)
	runner.block = make(chan struct{})
	session := e.NewSession("")

	done := make(chan error, 1)
	go func() {
		_, err := session.RunInstruction(context.Background(), "ping example.com")
		done <- err
	}()
	<-runner.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := session.RunInstruction(ctx, "second"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("concurrent RunInstruction() error = %v, want %v", err, context.DeadlineExceeded)
	}

	close(runner.block)
	if err := <-done; err != nil {
		t.Errorf("first RunInstruction() error = %v", err)
	}
}

func TestExec_RegisterCapability(t *testing.T) {
	e, _ := testSetup(t, script(), nil)

	if err := e.RegisterCapability("masscan", "", "masscan"); err != nil {
		t.Fatalf("RegisterCapability() error = %v", err)
	}
	d, err := e.Registry().Lookup("masscan")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if d.Executable != "masscan" || d.Package != "masscan" {
		t.Errorf("descriptor = %+v", d)
	}
	if !strings.Contains(e.SystemPrompt(), "masscan") {
		t.Error("system prompt does not list the new capability")
	}

	if err := e.RegisterCapability("masscan", "/opt/masscan", ""); !errors.Is(err, capability.ErrDuplicateCapability) {
		t.Errorf("RegisterCapability() duplicate error = %v, want %v", err, capability.ErrDuplicateCapability)
	}
}

func TestExec_SearchCapabilities(t *testing.T) {
	e, _ := testSetup(t, script(), nil)

	results, err := e.SearchCapabilities(context.Background(), "dns", 0)
	if err != nil {
		t.Fatalf("SearchCapabilities() error = %v", err)
	}
	var names []string
	for _, r := range results {
		names = append(names, r.Name)
	}
	if !slices.Contains(names, "nslookup") || !slices.Contains(names, "dig") {
		t.Errorf("SearchCapabilities(dns) = %v, want nslookup and dig", names)
	}
}

func TestExec_SearchCapabilitiesCanceled(t *testing.T) {
	e, _ := testSetup(t, script(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.SearchCapabilities(ctx, "dns", 0); !errors.Is(err, context.Canceled) {
		t.Errorf("SearchCapabilities() error = %v, want %v", err, context.Canceled)
	}
}

func TestSystemPrompt(t *testing.T) {
	caps := capability.Defaults()

	legacy := SystemPrompt(caps, dialogue.DialectLegacy)
	if !strings.Contains(legacy, "<EXECUTE_TOOL>tool_name|arguments</EXECUTE_TOOL>") {
		t.Error("legacy prompt lacks the EXECUTE_TOOL format")
	}
	structured := SystemPrompt(caps, dialogue.DialectAuto)
	if !strings.Contains(structured, "<TOOL_CALLS>") {
		t.Error("structured prompt lacks the TOOL_CALLS format")
	}
	if !strings.Contains(structured, "- nmap (sensitive): Network scanning - nmap [target] [options]") {
		t.Errorf("prompt does not describe nmap:\n%s", structured)
	}
}
