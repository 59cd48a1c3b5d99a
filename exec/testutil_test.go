package exec

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/toolpilot/capability"
	"github.com/jonwraymond/toolpilot/dialogue"
	"github.com/jonwraymond/toolpilot/provision"
	"github.com/jonwraymond/toolpilot/runtime"
)

// reply is one scripted backend answer.
type reply struct {
	text string
	err  error
}

// scriptedBackend answers completion requests from a fixed script.
type scriptedBackend struct {
	mu       sync.Mutex
	replies  []reply
	requests []dialogue.ChatRequest
}

func script(texts ...string) *scriptedBackend {
	b := &scriptedBackend{}
	for _, t := range texts {
		b.replies = append(b.replies, reply{text: t})
	}
	return b
}

func (b *scriptedBackend) Complete(ctx context.Context, req dialogue.ChatRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(b.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	r := b.replies[0]
	b.replies = b.replies[1:]
	return r.text, r.err
}

func (b *scriptedBackend) requestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// lastMessage returns the final message of request i.
func (b *scriptedBackend) lastMessage(i int) dialogue.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := b.requests[i].Messages
	return msgs[len(msgs)-1]
}

// fakeResolver resolves registered capabilities unless listed as missing.
type fakeResolver struct {
	registry *capability.Registry
	missing  map[string]bool
}

func (f fakeResolver) Resolve(_ context.Context, name string) (provision.Resolved, error) {
	d, err := f.registry.Lookup(name)
	if err != nil {
		return provision.Resolved{}, fmt.Errorf("%w: %w", provision.ErrUnavailable, err)
	}
	if f.missing[name] {
		return provision.Resolved{}, fmt.Errorf("%w: %s", provision.ErrUnavailable, name)
	}
	return provision.Resolved{Descriptor: d, Path: "/usr/bin/" + d.Executable}, nil
}

// recordingRunner records calls and returns canned results.
type recordingRunner struct {
	mu      sync.Mutex
	calls   []string
	results map[string]runtime.Result
	started chan struct{}
	block   chan struct{}
}

func (r *recordingRunner) Execute(ctx context.Context, target provision.Resolved, args string, _ time.Duration) runtime.Result {
	name := target.Descriptor.Name
	r.mu.Lock()
	r.calls = append(r.calls, name+" "+args)
	res, ok := r.results[name]
	r.mu.Unlock()

	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return runtime.Result{Capability: name, Arguments: args, ErrorMessage: "canceled", ExitCode: -1}
		}
	}

	if !ok {
		res = runtime.Result{Succeeded: true, Stdout: "ok\n"}
	}
	res.Capability = name
	res.Arguments = args
	return res
}

func (r *recordingRunner) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// testSetup builds an Exec over the default capabilities with scripted
// model replies.
func testSetup(t *testing.T, backend *scriptedBackend, configure func(*Options)) (*Exec, *recordingRunner) {
	t.Helper()

	registry := capability.NewRegistry()
	if err := registry.RegisterAll(capability.Defaults()); err != nil {
		t.Fatalf("RegisterAll() error = %v", err)
	}
	model, err := dialogue.NewAdapter(dialogue.AdapterConfig{Completer: backend})
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	runner := &recordingRunner{results: map[string]runtime.Result{}}

	opts := Options{
		Registry: registry,
		Model:    model,
		Resolver: fakeResolver{registry: registry},
		Runner:   runner,
	}
	if configure != nil {
		configure(&opts)
	}

	e, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e, runner
}
