package exec

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonwraymond/toolpilot/capability"
	"github.com/jonwraymond/toolpilot/dialogue"
	"github.com/jonwraymond/toolpilot/provision"
	"github.com/jonwraymond/toolpilot/runtime"
)

// Default configuration values.
const (
	DefaultHistoryCapacity = 20
	DefaultMaxTurns        = 40
	DefaultMaxSessions     = 256
)

// Errors returned by Options validation.
var (
	ErrRegistryRequired = errors.New("exec: Registry is required")
	ErrModelRequired    = errors.New("exec: Model is required")
)

// Model is the dialogue backend used by sessions.
// It is satisfied by *dialogue.Adapter.
type Model interface {
	Send(ctx context.Context, conv dialogue.Conversation, opts dialogue.CallOptions) (dialogue.Reply, error)
	CheckCredential() error
	Dialect() dialogue.Dialect
}

// Resolver makes a capability runnable.
// It is satisfied by *provision.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, name string) (provision.Resolved, error)
}

// Runner executes a resolved capability.
// It is satisfied by *runtime.Executor.
type Runner interface {
	Execute(ctx context.Context, target provision.Resolved, rawArgs string, timeout time.Duration) runtime.Result
}

// Approver decides whether a sensitive capability may run. A non-nil error
// denies the call; the denial is reported as an unavailable result.
type Approver func(ctx context.Context, d capability.Descriptor, call dialogue.ToolCallRequest) error

// Observer receives per-round measurements.
type Observer interface {
	ObserveRound(outcome string, duration time.Duration)
}

// Options configures an Exec instance.
type Options struct {
	// Registry holds the capabilities the model may call.
	// Required.
	Registry *capability.Registry

	// Model is the dialogue backend.
	// Required.
	Model Model

	// Resolver provisions capabilities.
	// Default: provision.NewResolver over Registry.
	Resolver Resolver

	// Runner executes capabilities.
	// Default: runtime.New with the compact profile.
	Runner Runner

	// SystemPrompt overrides the generated system prompt.
	// Default: built from Registry on every round.
	SystemPrompt string

	// Act tunes the request that asks the model what to run.
	// Default: temperature 0.2, 512 tokens, 30s.
	Act dialogue.CallOptions

	// Analyze tunes the request that asks the model to interpret results.
	// Default: temperature 0.3, 400 tokens, 20s.
	Analyze dialogue.CallOptions

	// HistoryCapacity bounds each session's history.
	// Default: 20
	HistoryCapacity int

	// MaxTurns bounds each session's conversation, excluding the system turn.
	// Default: 40
	MaxTurns int

	// RecordFreeText also records rounds that ran no capability.
	// Default: false
	RecordFreeText bool

	// Approve gates sensitive capabilities. Optional; nil approves everything.
	Approve Approver

	// Logger receives round events.
	Logger *zerolog.Logger

	// Observer receives round metrics. Optional.
	Observer Observer
}

// validate checks that required fields are set.
func (o *Options) validate() error {
	if o.Registry == nil {
		return ErrRegistryRequired
	}
	if o.Model == nil {
		return ErrModelRequired
	}
	return nil
}

// applyDefaults sets default values for unset optional fields.
func (o *Options) applyDefaults() error {
	if o.Resolver == nil {
		r, err := provision.NewResolver(provision.Config{Registry: o.Registry, Logger: o.Logger})
		if err != nil {
			return err
		}
		o.Resolver = r
	}
	if o.Runner == nil {
		o.Runner = runtime.New(runtime.Config{Profile: runtime.ProfileCompact, Logger: o.Logger})
	}
	if o.Act == (dialogue.CallOptions{}) {
		o.Act = dialogue.CallOptions{Temperature: 0.2, MaxTokens: 512, Timeout: 30 * time.Second}
	}
	if o.Analyze == (dialogue.CallOptions{}) {
		o.Analyze = dialogue.CallOptions{Temperature: 0.3, MaxTokens: 400, Timeout: 20 * time.Second}
	}
	if o.HistoryCapacity <= 0 {
		o.HistoryCapacity = DefaultHistoryCapacity
	}
	if o.MaxTurns <= 0 {
		o.MaxTurns = DefaultMaxTurns
	}
	return nil
}
