package exec

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jonwraymond/toolpilot/capability"
	"github.com/jonwraymond/toolpilot/dialogue"
	"github.com/jonwraymond/toolpilot/runtime"
)

// Exec is the shared orchestration engine. It owns the capability registry
// and the collaborators that sessions use; per-conversation state lives in
// [Session].
type Exec struct {
	registry *capability.Registry
	model    Model
	resolver Resolver
	runner   Runner
	logger   zerolog.Logger
	opts     Options
}

// New creates a new Exec instance with the given options.
func New(opts Options) (*Exec, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := opts.applyDefaults(); err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "exec").Logger()
	}

	return &Exec{
		registry: opts.Registry,
		model:    opts.Model,
		resolver: opts.Resolver,
		runner:   opts.Runner,
		logger:   logger,
		opts:     opts,
	}, nil
}

// NewSession creates a session with an empty conversation and history.
// An empty id generates one.
func (e *Exec) NewSession(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		id:      id,
		exec:    e,
		gate:    make(chan struct{}, 1),
		history: NewHistory(e.opts.HistoryCapacity),
	}
}

// RegisterCapability adds a benign capability at runtime. An empty
// executable defaults to name.
func (e *Exec) RegisterCapability(name, executable, pkg string) error {
	if executable == "" {
		executable = name
	}
	err := e.registry.Register(capability.Descriptor{
		Name:        name,
		Executable:  executable,
		Package:     pkg,
		Description: "Operator-registered tool",
		Usage:       name + " [arguments]",
	})
	if err != nil {
		return err
	}
	e.logger.Info().Str("capability", name).Str("package", pkg).Msg("capability registered")
	return nil
}

// SearchCapabilities finds capabilities matching query. Without a catalog
// it matches names and descriptions by substring.
func (e *Exec) SearchCapabilities(ctx context.Context, query string, limit int) ([]CapabilitySummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c := e.registry.Catalog(); c != nil {
		return c.Search(query, limit)
	}

	q := strings.ToLower(query)
	var out []CapabilitySummary
	for _, d := range e.registry.List() {
		if q != "" && !strings.Contains(strings.ToLower(d.Name+" "+d.Description), q) {
			continue
		}
		out = append(out, CapabilitySummary{ID: d.Name, Name: d.Name, ShortDescription: d.Description})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Registry returns the capability registry.
func (e *Exec) Registry() *capability.Registry {
	return e.registry
}

// Model returns the dialogue backend.
func (e *Exec) Model() Model {
	return e.model
}

// SystemPrompt returns the system turn sent with every request.
func (e *Exec) SystemPrompt() string {
	if e.opts.SystemPrompt != "" {
		return e.opts.SystemPrompt
	}
	return SystemPrompt(e.registry.List(), e.model.Dialect())
}

// invoke resolves, approves and runs one call. Failures become results.
func (e *Exec) invoke(ctx context.Context, call dialogue.ToolCallRequest, logger zerolog.Logger) runtime.Result {
	target, err := e.resolver.Resolve(ctx, call.Capability())
	if err != nil {
		logger.Info().Err(err).Str("capability", call.Capability()).Msg("capability unavailable")
		return runtime.Unavailable(call.Capability(), call.Arguments(), err)
	}

	if target.Descriptor.Risk == capability.RiskSensitive && e.opts.Approve != nil {
		if err := e.opts.Approve(ctx, target.Descriptor, call); err != nil {
			logger.Info().Err(err).Str("capability", call.Capability()).Msg("capability denied")
			return runtime.Unavailable(call.Capability(), call.Arguments(), fmt.Errorf("%w: %w", ErrNotApproved, err))
		}
	}

	return e.runner.Execute(ctx, target, call.Arguments(), call.Timeout())
}
