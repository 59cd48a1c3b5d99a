package runtime

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonwraymond/toolpilot/provision"
)

// Config configures an Executor.
type Config struct {
	// Profile selects the base limits. Default: ProfileCompact.
	Profile Profile

	// Limits overrides individual profile limits when non-zero.
	Limits Limits

	// Env is the child environment. Nil inherits the current environment.
	Env []string

	// Logger receives one event per execution.
	Logger *zerolog.Logger

	// Observe is called with every result. Optional.
	Observe func(Result)
}

// Executor runs resolved capabilities. It holds no per-call state and is
// safe for concurrent use.
type Executor struct {
	limits  Limits
	env     []string
	logger  zerolog.Logger
	observe func(Result)
}

// New creates an Executor.
func New(cfg Config) *Executor {
	if !cfg.Profile.IsValid() {
		cfg.Profile = ProfileCompact
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "runtime").Logger()
	}
	return &Executor{
		limits:  cfg.Limits.merge(LimitsFor(cfg.Profile)),
		env:     cfg.Env,
		logger:  logger,
		observe: cfg.Observe,
	}
}

// Limits returns the effective limits.
func (e *Executor) Limits() Limits {
	return e.limits
}

// Execute runs target with rawArgs. A zero timeout uses the profile default;
// larger timeouts are clamped to the profile maximum.
func (e *Executor) Execute(ctx context.Context, target provision.Resolved, rawArgs string, timeout time.Duration) Result {
	res := e.execute(ctx, target, rawArgs, timeout)

	ev := e.logger.Debug()
	if !res.Succeeded {
		ev = e.logger.Info().Str("error", res.ErrorMessage)
	}
	ev.Str("capability", res.Capability).
		Int("exit_code", res.ExitCode).
		Bool("truncated", res.Truncated).
		Dur("duration", res.Duration).
		Msg("capability executed")

	if e.observe != nil {
		e.observe(res)
	}
	return res
}

func (e *Executor) execute(ctx context.Context, target provision.Resolved, rawArgs string, timeout time.Duration) Result {
	res := Result{
		Capability: target.Descriptor.Name,
		Arguments:  rawArgs,
		ExitCode:   -1,
	}

	args, err := SplitArgs(rawArgs)
	if err != nil {
		res.ErrorMessage = e.clip("invalid arguments: " + err.Error())
		return res
	}
	args = target.Descriptor.ApplyDefaults(args)

	path := target.Path
	if path == "" {
		path = target.Descriptor.Executable
	}

	timeout = e.limits.timeout(timeout)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout := newCappedBuffer(e.limits.MaxOutputBytes)
	stderr := newCappedBuffer(e.limits.MaxOutputBytes)

	cmd := exec.CommandContext(runCtx, path, args...)
	cmd.Env = e.env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = e.limits.KillGrace
	setProcessGroup(cmd)

	start := time.Now()
	err = cmd.Run()
	res.Duration = time.Since(start)

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Truncated = stdout.Truncated() || stderr.Truncated()
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case ctx.Err() != nil:
		res.ErrorMessage = "canceled"
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.ErrorMessage = fmt.Sprintf("timed out after %s", timeout)
	case err == nil:
		res.Succeeded = true
	default:
		res.ErrorMessage = e.clip(failureMessage(err, res.Stderr))
	}
	return res
}

func (e *Executor) clip(s string) string {
	return clip(s, e.limits.MaxErrorChars)
}

func failureMessage(err error, stderr string) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := fmt.Sprintf("exit status %d", exitErr.ExitCode())
		if line := firstLine(stderr); line != "" {
			msg += ": " + line
		}
		return msg
	}
	return err.Error()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
