package provision

import (
	"context"
	"errors"
	"io"
	"os/exec"
)

// CommandRunner runs a command to completion and discards its output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (int, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct {
	// Env is the command environment. Nil inherits the current process environment.
	Env []string
}

// Run executes name with args and returns its exit code.
// Exit code 127 reports a command that could not be started.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = r.Env
	cmd.Stdin = nil
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), err
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return 127, err
	}
	return 1, err
}
