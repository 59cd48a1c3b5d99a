package provision

import (
	"context"
	"os/exec"
)

// Prober reports where an executable lives.
type Prober interface {
	Probe(ctx context.Context, executable string) (string, error)
}

// PathProber looks executables up on PATH.
type PathProber struct{}

// Probe returns the absolute path of executable, or an error when it is not
// on PATH or ctx ends first.
func (PathProber) Probe(ctx context.Context, executable string) (string, error) {
	type found struct {
		path string
		err  error
	}
	ch := make(chan found, 1)
	go func() {
		path, err := exec.LookPath(executable)
		ch <- found{path, err}
	}()

	select {
	case f := <-ch:
		return f.path, f.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
