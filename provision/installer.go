package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
)

var (
	// ErrInvalidPackage is returned for package names the installer refuses.
	ErrInvalidPackage = errors.New("provision: invalid package name")

	// ErrInstallFailed is returned when the package manager fails.
	ErrInstallFailed = errors.New("provision: install failed")
)

// Installer installs a system package.
type Installer interface {
	Install(ctx context.Context, pkg string) error
}

// debian package naming rules
var packagePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9+.-]+$`)

// AptInstaller installs packages with apt-get.
type AptInstaller struct {
	// Command is the install command prefix. Default: apt-get install -y.
	Command []string

	// Runner executes Command. Default: ExecRunner with a noninteractive environment.
	Runner CommandRunner
}

// Install runs the package manager for pkg.
func (a AptInstaller) Install(ctx context.Context, pkg string) error {
	if !packagePattern.MatchString(pkg) {
		return fmt.Errorf("%w: %q", ErrInvalidPackage, pkg)
	}

	command := a.Command
	if len(command) == 0 {
		command = []string{"apt-get", "install", "-y"}
	}
	runner := a.Runner
	if runner == nil {
		runner = ExecRunner{Env: append(os.Environ(), "DEBIAN_FRONTEND=noninteractive")}
	}

	args := append(append([]string(nil), command[1:]...), pkg)
	code, err := runner.Run(ctx, command[0], args...)
	if err != nil {
		return fmt.Errorf("%w: %s (exit %d): %w", ErrInstallFailed, pkg, code, err)
	}
	return nil
}
