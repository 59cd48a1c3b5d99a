// Package provision locates capability executables and installs missing ones.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/toolpilot/capability"
)

// Default timeouts.
const (
	DefaultProbeTimeout   = 2 * time.Second
	DefaultInstallTimeout = 120 * time.Second
)

// ErrUnavailable is returned when a capability cannot be made executable.
var ErrUnavailable = errors.New("capability unavailable")

// ErrRegistryRequired is returned by NewResolver without a registry.
var ErrRegistryRequired = errors.New("provision: Registry is required")

// Outcome labels a resolution for metrics.
type Outcome string

const (
	OutcomePresent     Outcome = "present"
	OutcomeInstalled   Outcome = "installed"
	OutcomeUnavailable Outcome = "unavailable"
)

// Lookup finds capability descriptors by name.
type Lookup interface {
	Lookup(name string) (capability.Descriptor, error)
}

// Resolved is a capability whose executable exists on this host.
type Resolved struct {
	Descriptor capability.Descriptor

	// Path is the absolute executable path.
	Path string

	// Installed is true when this resolution ran the installer.
	Installed bool
}

// Config configures a Resolver.
type Config struct {
	// Registry supplies descriptors.
	// Required.
	Registry Lookup

	// Prober finds executables. Default: PathProber.
	Prober Prober

	// Installer provisions missing packages. Default: AptInstaller.
	// Set DisableInstall to never install.
	Installer Installer

	// DisableInstall turns provisioning off; missing executables are unavailable.
	DisableInstall bool

	// ProbeTimeout bounds each probe. Default: 2s.
	ProbeTimeout time.Duration

	// InstallTimeout bounds each installation. Default: 120s.
	InstallTimeout time.Duration

	// Logger receives resolution events.
	Logger *zerolog.Logger

	// Observe is called once per Resolve with its outcome. Optional.
	Observe func(name string, outcome Outcome)
}

func (c *Config) applyDefaults() {
	if c.Prober == nil {
		c.Prober = PathProber{}
	}
	if c.Installer == nil && !c.DisableInstall {
		c.Installer = AptInstaller{}
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.InstallTimeout <= 0 {
		c.InstallTimeout = DefaultInstallTimeout
	}
}

// Resolver turns capability names into runnable executables.
// It is safe for concurrent use; concurrent installs of one package share a
// single package manager run.
type Resolver struct {
	cfg    Config
	logger zerolog.Logger
	group  singleflight.Group
}

// NewResolver creates a Resolver.
func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.Registry == nil {
		return nil, ErrRegistryRequired
	}
	cfg.applyDefaults()

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "provision").Logger()
	}
	return &Resolver{cfg: cfg, logger: logger}, nil
}

// Resolve probes for the capability's executable, installs its package when
// the executable is missing, and probes again. When the executable is already
// present only the probe runs.
func (r *Resolver) Resolve(ctx context.Context, name string) (Resolved, error) {
	d, err := r.cfg.Registry.Lookup(name)
	if err != nil {
		r.observe(name, OutcomeUnavailable)
		return Resolved{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if path, err := r.probe(ctx, d.Executable); err == nil {
		r.observe(name, OutcomePresent)
		return Resolved{Descriptor: d, Path: path}, nil
	}
	if err := ctx.Err(); err != nil {
		return Resolved{}, fmt.Errorf("%w: %s: %w", ErrUnavailable, name, err)
	}

	if d.Package == "" || r.cfg.Installer == nil {
		r.observe(name, OutcomeUnavailable)
		return Resolved{}, fmt.Errorf("%w: %s: %s not found and no package to install", ErrUnavailable, name, d.Executable)
	}

	if err := r.install(ctx, d.Package); err != nil {
		r.logger.Warn().Err(err).Str("capability", name).Str("package", d.Package).Msg("install failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Resolved{}, fmt.Errorf("%w: %s: %w", ErrUnavailable, name, ctxErr)
		}
	}

	path, err := r.probe(ctx, d.Executable)
	if err != nil {
		r.observe(name, OutcomeUnavailable)
		return Resolved{}, fmt.Errorf("%w: %s: %s still missing after installing %s", ErrUnavailable, name, d.Executable, d.Package)
	}
	r.logger.Info().Str("capability", name).Str("package", d.Package).Str("path", path).Msg("capability provisioned")
	r.observe(name, OutcomeInstalled)
	return Resolved{Descriptor: d, Path: path, Installed: true}, nil
}

func (r *Resolver) probe(ctx context.Context, executable string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()
	return r.cfg.Prober.Probe(ctx, executable)
}

// install shares one package manager run between concurrent callers. The run
// is not tied to any single caller's cancellation; each caller stops waiting
// when its own context ends.
func (r *Resolver) install(ctx context.Context, pkg string) error {
	ch := r.group.DoChan(pkg, func() (any, error) {
		ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.InstallTimeout)
		defer cancel()
		r.logger.Info().Str("package", pkg).Msg("installing package")
		return nil, r.cfg.Installer.Install(ictx, pkg)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Resolver) observe(name string, outcome Outcome) {
	if r.cfg.Observe != nil {
		r.cfg.Observe(name, outcome)
	}
}
