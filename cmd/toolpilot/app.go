package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/jonwraymond/toolpilot/capability"
	"github.com/jonwraymond/toolpilot/config"
	"github.com/jonwraymond/toolpilot/dialogue"
	"github.com/jonwraymond/toolpilot/exec"
	"github.com/jonwraymond/toolpilot/observability"
	"github.com/jonwraymond/toolpilot/provision"
	"github.com/jonwraymond/toolpilot/runtime"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	metrics  *observability.Metrics
	registry *capability.Registry
	model    *dialogue.Adapter
	exec     *exec.Exec
	sessions *exec.Sessions
}

// loadApp reads the configuration and wires the components. Logs go to
// logOut so that commands owning stdout can keep it clean. A non-empty
// profile replaces the configured execution profile.
func loadApp(logOut io.Writer, profile runtime.Profile, configure func(*exec.Options)) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	profile, err = executorProfile(cfg, profile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format, logOut)
	metrics := observability.NewMetrics()

	registry, err := loadRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}

	client := dialogue.NewClient(dialogue.ClientConfig{
		Endpoint: cfg.Model.Endpoint,
		APIKey:   cfg.Model.APIKey,
		Model:    cfg.Model.Name,
	})
	model, err := dialogue.NewAdapter(dialogue.AdapterConfig{
		Completer:  client,
		Credential: client.CheckCredential,
		Dialect:    cfg.Dialect(),
		ChunkLimit: cfg.Model.ChunkLimit,
		Logger:     &logger,
		Observe:    metrics.ObserveModel,
	})
	if err != nil {
		return nil, err
	}

	resolver, err := provision.NewResolver(provision.Config{
		Registry:       registry,
		DisableInstall: cfg.Executor.DisableInstall,
		Logger:         &logger,
		Observe:        metrics.ObserveProvision,
	})
	if err != nil {
		return nil, err
	}
	runner := runtime.New(runtime.Config{
		Profile: profile,
		Logger:  &logger,
		Observe: metrics.ObserveExecution,
	})

	opts := exec.Options{
		Registry:        registry,
		Model:           model,
		Resolver:        resolver,
		Runner:          runner,
		HistoryCapacity: cfg.Session.HistoryCapacity,
		MaxTurns:        cfg.Session.MaxTurns,
		RecordFreeText:  cfg.Session.RecordFreeText,
		Logger:          &logger,
		Observer:        metrics,
	}
	if configure != nil {
		configure(&opts)
	}
	e, err := exec.New(opts)
	if err != nil {
		return nil, err
	}
	sessions, err := exec.NewSessions(e, cfg.Session.MaxSessions)
	if err != nil {
		return nil, err
	}

	if err := model.CheckCredential(); err != nil {
		logger.Warn().Err(err).Msg("model backend is not configured; instructions will be rejected")
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		registry: registry,
		model:    model,
		exec:     e,
		sessions: sessions,
	}, nil
}

// executorProfile returns override when set, else the configured profile.
func executorProfile(cfg *config.Config, override runtime.Profile) (runtime.Profile, error) {
	if override == "" {
		return runtime.Profile(cfg.Executor.Profile), nil
	}
	if !override.IsValid() {
		return "", fmt.Errorf("unknown profile %q (must be compact or full)", override)
	}
	return override, nil
}

// loadRegistry registers the built-in capabilities merged with those of the
// configured file. File entries replace built-ins of the same name.
func loadRegistry(cfg *config.Config, logger zerolog.Logger) (*capability.Registry, error) {
	registry := capability.NewRegistry(
		capability.WithCatalog(capability.NewCatalog(capability.DefaultNamespace)),
		capability.WithLogger(logger),
	)

	descriptors := capability.Defaults()
	if cfg.Capabilities.File != "" {
		extra, err := capability.LoadFile(cfg.Capabilities.File)
		if err != nil {
			return nil, fmt.Errorf("load capabilities: %w", err)
		}
		descriptors = merge(descriptors, extra)
		logger.Info().Int("count", len(extra)).Str("file", cfg.Capabilities.File).Msg("capabilities loaded")
	}

	if err := registry.RegisterAll(descriptors); err != nil {
		return nil, err
	}
	return registry, nil
}

// merge returns base with entries of override replacing same-named ones and
// new names appended in order.
func merge(base, override []capability.Descriptor) []capability.Descriptor {
	pos := make(map[string]int, len(base))
	out := append([]capability.Descriptor(nil), base...)
	for i, d := range out {
		pos[d.Name] = i
	}
	for _, d := range override {
		if i, ok := pos[d.Name]; ok {
			out[i] = d
			continue
		}
		pos[d.Name] = len(out)
		out = append(out, d)
	}
	return out
}
