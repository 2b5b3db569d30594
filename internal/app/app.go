package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"toolforge/internal/domain"
	"toolforge/internal/infra/catalog"
	"toolforge/internal/infra/codegen"
	"toolforge/internal/infra/lifecycle"
	"toolforge/internal/infra/telemetry"
	"toolforge/internal/infra/transport"
)

// App wires the loader, resolver, generator, and lifecycle manager behind
// the CLI operations.
type App struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{logger: logger}
}

type ValidateConfig struct {
	ConfigPath string
}

type GenerateConfig struct {
	ConfigPath string
	Toolset    string
}

type UpConfig struct {
	ConfigPath   string
	Toolsets     []string
	ServeMetrics bool
}

// Validate loads the catalog and resolves every toolset in it, reporting
// dangling references and mixed source kinds without launching anything.
func (a *App) Validate(ctx context.Context, cfg ValidateConfig) error {
	cat, err := catalog.NewLoader(a.logger).Load(ctx, cfg.ConfigPath)
	if err != nil {
		return err
	}

	resolver := catalog.NewResolver(cat, a.logger)
	resolutions, err := resolver.Resolve(cat.ToolsetNames()...)
	if err != nil {
		return err
	}

	for _, res := range resolutions {
		a.logger.Info("toolset ok",
			zap.String("toolset", res.Toolset),
			zap.String("sourceKind", string(res.SourceKind)),
			zap.Int("tools", len(res.Tools)),
		)
	}
	a.logger.Info("catalog valid",
		zap.Int("sources", len(cat.Sources)),
		zap.Int("tools", len(cat.Tools)),
		zap.Int("toolsets", len(cat.Toolsets)),
	)
	return nil
}

// Generate resolves one toolset and returns the synthesized tool-server
// program text without writing or launching anything.
func (a *App) Generate(ctx context.Context, cfg GenerateConfig) (string, error) {
	cat, err := catalog.NewLoader(a.logger).Load(ctx, cfg.ConfigPath)
	if err != nil {
		return "", err
	}

	resolutions, err := catalog.NewResolver(cat, a.logger).Resolve(cfg.Toolset)
	if err != nil {
		return "", err
	}
	if len(resolutions) == 0 {
		return "", fmt.Errorf("toolset %s resolved to no tools", cfg.Toolset)
	}

	return codegen.NewGenerator(a.logger).Generate(resolutions[0].Tools)
}

// Up provisions the named toolsets, prints the exposed tools, and holds the
// servers until ctx is cancelled. All scopes are released in reverse order
// on the way out, cancellation included.
func (a *App) Up(ctx context.Context, cfg UpConfig) error {
	cat, err := catalog.NewLoader(a.logger).Load(ctx, cfg.ConfigPath)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(registry)
	resolver := catalog.NewResolver(cat, a.logger)
	launcher := transport.NewLauncher(time.Duration(cat.Runtime.HandshakeTimeoutSeconds)*time.Second, a.logger)
	provisioner := lifecycle.NewProvisioner(lifecycle.Options{
		Generator: codegen.NewGenerator(a.logger),
		Launcher:  launcher,
		Runtime:   cat.Runtime,
		Logger:    a.logger,
		Metrics:   metrics,
	})

	handles, scopes, err := provisioner.ProvisionToolsets(ctx, resolver, cfg.Toolsets...)
	defer func() {
		for i := len(scopes) - 1; i >= 0; i-- {
			scopes[i].Close()
		}
	}()
	if len(scopes) == 0 {
		if err != nil {
			return err
		}
		a.logger.Warn("nothing to provision")
		return nil
	}
	if err != nil {
		a.logger.Warn("some toolsets were skipped", zap.Error(err))
	}

	for _, handle := range handles {
		a.logger.Info("tool available",
			zap.String("tool", handle.Name()),
			zap.String("description", handle.Description()),
		)
	}

	if cfg.ServeMetrics {
		go func() {
			if err := telemetry.StartHTTPServer(ctx, cat.Runtime.Observability.ListenAddress, registry, a.logger); err != nil {
				a.logger.Error("observability server error", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	return nil
}

// LoadCatalog exposes the loader for embedding callers that drive the
// resolver and provisioner directly.
func (a *App) LoadCatalog(ctx context.Context, path string) (domain.Catalog, error) {
	return catalog.NewLoader(a.logger).Load(ctx, path)
}
