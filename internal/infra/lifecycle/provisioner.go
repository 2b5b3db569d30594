package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"toolforge/internal/domain"
	"toolforge/internal/infra/catalog"
	"toolforge/internal/infra/codegen"
	"toolforge/internal/infra/telemetry"
	"toolforge/internal/infra/transport"
)

// Provisioner turns resolved toolsets into running tool servers. Every
// acquisition (transient program file, subprocess session) is registered on
// the toolset's scope, so teardown is deterministic on success and failure
// alike.
type Provisioner struct {
	generator *codegen.Generator
	launcher  *transport.Launcher
	runtime   domain.RuntimeConfig
	logger    *zap.Logger
	metrics   *telemetry.Metrics
}

type Options struct {
	Generator *codegen.Generator
	Launcher  *transport.Launcher
	Runtime   domain.RuntimeConfig
	Logger    *zap.Logger
	Metrics   *telemetry.Metrics
}

func NewProvisioner(opts Options) *Provisioner {
	if opts.Generator == nil {
		panic("lifecycle.Provisioner requires a generator")
	}
	if opts.Launcher == nil {
		panic("lifecycle.Provisioner requires a launcher")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{
		generator: opts.Generator,
		launcher:  opts.Launcher,
		runtime:   opts.Runtime,
		logger:    logger.Named("lifecycle"),
		metrics:   opts.Metrics,
	}
}

// ProvisionToolset generates the tool-server program for one resolved
// toolset, launches it, and returns the discovered tool handles together
// with the scope that owns them. On any failure the scope is fully released
// before the original error is returned; no partially provisioned state
// escapes.
func (p *Provisioner) ProvisionToolset(ctx context.Context, res catalog.Resolution) ([]domain.ToolHandle, *Scope, error) {
	if res.SourceKind != domain.SourceKindMySQL {
		return nil, nil, fmt.Errorf("%w: %s (toolset %s)", domain.ErrUnsupportedSourceKind, res.SourceKind, res.Toolset)
	}

	started := time.Now()
	scope := NewScope(res.Toolset, p.logger)
	p.logger.Info("provisioning toolset",
		telemetry.EventField(telemetry.EventProvisionAttempt),
		telemetry.ToolsetField(res.Toolset),
		telemetry.ScopeIDField(scope.ID()),
		zap.Int("tools", len(res.Tools)),
	)

	scope.setState(domain.ScopeGenerating)
	program, err := p.generator.Generate(res.Tools)
	if err != nil {
		return nil, nil, p.failProvision(scope, res.Toolset, started, err)
	}

	script, err := p.writeProgram(program)
	if err != nil {
		return nil, nil, p.failProvision(scope, res.Toolset, started, err)
	}
	scope.Defer("remove generated program", func() error {
		return os.Remove(script)
	})

	cmd := append(append([]string(nil), p.runtime.LaunchCommand...), script)
	handles, err := p.launchAndDiscover(ctx, scope, transport.LaunchSpec{
		Name: res.Toolset,
		Cmd:  cmd,
		Env:  res.Source.ConnectionEnv(),
	})
	if err != nil {
		return nil, nil, p.failProvision(scope, res.Toolset, started, err)
	}

	p.finishProvision(scope, res.Toolset, started, len(handles))
	return handles, scope, nil
}

// ProvisionStaticTool launches the configured fixed tool-server program for
// a single tool, skipping generation and the transient file entirely. The
// source's connection parameters are injected via the environment, and the
// same scope contract applies.
func (p *Provisioner) ProvisionStaticTool(ctx context.Context, tool domain.ToolConfig, source domain.SourceConfig) ([]domain.ToolHandle, *Scope, error) {
	if tool.Kind != domain.ToolKindMySQLSQL {
		return nil, nil, fmt.Errorf("%w: %s (tool %s)", domain.ErrUnsupportedToolKind, tool.Kind, tool.Name)
	}
	if source.Kind != domain.SourceKindMySQL {
		return nil, nil, fmt.Errorf("%w: %s (source %s)", domain.ErrUnsupportedSourceKind, source.Kind, source.Name)
	}
	if len(p.runtime.StaticServerCommand) == 0 {
		return nil, nil, errors.New("runtime.staticServerCommand is required for static tool provisioning")
	}

	started := time.Now()
	scope := NewScope(tool.Name, p.logger)
	p.logger.Info("provisioning static tool",
		telemetry.EventField(telemetry.EventProvisionAttempt),
		telemetry.ToolField(tool.Name),
		telemetry.ScopeIDField(scope.ID()),
	)

	handles, err := p.launchAndDiscover(ctx, scope, transport.LaunchSpec{
		Name: tool.Name,
		Cmd:  p.runtime.StaticServerCommand,
		Env:  source.ConnectionEnv(),
	})
	if err != nil {
		return nil, nil, p.failProvision(scope, tool.Name, started, err)
	}

	p.finishProvision(scope, tool.Name, started, len(handles))
	return handles, scope, nil
}

// ProvisionToolsets resolves then provisions a batch sequentially, one
// scope per toolset. A provisioning failure releases every scope already
// opened by the batch. Toolsets skipped by the resolver (mixed source
// kinds) surface through the returned error alongside any handles that did
// provision.
func (p *Provisioner) ProvisionToolsets(ctx context.Context, resolver *catalog.Resolver, names ...string) ([]domain.ToolHandle, []*Scope, error) {
	resolutions, resolveErr := resolver.Resolve(names...)
	if len(resolutions) == 0 {
		return nil, nil, resolveErr
	}

	var handles []domain.ToolHandle
	var scopes []*Scope
	for _, res := range resolutions {
		h, scope, err := p.ProvisionToolset(ctx, res)
		if err != nil {
			for i := len(scopes) - 1; i >= 0; i-- {
				scopes[i].Close()
			}
			return nil, nil, err
		}
		handles = append(handles, h...)
		scopes = append(scopes, scope)
	}
	return handles, scopes, resolveErr
}

func (p *Provisioner) launchAndDiscover(ctx context.Context, scope *Scope, spec transport.LaunchSpec) ([]domain.ToolHandle, error) {
	scope.setState(domain.ScopeLaunching)
	session, err := p.launcher.Launch(ctx, spec)
	if err != nil {
		return nil, err
	}
	scope.Defer("terminate tool server", session.Close)

	discoverCtx := ctx
	if timeout := p.runtime.HandshakeTimeoutSeconds; timeout > 0 {
		var cancel context.CancelFunc
		discoverCtx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}
	listed, err := session.ListTools(discoverCtx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("list tools on %s: %w", spec.Name, err)
	}

	handles := make([]domain.ToolHandle, 0, len(listed.Tools))
	for _, tool := range listed.Tools {
		handles = append(handles, &serverToolHandle{
			caller:      session,
			name:        tool.Name,
			description: tool.Description,
			metrics:     p.metrics,
		})
	}

	p.metrics.ScopeOpened()
	scope.Defer("record scope closed", func() error {
		p.metrics.ScopeClosed()
		return nil
	})
	scope.setState(domain.ScopeReady)
	return handles, nil
}

// failProvision releases whatever the scope already acquired and returns
// the original error. Cleanup failures are logged by the scope and never
// replace err.
func (p *Provisioner) failProvision(scope *Scope, name string, started time.Time, err error) error {
	scope.Close()
	p.metrics.ObserveProvision(name, time.Since(started), err)
	p.logger.Error("provisioning failed",
		telemetry.EventField(telemetry.EventProvisionFailure),
		telemetry.ToolsetField(name),
		telemetry.ScopeIDField(scope.ID()),
		telemetry.DurationField(time.Since(started)),
		zap.Error(err),
	)
	return fmt.Errorf("provision %s: %w", name, err)
}

func (p *Provisioner) finishProvision(scope *Scope, name string, started time.Time, toolCount int) {
	p.metrics.ObserveProvision(name, time.Since(started), nil)
	p.logger.Info("toolset provisioned",
		telemetry.EventField(telemetry.EventProvisionSuccess),
		telemetry.ToolsetField(name),
		telemetry.ScopeIDField(scope.ID()),
		telemetry.DurationField(time.Since(started)),
		zap.Int("tools", toolCount),
	)
}

func (p *Provisioner) writeProgram(program string) (string, error) {
	file, err := os.CreateTemp(p.runtime.ScriptDir, "toolforge-*.py")
	if err != nil {
		return "", fmt.Errorf("create program file: %w", err)
	}
	if _, err := file.WriteString(program); err != nil {
		_ = file.Close()
		_ = os.Remove(file.Name())
		return "", fmt.Errorf("write program file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(file.Name())
		return "", fmt.Errorf("close program file: %w", err)
	}
	return file.Name(), nil
}
