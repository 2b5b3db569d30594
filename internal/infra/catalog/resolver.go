package catalog

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"toolforge/internal/domain"
)

// Resolution is a toolset expanded to concrete tool definitions, all bound
// to sources of one kind. Source is the connection target the provisioned
// server will talk to (the first tool's source, as every tool in the set
// shares the kind).
type Resolution struct {
	Toolset    string
	Tools      []domain.ToolConfig
	SourceKind domain.SourceKind
	Source     domain.SourceConfig
}

// Resolver expands toolset names against a loaded catalog and enforces the
// single-source-kind rule before any provisioning work happens.
type Resolver struct {
	catalog domain.Catalog
	logger  *zap.Logger
}

func NewResolver(catalog domain.Catalog, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{catalog: catalog, logger: logger.Named("resolver")}
}

// Resolve expands the named toolsets. Dangling references (toolset, tool, or
// source) fail the whole call. A toolset mixing source kinds is skipped and
// reported through the returned error while the remaining toolsets still
// resolve, so a batch can continue past one bad toolset. An empty toolset is
// skipped with a warning and contributes nothing.
func (r *Resolver) Resolve(names ...string) ([]Resolution, error) {
	for _, name := range names {
		if _, ok := r.catalog.Toolsets[name]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownToolset, name)
		}
	}

	resolutions := make([]Resolution, 0, len(names))
	var kindErrs []error

	for _, name := range names {
		toolset := r.catalog.Toolsets[name]

		tools := make([]domain.ToolConfig, 0, len(toolset.Tools))
		kinds := make(map[domain.SourceKind]struct{})
		for _, toolName := range toolset.Tools {
			tool, ok := r.catalog.Tools[toolName]
			if !ok {
				return nil, fmt.Errorf("%w: %s (referenced by toolset %s)", domain.ErrUnknownTool, toolName, name)
			}
			source, ok := r.catalog.Sources[tool.Source]
			if !ok {
				return nil, fmt.Errorf("%w: %s (referenced by tool %s)", domain.ErrUnknownSource, tool.Source, toolName)
			}
			kinds[source.Kind] = struct{}{}
			tools = append(tools, tool)
		}

		if len(tools) == 0 {
			r.logger.Warn("toolset has no tools, skipping", zap.String("toolset", name))
			continue
		}

		if len(kinds) != 1 {
			err := &domain.InconsistentKindError{Toolset: name, Kinds: kindSet(kinds)}
			r.logger.Error("toolset mixes source kinds", zap.String("toolset", name), zap.Error(err))
			kindErrs = append(kindErrs, err)
			continue
		}

		var kind domain.SourceKind
		for k := range kinds {
			kind = k
		}
		resolutions = append(resolutions, Resolution{
			Toolset:    name,
			Tools:      tools,
			SourceKind: kind,
			Source:     r.catalog.Sources[tools[0].Source],
		})
	}

	return resolutions, errors.Join(kindErrs...)
}

// ResolveTool resolves a single tool and its source for the static
// provisioning path.
func (r *Resolver) ResolveTool(name string) (domain.ToolConfig, domain.SourceConfig, error) {
	tool, ok := r.catalog.Tools[name]
	if !ok {
		return domain.ToolConfig{}, domain.SourceConfig{}, fmt.Errorf("%w: %s", domain.ErrUnknownTool, name)
	}
	source, ok := r.catalog.Sources[tool.Source]
	if !ok {
		return domain.ToolConfig{}, domain.SourceConfig{}, fmt.Errorf("%w: %s (referenced by tool %s)", domain.ErrUnknownSource, tool.Source, name)
	}
	return tool, source, nil
}

func kindSet(kinds map[domain.SourceKind]struct{}) []domain.SourceKind {
	out := make([]domain.SourceKind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	return out
}
