package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"toolforge/internal/domain"
)

// Loader reads a declarative tool catalog (sources, tools, toolsets) from a
// YAML document. Cross-references between sections are not checked here;
// that is deferred to resolution.
type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("catalog")}
}

func newCatalogViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setRuntimeDefaults(v)
	return v
}

func setRuntimeDefaults(v *viper.Viper) {
	v.SetDefault("runtime.handshakeTimeoutSeconds", domain.DefaultHandshakeTimeoutSeconds)
	v.SetDefault("runtime.launchCommand", []string{domain.DefaultLaunchCommand})
	v.SetDefault("runtime.observability.listenAddress", domain.DefaultObservabilityListenAddress)
}

type rawDocument struct {
	Sources  map[string]rawSource `mapstructure:"sources"`
	Tools    map[string]rawTool   `mapstructure:"tools"`
	Toolsets map[string][]string  `mapstructure:"toolsets"`
	Runtime  rawRuntime           `mapstructure:"runtime"`
}

type rawSource struct {
	Kind     string `mapstructure:"kind"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type rawTool struct {
	Kind        string         `mapstructure:"kind"`
	Source      string         `mapstructure:"source"`
	Description string         `mapstructure:"description"`
	Parameters  []rawParameter `mapstructure:"parameters"`
	Statement   string         `mapstructure:"statement"`
}

type rawParameter struct {
	Name        string `mapstructure:"name"`
	Type        string `mapstructure:"type"`
	Description string `mapstructure:"description"`
}

type rawRuntime struct {
	HandshakeTimeoutSeconds int              `mapstructure:"handshakeTimeoutSeconds"`
	LaunchCommand           []string         `mapstructure:"launchCommand"`
	ScriptDir               string           `mapstructure:"scriptDir"`
	StaticServerCommand     []string         `mapstructure:"staticServerCommand"`
	Observability           rawObservability `mapstructure:"observability"`
}

type rawObservability struct {
	ListenAddress string `mapstructure:"listenAddress"`
}

// Load parses the document at path into an immutable catalog. Missing
// sections default to empty. Load is idempotent; repeated calls on the same
// path yield equal catalogs.
func (l *Loader) Load(ctx context.Context, path string) (domain.Catalog, error) {
	if path == "" {
		return domain.Catalog{}, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("read config: %w", err)
	}

	expanded, missing, err := expandConfigEnv(data)
	if err != nil {
		return domain.Catalog{}, err
	}
	if len(missing) > 0 {
		l.logger.Warn("missing environment variables in config",
			zap.String("path", path),
			zap.Strings("missing", missing),
		)
	}

	v := newCatalogViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return domain.Catalog{}, fmt.Errorf("parse config: %w", err)
	}

	var doc rawDocument
	if err := v.Unmarshal(&doc); err != nil {
		return domain.Catalog{}, fmt.Errorf("decode config: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return domain.Catalog{}, err
	}

	var validationErrors []string

	sources := make(map[string]domain.SourceConfig, len(doc.Sources))
	for name, raw := range doc.Sources {
		src, errs := normalizeSource(name, raw)
		if len(errs) > 0 {
			validationErrors = append(validationErrors, errs...)
			continue
		}
		sources[name] = src
	}

	tools := make(map[string]domain.ToolConfig, len(doc.Tools))
	for name, raw := range doc.Tools {
		tool, errs := l.normalizeTool(name, raw)
		if len(errs) > 0 {
			validationErrors = append(validationErrors, errs...)
			continue
		}
		tools[name] = tool
	}

	toolsets := make(map[string]domain.ToolsetConfig, len(doc.Toolsets))
	for name, toolNames := range doc.Toolsets {
		toolsets[name] = domain.ToolsetConfig{Name: name, Tools: toolNames}
	}

	runtime, runtimeErrs := normalizeRuntime(doc.Runtime)
	validationErrors = append(validationErrors, runtimeErrs...)

	if len(validationErrors) > 0 {
		return domain.Catalog{}, errors.New(strings.Join(validationErrors, "; "))
	}

	l.logger.Info("catalog loaded",
		zap.String("path", path),
		zap.Int("sources", len(sources)),
		zap.Int("tools", len(tools)),
		zap.Int("toolsets", len(toolsets)),
	)

	return domain.Catalog{
		Sources:  sources,
		Tools:    tools,
		Toolsets: toolsets,
		Runtime:  runtime,
	}, nil
}

func normalizeSource(name string, raw rawSource) (domain.SourceConfig, []string) {
	var errs []string
	if raw.Kind == "" {
		errs = append(errs, fmt.Sprintf("sources.%s: kind is required", name))
	}
	if raw.Port < 0 || raw.Port > 65535 {
		errs = append(errs, fmt.Sprintf("sources.%s: port must be between 0 and 65535", name))
	}
	if len(errs) > 0 {
		return domain.SourceConfig{}, errs
	}

	src := domain.SourceConfig{
		Name:     name,
		Kind:     domain.SourceKind(raw.Kind),
		Host:     raw.Host,
		Port:     raw.Port,
		Database: raw.Database,
		User:     raw.User,
		Password: raw.Password,
	}
	if src.Host == "" {
		src.Host = domain.DefaultMySQLHost
	}
	if src.Port == 0 {
		src.Port = domain.DefaultMySQLPort
	}
	return src, nil
}

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

func (l *Loader) normalizeTool(name string, raw rawTool) (domain.ToolConfig, []string) {
	var errs []string
	if raw.Kind == "" {
		errs = append(errs, fmt.Sprintf("tools.%s: kind is required", name))
	}
	if raw.Source == "" {
		errs = append(errs, fmt.Sprintf("tools.%s: source is required", name))
	}

	params := make([]domain.ToolParameter, 0, len(raw.Parameters))
	for i, p := range raw.Parameters {
		if p.Name == "" {
			errs = append(errs, fmt.Sprintf("tools.%s: parameters[%d]: name is required", name, i))
			continue
		}
		params = append(params, domain.ToolParameter{
			Name:        p.Name,
			Type:        domain.ParamType(p.Type),
			Description: p.Description,
		})
	}

	if len(errs) > 0 {
		return domain.ToolConfig{}, errs
	}

	// Out-of-range placeholders are not rejected; they survive substitution
	// untouched and fail at the data source instead. Flag them here so a
	// misnumbered template is at least visible.
	for _, match := range placeholderPattern.FindAllStringSubmatch(raw.Statement, -1) {
		idx, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if idx < 1 || idx > len(params) {
			l.logger.Warn("statement references placeholder outside the declared parameter range",
				zap.String("tool", name),
				zap.String("placeholder", match[0]),
				zap.Int("parameters", len(params)),
			)
		}
	}

	return domain.ToolConfig{
		Name:        name,
		Kind:        domain.ToolKind(raw.Kind),
		Source:      raw.Source,
		Description: raw.Description,
		Parameters:  params,
		Statement:   raw.Statement,
	}, nil
}

func normalizeRuntime(raw rawRuntime) (domain.RuntimeConfig, []string) {
	var errs []string

	if raw.HandshakeTimeoutSeconds <= 0 {
		errs = append(errs, "runtime.handshakeTimeoutSeconds must be > 0")
	}
	if len(raw.LaunchCommand) == 0 {
		errs = append(errs, "runtime.launchCommand must not be empty")
	}

	listenAddress := strings.TrimSpace(raw.Observability.ListenAddress)
	if listenAddress == "" {
		listenAddress = domain.DefaultObservabilityListenAddress
	}

	return domain.RuntimeConfig{
		HandshakeTimeoutSeconds: raw.HandshakeTimeoutSeconds,
		LaunchCommand:           raw.LaunchCommand,
		ScriptDir:               raw.ScriptDir,
		StaticServerCommand:     raw.StaticServerCommand,
		Observability:           domain.ObservabilityConfig{ListenAddress: listenAddress},
	}, errs
}
