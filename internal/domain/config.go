package domain

import (
	"sort"
	"strconv"
)

// SourceKind identifies the backing data store of a source.
type SourceKind string

const (
	SourceKindMySQL SourceKind = "mysql"
)

// ToolKind identifies the tool family a tool definition belongs to.
type ToolKind string

const (
	ToolKindMySQLSQL ToolKind = "mysql-sql"
)

// ParamType is the declared type of a tool parameter. Unrecognized types are
// coerced to ParamString by the generator, with a warning.
type ParamType string

const (
	ParamString   ParamType = "string"
	ParamInt      ParamType = "int"
	ParamFloat    ParamType = "float"
	ParamBool     ParamType = "bool"
	ParamMapping  ParamType = "mapping"
	ParamSequence ParamType = "sequence"
)

// SourceConfig is a named connection target. Immutable after load.
type SourceConfig struct {
	Name     string
	Kind     SourceKind
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ConnectionEnv renders the source's connection parameters as the
// environment expected by generated and static tool servers.
func (s SourceConfig) ConnectionEnv() map[string]string {
	return map[string]string{
		EnvMySQLHost:     s.Host,
		EnvMySQLPort:     strconv.Itoa(s.Port),
		EnvMySQLDatabase: s.Database,
		EnvMySQLUser:     s.User,
		EnvMySQLPassword: s.Password,
	}
}

// ToolParameter declares one positional parameter of a tool statement.
type ToolParameter struct {
	Name        string
	Type        ParamType
	Description string
}

// ToolConfig is a parameterized statement bound to one source. The statement
// references parameters positionally as $1..$n in declaration order.
type ToolConfig struct {
	Name        string
	Kind        ToolKind
	Source      string
	Description string
	Parameters  []ToolParameter
	Statement   string
}

// ToolsetConfig is a named group of tools provisioned together as one
// tool server.
type ToolsetConfig struct {
	Name  string
	Tools []string
}

// Catalog is the immutable result of loading a configuration document.
// It is safe for concurrent readers.
type Catalog struct {
	Sources  map[string]SourceConfig
	Tools    map[string]ToolConfig
	Toolsets map[string]ToolsetConfig
	Runtime  RuntimeConfig
}

// SourceNames returns the source names in sorted order.
func (c Catalog) SourceNames() []string {
	return sortedNames(c.Sources)
}

// ToolNames returns the tool names in sorted order.
func (c Catalog) ToolNames() []string {
	return sortedNames(c.Tools)
}

// ToolsetNames returns the toolset names in sorted order.
func (c Catalog) ToolsetNames() []string {
	return sortedNames(c.Toolsets)
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RuntimeConfig carries engine-level settings that are not part of the
// source/tool/toolset model.
type RuntimeConfig struct {
	HandshakeTimeoutSeconds int
	LaunchCommand           []string
	ScriptDir               string
	StaticServerCommand     []string
	Observability           ObservabilityConfig
}

type ObservabilityConfig struct {
	ListenAddress string
}
