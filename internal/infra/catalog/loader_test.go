package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"toolforge/internal/domain"
)

func TestLoader_Success(t *testing.T) {
	file := writeTempConfig(t, `
sources:
  my-mysql-instance:
    kind: mysql
    host: db.internal
    port: 3307
    database: hotels
    user: app
    password: secret
tools:
  search-hotels:
    kind: mysql-sql
    source: my-mysql-instance
    description: Search hotels by name
    parameters:
      - name: name
        type: string
    statement: SELECT * FROM hotel WHERE name LIKE $1
toolsets:
  hotel-tools:
    - search-hotels
`)

	loader := NewLoader(zap.NewNop())
	cat, err := loader.Load(context.Background(), file)
	require.NoError(t, err)
	require.Len(t, cat.Sources, 1)
	require.Len(t, cat.Tools, 1)
	require.Len(t, cat.Toolsets, 1)

	expectSource := domain.SourceConfig{
		Name:     "my-mysql-instance",
		Kind:     domain.SourceKindMySQL,
		Host:     "db.internal",
		Port:     3307,
		Database: "hotels",
		User:     "app",
		Password: "secret",
	}
	if diff := cmp.Diff(expectSource, cat.Sources["my-mysql-instance"]); diff != "" {
		t.Fatalf("source mismatch (-want +got):\n%s", diff)
	}

	expectTool := domain.ToolConfig{
		Name:        "search-hotels",
		Kind:        domain.ToolKindMySQLSQL,
		Source:      "my-mysql-instance",
		Description: "Search hotels by name",
		Parameters: []domain.ToolParameter{
			{Name: "name", Type: domain.ParamString},
		},
		Statement: "SELECT * FROM hotel WHERE name LIKE $1",
	}
	if diff := cmp.Diff(expectTool, cat.Tools["search-hotels"]); diff != "" {
		t.Fatalf("tool mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, []string{"search-hotels"}, cat.Toolsets["hotel-tools"].Tools)

	require.Equal(t, domain.DefaultHandshakeTimeoutSeconds, cat.Runtime.HandshakeTimeoutSeconds)
	require.Equal(t, []string{domain.DefaultLaunchCommand}, cat.Runtime.LaunchCommand)
	require.Equal(t, domain.DefaultObservabilityListenAddress, cat.Runtime.Observability.ListenAddress)
}

func TestLoader_MissingSectionsDefaultEmpty(t *testing.T) {
	file := writeTempConfig(t, `
sources:
  db:
    kind: mysql
`)

	cat, err := NewLoader(zap.NewNop()).Load(context.Background(), file)
	require.NoError(t, err)
	require.Len(t, cat.Sources, 1)
	require.Empty(t, cat.Tools)
	require.Empty(t, cat.Toolsets)
}

func TestLoader_SourceDefaults(t *testing.T) {
	file := writeTempConfig(t, `
sources:
  db:
    kind: mysql
    database: app
`)

	cat, err := NewLoader(zap.NewNop()).Load(context.Background(), file)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultMySQLHost, cat.Sources["db"].Host)
	require.Equal(t, domain.DefaultMySQLPort, cat.Sources["db"].Port)
}

func TestLoader_EnvExpansion(t *testing.T) {
	t.Setenv("TF_DB_HOST", "db.prod.internal")
	t.Setenv("TF_DB_PORT", "3310")
	file := writeTempConfig(t, `
sources:
  db:
    kind: mysql
    host: ${TF_DB_HOST}
    port: ${TF_DB_PORT}
`)

	cat, err := NewLoader(zap.NewNop()).Load(context.Background(), file)
	require.NoError(t, err)
	require.Equal(t, "db.prod.internal", cat.Sources["db"].Host)
	require.Equal(t, 3310, cat.Sources["db"].Port)
}

func TestLoader_StatementPlaceholdersNotExpanded(t *testing.T) {
	t.Setenv("TF_DB_NAME", "hotels")
	file := writeTempConfig(t, `
sources:
  db:
    kind: mysql
    database: ${TF_DB_NAME}
tools:
  update-pair:
    kind: mysql-sql
    source: db
    parameters:
      - name: a
        type: string
      - name: b
        type: string
    statement: UPDATE t SET a=$1 WHERE b=$2
`)

	cat, err := NewLoader(zap.NewNop()).Load(context.Background(), file)
	require.NoError(t, err)
	require.Equal(t, "hotels", cat.Sources["db"].Database)
	require.Equal(t, "UPDATE t SET a=$1 WHERE b=$2", cat.Tools["update-pair"].Statement)
}

func TestLoader_QuotedEnvExpansionStaysString(t *testing.T) {
	t.Setenv("TF_DB_PASSWORD", "123456")
	file := writeTempConfig(t, `
sources:
  db:
    kind: mysql
    password: "${TF_DB_PASSWORD}"
`)

	cat, err := NewLoader(zap.NewNop()).Load(context.Background(), file)
	require.NoError(t, err)
	require.Equal(t, "123456", cat.Sources["db"].Password)
}

func TestLoader_MalformedDocument(t *testing.T) {
	file := writeTempConfig(t, "sources: [:::")

	_, err := NewLoader(zap.NewNop()).Load(context.Background(), file)
	require.Error(t, err)
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(zap.NewNop()).Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "read config")
}

func TestLoader_ValidationErrors(t *testing.T) {
	file := writeTempConfig(t, `
sources:
  db:
    host: localhost
tools:
  broken:
    description: missing kind and source
    parameters:
      - type: string
`)

	_, err := NewLoader(zap.NewNop()).Load(context.Background(), file)
	require.Error(t, err)
	require.Contains(t, err.Error(), "sources.db: kind is required")
	require.Contains(t, err.Error(), "tools.broken: kind is required")
	require.Contains(t, err.Error(), "tools.broken: source is required")
	require.Contains(t, err.Error(), "parameters[0]: name is required")
}

func TestLoader_Idempotent(t *testing.T) {
	file := writeTempConfig(t, `
sources:
  db:
    kind: mysql
tools:
  t1:
    kind: mysql-sql
    source: db
    statement: SELECT 1
`)

	loader := NewLoader(zap.NewNop())
	first, err := loader.Load(context.Background(), file)
	require.NoError(t, err)
	second, err := loader.Load(context.Background(), file)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated load mismatch (-first +second):\n%s", diff)
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600))
	return path
}
