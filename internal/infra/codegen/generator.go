package codegen

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"toolforge/internal/domain"
)

// Generator synthesizes the source text of a standalone MCP tool-server
// program for a list of tool definitions sharing one kind. Generation is
// pure: the same input list always yields the same text, no I/O happens,
// and the only failure mode is an unsupported tool kind.
type Generator struct {
	logger *zap.Logger
}

func NewGenerator(logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{logger: logger.Named("codegen")}
}

const preamble = `#!/usr/bin/env python3
"""Generated MySQL MCP tool server."""

import os

import mysql.connector
from fastmcp import FastMCP

mcp = FastMCP(name="DynamicMySQLServer")


def get_mysql_connection():
    return mysql.connector.connect(
        host=os.getenv("MYSQL_HOST"),
        user=os.getenv("MYSQL_USER"),
        password=os.getenv("MYSQL_PASSWORD"),
        database=os.getenv("MYSQL_DATABASE"),
        port=int(os.getenv("MYSQL_PORT")),
    )

`

const runQueryTool = `
@mcp.tool()
def run_query(query: str) -> str:
    """Run a SQL query on the configured MySQL database."""
    conn = get_mysql_connection()
    cursor = conn.cursor()
    cursor.execute(query)
    try:
        result = cursor.fetchall()
        return str(result)
    except mysql.connector.InterfaceError:
        return "Query executed successfully."
    finally:
        cursor.close()
        conn.close()

`

const executeAndClose = `    try:
        result = cursor.fetchall()
        return str(result)
    except mysql.connector.InterfaceError:
        return "Query executed successfully."
    finally:
        cursor.close()
        conn.close()

`

const entryPoint = `
if __name__ == "__main__":
    mcp.run()
`

// Generate emits the full program text: connection factory, the run_query
// fallback operation, one operation per tool in input order, and the
// entry-point block.
func (g *Generator) Generate(tools []domain.ToolConfig) (string, error) {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString(runQueryTool)

	for _, tool := range tools {
		if tool.Kind != domain.ToolKindMySQLSQL {
			return "", fmt.Errorf("%w: %s (tool %s)", domain.ErrUnsupportedToolKind, tool.Kind, tool.Name)
		}
		g.writeToolFunction(&b, tool)
	}

	b.WriteString(entryPoint)
	return b.String(), nil
}

func (g *Generator) writeToolFunction(b *strings.Builder, tool domain.ToolConfig) {
	params := make([]string, 0, len(tool.Parameters))
	names := make([]string, 0, len(tool.Parameters))
	for _, p := range tool.Parameters {
		params = append(params, fmt.Sprintf("%s: %s", p.Name, g.pythonType(tool.Name, p)))
		names = append(names, p.Name)
	}

	fmt.Fprintf(b, "\n@mcp.tool()\ndef %s(%s) -> str:\n", operationName(tool.Name), strings.Join(params, ", "))
	fmt.Fprintf(b, "    \"\"\"%s\"\"\"\n", tool.Description)
	b.WriteString("    conn = get_mysql_connection()\n    cursor = conn.cursor()\n")
	fmt.Fprintf(b, "    query = \"\"\"%s\"\"\"\n", rewritePlaceholders(tool.Statement, len(names)))

	switch len(names) {
	case 0:
		b.WriteString("    cursor.execute(query)\n")
	case 1:
		// A lone argument must still be passed as a sequence, hence the
		// trailing comma.
		fmt.Fprintf(b, "    cursor.execute(query, (%s,))\n", names[0])
	default:
		fmt.Fprintf(b, "    cursor.execute(query, (%s))\n", strings.Join(names, ", "))
	}
	b.WriteString(executeAndClose)
}

// rewritePlaceholders substitutes $1..$n with the driver's positional
// placeholder. Indices are scanned from highest to lowest so $10 is never
// corrupted by the $1 substitution.
func rewritePlaceholders(statement string, paramCount int) string {
	for i := paramCount; i >= 1; i-- {
		statement = strings.ReplaceAll(statement, fmt.Sprintf("$%d", i), "%s")
	}
	return statement
}

// operationName derives a valid operation identifier from a tool name.
func operationName(toolName string) string {
	var b strings.Builder
	for i, r := range toolName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (g *Generator) pythonType(toolName string, p domain.ToolParameter) string {
	switch p.Type {
	case domain.ParamString, "str", "":
		return "str"
	case domain.ParamInt:
		return "int"
	case domain.ParamFloat:
		return "float"
	case domain.ParamBool:
		return "bool"
	case domain.ParamMapping, "dict":
		return "dict"
	case domain.ParamSequence, "list":
		return "list"
	default:
		g.logger.Warn("unrecognized parameter type, using string",
			zap.String("tool", toolName),
			zap.String("parameter", p.Name),
			zap.String("type", string(p.Type)),
		)
		return "str"
	}
}
