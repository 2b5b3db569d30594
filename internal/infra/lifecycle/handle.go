package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"toolforge/internal/infra/telemetry"
)

// toolCaller is the slice of an MCP client session the handles need.
type toolCaller interface {
	CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
}

// serverToolHandle is a callable tool backed by a provisioned tool server.
// It stays valid only while the owning scope is open.
type serverToolHandle struct {
	caller      toolCaller
	name        string
	description string
	metrics     *telemetry.Metrics
}

func (h *serverToolHandle) Name() string        { return h.name }
func (h *serverToolHandle) Description() string { return h.description }

func (h *serverToolHandle) Invoke(ctx context.Context, args map[string]any) (string, error) {
	result, err := h.caller.CallTool(ctx, &mcp.CallToolParams{
		Name:      h.name,
		Arguments: args,
	})
	if err != nil {
		h.metrics.ObserveInvocation(h.name, err)
		return "", fmt.Errorf("invoke tool %s: %w", h.name, err)
	}

	text := renderContent(result.Content)
	if result.IsError {
		err = fmt.Errorf("tool %s failed: %s", h.name, text)
		h.metrics.ObserveInvocation(h.name, err)
		return "", err
	}
	h.metrics.ObserveInvocation(h.name, nil)
	return text, nil
}

func renderContent(content []mcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, item := range content {
		if text, ok := item.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}
