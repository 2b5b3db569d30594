package domain

import "context"

// ToolHandle is a runtime-callable tool exposed by a provisioned tool
// server. A handle becomes unusable once the scope that produced it closes.
type ToolHandle interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, args map[string]any) (string, error)
}

// ScopeState tracks a provisioning scope through its lifecycle.
type ScopeState string

const (
	ScopeUnprovisioned ScopeState = "unprovisioned"
	ScopeGenerating    ScopeState = "generating"
	ScopeLaunching     ScopeState = "launching"
	ScopeReady         ScopeState = "ready"
	ScopeClosing       ScopeState = "closing"
	ScopeClosed        ScopeState = "closed"
)
