package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldToolset    = "toolset"
	FieldTool       = "tool"
	FieldScopeID    = "scopeID"
	FieldState      = "state"
	FieldDurationMs = "duration_ms"
)

const (
	EventProvisionAttempt = "provision_attempt"
	EventProvisionSuccess = "provision_success"
	EventProvisionFailure = "provision_failure"
	EventReleaseSuccess   = "release_success"
	EventReleaseFailure   = "release_failure"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ToolsetField(toolset string) zap.Field {
	return zap.String(FieldToolset, toolset)
}

func ToolField(tool string) zap.Field {
	return zap.String(FieldTool, tool)
}

func ScopeIDField(scopeID string) zap.Field {
	return zap.String(FieldScopeID, scopeID)
}

func StateField(state string) zap.Field {
	return zap.String(FieldState, state)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}
