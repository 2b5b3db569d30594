package lifecycle

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"toolforge/internal/domain"
	"toolforge/internal/infra/telemetry"
)

type cleanupAction struct {
	label string
	fn    func() error
}

// Scope owns the resources acquired while provisioning one tool server:
// the transient program file and the server subprocess. Cleanup actions run
// in reverse registration order when the scope closes, on every exit path.
// A scope must not be shared between unrelated provisioning calls.
type Scope struct {
	id     string
	name   string
	logger *zap.Logger

	mu      sync.Mutex
	state   domain.ScopeState
	actions []cleanupAction
}

func NewScope(name string, logger *zap.Logger) *Scope {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &Scope{
		id:     id,
		name:   name,
		state:  domain.ScopeUnprovisioned,
		logger: logger.Named("scope").With(telemetry.ToolsetField(name), telemetry.ScopeIDField(id)),
	}
}

func (s *Scope) ID() string   { return s.id }
func (s *Scope) Name() string { return s.name }

func (s *Scope) State() domain.ScopeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scope) setState(state domain.ScopeState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.logger.Debug("scope state changed", telemetry.StateField(string(state)))
}

// Defer registers a cleanup action. Actions registered after the scope
// closed are executed immediately, so a late acquisition cannot leak.
func (s *Scope) Defer(label string, fn func() error) {
	s.mu.Lock()
	if s.state == domain.ScopeClosing || s.state == domain.ScopeClosed {
		s.mu.Unlock()
		s.runAction(cleanupAction{label: label, fn: fn})
		return
	}
	s.actions = append(s.actions, cleanupAction{label: label, fn: fn})
	s.mu.Unlock()
}

// Close releases everything the scope owns, newest acquisition first.
// Action failures are logged and swallowed so they never mask the error
// that triggered the close. Close is idempotent and runs to completion even
// when the provisioning context has been cancelled.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.state == domain.ScopeClosing || s.state == domain.ScopeClosed {
		s.mu.Unlock()
		return
	}
	s.state = domain.ScopeClosing
	actions := s.actions
	s.actions = nil
	s.mu.Unlock()
	s.logger.Debug("scope state changed", telemetry.StateField(string(domain.ScopeClosing)))

	for i := len(actions) - 1; i >= 0; i-- {
		s.runAction(actions[i])
	}

	s.setState(domain.ScopeClosed)
	s.logger.Info("scope released", telemetry.EventField(telemetry.EventReleaseSuccess))
}

func (s *Scope) runAction(action cleanupAction) {
	if action.fn == nil {
		return
	}
	if err := action.fn(); err != nil {
		s.logger.Warn("cleanup action failed",
			telemetry.EventField(telemetry.EventReleaseFailure),
			zap.String("action", action.label),
			zap.Error(err),
		)
	}
}
