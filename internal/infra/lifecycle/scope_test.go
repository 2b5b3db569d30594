package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"toolforge/internal/domain"
)

func TestScope_ReverseOrderRelease(t *testing.T) {
	scope := NewScope("hotel-tools", zap.NewNop())
	require.Equal(t, domain.ScopeUnprovisioned, scope.State())

	var order []string
	scope.Defer("first", func() error {
		order = append(order, "first")
		return nil
	})
	scope.Defer("second", func() error {
		order = append(order, "second")
		return nil
	})
	scope.Defer("third", func() error {
		order = append(order, "third")
		return nil
	})

	scope.Close()
	require.Equal(t, []string{"third", "second", "first"}, order)
	require.Equal(t, domain.ScopeClosed, scope.State())
}

func TestScope_CloseIsIdempotent(t *testing.T) {
	scope := NewScope("hotel-tools", zap.NewNop())

	runs := 0
	scope.Defer("count", func() error {
		runs++
		return nil
	})

	scope.Close()
	scope.Close()
	require.Equal(t, 1, runs)
}

func TestScope_ActionErrorsAreSwallowed(t *testing.T) {
	scope := NewScope("hotel-tools", zap.NewNop())

	var order []string
	scope.Defer("outer", func() error {
		order = append(order, "outer")
		return nil
	})
	scope.Defer("failing", func() error {
		order = append(order, "failing")
		return errors.New("file already removed")
	})

	scope.Close()
	require.Equal(t, []string{"failing", "outer"}, order)
	require.Equal(t, domain.ScopeClosed, scope.State())
}

func TestScope_DeferAfterCloseRunsImmediately(t *testing.T) {
	scope := NewScope("hotel-tools", zap.NewNop())
	scope.Close()

	ran := false
	scope.Defer("late", func() error {
		ran = true
		return nil
	})
	require.True(t, ran)
}

func TestScope_Identity(t *testing.T) {
	a := NewScope("hotel-tools", zap.NewNop())
	b := NewScope("hotel-tools", zap.NewNop())
	require.Equal(t, "hotel-tools", a.Name())
	require.NotEmpty(t, a.ID())
	require.NotEqual(t, a.ID(), b.ID())
}
