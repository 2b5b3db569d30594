package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLaunch_EmptyCommand(t *testing.T) {
	launcher := NewLauncher(time.Second, zap.NewNop())

	_, err := launcher.Launch(context.Background(), LaunchSpec{Name: "empty"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cmd is required")
}

func TestLaunch_MissingExecutable(t *testing.T) {
	launcher := NewLauncher(2*time.Second, zap.NewNop())

	_, err := launcher.Launch(context.Background(), LaunchSpec{
		Name: "ghost",
		Cmd:  []string{"/nonexistent-toolforge-interpreter", "server.py"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "connect tool server ghost")
}

func TestFormatEnv(t *testing.T) {
	require.Nil(t, formatEnv(nil))
	require.Nil(t, formatEnv(map[string]string{}))

	got := formatEnv(map[string]string{
		"MYSQL_USER":     "app",
		"MYSQL_HOST":     "localhost",
		"MYSQL_PASSWORD": "secret",
	})
	require.Equal(t, []string{
		"MYSQL_HOST=localhost",
		"MYSQL_PASSWORD=secret",
		"MYSQL_USER=app",
	}, got)
}
