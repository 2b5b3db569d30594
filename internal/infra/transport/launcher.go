package transport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// LaunchSpec describes one tool-server subprocess: the interpreter command
// with its arguments, the working directory, and the environment entries
// layered over the parent environment.
type LaunchSpec struct {
	Name string
	Cmd  []string
	Env  map[string]string
	Cwd  string
}

// Launcher starts tool-server subprocesses over stdio and performs the MCP
// handshake, bounded by the configured timeout.
type Launcher struct {
	timeout time.Duration
	logger  *zap.Logger
}

func NewLauncher(handshakeTimeout time.Duration, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{
		timeout: handshakeTimeout,
		logger:  logger.Named("launcher"),
	}
}

// Launch starts the subprocess and returns an initialized MCP session.
// Closing the session terminates the subprocess. The handshake (spawn plus
// initialize) must complete within the launcher's timeout; the session
// itself is not bounded by ctx afterwards.
func (l *Launcher) Launch(ctx context.Context, spec LaunchSpec) (*mcp.ClientSession, error) {
	if len(spec.Cmd) == 0 {
		return nil, errors.New("cmd is required to launch a tool server")
	}

	cmd := exec.Command(spec.Cmd[0], spec.Cmd[1:]...)
	if spec.Cwd != "" {
		cmd.Dir = spec.Cwd
	}
	cmd.Env = append(os.Environ(), formatEnv(spec.Env)...)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "toolforge",
		Version: "0.1.0",
	}, nil)

	handshakeCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		handshakeCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	started := time.Now()
	session, err := client.Connect(handshakeCtx, &mcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, fmt.Errorf("connect tool server %s: %w", spec.Name, err)
	}

	l.logger.Info("tool server started",
		zap.String("server", spec.Name),
		zap.String("executable", spec.Cmd[0]),
		zap.Duration("handshake", time.Since(started)),
	)
	return session, nil
}

func formatEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(env))
	for _, key := range keys {
		out = append(out, fmt.Sprintf("%s=%s", key, env[key]))
	}
	return out
}
