package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"toolforge/internal/app"
)

type rootOptions struct {
	configPath string
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	opts := rootOptions{
		configPath: "tools.yaml",
	}

	root := &cobra.Command{
		Use:   "toolforge",
		Short: "Provision MCP tool servers from a declarative tool catalog",
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "path to tool catalog file")

	root.AddCommand(
		newValidateCmd(logger, &opts),
		newGenerateCmd(logger, &opts),
		newUpCmd(logger, &opts),
	)

	return root
}

func newValidateCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the catalog and resolve every toolset without launching servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := app.New(logger)
			return application.Validate(cmd.Context(), app.ValidateConfig{
				ConfigPath: opts.configPath,
			})
		},
	}
}

func newGenerateCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	var toolset string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print the generated tool-server program for a toolset",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := app.New(logger)
			program, err := application.Generate(cmd.Context(), app.GenerateConfig{
				ConfigPath: opts.configPath,
				Toolset:    toolset,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), program)
			return nil
		},
	}

	cmd.Flags().StringVar(&toolset, "toolset", "", "toolset to generate a server for")
	_ = cmd.MarkFlagRequired("toolset")

	return cmd
}

func newUpCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	var toolsets []string
	var serveMetrics bool

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Provision toolsets and hold their servers until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			application := app.New(logger)
			return application.Up(ctx, app.UpConfig{
				ConfigPath:   opts.configPath,
				Toolsets:     toolsets,
				ServeMetrics: serveMetrics,
			})
		},
	}

	cmd.Flags().StringSliceVar(&toolsets, "toolset", nil, "toolset to provision (repeatable)")
	cmd.Flags().BoolVar(&serveMetrics, "metrics", false, "serve /metrics and /healthz")
	_ = cmd.MarkFlagRequired("toolset")

	return cmd
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
