package commands

import (
	"context"
	"fmt"

	"github.com/ncobase/docmapper/config"
	"github.com/ncobase/docmapper/data"
	"github.com/ncobase/docmapper/logging/logger"
	"github.com/ncobase/docmapper/logging/observes"
	"github.com/ncobase/docmapper/version"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "docmapper",
		Short:         "Inspect and page through MongoDB collections",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")

	rootCmd.AddCommand(
		NewCursorCommand(),
		NewFindCommand(&configFile),
		NewPaginateCommand(&configFile),
		NewServeCommand(&configFile),
		NewVersionCommand(),
	)

	return rootCmd
}

// app holds what store commands need.
type app struct {
	cfg  *config.Config
	data *data.Data
}

// setup loads the configuration, starts logging and tracing and connects
// the data layer. The returned cleanup releases all of them.
func setup(ctx context.Context, configFile string) (*app, func(), error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetVersion(version.GetVersionInfo().Version)
	cleanupLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}

	shutdownTracer, err := observes.NewTracer(ctx, cfg.Observes.Tracer)
	if err != nil {
		cleanupLogger()
		return nil, nil, err
	}

	d, cleanupData, err := data.New(ctx, cfg.Data)
	if err != nil {
		_ = shutdownTracer(ctx)
		cleanupLogger()
		return nil, nil, fmt.Errorf("failed to connect data layer: %w", err)
	}

	cleanup := func() {
		cleanupData()
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warnf(context.Background(), "tracer shutdown: %v", err)
		}
		cleanupLogger()
	}
	return &app{cfg: cfg, data: d}, cleanup, nil
}
