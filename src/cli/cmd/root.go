package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/sofmeright/dockpush/src/config"
	"github.com/sofmeright/dockpush/src/logging"
	"github.com/sofmeright/dockpush/src/metrics"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  = zap.NewNop()
	meters  *metrics.Provider
)

var rootCmd = &cobra.Command{
	Use:   "dockpush",
	Short: "Build and push container images",
	Long:  "dockpush builds a container image from a Dockerfile directory and pushes it to a registry, retrying failed pushes.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it.
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		warnings, err := config.Validate(cfg)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(logging.Config{Level: level, Format: cfg.Log.Format})
		if err != nil {
			return fmt.Errorf("configuring logging: %w", err)
		}
		for _, w := range warnings {
			logger.Warn("config", zap.String("warning", w))
		}

		meters = metrics.NewProvider()
		otel.SetMeterProvider(meters)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .dockpush.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context
// handed to daemon calls and retry waits.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	reportMetrics(context.Background(), logger, meters)
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

// reportMetrics logs the events recorded during the run and shuts the
// provider down. It runs whether or not the command failed.
func reportMetrics(ctx context.Context, log *zap.Logger, p *metrics.Provider) {
	if p == nil {
		return
	}
	totals, err := p.Totals(ctx)
	if err != nil {
		log.Warn("collecting metrics", zap.Error(err))
	}
	for _, t := range totals {
		log.Info("metrics",
			zap.String("event", t.Event),
			zap.Int64("count", t.Count),
			zap.Float64("seconds", t.Seconds))
	}
	if err := p.Shutdown(ctx); err != nil {
		log.Warn("shutting down metrics", zap.Error(err))
	}
}
